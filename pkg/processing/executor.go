package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/systemstart/buildsteps/pkg/api"
	"github.com/systemstart/buildsteps/pkg/steps"
)

// JobResult is the outcome of one job execution.
type JobResult struct {
	Job      string
	Status   Status
	Steps    []steps.StepResult // in execution order
	Duration time.Duration

	// FailedStep is the index of the step that failed the job, or -1.
	FailedStep int

	// Err describes why the job failed: a *ConfigError from environment
	// resolution or the error of the failing step.
	Err error
}

// OK reports whether the job succeeded or was skipped.
func (r JobResult) OK() bool {
	return r.Status == StatusSuccess || r.Status == StatusSkipped
}

// Failure returns the step result that failed the job, if any.
func (r JobResult) Failure() (steps.StepResult, bool) {
	if r.FailedStep < 0 || r.FailedStep >= len(r.Steps) {
		return steps.StepResult{}, false
	}
	return r.Steps[r.FailedStep], true
}

// Executor runs jobs with a fixed runner, working directory and global
// environment. It holds no per-run state and is safe for concurrent use.
type Executor struct {
	Runner  steps.Runner
	WorkDir string
	Global  map[string]string
}

// NewExecutor creates an Executor.
func NewExecutor(runner steps.Runner, workDir string, global map[string]string) *Executor {
	return &Executor{Runner: runner, WorkDir: workDir, Global: global}
}

// Execute runs the job's steps in order.
func (e *Executor) Execute(ctx context.Context, job *api.Job) JobResult {
	return Execute(ctx, e.Runner, job, e.Global, e.WorkDir)
}

// Execute runs the steps of job one at a time in declared order and stops at
// the first failing step that is not marked always-succeed. A job without
// steps is skipped without resolving its environment or spawning anything.
func Execute(ctx context.Context, runner steps.Runner, job *api.Job, global map[string]string, workDir string) JobResult {
	start := time.Now()
	result := JobResult{Job: job.Name, Status: StatusPending, FailedStep: -1}

	if len(job.Steps) == 0 {
		slog.Info("skipping retired job", "job", job.Name)
		result.Status = StatusSkipped
		return result
	}

	env, err := Resolve(global, job.Env)
	if err != nil {
		slog.Error("cannot resolve job environment", "job", job.Name, "error", err)
		result.Status = StatusFailed
		result.Err = fmt.Errorf("resolving environment for job %q: %w", job.Name, err)
		result.Duration = time.Since(start)
		return result
	}
	pairs := env.Pairs()

	jobSteps := slices.Clone(job.Steps)
	result.Status = StatusRunning
	result.Steps = make([]steps.StepResult, 0, len(jobSteps))

	for i, step := range jobSteps {
		slog.Info("running step", "job", job.Name, "step", i+1, "of", len(jobSteps), "command", step.Run)

		sr := runner.Run(ctx, step.Run, pairs, workDir)
		sr.AlwaysSucceed = step.AlwaysSucceed
		result.Steps = append(result.Steps, sr)

		if !sr.Failed() {
			continue
		}
		logStepFailure(job.Name, i, sr)
		if step.AlwaysSucceed {
			continue
		}

		result.Status = StatusFailed
		result.FailedStep = i
		result.Err = fmt.Errorf("job %q step %d: %w", job.Name, i+1, sr.Err)
		result.Duration = time.Since(start)
		return result
	}

	result.Status = StatusSuccess
	result.Duration = time.Since(start)
	return result
}

func logStepFailure(job string, i int, sr steps.StepResult) {
	attrs := []any{"job", job, "step", i + 1, "command", sr.Command, "error", sr.Err}

	if errors.Is(sr.Err, steps.ErrLaunch) {
		attrs = append(attrs, "hint", "check PATH and the job environment")
		if sr.AlwaysSucceed {
			slog.Warn("step could not be launched, continuing", attrs...)
			return
		}
		slog.Error("step could not be launched", attrs...)
		return
	}

	attrs = append(attrs, "exitCode", sr.ExitCode)
	if sr.AlwaysSucceed {
		slog.Warn("step failed, continuing", attrs...)
		return
	}
	slog.Error("step failed", attrs...)
}
