package steps

import (
	"context"
	"time"
)

// StepResult holds the outcome of one step.
type StepResult struct {
	Command  string
	ExitCode int    // -1 when the process never started or was killed
	Output   []byte // combined stdout and stderr
	Duration time.Duration

	// Err is a *LaunchError or *StepFailure when the step failed.
	Err error

	// AlwaysSucceed is copied from the step definition by the executor.
	AlwaysSucceed bool
}

// Failed reports whether the command failed to launch or exited nonzero.
func (r StepResult) Failed() bool { return r.Err != nil }

// Runner executes one external command. Implementations spawn at most one
// process per call and block until it exits.
type Runner interface {
	Run(ctx context.Context, command string, env []string, workDir string) StepResult
}
