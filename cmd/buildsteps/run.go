package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/systemstart/buildsteps/pkg/config"
	"github.com/systemstart/buildsteps/pkg/processing"
	"github.com/systemstart/buildsteps/pkg/report"
	"github.com/systemstart/buildsteps/pkg/steps"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <job-or-glob>...",
		Short: "Run the selected jobs and report their results",
		Long: `Run executes each selected job's steps in order. A job stops at its first
failing step unless that step is marked always-succeed. Retired jobs are
reported as skipped. Job names may be glob patterns such as 'linux-*'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
		},
	}

	fs := cmd.Flags()
	addExecFlags(fs)
	fs.IntP(config.KeyParallel, "j", 1, "number of jobs to run at once")
	fs.String(config.KeyFormat, report.FormatText, "report format: text or json")
	fs.String(config.KeyTemplate, "", "text/template file used to render the report")
	fs.Bool(config.KeyDryRun, false, "print the steps instead of running them")
	return cmd
}

func (a *app) run(ctx context.Context, stdout, stderr io.Writer, patterns []string) error {
	m, err := a.loadManifest()
	if err != nil {
		return err
	}

	jobs, err := processing.NewRegistry(m).Select(patterns...)
	if err != nil {
		return err
	}

	global, err := a.globalEnv(m, a.cfg.InheritEnv)
	if err != nil {
		return err
	}

	runner, err := a.runner(stdout, stderr)
	if err != nil {
		return err
	}

	exec := processing.NewExecutor(runner, a.workDir(m), global)
	slog.Info("running jobs", "count", len(jobs), "parallel", a.cfg.Parallel, "workDir", exec.WorkDir)
	results := processing.RunBatch(ctx, exec, jobs, a.cfg.Parallel)

	if err := a.render(stdout, results); err != nil {
		return err
	}
	if !processing.Summarize(results).OK() {
		return errJobsFailed
	}
	return nil
}

func (a *app) runner(stdout, stderr io.Writer) (steps.Runner, error) {
	if a.cfg.DryRun {
		return steps.NewRunner(steps.RunnerDryRun, stdout)
	}
	var stream io.Writer
	if a.cfg.Stream {
		stream = stderr
	}
	return steps.NewRunner(steps.RunnerExec, stream)
}

func (a *app) render(w io.Writer, results []processing.JobResult) error {
	if a.cfg.Template == "" {
		return report.Render(w, a.cfg.Format, results)
	}
	text, err := os.ReadFile(a.cfg.Template)
	if err != nil {
		return fmt.Errorf("reading report template: %w", err)
	}
	return report.RenderTemplate(w, string(text), results)
}
