package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/systemstart/buildsteps/pkg/config"
	"github.com/systemstart/buildsteps/pkg/processing"
	"github.com/systemstart/buildsteps/pkg/server"
	"github.com/systemstart/buildsteps/pkg/steps"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the manifest's jobs over HTTP",
		Long: `Serve loads the manifest once and exposes it over HTTP:

  GET  /jobs             list jobs
  GET  /jobs/{name}      job definition
  POST /jobs/{name}/run  run a job and return its result
  GET  /healthz          liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.loadManifest()
			if err != nil {
				return err
			}
			global, err := a.globalEnv(m, a.cfg.InheritEnv)
			if err != nil {
				return err
			}

			var stream = cmd.ErrOrStderr()
			if !a.cfg.Stream {
				stream = nil
			}
			exec := processing.NewExecutor(steps.NewExecRunner(stream), a.workDir(m), global)
			srv := server.New(processing.NewRegistry(m), exec)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, a.cfg.Addr)
		},
	}

	fs := cmd.Flags()
	addExecFlags(fs)
	fs.String(config.KeyAddr, ":8080", "listen address")
	return cmd
}
