package main

import (
	"github.com/spf13/cobra"
	"github.com/systemstart/buildsteps/pkg/api"
	"github.com/systemstart/buildsteps/pkg/config"
	"github.com/systemstart/buildsteps/pkg/processing"
)

func newShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <job>",
		Short: "Print a job with its resolved environment as YAML",
		Long: `Show prints the job as it will run: the manifest's global env and any env
files merged under the job's own env, followed by its commands. The caller's
environment is left out unless --inherit-env is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadManifest()
			if err != nil {
				return err
			}
			j, err := processing.NewRegistry(m).Lookup(args[0])
			if err != nil {
				return err
			}

			inherit, err := cmd.Flags().GetBool(config.KeyInheritEnv)
			if err != nil {
				return err
			}
			global, err := a.globalEnv(m, inherit)
			if err != nil {
				return err
			}
			env, err := processing.Resolve(global, j.Env)
			if err != nil {
				return err
			}

			data, err := api.Encode(&api.Manifest{Jobs: []*api.Job{{
				Name:    j.Name,
				Env:     env,
				Steps:   j.Steps,
				Retired: j.Retired,
			}}})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	fs := cmd.Flags()
	fs.StringSlice(config.KeyEnvFile, nil, "dotenv file layered under the manifest env (repeatable)")
	fs.Bool(config.KeyInheritEnv, false, "include the caller's environment")
	return cmd
}
