package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/systemstart/buildsteps/pkg/api"
	"github.com/systemstart/buildsteps/pkg/config"
	"github.com/systemstart/buildsteps/pkg/logging"
	"github.com/systemstart/buildsteps/pkg/processing"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "buildsteps",
		Short:         "Run the jobs of a CI build manifest",
		Long:          "buildsteps loads a manifest of CI jobs and runs their steps in order, stopping a job at its first failing step.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringP(config.KeyManifest, "m", api.DefaultManifestFile, "manifest file")
	pf.String(config.KeyLogFormat, logging.Tint, "logging format: json, text or tint")
	pf.String(config.KeyLogLevel, "info", "logging level: debug, info, warn, error")
	pf.StringVar(&a.configFile, "config", "", "config file (default .buildsteps.yaml in the working directory)")

	root.AddCommand(
		newRunCmd(a),
		newListCmd(a),
		newValidateCmd(a),
		newShowCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := includeEnv(); err != nil {
		return err
	}
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	if err := config.ReadFile(a.v, a.configFile, "."); err != nil {
		return err
	}

	cfg, err := config.Resolve(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := logging.Initialize(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel); err != nil {
		return err
	}
	if cfg.File != "" {
		slog.Debug("using config file", "file", cfg.File)
	}
	return nil
}

// manifestPath returns the configured manifest. When the default name is
// not present in the working directory the parents are searched.
func (a *app) manifestPath() string {
	if a.cfg.Manifest != api.DefaultManifestFile {
		return a.cfg.Manifest
	}
	if _, err := os.Stat(a.cfg.Manifest); !errors.Is(err, fs.ErrNotExist) {
		return a.cfg.Manifest
	}
	if found, err := api.FindManifest("."); err == nil {
		return found
	}
	return a.cfg.Manifest
}

func (a *app) loadManifest() (*api.Manifest, error) {
	return api.LoadManifest(a.manifestPath())
}

// globalEnv layers the process environment (optional), env files and the
// manifest's global env, later layers winning.
func (a *app) globalEnv(m *api.Manifest, inherit bool) (processing.Environment, error) {
	var layers []map[string]string
	if inherit {
		layers = append(layers, processing.ProcessEnvironment())
	}
	if len(a.cfg.EnvFiles) > 0 {
		files, err := processing.LoadEnvFiles(a.cfg.EnvFiles...)
		if err != nil {
			return nil, err
		}
		layers = append(layers, files)
	}
	layers = append(layers, m.Env)

	env, err := processing.ResolveLayers(layers...)
	if err != nil {
		return nil, fmt.Errorf("global environment: %w", err)
	}
	return env, nil
}

// workDir defaults to the directory holding the manifest.
func (a *app) workDir(m *api.Manifest) string {
	if a.cfg.WorkDir != "" {
		return a.cfg.WorkDir
	}
	return filepath.Dir(m.FilePath)
}

func addExecFlags(fs *pflag.FlagSet) {
	fs.String(config.KeyWorkDir, "", "working directory for steps (default: the manifest's directory)")
	fs.StringSlice(config.KeyEnvFile, nil, "dotenv file layered under the manifest env (repeatable)")
	fs.Bool(config.KeyInheritEnv, true, "start from the caller's environment")
	fs.Bool(config.KeyStream, false, "copy step output to stderr while it runs")
}
