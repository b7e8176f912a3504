// Package config resolves buildsteps settings from command line flags,
// BUILDSTEPS_* environment variables and an optional YAML config file, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/systemstart/buildsteps/pkg/api"
)

const (
	EnvPrefix      = "BUILDSTEPS"
	DefaultFile    = ".buildsteps"
	DefaultFileExt = "yaml"
)

// Keys double as flag names.
const (
	KeyManifest   = "manifest"
	KeyLogFormat  = "log-format"
	KeyLogLevel   = "log-level"
	KeyParallel   = "parallel"
	KeyWorkDir    = "workdir"
	KeyEnvFile    = "env-file"
	KeyInheritEnv = "inherit-env"
	KeyStream     = "stream"
	KeyFormat     = "format"
	KeyTemplate   = "template"
	KeyDryRun     = "dry-run"
	KeyAddr       = "addr"
)

// Config is the resolved configuration of one invocation.
type Config struct {
	Manifest   string
	LogFormat  string
	LogLevel   string
	Parallel   int
	WorkDir    string
	EnvFiles   []string
	InheritEnv bool
	Stream     bool
	Format     string
	Template   string
	DryRun     bool
	Addr       string

	// File is the config file that was read, empty when none.
	File string
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyManifest, api.DefaultManifestFile)
	v.SetDefault(KeyLogFormat, "tint")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyParallel, 1)
	v.SetDefault(KeyWorkDir, "")
	v.SetDefault(KeyEnvFile, []string{})
	v.SetDefault(KeyInheritEnv, true)
	v.SetDefault(KeyStream, false)
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyTemplate, "")
	v.SetDefault(KeyDryRun, false)
	v.SetDefault(KeyAddr, ":8080")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag of fs whose name is a config key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || !isKey(f.Name) {
			return
		}
		if err := v.BindPFlag(f.Name, f); err != nil {
			bindErr = fmt.Errorf("binding flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

func isKey(name string) bool {
	switch name {
	case KeyManifest, KeyLogFormat, KeyLogLevel, KeyParallel, KeyWorkDir, KeyEnvFile,
		KeyInheritEnv, KeyStream, KeyFormat, KeyTemplate, KeyDryRun, KeyAddr:
		return true
	default:
		return false
	}
}

// ReadFile reads the config file. An explicit file must exist; otherwise
// .buildsteps.yaml in dir is used when present.
func ReadFile(v *viper.Viper, file, dir string) error {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", file, err)
		}
		return nil
	}

	v.SetConfigName(DefaultFile)
	v.SetConfigType(DefaultFileExt)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

// Resolve reads the effective settings out of v.
func Resolve(v *viper.Viper) (*Config, error) {
	c := &Config{
		Manifest:   v.GetString(KeyManifest),
		LogFormat:  v.GetString(KeyLogFormat),
		LogLevel:   v.GetString(KeyLogLevel),
		Parallel:   v.GetInt(KeyParallel),
		WorkDir:    v.GetString(KeyWorkDir),
		EnvFiles:   v.GetStringSlice(KeyEnvFile),
		InheritEnv: v.GetBool(KeyInheritEnv),
		Stream:     v.GetBool(KeyStream),
		Format:     v.GetString(KeyFormat),
		Template:   v.GetString(KeyTemplate),
		DryRun:     v.GetBool(KeyDryRun),
		Addr:       v.GetString(KeyAddr),
		File:       v.ConfigFileUsed(),
	}

	if c.Manifest == "" {
		return nil, errors.New("manifest path must not be empty")
	}
	if c.Parallel < 1 {
		return nil, fmt.Errorf("parallel must be at least 1, got %d", c.Parallel)
	}
	return c, nil
}
