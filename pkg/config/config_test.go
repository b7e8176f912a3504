package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/pflag"
)

func TestResolve_Defaults(t *testing.T) {
	v := New()
	if err := ReadFile(v, "", t.TempDir()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, err := Resolve(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Manifest != "buildsteps.yml" || c.LogFormat != "tint" || c.LogLevel != "info" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.Parallel != 1 || !c.InheritEnv || c.Format != "text" || c.Addr != ":8080" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.File != "" {
		t.Errorf("expected no config file, got %q", c.File)
	}
}

func TestResolve_Precedence(t *testing.T) {
	dir := t.TempDir()
	content := "manifest: from-file.yml\nparallel: 3\nlog-level: debug\nenv-file: [a.env, b.env]\n"
	if err := os.WriteFile(filepath.Join(dir, ".buildsteps.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BUILDSTEPS_PARALLEL", "5")
	t.Setenv("BUILDSTEPS_LOG_FORMAT", "json")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(KeyLogLevel, "info", "")
	fs.Int(KeyParallel, 1, "")
	fs.Bool("unrelated", false, "")
	if err := fs.Parse([]string{"--log-level", "warn"}); err != nil {
		t.Fatal(err)
	}

	v := New()
	if err := BindFlags(v, fs); err != nil {
		t.Fatal(err)
	}
	if err := ReadFile(v, "", dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, err := Resolve(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Manifest != "from-file.yml" {
		t.Errorf("expected manifest from file, got %q", c.Manifest)
	}
	if c.Parallel != 5 {
		t.Errorf("expected parallel from environment, got %d", c.Parallel)
	}
	if c.LogFormat != "json" {
		t.Errorf("expected log format from environment, got %q", c.LogFormat)
	}
	if c.LogLevel != "warn" {
		t.Errorf("expected log level from flag, got %q", c.LogLevel)
	}
	if !slices.Equal(c.EnvFiles, []string{"a.env", "b.env"}) {
		t.Errorf("unexpected env files: %v", c.EnvFiles)
	}
	if filepath.Base(c.File) != ".buildsteps.yaml" {
		t.Errorf("expected config file to be recorded, got %q", c.File)
	}
}

func TestReadFile_ExplicitFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "ci.yaml")
	if err := os.WriteFile(f, []byte("addr: 127.0.0.1:9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	v := New()
	if err := ReadFile(v, f, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := Resolve(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.Addr != "127.0.0.1:9000" {
		t.Errorf("expected addr from file, got %q", c.Addr)
	}
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	if err := ReadFile(New(), filepath.Join(dir, "missing.yaml"), ""); err == nil {
		t.Error("expected error for missing explicit config file")
	}

	if err := os.WriteFile(filepath.Join(dir, ".buildsteps.yaml"), []byte("parallel: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := ReadFile(New(), "", dir); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestResolve_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"zero parallel", KeyParallel, 0},
		{"empty manifest", KeyManifest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set(tt.key, tt.val)
			if _, err := Resolve(v); err == nil {
				t.Error("expected error")
			}
		})
	}
}
