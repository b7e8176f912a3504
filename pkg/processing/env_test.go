package processing

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestResolve_DisjointIsUnion(t *testing.T) {
	global := map[string]string{"A": "1", "B": "2"}
	job := map[string]string{"C": "3"}

	env, err := Resolve(global, job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Environment{"A": "1", "B": "2", "C": "3"}
	if !maps.Equal(env, want) {
		t.Errorf("expected %v, got %v", want, env)
	}
}

func TestResolve_JobOverridesGlobal(t *testing.T) {
	global := map[string]string{"RUST_BACKTRACE": "1", "SHELL": "/bin/sh"}
	job := map[string]string{"RUST_BACKTRACE": "full"}

	env, err := Resolve(global, job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env["RUST_BACKTRACE"] != "full" {
		t.Errorf("expected job value to win, got %q", env["RUST_BACKTRACE"])
	}
	if env["SHELL"] != "/bin/sh" {
		t.Errorf("expected global value to pass through, got %q", env["SHELL"])
	}
	if len(env) != 2 {
		t.Errorf("expected 2 keys, got %v", env)
	}
}

func TestResolve_DoesNotMutateInputs(t *testing.T) {
	global := map[string]string{"A": "g"}
	job := map[string]string{"A": "j", "B": "j"}
	globalCopy, jobCopy := maps.Clone(global), maps.Clone(job)

	env, err := Resolve(global, job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env["A"] = "changed"

	if !maps.Equal(global, globalCopy) || !maps.Equal(job, jobCopy) {
		t.Errorf("inputs mutated: global=%v job=%v", global, job)
	}
}

func TestResolve_NilInputs(t *testing.T) {
	env, err := Resolve(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env == nil || len(env) != 0 {
		t.Errorf("expected empty non-nil environment, got %v", env)
	}
}

func TestResolve_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		global map[string]string
		job    map[string]string
	}{
		{"empty key", map[string]string{"": "x"}, nil},
		{"equals in key", nil, map[string]string{"A=B": "x"}},
		{"nul in key", nil, map[string]string{"A\x00": "x"}},
		{"nul in value", map[string]string{"A": "x\x00y"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.global, tt.job)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if !errors.Is(err, ErrConfig) {
				t.Errorf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestResolveLayers_LeftToRight(t *testing.T) {
	env, err := ResolveLayers(
		map[string]string{"A": "1", "B": "1", "C": "1"},
		map[string]string{"B": "2", "C": "2"},
		map[string]string{"C": "3"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Environment{"A": "1", "B": "2", "C": "3"}
	if !maps.Equal(env, want) {
		t.Errorf("expected %v, got %v", want, env)
	}
}

func TestEnvironment_Pairs(t *testing.T) {
	env := Environment{"B": "2", "A": "1", "EMPTY": ""}
	want := []string{"A=1", "B=2", "EMPTY="}
	if got := env.Pairs(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestProcessEnvironment(t *testing.T) {
	t.Setenv("BUILDSTEPS_TEST_VAR", "a=b")
	env := ProcessEnvironment()
	if env["BUILDSTEPS_TEST_VAR"] != "a=b" {
		t.Errorf("expected value with '=' preserved, got %q", env["BUILDSTEPS_TEST_VAR"])
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	if err := os.WriteFile(first, []byte("A=1\nB=1\n# comment\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(second, []byte("B=2\nexport C=\"quoted value\"\nBUILDSTEPS_ONLY_IN_FILE=x\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	layer, err := LoadEnvFiles(first, second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{"A": "1", "B": "2", "C": "quoted value", "BUILDSTEPS_ONLY_IN_FILE": "x"}
	if !maps.Equal(layer, want) {
		t.Errorf("expected %v, got %v", want, layer)
	}
	if os.Getenv("BUILDSTEPS_ONLY_IN_FILE") != "" {
		t.Error("env files must not leak into the process environment")
	}
}

func TestLoadEnvFiles_Missing(t *testing.T) {
	if _, err := LoadEnvFiles("/nonexistent/ci.env"); err == nil {
		t.Fatal("expected error for missing env file")
	}
}
