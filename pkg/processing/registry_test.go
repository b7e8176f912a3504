package processing

import (
	"errors"
	"slices"
	"testing"

	"github.com/systemstart/buildsteps/pkg/api"
)

func testRegistry() *Registry {
	return NewRegistry(&api.Manifest{Jobs: []*api.Job{
		job("linux-dev", "./mach build --dev"),
		job("linux-rel-wpt", "./mach build --release", "./mach test-wpt"),
		job("mac-dev", "./mach build --dev"),
		job("windows-msvc-dev"),
		job("arm32"),
	}})
}

func TestRegistry_Lookup(t *testing.T) {
	r := testRegistry()

	j, err := r.Lookup("mac-dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Name != "mac-dev" {
		t.Errorf("got job %q", j.Name)
	}

	_, err = r.Lookup("linux-nightly")
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Name != "linux-nightly" {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_ListKeepsDeclarationOrder(t *testing.T) {
	want := []string{"linux-dev", "linux-rel-wpt", "mac-dev", "windows-msvc-dev", "arm32"}
	if got := testRegistry().List(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRegistry_IsRetired(t *testing.T) {
	r := testRegistry()
	tests := map[string]bool{
		"linux-dev":        false,
		"windows-msvc-dev": true,
		"arm32":            true,
		"never-declared":   false,
	}
	for name, want := range tests {
		if got := r.IsRetired(name); got != want {
			t.Errorf("IsRetired(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestRegistry_JobsIsACopy(t *testing.T) {
	r := testRegistry()
	jobs := r.Jobs()
	jobs[0] = nil
	if r.Jobs()[0] == nil {
		t.Error("Jobs must not expose the registry's slice")
	}
}

func TestRegistry_Select(t *testing.T) {
	r := testRegistry()
	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"exact", []string{"mac-dev"}, []string{"mac-dev"}},
		{"glob", []string{"linux-*"}, []string{"linux-dev", "linux-rel-wpt"}},
		{"alternatives", []string{"{mac,windows-msvc}-dev"}, []string{"mac-dev", "windows-msvc-dev"}},
		{"declaration order", []string{"arm32", "linux-dev"}, []string{"linux-dev", "arm32"}},
		{"deduplicated", []string{"*-dev", "mac-dev"}, []string{"linux-dev", "mac-dev", "windows-msvc-dev"}},
		{"everything", []string{"*"}, []string{"linux-dev", "linux-rel-wpt", "mac-dev", "windows-msvc-dev", "arm32"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := r.Select(tt.patterns...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var got []string
			for _, j := range jobs {
				got = append(got, j.Name)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Select(%v) = %v, want %v", tt.patterns, got, tt.want)
			}
		})
	}
}

func TestRegistry_SelectErrors(t *testing.T) {
	r := testRegistry()

	if _, err := r.Select("freebsd-*"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unmatched pattern, got %v", err)
	}
	if _, err := r.Select("linux-[dev"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected bad pattern error, got %v", err)
	}
}
