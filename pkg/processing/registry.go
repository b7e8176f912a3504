package processing

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/systemstart/buildsteps/pkg/api"
)

// Registry holds the jobs of a manifest by name, in declaration order.
// It is read-only after construction.
type Registry struct {
	jobs   []*api.Job
	byName map[string]*api.Job
}

// NewRegistry indexes the jobs of m.
func NewRegistry(m *api.Manifest) *Registry {
	r := &Registry{
		jobs:   make([]*api.Job, 0, len(m.Jobs)),
		byName: make(map[string]*api.Job, len(m.Jobs)),
	}
	for _, j := range m.Jobs {
		r.jobs = append(r.jobs, j)
		r.byName[j.Name] = j
	}
	return r
}

// Lookup returns the job with the given name.
func (r *Registry) Lookup(name string) (*api.Job, error) {
	j, ok := r.byName[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return j, nil
}

// List returns job names in declaration order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.jobs))
	for _, j := range r.jobs {
		names = append(names, j.Name)
	}
	return names
}

// Jobs returns the jobs in declaration order.
func (r *Registry) Jobs() []*api.Job {
	return append([]*api.Job(nil), r.jobs...)
}

// IsRetired reports whether the named job exists and has no steps.
func (r *Registry) IsRetired(name string) bool {
	j, ok := r.byName[name]
	return ok && (j.Retired || len(j.Steps) == 0)
}

// Select returns the jobs matching any of the names or glob patterns, in
// declaration order and without duplicates. A pattern matching no job is a
// *NotFoundError.
func (r *Registry) Select(patterns ...string) ([]*api.Job, error) {
	selected := make(map[string]bool)

	for _, pattern := range patterns {
		if _, ok := r.byName[pattern]; ok {
			selected[pattern] = true
			continue
		}

		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid job pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}

		matched := false
		for _, j := range r.jobs {
			if ok, _ := doublestar.Match(pattern, j.Name); ok {
				selected[j.Name] = true
				matched = true
			}
		}
		if !matched {
			return nil, &NotFoundError{Name: pattern}
		}
	}

	var jobs []*api.Job
	for _, j := range r.jobs {
		if selected[j.Name] {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}
