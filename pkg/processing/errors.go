package processing

import (
	"errors"
	"fmt"
)

var (
	ErrConfig   = errors.New("invalid environment")
	ErrNotFound = errors.New("job not found")
)

// ConfigError reports environment input that cannot be turned into a
// process environment. It fails the affected job only.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: key %q: %s", ErrConfig, e.Key, e.Msg)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// NotFoundError reports a job name or pattern that matches no job.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", ErrNotFound, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
