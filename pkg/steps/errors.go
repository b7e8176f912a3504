package steps

import (
	"errors"
	"fmt"
)

var (
	ErrLaunch     = errors.New("command could not be launched")
	ErrStepFailed = errors.New("command failed")
)

// LaunchError reports a command that could not be started at all: an empty
// command line, a binary missing from PATH, or a permission problem. It
// usually points at a misconfigured environment rather than a broken build.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() []error { return []error{ErrLaunch, e.Err} }

// StepFailure reports a command that ran and exited with a nonzero status.
type StepFailure struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *StepFailure) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("command %q terminated: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
}

func (e *StepFailure) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStepFailed}
	}
	return []error{ErrStepFailed, e.Err}
}
