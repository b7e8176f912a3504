package steps

import (
	"fmt"
	"io"
)

const (
	RunnerExec   = "exec"
	RunnerDryRun = "dry-run"
)

// NewRunner creates a Runner by name. out receives streamed step output
// for the exec runner and the command listing for the dry-run runner.
func NewRunner(kind string, out io.Writer) (Runner, error) {
	switch kind {
	case RunnerExec, "":
		return NewExecRunner(out), nil
	case RunnerDryRun:
		return &DryRunRunner{Out: out}, nil
	default:
		return nil, fmt.Errorf("unknown runner: %s", kind)
	}
}
