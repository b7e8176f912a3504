package steps

import (
	"context"
	"fmt"
	"io"
)

// DryRunRunner prints each command instead of running it and reports success.
type DryRunRunner struct {
	Out io.Writer
}

func (r *DryRunRunner) Run(_ context.Context, command string, _ []string, workDir string) StepResult {
	if r.Out != nil {
		fmt.Fprintf(r.Out, "would run: %s (in %s)\n", command, workDir)
	}
	return StepResult{Command: command}
}
