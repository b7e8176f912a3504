package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// ExecRunner runs commands as child processes. The command line is split
// into arguments with shell quoting rules; no shell is involved, so
// variables, globs and operators such as && are not interpreted.
type ExecRunner struct {
	// Stream, when set, receives step output as it is produced in addition
	// to the captured copy.
	Stream io.Writer
}

// NewExecRunner creates a runner that spawns real processes.
func NewExecRunner(stream io.Writer) *ExecRunner {
	return &ExecRunner{Stream: stream}
}

func (r *ExecRunner) Run(ctx context.Context, command string, env []string, workDir string) StepResult {
	start := time.Now()
	res := StepResult{Command: command, ExitCode: -1}

	cmd, err := r.command(ctx, command, env, workDir)
	if err != nil {
		res.Err = &LaunchError{Command: command, Err: err}
		return res
	}

	var out bytes.Buffer
	var w io.Writer = &out
	if r.Stream != nil {
		w = io.MultiWriter(&out, r.Stream)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	slog.Debug("starting process", "command", command, "path", cmd.Path, "dir", workDir)

	if err := cmd.Start(); err != nil {
		res.Err = &LaunchError{Command: command, Err: err}
		res.Duration = time.Since(start)
		return res
	}

	err = cmd.Wait()
	res.Duration = time.Since(start)
	res.Output = out.Bytes()

	if err == nil {
		res.ExitCode = 0
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		res.Err = &StepFailure{Command: command, ExitCode: res.ExitCode, Err: exitErr}
		return res
	}
	res.Err = &StepFailure{Command: command, ExitCode: -1, Err: err}
	return res
}

func (r *ExecRunner) command(ctx context.Context, command string, env []string, workDir string) (*exec.Cmd, error) {
	p := shellwords.NewParser()
	argv, err := p.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parsing command line: %w", err)
	}
	if p.Position >= 0 {
		return nil, fmt.Errorf("shell operator at offset %d is not supported, wrap the command in sh -c", p.Position)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	path, err := lookPath(argv[0], env)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	cmd.Args[0] = argv[0]
	cmd.Dir = workDir
	// A nil Env would inherit the parent's environment.
	cmd.Env = append([]string{}, env...)
	return cmd, nil
}

// lookPath resolves a bare program name against the PATH of the step
// environment instead of the PATH of this process.
func lookPath(file string, env []string) (string, error) {
	if strings.ContainsRune(file, filepath.Separator) {
		return file, nil
	}

	pathList, ok := envValue(env, "PATH")
	if !ok {
		return exec.LookPath(file)
	}

	notFound := exec.ErrNotFound
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" || !filepath.IsAbs(dir) {
			continue
		}
		candidate := filepath.Join(dir, file)
		st, err := os.Stat(candidate)
		if err != nil || st.IsDir() {
			continue
		}
		if st.Mode()&0o111 == 0 {
			notFound = os.ErrPermission
			continue
		}
		return candidate, nil
	}
	return "", &exec.Error{Name: file, Err: notFound}
}

func envValue(env []string, key string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(env[i], "=")
		if ok && k == key {
			return v, true
		}
	}
	return "", false
}
