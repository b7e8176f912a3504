package processing

import (
	"context"
	"slices"
	"sync"

	"github.com/systemstart/buildsteps/pkg/api"
	"github.com/systemstart/buildsteps/pkg/steps"
)

// spyRunner records every call and fails the commands listed in fail.
type spyRunner struct {
	mu     sync.Mutex
	calls  []string
	envs   [][]string
	dirs   []string
	fail   map[string]int
	launch map[string]bool
}

func (s *spyRunner) Run(_ context.Context, command string, env []string, workDir string) steps.StepResult {
	s.mu.Lock()
	s.calls = append(s.calls, command)
	s.envs = append(s.envs, slices.Clone(env))
	s.dirs = append(s.dirs, workDir)
	s.mu.Unlock()

	if s.launch[command] {
		return steps.StepResult{Command: command, ExitCode: -1, Err: &steps.LaunchError{Command: command, Err: steps.ErrLaunch}}
	}
	if code, ok := s.fail[command]; ok {
		return steps.StepResult{
			Command:  command,
			ExitCode: code,
			Output:   []byte(command + " output"),
			Err:      &steps.StepFailure{Command: command, ExitCode: code},
		}
	}
	return steps.StepResult{Command: command, Output: []byte(command + " output")}
}

func (s *spyRunner) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func job(name string, commands ...string) *api.Job {
	j := &api.Job{Name: name, Env: map[string]string{}}
	for _, c := range commands {
		j.Steps = append(j.Steps, api.Step{Run: c})
	}
	j.Retired = len(j.Steps) == 0
	return j
}
