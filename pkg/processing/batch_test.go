package processing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/systemstart/buildsteps/pkg/api"
	"github.com/systemstart/buildsteps/pkg/steps"
)

func TestRunBatch_ContinuesAfterFailures(t *testing.T) {
	spy := &spyRunner{fail: map[string]int{"bad": 1}}
	e := NewExecutor(spy, "", nil)
	jobs := []*api.Job{
		job("first", "ok-1"),
		job("broken", "bad", "never"),
		job("retired"),
		job("last", "ok-2"),
	}

	results := RunBatch(context.Background(), e, jobs, 1)

	want := []Status{StatusSuccess, StatusFailed, StatusSkipped, StatusSuccess}
	for i, r := range results {
		if r.Job != jobs[i].Name {
			t.Errorf("result %d is for %q, want %q", i, r.Job, jobs[i].Name)
		}
		if r.Status != want[i] {
			t.Errorf("job %q: expected %s, got %s", r.Job, want[i], r.Status)
		}
	}

	s := Summarize(results)
	if s != (Summary{Total: 4, Succeeded: 2, Failed: 1, Skipped: 1}) {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.OK() {
		t.Error("summary with a failure is not OK")
	}
}

// blockingRunner tracks how many steps run at the same time.
type blockingRunner struct {
	mu      sync.Mutex
	running int
	peak    int
	delay   time.Duration
	total   atomic.Int32
}

func (b *blockingRunner) Run(_ context.Context, command string, _ []string, _ string) steps.StepResult {
	b.mu.Lock()
	b.running++
	if b.running > b.peak {
		b.peak = b.running
	}
	b.mu.Unlock()

	time.Sleep(b.delay)
	b.total.Add(1)

	b.mu.Lock()
	b.running--
	b.mu.Unlock()
	return steps.StepResult{Command: command}
}

func TestRunBatch_BoundedParallelism(t *testing.T) {
	runner := &blockingRunner{delay: 20 * time.Millisecond}
	e := NewExecutor(runner, "", nil)

	var jobs []*api.Job
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		jobs = append(jobs, job(name, name+"-step"))
	}

	results := RunBatch(context.Background(), e, jobs, 2)

	if runner.peak > 2 {
		t.Errorf("expected at most 2 concurrent steps, saw %d", runner.peak)
	}
	if runner.total.Load() != 6 {
		t.Errorf("expected 6 steps, got %d", runner.total.Load())
	}
	for i, r := range results {
		if r.Job != jobs[i].Name || r.Status != StatusSuccess {
			t.Errorf("result %d: %s %s", i, r.Job, r.Status)
		}
	}
}

func TestRunBatch_Sequential(t *testing.T) {
	runner := &blockingRunner{delay: time.Millisecond}
	e := NewExecutor(runner, "", nil)

	RunBatch(context.Background(), e, []*api.Job{job("a", "x"), job("b", "y")}, 0)
	if runner.peak != 1 {
		t.Errorf("expected sequential execution, peak %d", runner.peak)
	}
}

func TestStatus(t *testing.T) {
	for _, s := range []Status{StatusSuccess, StatusFailed, StatusSkipped} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusRunning} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}

	var s Status
	if err := s.UnmarshalText([]byte("skipped")); err != nil || s != StatusSkipped {
		t.Errorf("UnmarshalText(skipped) = %s, %v", s, err)
	}
	if err := s.UnmarshalText([]byte("green")); err == nil {
		t.Error("expected error for unknown status")
	}
	if Status(42).String() != "status(42)" {
		t.Errorf("unexpected String for unknown status: %s", Status(42))
	}
}
