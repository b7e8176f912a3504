package processing

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc/pool"
	"github.com/systemstart/buildsteps/pkg/api"
)

// RunBatch executes distinct jobs and returns their results in input order.
// At most parallel jobs run at once; values below 1 run them one at a time.
// A failing job never stops the others.
func RunBatch(ctx context.Context, exec *Executor, jobs []*api.Job, parallel int) []JobResult {
	if parallel < 1 {
		parallel = 1
	}

	results := make([]JobResult, len(jobs))
	p := pool.New().WithMaxGoroutines(parallel)
	for i, job := range jobs {
		p.Go(func() {
			results[i] = exec.Execute(ctx, job)
			slog.Info("job finished", "job", job.Name, "status", results[i].Status, "duration", results[i].Duration)
		})
	}
	p.Wait()

	return results
}

// Summary counts job results by status.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// Summarize counts results by terminal status.
func Summarize(results []JobResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// OK reports whether no job failed.
func (s Summary) OK() bool { return s.Failed == 0 }
