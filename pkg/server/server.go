// Package server exposes the job registry over HTTP so jobs can be listed,
// inspected and triggered remotely.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/systemstart/buildsteps/pkg/api"
	"github.com/systemstart/buildsteps/pkg/processing"
	"github.com/systemstart/buildsteps/pkg/report"
)

const shutdownTimeout = 10 * time.Second

// Server dispatches HTTP requests to a registry and an executor. Distinct
// jobs may run concurrently; a second run of a job that is still running is
// rejected with 409.
type Server struct {
	registry *processing.Registry
	executor *processing.Executor
	router   chi.Router

	mu      sync.Mutex
	running map[string]bool
}

// New creates a Server with its routes installed.
func New(registry *processing.Registry, executor *processing.Executor) *Server {
	s := &Server{
		registry: registry,
		executor: executor,
		running:  make(map[string]bool),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", s.handleListJobs)
		r.Get("/{name}", s.handleGetJob)
		r.Post("/{name}/run", s.handleRunJob)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

type jobSummary struct {
	Name    string `json:"name"`
	Retired bool   `json:"retired"`
	Steps   int    `json:"steps"`
}

type stepDetail struct {
	Run           string `json:"run"`
	AlwaysSucceed bool   `json:"alwaysSucceed,omitempty"`
}

type jobDetail struct {
	jobSummary
	Env      map[string]string `json:"env"`
	Commands []stepDetail      `json:"commands"`
}

func summarize(j *api.Job) jobSummary {
	return jobSummary{Name: j.Name, Retired: j.Retired || len(j.Steps) == 0, Steps: len(j.Steps)}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := s.registry.Jobs()
	out := make([]jobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, summarize(j))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookup(w, r)
	if !ok {
		return
	}

	d := jobDetail{jobSummary: summarize(j), Env: j.Env, Commands: make([]stepDetail, 0, len(j.Steps))}
	for _, st := range j.Steps {
		d.Commands = append(d.Commands, stepDetail{Run: st.Run, AlwaysSucceed: st.AlwaysSucceed})
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookup(w, r)
	if !ok {
		return
	}

	if !s.acquire(j.Name) {
		writeError(w, http.StatusConflict, fmt.Errorf("job %q is already running", j.Name))
		return
	}
	defer s.release(j.Name)

	slog.Info("job triggered", "job", j.Name, "requestId", middleware.GetReqID(r.Context()))
	result := s.executor.Execute(r.Context(), j)
	writeJSON(w, http.StatusOK, report.NewJob(result))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*api.Job, bool) {
	j, err := s.registry.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, processing.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return nil, false
	}
	return j, true
}

func (s *Server) acquire(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Server) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, name)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// logRequests logs every request through slog once it has been served.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"requestId", middleware.GetReqID(r.Context()))
	})
}
