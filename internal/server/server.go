package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cwbudde/lnstsp/internal/store"
)

// Server exposes solve jobs over HTTP.
type Server struct {
	jobManager *JobManager
	store      store.Store
	addr       string
	server     *http.Server

	// ctx is the parent of every job context; Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a new HTTP server. checkpointStore may be nil, in which
// case jobs are not checkpointed and cannot be resumed.
func NewServer(addr string, checkpointStore store.Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager: NewJobManager(),
		store:      checkpointStore,
		addr:       addr,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Handler returns the routes wrapped in the server middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, cancels the running jobs and waits for
// them to write their final tours.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

// startJob runs a registered job on its own goroutine.
func (s *Server) startJob(jobID string, resume *resumeState) {
	ctx, cancel := context.WithCancel(s.ctx)
	s.jobManager.setCancel(jobID, cancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if err := runJob(ctx, s.jobManager, s.store, jobID, resume); err != nil {
			slog.Debug("Job ended with error", "job_id", jobID, "error", err)
		}
	}()
}

// handleIndex lists the API routes.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "lnstsp",
		"routes": []string{
			"POST /api/v1/jobs",
			"GET /api/v1/jobs",
			"GET /api/v1/jobs/{id}",
			"GET /api/v1/jobs/{id}/status",
			"GET /api/v1/jobs/{id}/tour",
			"GET /api/v1/jobs/{id}/stream",
			"GET /api/v1/jobs/{id}/trace",
			"POST /api/v1/jobs/{id}/cancel",
			"POST /api/v1/jobs/{id}/resume",
		},
	})
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "Job ID required")
		return
	}

	jobID := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	method := http.MethodGet
	switch action {
	case "cancel", "resume":
		method = http.MethodPost
	}
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	switch action {
	case "", "status":
		s.handleGetJobStatus(w, r, jobID)
	case "tour":
		s.handleGetTour(w, r, jobID)
	case "stream":
		s.handleJobStream(w, r, jobID)
	case "trace":
		s.handleGetTrace(w, r, jobID)
	case "cancel":
		s.handleCancelJob(w, r, jobID)
	case "resume":
		s.handleResumeJob(w, r, jobID)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var config JobConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	if config.InstancePath == "" {
		writeError(w, http.StatusBadRequest, "instancePath is required")
		return
	}
	if config.Cities < 0 {
		writeError(w, http.StatusBadRequest, "cities must not be negative")
		return
	}
	if _, err := config.SolverConfig(defaultTimeLimit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := s.jobManager.CreateJob(config)
	s.startJob(job.ID, nil)

	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobManager.ListJobs()
	for _, job := range jobs {
		job.BestTour = nil
	}
	writeJSON(w, http.StatusOK, jobs)
}

// statusResponse is a job without its tour plus timing information.
type statusResponse struct {
	*Job
	ElapsedSeconds      float64 `json:"elapsed"`
	IterationsPerSecond float64 `json:"iterationsPerSecond"`
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	job.BestTour = nil
	elapsed := job.Elapsed().Seconds()
	resp := statusResponse{Job: job, ElapsedSeconds: elapsed}
	if elapsed > 0 {
		resp.IterationsPerSecond = float64(job.Iterations) / elapsed
	}

	writeJSON(w, http.StatusOK, resp)
}

// tourResponse is the body of GET /api/v1/jobs/:id/tour.
type tourResponse struct {
	JobID string  `json:"jobId"`
	Tour  []int   `json:"tour"`
	Cost  float64 `json:"cost"`
	Final bool    `json:"final"`
}

// handleGetTour handles GET /api/v1/jobs/:id/tour
func (s *Server) handleGetTour(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if len(job.BestTour) == 0 {
		writeError(w, http.StatusNotFound, "No tour yet")
		return
	}

	writeJSON(w, http.StatusOK, tourResponse{
		JobID: job.ID,
		Tour:  job.BestTour,
		Cost:  job.BestCost,
		Final: job.State.Terminal(),
	})
}

// handleGetTrace handles GET /api/v1/jobs/:id/trace
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request, jobID string) {
	ds, ok := s.store.(traceDirStore)
	if !ok {
		writeError(w, http.StatusNotFound, "Traces are not stored")
		return
	}

	entries, err := store.ReadTrace(store.TracePath(ds.BaseDir(), jobID))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No trace for job")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// handleCancelJob handles POST /api/v1/jobs/:id/cancel
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	err := s.jobManager.CancelJob(jobID)
	switch {
	case errors.Is(err, ErrJobNotFound):
		writeError(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, ErrJobFinished):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		job, _ := s.jobManager.GetJob(jobID)
		job.BestTour = nil
		writeJSON(w, http.StatusAccepted, job)
	}
}

// handleResumeJob handles POST /api/v1/jobs/:id/resume. It starts a new job
// from the checkpoint of jobID; the new job checkpoints under its own ID.
func (s *Server) handleResumeJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "Checkpoints are not stored")
		return
	}

	cp, err := s.store.LoadCheckpoint(jobID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No checkpoint for job")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// A zero interval would disable checkpointing of the resumed job.
	config := cp.Config
	if config.CheckpointInterval <= 0 {
		config.CheckpointInterval = 1
	}

	job := s.jobManager.CreateJob(config)
	s.startJob(job.ID, &resumeState{
		tour:        cp.BestTour,
		iteration:   cp.Iteration,
		initialCost: cp.InitialCost,
	})

	slog.Info("Resuming job", "from", jobID, "job_id", job.ID, "iteration", cp.Iteration, "best_cost", cp.BestCost)
	writeJSON(w, http.StatusCreated, job)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
