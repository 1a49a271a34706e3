package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clusterfit/vikhlinin"
	"github.com/clusterfit/vikhlinin/internal/store"
	"github.com/clusterfit/vikhlinin/units"
)

// Server represents the HTTP fit service
type Server struct {
	jobManager *JobManager
	store      store.Store
	metrics    *Metrics
	addr       string
	server     *http.Server
}

// NewServer creates a new HTTP server backed by the given result store.
func NewServer(addr string, st store.Store) *Server {
	return &Server{
		jobManager: NewJobManager(),
		store:      st,
		metrics:    newMetrics(),
		addr:       addr,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/fits", s.handleFits)
	mux.HandleFunc("/api/v1/fits/", s.handleFitsWithID)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealth)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleFits handles /api/v1/fits
func (s *Server) handleFits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateFit(w, r)
	case http.MethodGet:
		s.handleListFits(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleFitsWithID handles /api/v1/fits/:id and its subresources
func (s *Server) handleFitsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/fits/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "fit ID required")
		return
	}

	jobID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetFit(w, r, jobID)
		case http.MethodDelete:
			s.handleDeleteFit(w, r, jobID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	switch parts[1] {
	case "curve":
		s.handleGetCurve(w, r, jobID)
	case "trace":
		s.handleGetTrace(w, r, jobID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleCreateFit handles POST /api/v1/fits
func (s *Server) handleCreateFit(w http.ResponseWriter, r *http.Request) {
	var req FitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	if err := validateFitRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := s.jobManager.CreateJob(req)

	go runJob(context.Background(), s.jobManager, s.store, s.metrics, job.ID)

	writeJSON(w, http.StatusCreated, job)
}

// validateFitRequest rejects payloads the estimator is known to refuse,
// so submitters get a 400 instead of a failed job.
func validateFitRequest(req *FitRequest) error {
	if len(req.Radii) == 0 {
		return fmt.Errorf("radii is required")
	}
	if len(req.Radii) != len(req.Density) {
		return fmt.Errorf("radii and density must have the same length")
	}
	if _, err := units.Parse(req.RadiusUnit); err != nil {
		return fmt.Errorf("radiusUnit: %w", err)
	}
	if _, err := units.Parse(req.DensityUnit); err != nil {
		return fmt.Errorf("densityUnit: %w", err)
	}

	switch req.Preset {
	case "", PresetDefault, PresetMACSIS:
	default:
		return fmt.Errorf("unknown preset: %q", req.Preset)
	}

	if len(req.Start) != 0 && len(req.Start) != vikhlinin.NumParams {
		return fmt.Errorf("start must have %d entries, got %d", vikhlinin.NumParams, len(req.Start))
	}
	if len(req.Bounds) != 0 {
		if len(req.Bounds) != vikhlinin.NumParams {
			return fmt.Errorf("bounds must have %d pairs, got %d", vikhlinin.NumParams, len(req.Bounds))
		}
		for i, pair := range req.Bounds {
			if !(pair[0] <= pair[1]) {
				return fmt.Errorf("bounds[%d]: lower %v exceeds upper %v", i, pair[0], pair[1])
			}
		}
	}

	return nil
}

// handleListFits handles GET /api/v1/fits
func (s *Server) handleListFits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// fitStatusResponse is the job snapshot plus the stored result, once
// one exists.
type fitStatusResponse struct {
	Job
	Elapsed float64          `json:"elapsed"`
	Result  *store.FitResult `json:"result,omitempty"`
}

// handleGetFit handles GET /api/v1/fits/:id
func (s *Server) handleGetFit(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		writeError(w, http.StatusNotFound, "fit not found")
		return
	}

	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	response := fitStatusResponse{Job: job, Elapsed: elapsed.Seconds()}
	if job.ResultID != "" {
		result, err := s.store.LoadResult(job.ResultID)
		if err != nil {
			slog.Warn("Stored result unavailable", "job_id", jobID, "result_id", job.ResultID, "error", err)
		} else {
			response.Result = result
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// curveResponse carries the fitted model curve evaluated at the input
// radii.
type curveResponse struct {
	Radii       []float64 `json:"radii"`
	RadiusUnit  string    `json:"radiusUnit"`
	Density     []float64 `json:"density"`
	DensityUnit string    `json:"densityUnit"`
}

// handleGetCurve handles GET /api/v1/fits/:id/curve
func (s *Server) handleGetCurve(w http.ResponseWriter, r *http.Request, jobID string) {
	result, ok := s.loadJobResult(w, jobID)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, curveResponse{
		Radii:       result.Radii,
		RadiusUnit:  result.RadiusUnit,
		Density:     result.DensityHSE,
		DensityUnit: result.DensityUnit,
	})
}

// handleGetTrace handles GET /api/v1/fits/:id/trace
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request, jobID string) {
	result, ok := s.loadJobResult(w, jobID)
	if !ok {
		return
	}

	trace, err := s.store.LoadTrace(result.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no trace stored")
		} else {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("load trace: %v", err))
		}
		return
	}

	writeJSON(w, http.StatusOK, trace)
}

// loadJobResult resolves a job ID to its stored result, writing the
// error response on failure.
func (s *Server) loadJobResult(w http.ResponseWriter, jobID string) (*store.FitResult, bool) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		writeError(w, http.StatusNotFound, "fit not found")
		return nil, false
	}
	if job.ResultID == "" {
		writeError(w, http.StatusNotFound, "no results yet")
		return nil, false
	}

	result, err := s.store.LoadResult(job.ResultID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "stored result gone")
		} else {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("load result: %v", err))
		}
		return nil, false
	}
	return result, true
}

// handleDeleteFit handles DELETE /api/v1/fits/:id. Stored artifacts are
// removed only when this job owns them; a cached job borrows an earlier
// job's result and must not take it down.
func (s *Server) handleDeleteFit(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		writeError(w, http.StatusNotFound, "fit not found")
		return
	}

	if job.ResultID != "" && !job.Cached {
		if err := s.store.DeleteResult(job.ResultID); err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("delete result: %v", err))
			return
		}
	}

	s.jobManager.DeleteJob(jobID)
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
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
