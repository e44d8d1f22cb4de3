package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"vacancy-report-service/internal/models"
	"vacancy-report-service/internal/pipeline"
	"vacancy-report-service/internal/ratelimit"
	"vacancy-report-service/internal/registry"
	"vacancy-report-service/internal/telemetry"
)

// Server wires HTTP handlers for the vacancy job API.
type Server struct {
	jobs     *registry.Registry
	pipeline *pipeline.Pipeline
	limiter  *ratelimit.Limiter // nil disables rate limiting
	validate *validator.Validate
	log      *slog.Logger
}

// New constructs the API server. limiter may be nil.
func New(jobs *registry.Registry, pl *pipeline.Pipeline, limiter *ratelimit.Limiter, log *slog.Logger) *Server {
	return &Server{
		jobs:     jobs,
		pipeline: pl,
		limiter:  limiter,
		validate: validator.New(),
		log:      log,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Post("/vacancy-jobs", s.handleStartJob)
	r.Get("/vacancy-jobs/{id}/status", s.handleJobStatus)
	r.Get("/vacancy-jobs/{id}/result", s.handleJobResult)
	return r
}

type startJobResponse struct {
	JobID          string                   `json:"jobId"`
	TotalPositions int                      `json:"totalPositions"`
	TotalVacancies int                      `json:"totalVacancies"`
	Results        []models.EnrichedVacancy `json:"results"`
}

type jobStatusResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`
	Total    int    `json:"total"`
}

type jobResultResponse struct {
	JobID          string                   `json:"jobId"`
	TotalPositions int                      `json:"totalPositions"`
	TotalVacancies int                      `json:"totalVacancies"`
	Results        []models.EnrichedVacancy `json:"results"`
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var filter models.Filter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(filter); err != nil {
		http.Error(w, "ic and empGroup are required", http.StatusBadRequest)
		return
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(r.Context(), "rl:submit:"+clientFromRequest(r))
		if err != nil {
			http.Error(w, "rate limit error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			telemetry.RateLimitRejects.Inc()
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
	}

	job := s.jobs.Create()
	s.log.Info("vacancy job submitted", "job_id", job.ID, "ic", filter.IC, "emp_group", filter.EmpGroup)
	telemetry.JobsStarted.Inc()

	// The job outlives this request; run it on a fresh context.
	go s.pipeline.Run(context.Background(), job.ID, filter)

	writeJSON(w, http.StatusAccepted, startJobResponse{
		JobID:   job.ID,
		Results: []models.EnrichedVacancy{},
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.jobs.Snapshot(id)
	if errors.Is(err, registry.ErrNotFound) {
		// Pollers get a uniform shape even for bad handles.
		writeJSON(w, http.StatusOK, jobStatusResponse{
			Status:  models.StatusError,
			Message: "invalid jobId",
		})
		return
	}
	writeJSON(w, http.StatusOK, jobStatusResponse{
		Status:   job.Status,
		Message:  job.Message,
		Progress: job.Progress,
		Total:    job.Total,
	})
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.jobs.Snapshot(id)
	if errors.Is(err, registry.ErrNotFound) {
		http.Error(w, "no job found for jobId="+id, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, jobResultResponse{
		JobID:          job.ID,
		TotalPositions: job.Total,
		TotalVacancies: job.TotalVacancies,
		Results:        job.Results,
	})
}

func clientFromRequest(r *http.Request) string {
	if v := r.Header.Get("X-Client-ID"); v != "" {
		return v
	}
	return "default"
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
