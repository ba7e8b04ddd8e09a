// Package server exposes simulation runs over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	interfaces "github.com/sheikh-saqib/concurrent-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-ledger/internal/ledger"
	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-ledger/internal/report"
	"github.com/sheikh-saqib/concurrent-ledger/internal/simulation"
)

const (
	defaultListLimit = 20
	maxOperations    = 50_000_000
)

type Runner interface {
	Run(ctx context.Context, cfg simulation.Config) (models.RunSummary, error)
}

type Server struct {
	runner   Runner
	reporter *report.Reporter
	defaults simulation.Config
	metrics  http.Handler
	logger   *slog.Logger
}

func New(runner Runner, reporter *report.Reporter, defaults simulation.Config, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		runner:   runner,
		reporter: reporter,
		defaults: defaults,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /runs", s.createRun)
	mux.HandleFunc("GET /runs", s.listRuns)
	mux.HandleFunc("GET /runs/{id}", s.getRun)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	cfg, err := req.apply(s.defaults)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if int64(cfg.Actors)*int64(cfg.Iterations) > maxOperations {
		http.Error(w, "too many operations requested", http.StatusBadRequest)
		return
	}

	summary, err := s.runner.Run(r.Context(), cfg)
	switch {
	case isSetupError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil && !errors.Is(err, simulation.ErrDeadlockSuspected):
		s.logger.ErrorContext(r.Context(), "Simulation failed", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// A suspected deadlock is still a finished run and gets reported.
	if err := s.reporter.Report(r.Context(), summary); err != nil {
		s.logger.WarnContext(r.Context(), "Run not fully reported", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := s.reporter.ListRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "run id must be a uuid", http.StatusBadRequest)
		return
	}

	summary, err := s.reporter.GetRun(r.Context(), runID)
	if errors.Is(err, interfaces.ErrRunNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// isSetupError reports whether err came from a bad request rather than from
// running the simulation.
func isSetupError(err error) bool {
	return errors.Is(err, simulation.ErrInvalidConfig) ||
		errors.Is(err, ledger.ErrDuplicateID) ||
		errors.Is(err, ledger.ErrInvalidAccountID) ||
		errors.Is(err, ledger.ErrInvalidAmount)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
