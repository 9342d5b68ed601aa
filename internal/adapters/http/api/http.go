// Package api exposes the pacing analysis service as a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/okian/wser/internal/adapters/repository"
	service "github.com/okian/wser/internal/app"
	"github.com/okian/wser/internal/domain/binning"
	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/types"
	"github.com/okian/wser/pkg/logger"
	"github.com/okian/wser/pkg/metrics"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	Runner(ctx context.Context, id types.RunnerID) (model.RunnerInfo, error)
	FindRunner(ctx context.Context, term string) ([]model.RunnerInfo, error)
	BuildProfile(ctx context.Context, id types.RunnerID) (model.PaceSeries, error)

	FieldPace(ctx context.Context, filter model.RunnerFilter) (model.AggregateSeries, error)
	SummarizeField(ctx context.Context, filter model.RunnerFilter) (service.FieldSummary, error)

	CompareRunners(ctx context.Context, a, b string) (service.Comparison, error)
	CompareToField(ctx context.Context, term string, filter model.RunnerFilter) (service.FieldComparison, error)

	BinByFixedEdges(ctx context.Context, edges []float64, g types.Gender) (binning.Distribution, error)
	BinByComputedAge(ctx context.Context, n int, g types.Gender) (binning.Distribution, error)
}

// Server wires HTTP routes for the analysis API.
type Server struct {
	deps   Dependencies
	stats  *StatsHandler
	health *HealthHandler
	logger logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:   deps,
		stats:  NewStatsHandler(statsProvider),
		health: NewHealthHandler(),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the chi router serving every endpoint.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})

	r.Get("/healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	r.Get("/metrics", s.health.HandleMetrics)
	r.Get("/stats", MetricsMiddleware(s.stats.HandleStats, "stats"))

	r.Route("/runners", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.handleSearch, "runners"))
		r.Get("/{id}/pace", MetricsMiddleware(s.handleRunnerPace, "runner_pace"))
	})
	r.Route("/field", func(r chi.Router) {
		r.Get("/pace", MetricsMiddleware(s.handleFieldPace, "field_pace"))
		r.Get("/summary", MetricsMiddleware(s.handleFieldSummary, "field_summary"))
	})
	r.Route("/compare", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.handleCompare, "compare"))
		r.Get("/field", MetricsMiddleware(s.handleCompareField, "compare_field"))
	})
	r.Route("/distribution", func(r chi.Router) {
		r.Get("/finish", MetricsMiddleware(s.handleFinishDistribution, "distribution_finish"))
		r.Get("/age", MetricsMiddleware(s.handleAgeDistribution, "distribution_age"))
	})
	return r
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, RequestID: w.Header().Get(requestIDHeader)})
}

// fail translates service errors to HTTP status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyResult):
		writeError(w, http.StatusNotFound, "empty_result", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrInvalidArgs), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrOutOfOrder):
		writeError(w, http.StatusUnprocessableEntity, "data_quality", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads the body
		writeError(w, statusClientClosed, "canceled", err)
	default:
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.Error(err))
		metrics.RecordErrorByComponent("http", "internal")
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
