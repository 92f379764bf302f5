// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/seasonsim/internal/adapters/repository"
	"github.com/okian/seasonsim/internal/domain/alias"
	"github.com/okian/seasonsim/internal/domain/model"
	"github.com/okian/seasonsim/pkg/logger"
)

// Dependencies required by HTTP handlers. repository.Store satisfies it.
type Dependencies interface {
	Summary(ctx context.Context, season int, variant string, trials int) ([]SummaryRow, error)
	Ratings(ctx context.Context, team string, season int) ([]RatingRow, error)
	Ping(ctx context.Context) error
}

// SummaryRow and RatingRow mirror the stored shapes read by the handlers.
type (
	SummaryRow = model.SeasonSimSummary
	RatingRow  = model.TeamWeekRating
)

// Server wires HTTP routes for the results API.
type Server struct {
	healthHandler  *HealthHandler
	summaryHandler *SummaryHandler
	ratingsHandler *RatingsHandler
}

// Option configures a Server.
type Option func(*settings)

type settings struct {
	normalizer *alias.Normalizer
	logger     logger.Logger
}

// WithNormalizer canonicalizes team codes taken from request paths.
func WithNormalizer(n *alias.Normalizer) Option {
	return func(s *settings) { s.normalizer = n }
}

// WithLogger sets the logger used for request failures.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := settings{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		summaryHandler: NewSummaryHandler(deps, s.logger),
		ratingsHandler: NewRatingsHandler(deps, s.normalizer, s.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/summary", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "summary"))
	mux.HandleFunc("/ratings/", MetricsMiddleware(s.ratingsHandler.HandleGetRatings, "ratings"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
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
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates store misses to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
