// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/hydrater/internal/domain/dedupe"
	"github.com/okian/hydrater/internal/domain/model"
	"github.com/okian/hydrater/internal/domain/types"
	"github.com/okian/hydrater/pkg/logger"
)

const defaultMaxMatchLimit = 100

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue hands a submission to ingestion. queue.ErrFull signals backpressure.
	Enqueue(ctx context.Context, sub model.Submission) error

	Ratings(ctx context.Context, userID string) ([]types.RatingEntry, error)
	Matches(ctx context.Context, userID string, limit int) ([]types.MatchEntry, error)
	Compatibility(ctx context.Context, userA, userB string) (types.Score, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler        *HealthHandler
	statsHandler         *StatsHandler
	ratingsHandler       *RatingsHandler
	matchesHandler       *MatchesHandler
	compatibilityHandler *CompatibilityHandler
}

// Option configures a Server.
type Option func(*serverSettings)

type serverSettings struct {
	maxMatchLimit int
	logger        logger.Logger
}

// WithMaxMatchLimit caps the limit accepted by GET /matches.
func WithMaxMatchLimit(n int) Option {
	return func(s *serverSettings) {
		if n > 0 {
			s.maxMatchLimit = n
		}
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(l logger.Logger) Option {
	return func(s *serverSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	st := serverSettings{maxMatchLimit: defaultMaxMatchLimit}
	for _, opt := range opts {
		opt(&st)
	}
	if st.logger == nil {
		st.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:        NewHealthHandler(),
		statsHandler:         NewStatsHandler(statsProvider),
		ratingsHandler:       NewRatingsHandler(deps, st.logger),
		matchesHandler:       NewMatchesHandler(deps, st.maxMatchLimit, st.logger),
		compatibilityHandler: NewCompatibilityHandler(deps, st.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /ratings", MetricsMiddleware(s.ratingsHandler.HandlePostRating, "ratings"))
	mux.HandleFunc("GET /ratings/{user_id}", MetricsMiddleware(s.ratingsHandler.HandleGetRatings, "ratings_by_user"))
	mux.HandleFunc("GET /compatibility", MetricsMiddleware(s.compatibilityHandler.HandleGetCompatibility, "compatibility"))
	mux.HandleFunc("GET /matches/{user_id}", MetricsMiddleware(s.matchesHandler.HandleGetMatches, "matches"))
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

// writeUpstreamError classifies err and logs server-side failures.
func writeUpstreamError(ctx context.Context, w http.ResponseWriter, l logger.Logger, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, err)
}
