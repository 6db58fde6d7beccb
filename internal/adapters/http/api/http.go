// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/pairup/internal/domain/types"
	"github.com/okian/pairup/pkg/logger"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PreferencesDependencies
	QueueDependencies
	MatchDependencies
	SlotsDependencies
	BookingsDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	preferencesHandler *PreferencesHandler
	queueHandler       *QueueHandler
	matchHandler       *MatchHandler
	slotsHandler       *SlotsHandler
	bookingsHandler    *BookingsHandler

	limiter *rate.Limiter
	logger  logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.preferencesHandler = NewPreferencesHandler(deps, s.logger)
	s.queueHandler = NewQueueHandler(deps, s.logger)
	s.matchHandler = NewMatchHandler(deps, s.logger)
	s.slotsHandler = NewSlotsHandler(deps, s.logger)
	s.bookingsHandler = NewBookingsHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/preferences", MetricsMiddleware(s.preferencesHandler.HandleSubmit, "preferences"))
	mux.HandleFunc("/queue/join", MetricsMiddleware(RateLimit(s.limiter, s.queueHandler.HandleJoin), "queue_join"))
	mux.HandleFunc("/queue/", MetricsMiddleware(s.queueHandler.HandleWithdraw, "queue_withdraw"))
	mux.HandleFunc("/match", MetricsMiddleware(RateLimit(s.limiter, s.matchHandler.HandleRequestMatch), "match"))
	mux.HandleFunc("/match/", MetricsMiddleware(RateLimit(s.limiter, s.matchHandler.HandleMatchEntry), "match_entry"))
	mux.HandleFunc("/slots", MetricsMiddleware(s.slotsHandler.HandleListSlots, "slots"))
	mux.HandleFunc("/bookings/", MetricsMiddleware(s.bookingsHandler.HandleGetBookings, "bookings"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeErrorBody(w, status, types.ErrorResponse{Code: code}, err)
}

func writeErrorBody(w http.ResponseWriter, status int, body types.ErrorResponse, err error) { //nolint:gocritic // body value
	body.Message = http.StatusText(status)
	if err != nil {
		body.Message = err.Error()
	}
	writeJSON(w, status, body)
}

// writeFailure classifies err and logs server-side failures.
func writeFailure(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.String("code", code), logger.Error(err))
	}
	writeError(w, status, code, err)
}

// decodeJSON reads a size-limited JSON body into v. An empty body is
// accepted when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
