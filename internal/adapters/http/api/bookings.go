// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/pairup/internal/domain/types"
	"github.com/okian/pairup/pkg/logger"
)

// BookingsDependencies defines the interface for bookings.
type BookingsDependencies interface {
	Bookings(ctx context.Context, userID string) (types.BookingsResponse, error)
}

// BookingsHandler handles bookings requests.
type BookingsHandler struct {
	deps   BookingsDependencies
	logger logger.Logger
}

// NewBookingsHandler creates a new bookings handler.
func NewBookingsHandler(deps BookingsDependencies, log logger.Logger) *BookingsHandler {
	return &BookingsHandler{deps: deps, logger: log}
}

// HandleGetBookings handles GET /bookings/{userId} requests.
func (h *BookingsHandler) HandleGetBookings(w http.ResponseWriter, r *http.Request) {
	const op = "api.bookings"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := pathParam(r, "/bookings/")
	if !ok {
		writeError(w, http.StatusBadRequest, CodeBadRequest, NewKind(op, ErrBadRequest))
		return
	}
	resp, err := h.deps.Bookings(r.Context(), userID)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
