// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/pairup/internal/domain/types"
	"github.com/okian/pairup/pkg/logger"
)

// SlotsDependencies defines the interface for the availability view.
type SlotsDependencies interface {
	ListSlots(ctx context.Context, q types.SlotsQuery) (types.SlotsResponse, error)
}

// SlotsHandler handles availability requests.
type SlotsHandler struct {
	deps   SlotsDependencies
	logger logger.Logger
}

// NewSlotsHandler creates a new slots handler.
func NewSlotsHandler(deps SlotsDependencies, log logger.Logger) *SlotsHandler {
	return &SlotsHandler{deps: deps, logger: log}
}

// HandleListSlots handles GET /slots requests.
func (h *SlotsHandler) HandleListSlots(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_slots"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := parseSlotsQuery(r)
	if err := validateRequest(op, &q); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	resp, err := h.deps.ListSlots(r.Context(), q)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseSlotsQuery reads the query string. tools accepts a comma-separated
// list or repeated parameters; Tools stays nil when none are given.
func parseSlotsQuery(r *http.Request) types.SlotsQuery {
	v := r.URL.Query()
	q := types.SlotsQuery{
		UserID:     v.Get("userId"),
		Role:       v.Get("role"),
		Profession: v.Get("profession"),
		Language:   v.Get("language"),
		DateLocal:  v.Get("dateLocal"),
		Zone:       v.Get("zone"),
		Strictness: v.Get("matchStrictness"),
	}
	for _, raw := range v["tools"] {
		for _, tool := range strings.Split(raw, ",") {
			if tool = strings.TrimSpace(tool); tool != "" {
				q.Tools = append(q.Tools, tool)
			}
		}
	}
	return q
}
