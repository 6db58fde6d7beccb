// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/pairup/internal/domain/types"
	"github.com/okian/pairup/pkg/logger"
)

// PreferencesDependencies defines the interface for preference submission.
type PreferencesDependencies interface {
	SubmitPreferences(ctx context.Context, req types.PreferencesRequest) (types.PreferencesResponse, error)
}

// PreferencesHandler handles preference requests.
type PreferencesHandler struct {
	deps   PreferencesDependencies
	logger logger.Logger
}

// NewPreferencesHandler creates a new preferences handler.
func NewPreferencesHandler(deps PreferencesDependencies, log logger.Logger) *PreferencesHandler {
	return &PreferencesHandler{deps: deps, logger: log}
}

// HandleSubmit handles POST /preferences requests.
func (h *PreferencesHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_preferences"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.PreferencesRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateRequest(op, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	resp, err := h.deps.SubmitPreferences(r.Context(), req)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
