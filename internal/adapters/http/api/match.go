// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/pairup/internal/domain/types"
	"github.com/okian/pairup/pkg/logger"
)

// MatchDependencies defines the interface for match requests.
type MatchDependencies interface {
	RequestMatch(ctx context.Context, req types.MatchRequest) (types.MatchResponse, error)
	MatchEntry(ctx context.Context, entryID, strictness string) (types.MatchResponse, error)
}

// MatchHandler handles match requests.
type MatchHandler struct {
	deps   MatchDependencies
	logger logger.Logger
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps MatchDependencies, log logger.Logger) *MatchHandler {
	return &MatchHandler{deps: deps, logger: log}
}

// HandleRequestMatch handles POST /match requests. A no-match is a 200.
func (h *MatchHandler) HandleRequestMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.request_match"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.MatchRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateRequest(op, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	resp, err := h.deps.RequestMatch(r.Context(), req)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleMatchEntry handles POST /match/{entryId} requests. Strictness comes
// from the optional body or the strictness query parameter.
func (h *MatchHandler) HandleMatchEntry(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_entry"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	entryID, ok := pathParam(r, "/match/")
	if !ok {
		writeError(w, http.StatusBadRequest, CodeBadRequest, NewKind(op, ErrBadRequest))
		return
	}
	var req types.EntryMatchRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Strictness == "" {
		req.Strictness = r.URL.Query().Get("strictness")
	}
	if err := validateRequest(op, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	resp, err := h.deps.MatchEntry(r.Context(), entryID, req.Strictness)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
