// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/pairup/internal/domain/model"
	"github.com/okian/pairup/internal/domain/types"
	"github.com/okian/pairup/pkg/logger"
)

// QueueDependencies defines the interface for queue membership.
type QueueDependencies interface {
	Join(ctx context.Context, req types.JoinRequest) (types.JoinResponse, error)
	Withdraw(ctx context.Context, entryID, userID string) (types.WithdrawResponse, error)
}

// QueueHandler handles join and withdraw requests.
type QueueHandler struct {
	deps   QueueDependencies
	logger logger.Logger
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(deps QueueDependencies, log logger.Logger) *QueueHandler {
	return &QueueHandler{deps: deps, logger: log}
}

// HandleJoin handles POST /queue/join requests.
func (h *QueueHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	const op = "api.join"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.JoinRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateRequest(op, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	resp, err := h.deps.Join(r.Context(), req)
	if errors.Is(err, model.ErrDuplicateEntry) {
		writeErrorBody(w, http.StatusConflict, types.ErrorResponse{Code: CodeDuplicateEntry, EntryID: resp.EntryID}, Wrap(op, err))
		return
	}
	if err != nil {
		writeFailure(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleWithdraw handles DELETE /queue/{entryId}?userId= requests.
func (h *QueueHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	const op = "api.withdraw"
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	entryID, ok := pathParam(r, "/queue/")
	if !ok {
		writeError(w, http.StatusBadRequest, CodeBadRequest, NewKind(op, ErrBadRequest))
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, WrapKind(op, ErrBadRequest, errors.New("missing userId")))
		return
	}
	resp, err := h.deps.Withdraw(r.Context(), entryID, userID)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// pathParam returns the single path segment after prefix.
func pathParam(r *http.Request, prefix string) (string, bool) {
	param := strings.TrimPrefix(r.URL.Path, prefix)
	if param == "" || param == r.URL.Path || strings.Contains(param, "/") {
		return "", false
	}
	return param, true
}
