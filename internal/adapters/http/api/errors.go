package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/pairup/internal/app"
	"github.com/okian/pairup/internal/domain/matching"
	"github.com/okian/pairup/internal/domain/model"
	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/okian/pairup/internal/domain/session"
	"github.com/okian/pairup/internal/domain/timezone"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrForbidden    = errors.New("forbidden")
)

// Error codes written in the error body.
const (
	CodeBadRequest       = "bad_request"
	CodeInvalidZone      = "invalid_zone"
	CodeInvalidLocalTime = "invalid_local_time"
	CodeDuplicateEntry   = "duplicate_entry"
	CodeNotEligible      = "entry_not_eligible"
	CodeNotFound         = "not_found"
	CodeForbidden        = "forbidden"
	CodeRoomProvisioning = "room_provisioning_failed"
	CodeBackpressure     = "backpressure"
	CodeUnavailable      = "unavailable"
	CodeInternal         = "internal_error"
)

// Error records the handler operation, the error kind and the cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Kind == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind builds an error of the given kind without a cause.
func NewKind(op string, kind error) *Error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind builds an error of the given kind around err.
func WrapKind(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap attaches op to err and leaves the kind to classify.
func Wrap(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

// classify maps an error to its HTTP status and body code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, CodeBackpressure
	case errors.Is(err, ErrForbidden), errors.Is(err, service.ErrNotOwner):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, timezone.ErrInvalidZone):
		return http.StatusBadRequest, CodeInvalidZone
	case errors.Is(err, timezone.ErrInvalidLocalTime), errors.Is(err, timezone.ErrInvalidDate):
		return http.StatusBadRequest, CodeInvalidLocalTime
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, timezone.ErrInvalidInstant),
		errors.Is(err, scoring.ErrUnknownPolicy):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, model.ErrDuplicateEntry):
		return http.StatusConflict, CodeDuplicateEntry
	case errors.Is(err, matching.ErrEntryNotEligible):
		return http.StatusConflict, CodeNotEligible
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrSessionNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, session.ErrRoomProvisioning):
		return http.StatusServiceUnavailable, CodeRoomProvisioning
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, CodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeInternal
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
