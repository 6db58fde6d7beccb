package repository

import (
	"errors"

	"github.com/okian/pairup/internal/domain/model"
)

// Sentinel kinds for store errors. Lifecycle errors alias the model ones so
// domain code can match them without importing this package.
var (
	ErrNotFound          = model.ErrNotFound
	ErrDuplicateEntry    = model.ErrDuplicateEntry
	ErrStaleEntry        = model.ErrStaleEntry
	ErrInvalidTransition = model.ErrInvalidTransition
	ErrSessionNotFound   = model.ErrSessionNotFound

	ErrInvalidEntry   = errors.New("invalid queue entry")
	ErrInvalidSession = errors.New("invalid session")
)
