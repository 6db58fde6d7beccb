package model

import "errors"

// Lifecycle errors shared by the stores and the components that drive them.
var (
	ErrNotFound          = errors.New("entry not found")
	ErrDuplicateEntry    = errors.New("duplicate pending entry")
	ErrStaleEntry        = errors.New("entry is no longer pending")
	ErrInvalidTransition = errors.New("invalid entry transition")
	ErrSessionNotFound   = errors.New("session not found")
)
