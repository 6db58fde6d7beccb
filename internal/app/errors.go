package service

import "errors"

// Sentinel kinds returned by the Service on top of the domain errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotOwner       = errors.New("entry belongs to another user")
)
