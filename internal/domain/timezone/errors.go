package timezone

import "errors"

// Sentinel kinds for normalizer input errors.
var (
	ErrInvalidZone      = errors.New("invalid time zone")
	ErrInvalidLocalTime = errors.New("invalid local time")
	ErrInvalidDate      = errors.New("invalid local date")
	ErrInvalidInstant   = errors.New("invalid utc instant")
)
