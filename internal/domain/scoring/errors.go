package scoring

import "errors"

// Sentinel errors for scoring configuration.
var (
	ErrUnknownPolicy    = errors.New("unknown strictness policy")
	ErrUnknownExactMode = errors.New("unknown exact mode")
)
