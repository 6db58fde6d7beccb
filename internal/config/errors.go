package config

import "errors"

// Sentinel kinds wrapped by Load and Validate.
var (
	// ErrInvalidConfig marks a value that Validate rejected.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrLoadConfig marks a file or environment source that could not be read.
	ErrLoadConfig = errors.New("cannot load configuration")
)
