package matching

import "errors"

// ErrEntryNotEligible is returned when the entry asked to match is no longer pending.
var ErrEntryNotEligible = errors.New("entry is not eligible for matching")
