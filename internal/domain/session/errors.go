package session

import "errors"

// Sentinel errors for session creation.
var (
	// ErrClaimMismatch means the two entries were not matched by the same claim.
	ErrClaimMismatch = errors.New("entries do not share a claim")
	// ErrRoomProvisioning is retryable; the caller decides whether to retry
	// or release the claim.
	ErrRoomProvisioning = errors.New("room provisioning failed")
)
