package model

import "time"

// CandidateFilter selects pending entries. Zero fields match anything.
type CandidateFilter struct {
	Role       Role
	Profession string
	Language   string
	// SlotUTC pins a single slot. From/To select a half-open range instead.
	SlotUTC time.Time
	From    time.Time
	To      time.Time
	// ExcludeUserID drops entries owned by this user.
	ExcludeUserID string
}

// EntryKey is the uniqueness tuple of a pending entry.
type EntryKey struct {
	UserID     string
	Role       Role
	Profession string
	Language   string
	SlotUTC    time.Time
}
