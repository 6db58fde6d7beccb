package model

import "time"

// Preferences is the latest availability a participant submitted for a role.
// It does not put anyone in the queue on its own.
type Preferences struct {
	UserID      string
	Role        Role
	Profession  string
	Language    string
	SlotsUTC    []time.Time
	Tools       []string
	SubmittedAt time.Time
}

// SlotAggregate summarises pending entries at one slot for availability views.
type SlotAggregate struct {
	Time         time.Time
	Count        int
	MatchedTools []string
	MatchScore   float64
	Overlap      int
}
