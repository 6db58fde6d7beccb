// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Role is the side a participant takes in an interview.
type Role string

// Roles.
const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
)

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleCandidate:
		return RoleCandidate, nil
	case RoleInterviewer:
		return RoleInterviewer, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Opposite returns the role a participant is paired with.
func (r Role) Opposite() Role {
	switch r {
	case RoleCandidate:
		return RoleInterviewer
	case RoleInterviewer:
		return RoleCandidate
	default:
		return ""
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCandidate, RoleInterviewer:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a queue entry.
type Status string

// Entry lifecycle: pending is the only non-terminal state.
const (
	StatusPending   Status = "pending"
	StatusMatched   Status = "matched"
	StatusExpired   Status = "expired"
	StatusWithdrawn Status = "withdrawn"
)

// Terminal reports whether no further transition may leave s.
// Matched counts as terminal; the only exception is the claim rollback
// performed when a room cannot be provisioned.
func (s Status) Terminal() bool {
	switch s {
	case StatusPending:
		return false
	case StatusMatched, StatusExpired, StatusWithdrawn:
		return true
	default:
		return true
	}
}

// QueueEntry is one participant's declared availability for a slot.
type QueueEntry struct {
	ID         string
	UserID     string
	Role       Role
	Profession string
	Language   string
	SlotUTC    time.Time
	Tools      []string
	Status     Status
	CreatedAt  time.Time

	// Seq breaks createdAt ties in insertion order.
	Seq uint64

	// Set when Status is matched.
	ClaimID   string
	PeerID    string
	MatchedAt time.Time

	// Set when the entry reached expired or withdrawn.
	ClosedAt time.Time
}

// Clone returns a deep copy so callers never share the tool slice.
func (e QueueEntry) Clone() QueueEntry { //nolint:gocritic // value receiver keeps call sites simple
	e.Tools = slices.Clone(e.Tools)
	return e
}

// NormalizeTools lower-cases, trims, de-duplicates and sorts tool ids.
func NormalizeTools(tools []string) []string {
	out := make([]string, 0, len(tools))
	seen := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// NormalizeKey canonicalises taxonomy strings such as profession and language.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
