// Package types contains the JSON shapes exchanged over the HTTP API.
package types

import (
	"slices"
	"time"

	"github.com/okian/pairup/internal/domain/model"
)

// Requests carry `validate` tags checked by the API before the service runs.

// PreferencesRequest submits availability for a role. Slots may be given as
// UTC instants, as local wall-clock times with a zone, or both.
type PreferencesRequest struct {
	UserID     string   `json:"userId" validate:"required,max=128"`
	Role       string   `json:"role" validate:"required,oneof=candidate interviewer"`
	Profession string   `json:"profession" validate:"required,max=64"`
	Language   string   `json:"language" validate:"required,max=16"`
	SlotsUTC   []string `json:"slotsUtc" validate:"omitempty,dive,required"`
	SlotsLocal []string `json:"slotsLocal,omitempty" validate:"omitempty,dive,required"`
	Zone       string   `json:"zone,omitempty" validate:"required_with=SlotsLocal"`
	Tools      []string `json:"tools,omitempty" validate:"omitempty,dive,max=64"`
}

// PreferencesResponse acknowledges a submission with the normalized slots.
type PreferencesResponse struct {
	Status string      `json:"status"`
	Slots  []time.Time `json:"slots"`
}

// JoinRequest enters the queue for one slot. Profession and language fall
// back to the user's submitted preferences for the role.
type JoinRequest struct {
	UserID     string   `json:"userId" validate:"required,max=128"`
	Role       string   `json:"role" validate:"required,oneof=candidate interviewer"`
	Profession string   `json:"profession,omitempty" validate:"max=64"`
	Language   string   `json:"language,omitempty" validate:"max=16"`
	SlotUTC    string   `json:"slotUtc,omitempty" validate:"required_without=SlotLocal"`
	SlotLocal  string   `json:"slotLocal,omitempty" validate:"required_without=SlotUTC"`
	Zone       string   `json:"zone,omitempty" validate:"required_with=SlotLocal"`
	Tools      []string `json:"tools,omitempty" validate:"omitempty,dive,max=64"`
}

// JoinResponse reports the new entry. Position is advisory.
type JoinResponse struct {
	EntryID  string    `json:"entryId"`
	SlotUTC  time.Time `json:"slotUtc"`
	Position int       `json:"position"`
}

// MatchRequest asks for a match in any of the listed slots. An empty slot
// list uses the submitted preferences.
type MatchRequest struct {
	UserID     string   `json:"userId" validate:"required,max=128"`
	Role       string   `json:"role" validate:"required,oneof=candidate interviewer"`
	Profession string   `json:"profession,omitempty" validate:"max=64"`
	Language   string   `json:"language,omitempty" validate:"max=16"`
	SlotsUTC   []string `json:"slotsUtc,omitempty" validate:"omitempty,dive,required"`
	Tools      []string `json:"tools,omitempty" validate:"omitempty,dive,max=64"`
	Strictness string   `json:"strictness,omitempty" validate:"omitempty,oneof=exact partial any ignore"`
}

// EntryMatchRequest is the optional body of a match-by-entry call.
type EntryMatchRequest struct {
	Strictness string `json:"strictness,omitempty" validate:"omitempty,oneof=exact partial any ignore"`
}

// Match statuses.
const (
	MatchStatusMatched = "matched"
	MatchStatusNoMatch = "no_match"
)

// MatchResponse is either a session or an explicit no-match.
type MatchResponse struct {
	Status  string   `json:"status"`
	EntryID string   `json:"entryId,omitempty"`
	Session *Session `json:"session,omitempty"`
}

// Session is the client view of a confirmed pairing.
type Session struct {
	SessionID          string    `json:"sessionId"`
	RoomRef            string    `json:"roomRef"`
	CandidateUserID    string    `json:"candidateUserId"`
	InterviewerUserID  string    `json:"interviewerUserId"`
	CandidateEntryID   string    `json:"candidateEntryId"`
	InterviewerEntryID string    `json:"interviewerEntryId"`
	Profession         string    `json:"profession"`
	Language           string    `json:"language"`
	SlotUTC            time.Time `json:"slotUtc"`
	MatchedTools       []string  `json:"matchedTools,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// NewSession converts a stored session.
func NewSession(s model.Session) Session { //nolint:gocritic // conversion by value
	return Session{
		SessionID:          s.ID,
		RoomRef:            s.RoomRef,
		CandidateUserID:    s.Participants.CandidateUserID,
		InterviewerUserID:  s.Participants.InterviewerUserID,
		CandidateEntryID:   s.Participants.CandidateEntryID,
		InterviewerEntryID: s.Participants.InterviewerEntryID,
		Profession:         s.Profession,
		Language:           s.Language,
		SlotUTC:            s.SlotUTC,
		MatchedTools:       slices.Clone(s.MatchedTools),
		CreatedAt:          s.CreatedAt,
	}
}

// Entry is the client view of a queue entry.
type Entry struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Role       string     `json:"role"`
	Profession string     `json:"profession"`
	Language   string     `json:"language"`
	SlotUTC    time.Time  `json:"slotUtc"`
	Tools      []string   `json:"tools"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	ClaimID    string     `json:"claimId,omitempty"`
	MatchedAt  *time.Time `json:"matchedAt,omitempty"`
}

// NewEntry converts a queue entry.
func NewEntry(e model.QueueEntry) Entry { //nolint:gocritic // conversion by value
	out := Entry{
		ID:         e.ID,
		UserID:     e.UserID,
		Role:       string(e.Role),
		Profession: e.Profession,
		Language:   e.Language,
		SlotUTC:    e.SlotUTC,
		Tools:      slices.Clone(e.Tools),
		Status:     string(e.Status),
		CreatedAt:  e.CreatedAt,
		ClaimID:    e.ClaimID,
	}
	if out.Tools == nil {
		out.Tools = []string{}
	}
	if !e.MatchedAt.IsZero() {
		t := e.MatchedAt
		out.MatchedAt = &t
	}
	return out
}

// Preferences is the client view of submitted preferences.
type Preferences struct {
	Role        string      `json:"role"`
	Profession  string      `json:"profession"`
	Language    string      `json:"language"`
	SlotsUTC    []time.Time `json:"slotsUtc"`
	Tools       []string    `json:"tools"`
	SubmittedAt time.Time   `json:"submittedAt"`
}

// NewPreferences converts stored preferences.
func NewPreferences(p model.Preferences) Preferences { //nolint:gocritic // conversion by value
	return Preferences{
		Role:        string(p.Role),
		Profession:  p.Profession,
		Language:    p.Language,
		SlotsUTC:    slices.Clone(p.SlotsUTC),
		Tools:       slices.Clone(p.Tools),
		SubmittedAt: p.SubmittedAt,
	}
}

// Slot is one row of the availability view. Compatibility fields are set
// only when the requester supplied tools.
type Slot struct {
	Time         time.Time `json:"time"`
	Local        string    `json:"local,omitempty"`
	Count        int       `json:"count"`
	MatchedTools []string  `json:"matchedTools,omitempty"`
	MatchScore   *float64  `json:"matchScore,omitempty"`
	Overlap      *int      `json:"overlap,omitempty"`
}

// NewSlot converts an aggregate; withTools attaches the compatibility fields.
func NewSlot(a model.SlotAggregate, local string, withTools bool) Slot { //nolint:gocritic // conversion by value
	s := Slot{Time: a.Time, Local: local, Count: a.Count}
	if withTools {
		score, overlap := a.MatchScore, a.Overlap
		s.MatchedTools = slices.Clone(a.MatchedTools)
		s.MatchScore = &score
		s.Overlap = &overlap
	}
	return s
}

// SlotsQuery is the parsed query string of the availability view. Tools is
// nil when the requester supplied none.
type SlotsQuery struct {
	UserID     string   `validate:"max=128"`
	Role       string   `validate:"required,oneof=candidate interviewer"`
	Profession string   `validate:"max=64"`
	Language   string   `validate:"max=16"`
	DateLocal  string   `validate:"omitempty,datetime=2006-01-02"`
	Zone       string   `validate:"max=64"`
	Tools      []string `validate:"omitempty,dive,max=64"`
	Strictness string   `validate:"omitempty,oneof=exact partial any ignore"`
}

// SlotsResponse lists slots ascending by time.
type SlotsResponse struct {
	Slots []Slot `json:"slots"`
}

// BookingsResponse is a read-only snapshot of one user.
type BookingsResponse struct {
	Queues      []Entry       `json:"queues"`
	Sessions    []Session     `json:"sessions"`
	Preferences []Preferences `json:"preferences,omitempty"`
}

// WithdrawResponse reports a withdrawal. Warning is set when the entry had
// already left pending and nothing changed.
type WithdrawResponse struct {
	EntryID string `json:"entryId"`
	Status  string `json:"status"`
	Warning string `json:"warning,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	EntryID string `json:"entryId,omitempty"`
}

// Stats summarises the running service.
type Stats struct {
	PendingEntries  int     `json:"pendingEntries"`
	Sessions        int     `json:"sessions"`
	JobQueueLength  int     `json:"jobQueueLength"`
	InFlight        int64   `json:"inFlight"`
	Workers         int     `json:"workers"`
	JobsProcessed   int64   `json:"jobsProcessed"`
	BackgroundMatch int64   `json:"backgroundMatches"`
	UptimeSeconds   float64 `json:"uptimeSeconds"`
	SessionStore    string  `json:"sessionStore"`
}
