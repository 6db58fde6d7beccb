package model

import "time"

// Claim is the result of atomically moving two pending entries to matched.
// Both entries carry the claim ID; a Session may only be built from a Claim.
type Claim struct {
	ID        string
	Entries   [2]QueueEntry
	ClaimedAt time.Time
}

// Candidate returns the candidate side of the claim.
func (c Claim) Candidate() QueueEntry {
	if c.Entries[0].Role == RoleCandidate {
		return c.Entries[0]
	}
	return c.Entries[1]
}

// Interviewer returns the interviewer side of the claim.
func (c Claim) Interviewer() QueueEntry {
	if c.Entries[0].Role == RoleInterviewer {
		return c.Entries[0]
	}
	return c.Entries[1]
}

// Participants identifies the two sides of a session.
type Participants struct {
	CandidateUserID    string `json:"candidateUserId"`
	InterviewerUserID  string `json:"interviewerUserId"`
	CandidateEntryID   string `json:"candidateEntryId"`
	InterviewerEntryID string `json:"interviewerEntryId"`
}

// Session is a confirmed pairing with an externally provisioned room.
type Session struct {
	ID           string       `json:"id"`
	ClaimID      string       `json:"claimId"`
	Participants Participants `json:"participants"`
	RoomRef      string       `json:"roomRef"`
	Profession   string       `json:"profession"`
	Language     string       `json:"language"`
	SlotUTC      time.Time    `json:"slotUtc"`
	MatchedTools []string     `json:"matchedTools,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Involves reports whether userID is one of the participants.
func (s Session) Involves(userID string) bool { //nolint:gocritic // read-only value receiver
	return s.Participants.CandidateUserID == userID || s.Participants.InterviewerUserID == userID
}
