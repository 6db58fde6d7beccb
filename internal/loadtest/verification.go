package loadtest

import (
	"fmt"
	"sort"

	"github.com/okian/pairup/internal/domain/types"
)

// Violation is one broken matching guarantee.
type Violation struct {
	Kind    string
	Subject string
	Detail  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Kind, v.Subject, v.Detail)
}

// Verify checks the bookings of every user:
//   - an entry id appears in at most one session
//   - a session is reported identically by both participants
//   - a user holds at most one session per slot and role
//
// It returns the distinct sessions and any violations found.
func Verify(bookings map[string]types.BookingsResponse) ([]types.Session, []Violation) {
	var violations []Violation
	sessions := map[string]types.Session{}
	entryOwner := map[string]string{}
	reporters := map[string]map[string]bool{}

	users := make([]string, 0, len(bookings))
	for u := range bookings {
		users = append(users, u)
	}
	sort.Strings(users)

	for _, user := range users {
		perSlot := map[string]string{}
		for _, s := range bookings[user].Sessions {
			if prev, ok := sessions[s.SessionID]; ok && !sameSession(prev, s) {
				violations = append(violations, Violation{"inconsistent_session", s.SessionID, "participants disagree on the session"})
			}
			sessions[s.SessionID] = s
			if reporters[s.SessionID] == nil {
				reporters[s.SessionID] = map[string]bool{}
			}
			reporters[s.SessionID][user] = true

			role := "candidate"
			if s.InterviewerUserID == user {
				role = "interviewer"
			}
			key := role + "|" + s.SlotUTC.UTC().String()
			if other, ok := perSlot[key]; ok && other != s.SessionID {
				violations = append(violations, Violation{"double_booking", user, fmt.Sprintf("sessions %s and %s share a slot", other, s.SessionID)})
			}
			perSlot[key] = s.SessionID
		}
	}

	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]types.Session, 0, len(ids))
	for _, id := range ids {
		s := sessions[id]
		out = append(out, s)
		for _, entry := range []string{s.CandidateEntryID, s.InterviewerEntryID} {
			if other, ok := entryOwner[entry]; ok && other != id {
				violations = append(violations, Violation{"entry_reused", entry, fmt.Sprintf("in sessions %s and %s", other, id)})
			}
			entryOwner[entry] = id
		}
		for _, participant := range []string{s.CandidateUserID, s.InterviewerUserID} {
			if _, known := bookings[participant]; known && !reporters[id][participant] {
				violations = append(violations, Violation{"missing_session", participant, "session " + id + " not in bookings"})
			}
		}
	}
	return out, violations
}

func sameSession(a, b types.Session) bool { //nolint:gocritic // comparison by value
	return a.RoomRef == b.RoomRef &&
		a.CandidateEntryID == b.CandidateEntryID &&
		a.InterviewerEntryID == b.InterviewerEntryID &&
		a.SlotUTC.Equal(b.SlotUTC)
}
