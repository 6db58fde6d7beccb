package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/pairup/internal/domain/model"
)

// MemorySessionStore implements SessionStore in process memory.
type MemorySessionStore struct {
	mu      sync.RWMutex
	byID    map[string]model.Session
	byClaim map[string]string
	byUser  map[string][]string
}

// NewMemorySessionStore constructs an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		byID:    make(map[string]model.Session),
		byClaim: make(map[string]string),
		byUser:  make(map[string][]string),
	}
}

// Create implements SessionStore.Create.
func (m *MemorySessionStore) Create(_ context.Context, s model.Session) (model.Session, bool, error) { //nolint:gocritic // sessions are passed by value across the API
	if err := prepareSession(&s); err != nil {
		return model.Session{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byClaim[s.ClaimID]; ok {
		return cloneSession(m.byID[id]), false, nil
	}
	if _, ok := m.byID[s.ID]; ok {
		return model.Session{}, false, fmt.Errorf("%w: id %q already used", ErrInvalidSession, s.ID)
	}
	m.byID[s.ID] = cloneSession(s)
	m.byClaim[s.ClaimID] = s.ID
	m.byUser[s.Participants.CandidateUserID] = append(m.byUser[s.Participants.CandidateUserID], s.ID)
	m.byUser[s.Participants.InterviewerUserID] = append(m.byUser[s.Participants.InterviewerUserID], s.ID)
	return cloneSession(s), true, nil
}

// Get implements SessionStore.Get.
func (m *MemorySessionStore) Get(_ context.Context, id string) (model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	if !ok {
		return model.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return cloneSession(s), nil
}

// GetByClaim implements SessionStore.GetByClaim.
func (m *MemorySessionStore) GetByClaim(_ context.Context, claimID string) (model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byClaim[claimID]
	if !ok {
		return model.Session{}, fmt.Errorf("%w: claim %s", ErrSessionNotFound, claimID)
	}
	return cloneSession(m.byID[id]), nil
}

// ListByUser implements SessionStore.ListByUser.
func (m *MemorySessionStore) ListByUser(_ context.Context, userID string) ([]model.Session, error) {
	m.mu.RLock()
	out := make([]model.Session, 0, len(m.byUser[userID]))
	for _, id := range m.byUser[userID] {
		out = append(out, cloneSession(m.byID[id]))
	}
	m.mu.RUnlock()
	sortSessions(out)
	return out, nil
}

// Count implements SessionStore.Count.
func (m *MemorySessionStore) Count(context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Close implements SessionStore.Close.
func (m *MemorySessionStore) Close() error { return nil }

func prepareSession(s *model.Session) error {
	switch {
	case s.ClaimID == "":
		return fmt.Errorf("%w: claimId is required", ErrInvalidSession)
	case s.Participants.CandidateUserID == "" || s.Participants.InterviewerUserID == "":
		return fmt.Errorf("%w: both participants are required", ErrInvalidSession)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func cloneSession(s model.Session) model.Session { //nolint:gocritic // copy helper
	s.MatchedTools = slices.Clone(s.MatchedTools)
	return s
}

func sortSessions(ss []model.Session) {
	slices.SortFunc(ss, func(a, b model.Session) int {
		if c := a.SlotUTC.Compare(b.SlotUTC); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
