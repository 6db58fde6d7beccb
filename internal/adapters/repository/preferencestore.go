package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/okian/pairup/internal/domain/model"
)

// MemoryPreferenceStore implements PreferenceStore in process memory.
type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[userRole]model.Preferences
}

// NewMemoryPreferenceStore constructs an empty preference store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[userRole]model.Preferences)}
}

// Put implements PreferenceStore.Put. The latest submission replaces the previous one.
func (m *MemoryPreferenceStore) Put(_ context.Context, p model.Preferences) error { //nolint:gocritic // value semantics
	p.UserID = strings.TrimSpace(p.UserID)
	if p.UserID == "" || !p.Role.Valid() {
		return fmt.Errorf("%w: preferences need a user and a role", ErrInvalidEntry)
	}
	p.Profession = model.NormalizeKey(p.Profession)
	p.Language = model.NormalizeKey(p.Language)
	p.Tools = model.NormalizeTools(p.Tools)
	p.SlotsUTC = slices.Clone(p.SlotsUTC)

	m.mu.Lock()
	m.prefs[userRole{userID: p.UserID, role: p.Role}] = p
	m.mu.Unlock()
	return nil
}

// Get implements PreferenceStore.Get.
func (m *MemoryPreferenceStore) Get(_ context.Context, userID string, role model.Role) (model.Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prefs[userRole{userID: userID, role: role}]
	if !ok {
		return model.Preferences{}, fmt.Errorf("%w: preferences of %s as %s", ErrNotFound, userID, role)
	}
	return clonePreferences(p), nil
}

// ListByUser implements PreferenceStore.ListByUser.
func (m *MemoryPreferenceStore) ListByUser(_ context.Context, userID string) ([]model.Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Preferences
	for _, role := range []model.Role{model.RoleCandidate, model.RoleInterviewer} {
		if p, ok := m.prefs[userRole{userID: userID, role: role}]; ok {
			out = append(out, clonePreferences(p))
		}
	}
	return out, nil
}

func clonePreferences(p model.Preferences) model.Preferences { //nolint:gocritic // copy helper
	p.SlotsUTC = slices.Clone(p.SlotsUTC)
	p.Tools = slices.Clone(p.Tools)
	return p
}
