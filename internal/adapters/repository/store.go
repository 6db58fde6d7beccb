// Package repository holds the queue, session and preference stores.
package repository

import (
	"context"
	"time"

	"github.com/okian/pairup/internal/domain/model"
)

// CandidateFilter and EntryKey are declared in model so domain packages can
// build them without importing the store.
type (
	CandidateFilter = model.CandidateFilter
	EntryKey        = model.EntryKey
)

// QueueStore owns the lifecycle of queue entries. Every status change goes
// through one of its atomic operations.
type QueueStore interface {
	// Insert stores a new pending entry. If the same user already has a pending
	// entry for the tuple, that entry is returned with ErrDuplicateEntry.
	Insert(ctx context.Context, entry model.QueueEntry) (model.QueueEntry, error)
	// Get returns a copy of the entry.
	Get(ctx context.Context, id string) (model.QueueEntry, error)
	// Lookup returns the user's live (pending or matched) entry for key.
	Lookup(ctx context.Context, key EntryKey) (model.QueueEntry, error)
	// FindCandidates returns pending entries matching f in FIFO order.
	FindCandidates(ctx context.Context, f CandidateFilter) ([]model.QueueEntry, error)
	// ClaimPair moves both entries from pending to matched in one step, or
	// fails with ErrStaleEntry and changes nothing.
	ClaimPair(ctx context.Context, idA, idB string) (model.Claim, error)
	// ReleaseClaim returns both entries of a claim to pending. It is the
	// compensating step for a failed room provisioning.
	ReleaseClaim(ctx context.Context, claim model.Claim) error
	// Expire moves a pending entry to expired.
	Expire(ctx context.Context, id string) (model.QueueEntry, error)
	// Withdraw moves a pending entry to withdrawn.
	Withdraw(ctx context.Context, id string) (model.QueueEntry, error)
	// ExpireStale expires pending entries older than ttl or whose slot passed.
	ExpireStale(ctx context.Context, now time.Time, ttl time.Duration) (int, error)
	// Prune drops terminal entries closed before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
	// ListByUser returns every entry the user owns, ordered by slot.
	ListByUser(ctx context.Context, userID string) ([]model.QueueEntry, error)
	// Pending returns all pending entries in FIFO order.
	Pending(ctx context.Context) ([]model.QueueEntry, error)
	// Position returns the 1-based FIFO position among same-role pending entries.
	Position(ctx context.Context, id string) (int, error)
	// PendingCount returns the number of pending entries.
	PendingCount(ctx context.Context) int
}

// SessionStore keeps sessions keyed by id with claim and participant indexes.
type SessionStore interface {
	// Create stores s unless a session already exists for s.ClaimID, in which
	// case the existing one is returned and created is false.
	Create(ctx context.Context, s model.Session) (stored model.Session, created bool, err error)
	// Get returns a session by id.
	Get(ctx context.Context, id string) (model.Session, error)
	// GetByClaim returns the session built from a claim.
	GetByClaim(ctx context.Context, claimID string) (model.Session, error)
	// ListByUser returns the user's sessions ordered by slot.
	ListByUser(ctx context.Context, userID string) ([]model.Session, error)
	// Count returns the number of stored sessions.
	Count(ctx context.Context) int
	// Close releases resources held by the store.
	Close() error
}

// PreferenceStore keeps the latest submitted preferences per user and role.
type PreferenceStore interface {
	Put(ctx context.Context, p model.Preferences) error
	Get(ctx context.Context, userID string, role model.Role) (model.Preferences, error)
	ListByUser(ctx context.Context, userID string) ([]model.Preferences, error)
}
