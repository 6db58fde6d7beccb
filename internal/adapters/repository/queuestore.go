package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pairup/internal/domain/model"
	"github.com/okian/pairup/pkg/logger"
	"github.com/okian/pairup/pkg/metrics"
)

// In-memory QueueStore.
//
// Entries live in buckets keyed by (profession, language, slot). Both roles
// share a bucket so a claim never spans more than one lock in practice.
// Each bucket has its own mutex; the store mutex only guards the maps that
// locate buckets.
//
// Lock order: a bucket mutex may be held while taking s.mu, never the
// reverse. Two bucket mutexes are taken in bucketKey order.

type bucketKey struct {
	profession string
	language   string
	slot       int64
}

func (k bucketKey) less(o bucketKey) bool {
	if k.slot != o.slot {
		return k.slot < o.slot
	}
	if k.profession != o.profession {
		return k.profession < o.profession
	}
	return k.language < o.language
}

func keyOf(profession, language string, slot time.Time) bucketKey {
	return bucketKey{profession: profession, language: language, slot: slot.UTC().Unix()}
}

type userRole struct {
	userID string
	role   model.Role
}

type bucket struct {
	mu      sync.Mutex
	key     bucketKey
	entries map[string]*model.QueueEntry
	pending map[userRole]string
	// dead is set when Prune unlinks an empty bucket; writers holding a stale
	// pointer must look the bucket up again.
	dead bool
}

func newBucket(key bucketKey) *bucket {
	return &bucket{
		key:     key,
		entries: make(map[string]*model.QueueEntry),
		pending: make(map[userRole]string),
	}
}

// MemoryQueueStore implements QueueStore with per-bucket locking.
type MemoryQueueStore struct {
	mu      sync.RWMutex
	buckets map[bucketKey]*bucket
	index   map[string]bucketKey
	byUser  map[string]map[string]struct{}

	seq     atomic.Uint64
	pending atomic.Int64

	now                   func() time.Time
	log                   logger.Logger
	metricsUpdateInterval time.Duration

	wg        sync.WaitGroup
	stopChan  chan struct{}
	closeOnce sync.Once
}

// NewMemoryQueueStore constructs an empty store and starts its metrics updater.
func NewMemoryQueueStore(ctx context.Context, opts ...Option) *MemoryQueueStore {
	s := &MemoryQueueStore{
		buckets:               make(map[bucketKey]*bucket),
		index:                 make(map[string]bucketKey),
		byUser:                make(map[string]map[string]struct{}),
		now:                   time.Now,
		log:                   logger.Nop(),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *MemoryQueueStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Insert implements QueueStore.Insert.
func (s *MemoryQueueStore) Insert(ctx context.Context, e model.QueueEntry) (model.QueueEntry, error) {
	e.UserID = strings.TrimSpace(e.UserID)
	e.Profession = model.NormalizeKey(e.Profession)
	e.Language = model.NormalizeKey(e.Language)
	e.Tools = model.NormalizeTools(e.Tools)
	if err := validateEntry(&e); err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_entry")
		return model.QueueEntry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.SlotUTC = e.SlotUTC.UTC()
	e.Status = model.StatusPending
	e.ClaimID, e.PeerID = "", ""
	e.MatchedAt, e.ClosedAt = time.Time{}, time.Time{}

	key := keyOf(e.Profession, e.Language, e.SlotUTC)
	ur := userRole{userID: e.UserID, role: e.Role}
	for {
		b := s.bucketFor(key)
		b.mu.Lock()
		if b.dead {
			b.mu.Unlock()
			continue
		}
		if id, ok := b.pending[ur]; ok {
			existing := b.entries[id].Clone()
			b.mu.Unlock()
			metrics.RecordEntryDuplicate()
			return existing, fmt.Errorf("%w: %s", ErrDuplicateEntry, existing.ID)
		}

		s.mu.Lock()
		if _, taken := s.index[e.ID]; taken {
			s.mu.Unlock()
			b.mu.Unlock()
			return model.QueueEntry{}, fmt.Errorf("%w: id %q already used", ErrInvalidEntry, e.ID)
		}
		e.CreatedAt = s.now().UTC()
		e.Seq = s.seq.Add(1)
		s.index[e.ID] = key
		ids, ok := s.byUser[e.UserID]
		if !ok {
			ids = make(map[string]struct{})
			s.byUser[e.UserID] = ids
		}
		ids[e.ID] = struct{}{}
		s.mu.Unlock()

		stored := e.Clone()
		b.entries[e.ID] = &stored
		b.pending[ur] = e.ID
		b.mu.Unlock()

		s.pending.Add(1)
		metrics.RecordEntryInserted()
		s.log.Debug(ctx, "entry inserted",
			logger.String("entryId", e.ID),
			logger.String("userId", e.UserID),
			logger.String("role", string(e.Role)),
			logger.Time("slotUtc", e.SlotUTC),
		)
		return e.Clone(), nil
	}
}

func validateEntry(e *model.QueueEntry) error {
	switch {
	case e.UserID == "":
		return fmt.Errorf("%w: userId is required", ErrInvalidEntry)
	case !e.Role.Valid():
		return fmt.Errorf("%w: role %q", ErrInvalidEntry, e.Role)
	case e.Profession == "":
		return fmt.Errorf("%w: profession is required", ErrInvalidEntry)
	case e.Language == "":
		return fmt.Errorf("%w: language is required", ErrInvalidEntry)
	case e.SlotUTC.IsZero():
		return fmt.Errorf("%w: slotUtc is required", ErrInvalidEntry)
	}
	return nil
}

// Get implements QueueStore.Get.
func (s *MemoryQueueStore) Get(_ context.Context, id string) (model.QueueEntry, error) {
	b, err := s.locate(id)
	if err != nil {
		return model.QueueEntry{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[id]
	if !ok {
		return model.QueueEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.Clone(), nil
}

// Lookup implements QueueStore.Lookup. A pending entry wins over matched
// ones; among matched entries the most recent is returned.
func (s *MemoryQueueStore) Lookup(_ context.Context, key EntryKey) (model.QueueEntry, error) {
	bk := keyOf(model.NormalizeKey(key.Profession), model.NormalizeKey(key.Language), key.SlotUTC)
	s.mu.RLock()
	b := s.buckets[bk]
	s.mu.RUnlock()
	if b == nil {
		return model.QueueEntry{}, ErrNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.pending[userRole{userID: key.UserID, role: key.Role}]; ok {
		return b.entries[id].Clone(), nil
	}
	var best *model.QueueEntry
	for _, e := range b.entries {
		if e.UserID != key.UserID || e.Role != key.Role || e.Status != model.StatusMatched {
			continue
		}
		if best == nil || e.Seq > best.Seq {
			best = e
		}
	}
	if best == nil {
		return model.QueueEntry{}, ErrNotFound
	}
	return best.Clone(), nil
}

// FindCandidates implements QueueStore.FindCandidates. When profession,
// language and slot are all given the result is a consistent snapshot of
// one bucket.
func (s *MemoryQueueStore) FindCandidates(ctx context.Context, f CandidateFilter) ([]model.QueueEntry, error) {
	f.Profession = model.NormalizeKey(f.Profession)
	f.Language = model.NormalizeKey(f.Language)

	var buckets []*bucket
	if f.Profession != "" && f.Language != "" && !f.SlotUTC.IsZero() {
		s.mu.RLock()
		if b := s.buckets[keyOf(f.Profession, f.Language, f.SlotUTC)]; b != nil {
			buckets = append(buckets, b)
		}
		s.mu.RUnlock()
	} else {
		buckets = s.snapshotBuckets(func(k bucketKey) bool { return matchesBucket(&f, k) })
	}

	var out []model.QueueEntry
	for _, b := range buckets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.mu.Lock()
		for _, e := range b.entries {
			if e.Status != model.StatusPending {
				continue
			}
			if f.Role != "" && e.Role != f.Role {
				continue
			}
			if f.ExcludeUserID != "" && e.UserID == f.ExcludeUserID {
				continue
			}
			out = append(out, e.Clone())
		}
		b.mu.Unlock()
	}
	slices.SortFunc(out, fifo)
	return out, nil
}

func matchesBucket(f *CandidateFilter, k bucketKey) bool {
	if f.Profession != "" && k.profession != f.Profession {
		return false
	}
	if f.Language != "" && k.language != f.Language {
		return false
	}
	if !f.SlotUTC.IsZero() && k.slot != f.SlotUTC.Unix() {
		return false
	}
	if !f.From.IsZero() && k.slot < f.From.Unix() {
		return false
	}
	if !f.To.IsZero() && k.slot >= f.To.Unix() {
		return false
	}
	return true
}

// ClaimPair implements QueueStore.ClaimPair.
func (s *MemoryQueueStore) ClaimPair(ctx context.Context, idA, idB string) (model.Claim, error) {
	if idA == idB {
		return model.Claim{}, fmt.Errorf("%w: cannot pair %s with itself", ErrInvalidEntry, idA)
	}
	ba, err := s.locate(idA)
	if err != nil {
		return model.Claim{}, fmt.Errorf("%w: %w", ErrStaleEntry, err)
	}
	bb, err := s.locate(idB)
	if err != nil {
		return model.Claim{}, fmt.Errorf("%w: %w", ErrStaleEntry, err)
	}

	unlock := lockPair(ba, bb)
	defer unlock()

	ea, eb := ba.entries[idA], bb.entries[idB]
	if err := claimable(idA, ea); err != nil {
		return model.Claim{}, err
	}
	if err := claimable(idB, eb); err != nil {
		return model.Claim{}, err
	}

	claim := model.Claim{ID: uuid.NewString(), ClaimedAt: s.now().UTC()}
	ea.Status, eb.Status = model.StatusMatched, model.StatusMatched
	ea.ClaimID, eb.ClaimID = claim.ID, claim.ID
	ea.PeerID, eb.PeerID = eb.ID, ea.ID
	ea.MatchedAt, eb.MatchedAt = claim.ClaimedAt, claim.ClaimedAt
	delete(ba.pending, userRole{userID: ea.UserID, role: ea.Role})
	delete(bb.pending, userRole{userID: eb.UserID, role: eb.Role})
	s.pending.Add(-2)
	claim.Entries = [2]model.QueueEntry{ea.Clone(), eb.Clone()}

	s.log.Debug(ctx, "pair claimed",
		logger.String("claimId", claim.ID),
		logger.String("entryA", idA),
		logger.String("entryB", idB),
	)
	return claim, nil
}

func claimable(id string, e *model.QueueEntry) error {
	if e == nil {
		metrics.RecordClaimConflict()
		return fmt.Errorf("%w: %s was pruned", ErrStaleEntry, id)
	}
	if e.Status != model.StatusPending {
		metrics.RecordClaimConflict()
		return fmt.Errorf("%w: %s is %s", ErrStaleEntry, id, e.Status)
	}
	return nil
}

func lockPair(a, b *bucket) func() {
	if a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	if b.key.less(a.key) {
		a, b = b, a
	}
	a.mu.Lock()
	b.mu.Lock()
	return func() {
		b.mu.Unlock()
		a.mu.Unlock()
	}
}

// ReleaseClaim implements QueueStore.ReleaseClaim. Entries keep their
// createdAt and sequence, so they return to the same queue position. If the
// user re-joined the same slot meanwhile, the released entry is expired in
// favour of the newer one.
func (s *MemoryQueueStore) ReleaseClaim(ctx context.Context, claim model.Claim) error {
	idA, idB := claim.Entries[0].ID, claim.Entries[1].ID
	ba, err := s.locate(idA)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	bb, err := s.locate(idB)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	unlock := lockPair(ba, bb)
	defer unlock()

	pairs := []struct {
		b *bucket
		e *model.QueueEntry
	}{{ba, ba.entries[idA]}, {bb, bb.entries[idB]}}
	for _, p := range pairs {
		if p.e == nil || p.e.Status != model.StatusMatched || p.e.ClaimID != claim.ID {
			return fmt.Errorf("%w: claim %s no longer holds its entries", ErrInvalidTransition, claim.ID)
		}
	}

	now := s.now().UTC()
	for _, p := range pairs {
		e := p.e
		e.ClaimID, e.PeerID, e.MatchedAt = "", "", time.Time{}
		ur := userRole{userID: e.UserID, role: e.Role}
		if _, taken := p.b.pending[ur]; taken {
			e.Status = model.StatusExpired
			e.ClosedAt = now
			continue
		}
		e.Status = model.StatusPending
		p.b.pending[ur] = e.ID
		s.pending.Add(1)
	}
	metrics.RecordClaimRollback()
	s.log.Debug(ctx, "claim released", logger.String("claimId", claim.ID))
	return nil
}

// Expire implements QueueStore.Expire.
func (s *MemoryQueueStore) Expire(ctx context.Context, id string) (model.QueueEntry, error) {
	e, err := s.transition(ctx, id, model.StatusExpired)
	if err == nil {
		metrics.RecordEntriesExpired(1)
	}
	return e, err
}

// Withdraw implements QueueStore.Withdraw.
func (s *MemoryQueueStore) Withdraw(ctx context.Context, id string) (model.QueueEntry, error) {
	e, err := s.transition(ctx, id, model.StatusWithdrawn)
	if err == nil {
		metrics.RecordEntryWithdrawn()
	}
	return e, err
}

func (s *MemoryQueueStore) transition(ctx context.Context, id string, target model.Status) (model.QueueEntry, error) {
	b, err := s.locate(id)
	if err != nil {
		return model.QueueEntry{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return model.QueueEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.Status != model.StatusPending {
		s.log.Warn(ctx, "ignored transition of non-pending entry",
			logger.String("entryId", id),
			logger.String("status", string(e.Status)),
			logger.String("target", string(target)),
		)
		return e.Clone(), fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, e.Status)
	}
	s.closeLocked(b, e, target, s.now().UTC())
	return e.Clone(), nil
}

// closeLocked moves a pending entry to a terminal state. b.mu must be held.
func (s *MemoryQueueStore) closeLocked(b *bucket, e *model.QueueEntry, target model.Status, now time.Time) {
	e.Status = target
	e.ClosedAt = now
	delete(b.pending, userRole{userID: e.UserID, role: e.Role})
	s.pending.Add(-1)
}

// ExpireStale implements QueueStore.ExpireStale.
func (s *MemoryQueueStore) ExpireStale(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	now = now.UTC()
	n := 0
	for _, b := range s.snapshotBuckets(nil) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		b.mu.Lock()
		for _, e := range b.entries {
			if e.Status != model.StatusPending {
				continue
			}
			if e.SlotUTC.Before(now) || (ttl > 0 && now.Sub(e.CreatedAt) >= ttl) {
				s.closeLocked(b, e, model.StatusExpired, now)
				n++
			}
		}
		b.mu.Unlock()
	}
	if n > 0 {
		metrics.RecordEntriesExpired(n)
		s.log.Debug(ctx, "expired stale entries", logger.Int("count", n))
	}
	return n, nil
}

// Prune implements QueueStore.Prune.
func (s *MemoryQueueStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	n := 0
	for _, b := range s.snapshotBuckets(nil) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		b.mu.Lock()
		var removed []*model.QueueEntry
		for id, e := range b.entries {
			if !e.Status.Terminal() {
				continue
			}
			closed := e.ClosedAt
			if e.Status == model.StatusMatched {
				closed = e.MatchedAt
			}
			if closed.Before(cutoff) {
				delete(b.entries, id)
				removed = append(removed, e)
			}
		}
		if len(removed) > 0 || len(b.entries) == 0 {
			s.mu.Lock()
			for _, e := range removed {
				delete(s.index, e.ID)
				if ids, ok := s.byUser[e.UserID]; ok {
					delete(ids, e.ID)
					if len(ids) == 0 {
						delete(s.byUser, e.UserID)
					}
				}
			}
			if len(b.entries) == 0 {
				b.dead = true
				if s.buckets[b.key] == b {
					delete(s.buckets, b.key)
				}
			}
			s.mu.Unlock()
		}
		b.mu.Unlock()
		n += len(removed)
	}
	if n > 0 {
		metrics.RecordEntriesPruned(n)
	}
	return n, nil
}

// ListByUser implements QueueStore.ListByUser.
func (s *MemoryQueueStore) ListByUser(_ context.Context, userID string) ([]model.QueueEntry, error) {
	type loc struct {
		id string
		b  *bucket
	}
	s.mu.RLock()
	locs := make([]loc, 0, len(s.byUser[userID]))
	for id := range s.byUser[userID] {
		if b := s.buckets[s.index[id]]; b != nil {
			locs = append(locs, loc{id: id, b: b})
		}
	}
	s.mu.RUnlock()

	out := make([]model.QueueEntry, 0, len(locs))
	for _, l := range locs {
		l.b.mu.Lock()
		if e, ok := l.b.entries[l.id]; ok {
			out = append(out, e.Clone())
		}
		l.b.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b model.QueueEntry) int {
		if c := a.SlotUTC.Compare(b.SlotUTC); c != 0 {
			return c
		}
		return fifo(a, b)
	})
	return out, nil
}

// Pending implements QueueStore.Pending.
func (s *MemoryQueueStore) Pending(ctx context.Context) ([]model.QueueEntry, error) {
	return s.FindCandidates(ctx, CandidateFilter{})
}

// Position implements QueueStore.Position.
func (s *MemoryQueueStore) Position(_ context.Context, id string) (int, error) {
	b, err := s.locate(id)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.Status != model.StatusPending {
		return 0, fmt.Errorf("%w: %s is %s", ErrStaleEntry, id, e.Status)
	}
	pos := 1
	for _, other := range b.entries {
		if other.ID != e.ID && other.Role == e.Role && other.Status == model.StatusPending && fifo(*other, *e) < 0 {
			pos++
		}
	}
	return pos, nil
}

// PendingCount implements QueueStore.PendingCount.
func (s *MemoryQueueStore) PendingCount(context.Context) int {
	return int(s.pending.Load())
}

func (s *MemoryQueueStore) bucketFor(key bucketKey) *bucket {
	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()
	if ok {
		return b
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.buckets[key]; ok {
		return b
	}
	b = newBucket(key)
	s.buckets[key] = b
	return b
}

func (s *MemoryQueueStore) locate(id string) (*bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	b, ok := s.buckets[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return b, nil
}

func (s *MemoryQueueStore) snapshotBuckets(keep func(bucketKey) bool) []*bucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*bucket, 0, len(s.buckets))
	for k, b := range s.buckets {
		if keep == nil || keep(k) {
			out = append(out, b)
		}
	}
	return out
}

// fifo orders entries by createdAt, then insertion sequence.
func fifo(a, b model.QueueEntry) int { //nolint:gocritic // value arguments for slices.SortFunc
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.Seq < b.Seq:
		return -1
	case a.Seq > b.Seq:
		return 1
	default:
		return 0
	}
}

// startMetricsUpdater periodically publishes the pending gauge.
func (s *MemoryQueueStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdatePendingEntries(s.PendingCount(ctx))
			}
		}
	}()
}
