// Package service wires the matching engine together and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	jobqueue "github.com/okian/pairup/internal/adapters/mq/queue"
	workerpool "github.com/okian/pairup/internal/adapters/mq/worker"
	"github.com/okian/pairup/internal/adapters/repository"
	"github.com/okian/pairup/internal/adapters/rooms"
	"github.com/okian/pairup/internal/domain/dedupe"
	"github.com/okian/pairup/internal/domain/matching"
	"github.com/okian/pairup/internal/domain/model"
	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/okian/pairup/internal/domain/session"
	"github.com/okian/pairup/internal/domain/slots"
	"github.com/okian/pairup/internal/domain/timezone"
	"github.com/okian/pairup/internal/domain/types"
	"github.com/okian/pairup/pkg/logger"
	"github.com/okian/pairup/pkg/metrics"
)

// Service implements the API dependencies for the matching engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	entries  repository.QueueStore
	sessions repository.SessionStore
	prefs    repository.PreferenceStore
	tz       *timezone.Normalizer
	scorer   *scoring.ToolScorer
	creator  *session.Creator
	matcher  *matching.Matcher
	slots    *slots.Aggregator
	inflight dedupe.Deduper
	jobs     *jobqueue.InMemoryQueue
	pool     *workerpool.Pool

	// Configuration
	workerCount      int
	queueSize        int
	inflightSize     int
	granularity      int
	scorerOpts       []scoring.Option
	defaultPolicy    scoring.Policy
	entryTTL         time.Duration
	sweepInterval    time.Duration
	matchSweep       bool
	sessionStoreKind string
	badgerConfig     repository.BadgerConfig
	roomBaseURL      string
	rooms            session.RoomProvisioner
	provisionTimeout time.Duration
	maxSlots         int
	now              func() time.Time

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc
	group     *errgroup.Group

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      2,
		queueSize:        1024,
		inflightSize:     50_000,
		granularity:      1,
		defaultPolicy:    scoring.PolicyAny,
		entryTTL:         24 * time.Hour,
		sweepInterval:    30 * time.Second,
		matchSweep:       true,
		sessionStoreKind: SessionStoreMemory,
		roomBaseURL:      "https://meet.pairup.local",
		provisionTimeout: 5 * time.Second,
		maxSlots:         48,
		now:              time.Now,
		logger:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and starts the background sweeps.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting matching service...")

	sessions, err := s.openSessionStore()
	if err != nil {
		return err
	}
	provisioner := s.rooms
	if provisioner == nil {
		static, err := rooms.NewStaticProvisioner(s.roomBaseURL)
		if err != nil {
			_ = sessions.Close()
			return err
		}
		provisioner = static
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.sessions = sessions
	s.prefs = repository.NewMemoryPreferenceStore()
	s.entries = repository.NewMemoryQueueStore(runCtx,
		repository.WithClock(s.now),
		repository.WithLogger(s.logger.Named("queue-store")),
	)
	s.tz = timezone.NewNormalizer(timezone.WithGranularityMinutes(s.granularity))
	s.scorer = scoring.NewToolScorer(s.scorerOpts...)
	s.creator = session.NewCreator(sessions, s.entries, provisioner,
		session.WithScorer(s.scorer),
		session.WithProvisionTimeout(s.provisionTimeout),
		session.WithClock(s.now),
		session.WithLogger(s.logger.Named("session-creator")),
	)
	s.matcher = matching.New(s.entries, s.creator, sessions,
		matching.WithScorer(s.scorer),
		matching.WithDefaultPolicy(s.defaultPolicy),
		matching.WithLogger(s.logger.Named("matcher")),
	)
	s.slots = slots.NewAggregator(s.entries, s.scorer, s.tz)

	if s.matchSweep {
		s.inflight = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.inflightSize))
		s.jobs = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
		s.pool = workerpool.NewPool(s.workerCount, s.jobs, s.matcher, s.inflight,
			workerpool.WithLogger(s.logger.Named("match-worker")),
		)
		s.pool.Start(runCtx)
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return s.sweepLoop(gctx) })

	s.cancel = cancel
	s.group = g
	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "matching service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("matchSweep", s.matchSweep),
		logger.String("sessionStore", s.sessionStoreKind),
		logger.String("defaultStrictness", string(s.defaultPolicy)),
	)
	return nil
}

func (s *Service) openSessionStore() (repository.SessionStore, error) {
	switch s.sessionStoreKind {
	case SessionStoreMemory:
		return repository.NewMemorySessionStore(), nil
	case SessionStoreBadger:
		cfg := s.badgerConfig
		if cfg.Logger == nil {
			cfg.Logger = s.logger.Named("badger")
		}
		db, err := repository.OpenBadger(cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewBadgerSessionStore(db), nil
	default:
		return nil, fmt.Errorf("%w: unknown session store %q", ErrInvalidRequest, s.sessionStoreKind)
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping matching service...")

	s.cancel()
	if s.pool != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := s.pool.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
		cancel()
	}
	if err := s.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn(ctx, "sweep loop stopped", logger.Error(err))
	}
	if closer, ok := s.entries.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if err := s.sessions.Close(); err != nil {
		s.logger.Error(ctx, "closing session store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "matching service stopped")
}

// ready returns an error until Start has completed.
func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// SubmitPreferences records the latest availability of a user for a role.
// It does not enter the queue.
func (s *Service) SubmitPreferences(ctx context.Context, req types.PreferencesRequest) (types.PreferencesResponse, error) { //nolint:gocritic // request value
	if err := s.ready(); err != nil {
		return types.PreferencesResponse{}, err
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return types.PreferencesResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	slotsUTC := make([]time.Time, 0, len(req.SlotsUTC)+len(req.SlotsLocal))
	for _, raw := range req.SlotsUTC {
		t, err := s.tz.ParseInstant(raw)
		if err != nil {
			return types.PreferencesResponse{}, err
		}
		slotsUTC = append(slotsUTC, t)
	}
	for _, raw := range req.SlotsLocal {
		t, err := s.tz.Normalize(raw, req.Zone)
		if err != nil {
			return types.PreferencesResponse{}, err
		}
		slotsUTC = append(slotsUTC, t)
	}
	slotsUTC = uniqueSorted(slotsUTC)
	if len(slotsUTC) > s.maxSlots {
		return types.PreferencesResponse{}, fmt.Errorf("%w: at most %d slots per request", ErrInvalidRequest, s.maxSlots)
	}

	p := model.Preferences{
		UserID:      req.UserID,
		Role:        role,
		Profession:  req.Profession,
		Language:    req.Language,
		SlotsUTC:    slotsUTC,
		Tools:       req.Tools,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.prefs.Put(ctx, p); err != nil {
		return types.PreferencesResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return types.PreferencesResponse{Status: "accepted", Slots: slotsUTC}, nil
}

// Join enters the queue for one slot. On a duplicate the existing entry is
// returned together with model.ErrDuplicateEntry.
func (s *Service) Join(ctx context.Context, req types.JoinRequest) (types.JoinResponse, error) { //nolint:gocritic // request value
	if err := s.ready(); err != nil {
		return types.JoinResponse{}, err
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return types.JoinResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	var slot time.Time
	if req.SlotUTC != "" {
		slot, err = s.tz.ParseInstant(req.SlotUTC)
	} else {
		slot, err = s.tz.Normalize(req.SlotLocal, req.Zone)
	}
	if err != nil {
		return types.JoinResponse{}, err
	}

	d := s.withPreferences(ctx, req.UserID, role, req.Profession, req.Language, req.Tools)
	e, err := s.insert(ctx, req.UserID, role, d, slot)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateEntry) {
			return types.JoinResponse{EntryID: e.ID, SlotUTC: e.SlotUTC}, err
		}
		return types.JoinResponse{}, err
	}

	pos, err := s.entries.Position(ctx, e.ID)
	if err != nil {
		// The entry was matched or withdrawn already; position is advisory.
		pos = 0
	}
	return types.JoinResponse{EntryID: e.ID, SlotUTC: e.SlotUTC, Position: pos}, nil
}

// RequestMatch tries each requested slot in ascending order and returns the
// first session found. Slots fall back to the submitted preferences. On
// no_match the response names the earliest entry left waiting.
func (s *Service) RequestMatch(ctx context.Context, req types.MatchRequest) (types.MatchResponse, error) { //nolint:gocritic // request value
	if err := s.ready(); err != nil {
		return types.MatchResponse{}, err
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return types.MatchResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	policy, err := s.policy(req.Strictness)
	if err != nil {
		return types.MatchResponse{}, err
	}

	d := s.withPreferences(ctx, req.UserID, role, req.Profession, req.Language, req.Tools)
	requested := d.slots
	if len(req.SlotsUTC) > 0 {
		requested = make([]time.Time, 0, len(req.SlotsUTC))
		for _, raw := range req.SlotsUTC {
			t, err := s.tz.ParseInstant(raw)
			if err != nil {
				return types.MatchResponse{}, err
			}
			requested = append(requested, t)
		}
	}
	requested = uniqueSorted(requested)
	if len(requested) == 0 {
		return types.MatchResponse{}, fmt.Errorf("%w: no slots requested and no preferences submitted", ErrInvalidRequest)
	}
	if len(requested) > s.maxSlots {
		return types.MatchResponse{}, fmt.Errorf("%w: at most %d slots per request", ErrInvalidRequest, s.maxSlots)
	}

	now := s.now()
	waiting := types.MatchResponse{Status: types.MatchStatusNoMatch}
	for _, slot := range requested {
		if slot.Before(now) {
			continue
		}
		resp, done, err := s.matchSlot(ctx, req.UserID, role, d, slot, policy)
		if err != nil || done {
			return resp, err
		}
		// the earliest queued entry is the one reported back
		if waiting.EntryID == "" {
			waiting.EntryID = resp.EntryID
		}
	}
	return waiting, nil
}

// matchSlot resolves the user's entry for one slot and runs the matcher.
// done is true when a session was found.
func (s *Service) matchSlot(ctx context.Context, userID string, role model.Role, d defaults, slot time.Time, policy scoring.Policy) (types.MatchResponse, bool, error) { //nolint:gocritic // defaults value
	key := model.EntryKey{UserID: userID, Role: role, Profession: d.profession, Language: d.language, SlotUTC: slot}
	e, err := s.entries.Lookup(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		e, err = s.insert(ctx, userID, role, d, slot)
		if err != nil && !errors.Is(err, model.ErrDuplicateEntry) {
			return types.MatchResponse{}, false, err
		}
	default:
		return types.MatchResponse{}, false, err
	}

	if e.Status == model.StatusMatched {
		existing, err := s.sessions.GetByClaim(ctx, e.ClaimID)
		if err == nil {
			return matchedResponse(e.ID, existing), true, nil
		}
		if !errors.Is(err, model.ErrSessionNotFound) {
			return types.MatchResponse{}, false, err
		}
		// Claimed but the session is still being built by another caller.
		return types.MatchResponse{Status: types.MatchStatusNoMatch, EntryID: e.ID}, false, nil
	}

	res, err := s.matcher.Match(ctx, e.ID, policy)
	switch {
	case err == nil && res.Outcome == matching.OutcomeMatched:
		return matchedResponse(e.ID, res.Session), true, nil
	case err == nil, errors.Is(err, matching.ErrEntryNotEligible):
		return types.MatchResponse{Status: types.MatchStatusNoMatch, EntryID: e.ID}, false, nil
	default:
		return types.MatchResponse{EntryID: e.ID}, false, err
	}
}

// MatchEntry runs one match attempt for an existing entry.
func (s *Service) MatchEntry(ctx context.Context, entryID, strictness string) (types.MatchResponse, error) {
	if err := s.ready(); err != nil {
		return types.MatchResponse{}, err
	}
	policy, err := s.policy(strictness)
	if err != nil {
		return types.MatchResponse{}, err
	}
	res, err := s.matcher.Match(ctx, entryID, policy)
	if err != nil {
		return types.MatchResponse{EntryID: entryID}, err
	}
	if res.Outcome == matching.OutcomeMatched {
		return matchedResponse(entryID, res.Session), nil
	}
	return types.MatchResponse{Status: types.MatchStatusNoMatch, EntryID: entryID}, nil
}

// ListSlots returns the opposite-role availability view.
func (s *Service) ListSlots(ctx context.Context, q types.SlotsQuery) (types.SlotsResponse, error) { //nolint:gocritic // query value
	if err := s.ready(); err != nil {
		return types.SlotsResponse{}, err
	}
	role, err := model.ParseRole(q.Role)
	if err != nil {
		return types.SlotsResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	var policy scoring.Policy
	if q.Strictness != "" {
		if policy, err = scoring.ParsePolicy(q.Strictness); err != nil {
			return types.SlotsResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	zone := q.Zone
	if zone == "" && q.DateLocal != "" {
		zone = "UTC"
	}

	list, err := s.slots.List(ctx, slots.Query{
		Role:          role,
		Profession:    q.Profession,
		Language:      q.Language,
		DateLocal:     q.DateLocal,
		Zone:          zone,
		Tools:         q.Tools,
		Strictness:    policy,
		ExcludeUserID: q.UserID,
	})
	if err != nil {
		return types.SlotsResponse{}, err
	}
	out := types.SlotsResponse{Slots: make([]types.Slot, 0, len(list))}
	for i := range list {
		out.Slots = append(out.Slots, types.NewSlot(list[i].SlotAggregate, list[i].Local, q.Tools != nil))
	}
	return out, nil
}

// Bookings returns the user's pending entries, sessions and preferences.
func (s *Service) Bookings(ctx context.Context, userID string) (types.BookingsResponse, error) {
	if err := s.ready(); err != nil {
		return types.BookingsResponse{}, err
	}
	entries, err := s.entries.ListByUser(ctx, userID)
	if err != nil {
		return types.BookingsResponse{}, err
	}
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return types.BookingsResponse{}, err
	}
	prefs, err := s.prefs.ListByUser(ctx, userID)
	if err != nil {
		return types.BookingsResponse{}, err
	}

	out := types.BookingsResponse{
		Queues:   make([]types.Entry, 0, len(entries)),
		Sessions: make([]types.Session, 0, len(sessions)),
	}
	for i := range entries {
		if entries[i].Status == model.StatusPending {
			out.Queues = append(out.Queues, types.NewEntry(entries[i]))
		}
	}
	for i := range sessions {
		out.Sessions = append(out.Sessions, types.NewSession(sessions[i]))
	}
	for i := range prefs {
		out.Preferences = append(out.Preferences, types.NewPreferences(prefs[i]))
	}
	return out, nil
}

// Withdraw leaves the queue. Only the owner may withdraw an entry; an entry
// that already left pending is reported with a warning and left unchanged.
func (s *Service) Withdraw(ctx context.Context, entryID, userID string) (types.WithdrawResponse, error) {
	if err := s.ready(); err != nil {
		return types.WithdrawResponse{}, err
	}
	e, err := s.entries.Get(ctx, entryID)
	if err != nil {
		return types.WithdrawResponse{}, err
	}
	if e.UserID != userID {
		return types.WithdrawResponse{}, fmt.Errorf("%w: %s", ErrNotOwner, entryID)
	}

	e, err = s.entries.Withdraw(ctx, entryID)
	if errors.Is(err, model.ErrInvalidTransition) {
		current, getErr := s.entries.Get(ctx, entryID)
		if getErr != nil {
			return types.WithdrawResponse{}, getErr
		}
		return types.WithdrawResponse{
			EntryID: entryID,
			Status:  string(current.Status),
			Warning: fmt.Sprintf("entry is already %s", current.Status),
		}, nil
	}
	if err != nil {
		return types.WithdrawResponse{}, err
	}
	return types.WithdrawResponse{EntryID: e.ID, Status: string(e.Status)}, nil
}

// SweepReport summarises one sweep.
type SweepReport struct {
	Expired  int
	Pruned   int
	Enqueued int
}

// Sweep expires stale entries, prunes old terminal ones and, when enabled,
// queues every pending entry for a background match attempt.
func (s *Service) Sweep(ctx context.Context) (SweepReport, error) {
	if err := s.ready(); err != nil {
		return SweepReport{}, err
	}
	return s.sweep(ctx)
}

// sweep runs without the readiness check so Stop can wait for the loop
// while holding the service lock.
func (s *Service) sweep(ctx context.Context) (SweepReport, error) {
	now := s.now()
	var rep SweepReport
	var err error

	if rep.Expired, err = s.entries.ExpireStale(ctx, now, s.entryTTL); err != nil {
		return rep, fmt.Errorf("expire: %w", err)
	}
	if rep.Pruned, err = s.entries.Prune(ctx, now.Add(-s.entryTTL)); err != nil {
		return rep, fmt.Errorf("prune: %w", err)
	}
	if s.matchSweep {
		if rep.Enqueued, err = s.enqueuePending(ctx); err != nil {
			return rep, err
		}
	}
	if rep.Expired > 0 || rep.Pruned > 0 || rep.Enqueued > 0 {
		s.logger.Debug(ctx, "sweep finished",
			logger.Int("expired", rep.Expired),
			logger.Int("pruned", rep.Pruned),
			logger.Int("enqueued", rep.Enqueued),
		)
	}
	return rep, nil
}

func (s *Service) enqueuePending(ctx context.Context) (int, error) {
	pending, err := s.entries.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	enqueued := 0
	for i := range pending {
		id := pending[i].ID
		if s.inflight.SeenAndRecord(ctx, id) {
			continue
		}
		err := s.jobs.Enqueue(ctx, jobqueue.Job{EntryID: id, Policy: s.defaultPolicy})
		if err == nil {
			enqueued++
			continue
		}
		s.inflight.Unrecord(ctx, id)
		if errors.Is(err, jobqueue.ErrFull) {
			// The rest waits for the next sweep.
			break
		}
		return enqueued, fmt.Errorf("enqueue %s: %w", id, err)
	}
	return enqueued, nil
}

func (s *Service) sweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.sweep(ctx); err != nil && ctx.Err() == nil {
				metrics.RecordErrorByComponent("service", "sweep")
				s.logger.Error(ctx, "sweep failed", logger.Error(err))
			}
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.Stats{SessionStore: s.sessionStoreKind}
	if !s.started {
		return st
	}
	st.PendingEntries = s.entries.PendingCount(ctx)
	st.Sessions = s.sessions.Count(ctx)
	st.UptimeSeconds = s.now().Sub(s.startedAt).Seconds()
	if s.pool != nil {
		ps := s.pool.Stats()
		st.Workers = ps.Workers
		st.JobsProcessed = ps.Processed
		st.BackgroundMatch = ps.Matched
		st.JobQueueLength = s.jobs.Len()
		st.InFlight = s.inflight.Size()
	}
	metrics.UpdatePendingEntries(st.PendingEntries)
	return st
}

// Started reports whether Start has completed and Stop has not been called.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// defaults are the request fields after falling back to preferences.
type defaults struct {
	profession string
	language   string
	tools      []string
	slots      []time.Time
}

func (s *Service) withPreferences(ctx context.Context, userID string, role model.Role, profession, language string, tools []string) defaults {
	d := defaults{profession: profession, language: language, tools: tools}
	p, err := s.prefs.Get(ctx, userID, role)
	if err != nil {
		return d
	}
	if strings.TrimSpace(d.profession) == "" {
		d.profession = p.Profession
	}
	if strings.TrimSpace(d.language) == "" {
		d.language = p.Language
	}
	if d.tools == nil {
		d.tools = p.Tools
	}
	d.slots = p.SlotsUTC
	return d
}

func (s *Service) insert(ctx context.Context, userID string, role model.Role, d defaults, slot time.Time) (model.QueueEntry, error) { //nolint:gocritic // defaults value
	if slot.Before(s.now()) {
		return model.QueueEntry{}, fmt.Errorf("%w: slot %s is in the past", ErrInvalidRequest, slot.Format(time.RFC3339))
	}
	e, err := s.entries.Insert(ctx, model.QueueEntry{
		UserID:     userID,
		Role:       role,
		Profession: d.profession,
		Language:   d.language,
		SlotUTC:    slot,
		Tools:      d.tools,
	})
	if errors.Is(err, repository.ErrInvalidEntry) {
		return e, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return e, err
}

func (s *Service) policy(strictness string) (scoring.Policy, error) {
	if strictness == "" {
		return s.defaultPolicy, nil
	}
	p, err := scoring.ParsePolicy(strictness)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return p, nil
}

func matchedResponse(entryID string, sess model.Session) types.MatchResponse { //nolint:gocritic // session value
	view := types.NewSession(sess)
	return types.MatchResponse{Status: types.MatchStatusMatched, EntryID: entryID, Session: &view}
}

func uniqueSorted(ts []time.Time) []time.Time {
	out := slices.Clone(ts)
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(out, func(a, b time.Time) bool { return a.Equal(b) })
}
