// Package matching pairs a pending queue entry with the best compatible
// opposite-role entry in its bucket and turns the pair into a session.
package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pairup/internal/domain/model"
	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/okian/pairup/pkg/logger"
	"github.com/okian/pairup/pkg/metrics"
)

// Store is the part of the queue store the matcher drives.
type Store interface {
	Get(ctx context.Context, id string) (model.QueueEntry, error)
	FindCandidates(ctx context.Context, f model.CandidateFilter) ([]model.QueueEntry, error)
	ClaimPair(ctx context.Context, idA, idB string) (model.Claim, error)
	ReleaseClaim(ctx context.Context, claim model.Claim) error
}

// SessionCreator builds the session for a claim.
type SessionCreator interface {
	CreateFromClaim(ctx context.Context, claim model.Claim) (model.Session, error)
}

// SessionLookup finds the session built from a claim.
type SessionLookup interface {
	GetByClaim(ctx context.Context, claimID string) (model.Session, error)
}

// Outcome is the terminal state of one match attempt.
type Outcome string

// Outcomes.
const (
	OutcomeMatched Outcome = "matched"
	// OutcomeNoMatch is not an error: the entry stays pending.
	OutcomeNoMatch Outcome = "no_match"
)

// Result of a match attempt. Session is set only when Outcome is matched.
type Result struct {
	Outcome Outcome
	Entry   model.QueueEntry
	Session model.Session
	// Conflicts counts claims lost to concurrent matchers during the attempt.
	Conflicts int
}

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.log = l
		}
	}
}

// WithScorer sets the compatibility scorer.
func WithScorer(s scoring.Scorer) Option {
	return func(m *Matcher) {
		if s != nil {
			m.scorer = s
		}
	}
}

// WithDefaultPolicy sets the policy used when a caller passes none.
func WithDefaultPolicy(p scoring.Policy) Option {
	return func(m *Matcher) {
		if _, err := scoring.ParsePolicy(string(p)); err == nil {
			m.defaultPolicy = p
		}
	}
}

// Matcher runs match attempts. It holds no entry state between calls and
// is safe for concurrent use.
type Matcher struct {
	store         Store
	creator       SessionCreator
	sessions      SessionLookup
	scorer        scoring.Scorer
	log           logger.Logger
	defaultPolicy scoring.Policy
}

// New constructs a Matcher.
func New(store Store, creator SessionCreator, sessions SessionLookup, opts ...Option) *Matcher {
	m := &Matcher{
		store:         store,
		creator:       creator,
		sessions:      sessions,
		scorer:        scoring.NewToolScorer(),
		log:           logger.Nop(),
		defaultPolicy: scoring.PolicyAny,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefaultPolicy returns the policy applied when callers pass an empty one.
func (m *Matcher) DefaultPolicy() scoring.Policy { return m.defaultPolicy }

// Match runs one attempt for entryID under policy.
//
// Lost claims are retried against the remaining candidates. A requester that
// is not pending fails with ErrEntryNotEligible before any scan. If session
// creation fails the claim is released and the error returned.
func (m *Matcher) Match(ctx context.Context, entryID string, policy scoring.Policy) (Result, error) {
	start := time.Now()
	res, err := m.match(ctx, entryID, policy)
	metrics.RecordMatchLatency(float64(time.Since(start).Microseconds()) / 1000)
	switch {
	case err == nil:
		metrics.RecordMatchAttempt(string(res.Outcome))
	case errors.Is(err, ErrEntryNotEligible):
		metrics.RecordMatchAttempt("not_eligible")
	default:
		metrics.RecordMatchAttempt("error")
		metrics.RecordErrorByComponent("matcher", "match")
	}
	return res, err
}

func (m *Matcher) match(ctx context.Context, entryID string, policy scoring.Policy) (Result, error) {
	if policy == "" {
		policy = m.defaultPolicy
	}

	e, err := m.store.Get(ctx, entryID)
	if err != nil {
		return Result{}, err
	}
	if e.Status != model.StatusPending {
		return Result{Entry: e}, fmt.Errorf("%w: %s is %s", ErrEntryNotEligible, e.ID, e.Status)
	}

	candidates, err := m.store.FindCandidates(ctx, model.CandidateFilter{
		Role:          e.Role.Opposite(),
		Profession:    e.Profession,
		Language:      e.Language,
		SlotUTC:       e.SlotUTC,
		ExcludeUserID: e.UserID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("find candidates for %s: %w", e.ID, err)
	}

	ranked := make([]scoring.Ranked, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		compat, ok := m.scorer.Evaluate(e.Tools, c.Tools, policy)
		if !ok {
			continue
		}
		ranked = append(ranked, scoring.Ranked{EntryID: c.ID, CreatedAt: c.CreatedAt, Seq: c.Seq, Compatibility: compat})
	}
	scoring.Rank(ranked)

	res := Result{Outcome: OutcomeNoMatch, Entry: e}
	for _, best := range ranked {
		claim, err := m.store.ClaimPair(ctx, e.ID, best.EntryID)
		if err == nil {
			return m.complete(ctx, res, claim)
		}
		if !errors.Is(err, model.ErrStaleEntry) {
			return res, fmt.Errorf("claim %s with %s: %w", e.ID, best.EntryID, err)
		}
		res.Conflicts++
		m.log.Debug(ctx, "claim lost, trying next candidate",
			logger.String("entryId", e.ID),
			logger.String("candidateId", best.EntryID),
			logger.Error(err),
		)

		self, err := m.store.Get(ctx, e.ID)
		if err != nil {
			return res, err
		}
		if self.Status != model.StatusPending {
			return m.lostSelf(ctx, res, self)
		}
	}
	return res, nil
}

// lostSelf handles the requester leaving pending mid-attempt: someone else
// matched it, or it was withdrawn or expired.
func (m *Matcher) lostSelf(ctx context.Context, res Result, self model.QueueEntry) (Result, error) { //nolint:gocritic // snapshots
	res.Entry = self
	if self.Status == model.StatusMatched {
		if s, err := m.sessions.GetByClaim(ctx, self.ClaimID); err == nil {
			res.Outcome = OutcomeMatched
			res.Session = s
			return res, nil
		}
	}
	return res, fmt.Errorf("%w: %s became %s during the attempt", ErrEntryNotEligible, self.ID, self.Status)
}

func (m *Matcher) complete(ctx context.Context, res Result, claim model.Claim) (Result, error) { //nolint:gocritic // snapshots
	pending := res.Entry
	for _, e := range claim.Entries {
		if e.ID == res.Entry.ID {
			res.Entry = e
		}
	}

	s, err := m.creator.CreateFromClaim(ctx, claim)
	if err == nil {
		res.Outcome = OutcomeMatched
		res.Session = s
		return res, nil
	}

	// A session that exists cannot be rolled back.
	if existing, lookupErr := m.sessions.GetByClaim(ctx, claim.ID); lookupErr == nil {
		res.Outcome = OutcomeMatched
		res.Session = existing
		return res, nil
	}

	if relErr := m.store.ReleaseClaim(context.WithoutCancel(ctx), claim); relErr != nil {
		m.log.Error(ctx, "failed to release claim after session error",
			logger.String("claimId", claim.ID),
			logger.Error(relErr),
		)
		metrics.RecordErrorByComponent("matcher", "release")
	} else {
		m.log.Warn(ctx, "claim released after session error",
			logger.String("claimId", claim.ID),
			logger.Error(err),
		)
	}
	return Result{Entry: pending, Conflicts: res.Conflicts}, fmt.Errorf("create session for claim %s: %w", claim.ID, err)
}
