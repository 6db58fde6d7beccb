// Package session turns a claimed pair of queue entries into a Session with
// a provisioned meeting room, at most once per claim.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/okian/pairup/internal/domain/model"
	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/okian/pairup/pkg/logger"
	"github.com/okian/pairup/pkg/metrics"
)

const defaultProvisionTimeout = 5 * time.Second

// Store persists sessions keyed by claim.
type Store interface {
	// Create stores s unless a session already exists for its claim, in which
	// case the existing one is returned with created=false.
	Create(ctx context.Context, s model.Session) (stored model.Session, created bool, err error)
	// GetByClaim returns model.ErrSessionNotFound when no session exists.
	GetByClaim(ctx context.Context, claimID string) (model.Session, error)
}

// Entries reads the current state of queue entries.
type Entries interface {
	Get(ctx context.Context, id string) (model.QueueEntry, error)
}

// RoomProvisioner allocates a meeting room for a claimed pair.
type RoomProvisioner interface {
	Provision(ctx context.Context, claim model.Claim) (roomRef string, err error)
}

// ProvisionerFunc adapts a function to RoomProvisioner.
type ProvisionerFunc func(ctx context.Context, claim model.Claim) (string, error)

// Provision calls f.
func (f ProvisionerFunc) Provision(ctx context.Context, claim model.Claim) (string, error) {
	return f(ctx, claim)
}

// Option applies a configuration option to the Creator.
type Option func(*Creator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Creator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithScorer sets the scorer used to record the matched tools.
func WithScorer(s scoring.Scorer) Option {
	return func(c *Creator) {
		if s != nil {
			c.scorer = s
		}
	}
}

// WithProvisionTimeout bounds a single provisioning call.
func WithProvisionTimeout(d time.Duration) Option {
	return func(c *Creator) {
		if d > 0 {
			c.provisionTimeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Creator) {
		if now != nil {
			c.now = now
		}
	}
}

// Creator builds sessions. Concurrent calls for the same claim share one
// provisioning attempt, and a claim that already has a session gets it back
// without provisioning again.
type Creator struct {
	store            Store
	entries          Entries
	rooms            RoomProvisioner
	scorer           scoring.Scorer
	log              logger.Logger
	now              func() time.Time
	provisionTimeout time.Duration
	flights          singleflight.Group
}

// NewCreator constructs a Creator.
func NewCreator(store Store, entries Entries, rooms RoomProvisioner, opts ...Option) *Creator {
	c := &Creator{
		store:            store,
		entries:          entries,
		rooms:            rooms,
		scorer:           scoring.NewToolScorer(),
		log:              logger.Nop(),
		now:              time.Now,
		provisionTimeout: defaultProvisionTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create returns the session for two entries matched by one claim. Provisioning
// is attempted once per call and never retried here.
func (c *Creator) Create(ctx context.Context, a, b model.QueueEntry) (model.Session, error) { //nolint:gocritic // entries are snapshots
	claim, err := claimOf(a, b)
	if err != nil {
		return model.Session{}, err
	}

	if s, err := c.existing(ctx, claim.ID); err == nil {
		metrics.RecordSessionReused()
		return s, nil
	} else if !errors.Is(err, model.ErrSessionNotFound) {
		return model.Session{}, err
	}

	v, err, _ := c.flights.Do(claim.ID, func() (any, error) {
		// shared by every waiter, so one caller leaving must not abort it
		fctx := context.WithoutCancel(ctx)
		if s, err := c.existing(fctx, claim.ID); err == nil {
			metrics.RecordSessionReused()
			return s, nil
		}
		if err := c.verifyClaim(fctx, claim); err != nil {
			return nil, err
		}
		return c.provisionAndStore(fctx, claim)
	})
	if err != nil {
		return model.Session{}, err
	}
	return v.(model.Session), nil
}

// CreateFromClaim is Create for the two entries of claim.
func (c *Creator) CreateFromClaim(ctx context.Context, claim model.Claim) (model.Session, error) { //nolint:gocritic // claims are snapshots
	return c.Create(ctx, claim.Entries[0], claim.Entries[1])
}

// verifyClaim checks the store, not the snapshots, that both entries are
// still matched under claim. A released claim fails here.
func (c *Creator) verifyClaim(ctx context.Context, claim model.Claim) error { //nolint:gocritic // claims are snapshots
	for _, e := range claim.Entries {
		cur, err := c.entries.Get(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("%w: entry %s: %w", ErrClaimMismatch, e.ID, err)
		}
		if cur.Status != model.StatusMatched || cur.ClaimID != claim.ID {
			return fmt.Errorf("%w: entry %s is %s under claim %q", ErrClaimMismatch, e.ID, cur.Status, cur.ClaimID)
		}
	}
	return nil
}

func (c *Creator) existing(ctx context.Context, claimID string) (model.Session, error) {
	return c.store.GetByClaim(ctx, claimID)
}

func (c *Creator) provisionAndStore(ctx context.Context, claim model.Claim) (model.Session, error) { //nolint:gocritic // claims are snapshots
	pctx, cancel := context.WithTimeout(ctx, c.provisionTimeout)
	room, err := c.rooms.Provision(pctx, claim)
	cancel()
	if err != nil {
		metrics.RecordRoomProvisioningError()
		metrics.RecordErrorByComponent("session", "room_provisioning")
		c.log.Error(ctx, "room provisioning failed",
			logger.String("claimId", claim.ID),
			logger.Error(err),
		)
		return model.Session{}, fmt.Errorf("%w: %w", ErrRoomProvisioning, err)
	}

	if err := c.verifyClaim(ctx, claim); err != nil {
		c.log.Warn(ctx, "claim released while provisioning",
			logger.String("claimId", claim.ID),
			logger.String("roomRef", room),
		)
		return model.Session{}, err
	}

	cand, intv := claim.Candidate(), claim.Interviewer()
	s := model.Session{
		ID:      uuid.NewString(),
		ClaimID: claim.ID,
		Participants: model.Participants{
			CandidateUserID:    cand.UserID,
			InterviewerUserID:  intv.UserID,
			CandidateEntryID:   cand.ID,
			InterviewerEntryID: intv.ID,
		},
		RoomRef:      room,
		Profession:   cand.Profession,
		Language:     cand.Language,
		SlotUTC:      cand.SlotUTC,
		MatchedTools: c.scorer.Score(cand.Tools, intv.Tools).MatchedTools,
		CreatedAt:    c.now().UTC(),
	}
	stored, created, err := c.store.Create(ctx, s)
	if err != nil {
		metrics.RecordErrorByComponent("session", "store")
		return model.Session{}, fmt.Errorf("store session for claim %s: %w", claim.ID, err)
	}
	if created {
		metrics.RecordSessionCreated()
		c.log.Info(ctx, "session created",
			logger.String("sessionId", stored.ID),
			logger.String("claimId", claim.ID),
			logger.String("candidate", cand.UserID),
			logger.String("interviewer", intv.UserID),
		)
	} else {
		metrics.RecordSessionReused()
	}
	return stored, nil
}

// claimOf checks that a and b were matched to each other by one claim.
func claimOf(a, b model.QueueEntry) (model.Claim, error) { //nolint:gocritic // entries are snapshots
	switch {
	case a.Status != model.StatusMatched || b.Status != model.StatusMatched:
		return model.Claim{}, fmt.Errorf("%w: entries must be matched (%s, %s)", ErrClaimMismatch, a.Status, b.Status)
	case a.ClaimID == "" || a.ClaimID != b.ClaimID:
		return model.Claim{}, fmt.Errorf("%w: %q vs %q", ErrClaimMismatch, a.ClaimID, b.ClaimID)
	case a.PeerID != b.ID || b.PeerID != a.ID:
		return model.Claim{}, fmt.Errorf("%w: entries are not peers", ErrClaimMismatch)
	case a.Role.Opposite() != b.Role:
		return model.Claim{}, fmt.Errorf("%w: roles %s and %s", ErrClaimMismatch, a.Role, b.Role)
	}
	claimedAt := a.MatchedAt
	return model.Claim{ID: a.ClaimID, Entries: [2]model.QueueEntry{a, b}, ClaimedAt: claimedAt}, nil
}
