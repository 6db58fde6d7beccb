package service

import (
	"time"

	"github.com/okian/pairup/internal/adapters/repository"
	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/okian/pairup/internal/domain/session"
	"github.com/okian/pairup/pkg/logger"
)

// Session store kinds.
const (
	SessionStoreMemory = "memory"
	SessionStoreBadger = "badger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of background match workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the match job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithInFlightSize bounds the in-flight job tracker. 0 leaves it unbounded.
func WithInFlightSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.inflightSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGranularityMinutes sets the slot grid.
func WithGranularityMinutes(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.granularity = n
		}
	}
}

// WithScoring configures the compatibility scorer.
func WithScoring(partialMin int, mode scoring.ExactMode, weights map[string]float64, defaultWeight float64) Option {
	return func(s *Service) {
		s.scorerOpts = []scoring.Option{
			scoring.WithPartialMinimum(partialMin),
			scoring.WithExactMode(mode),
			scoring.WithToolWeightsFromConfig(weights, defaultWeight),
		}
	}
}

// WithDefaultStrictness sets the policy used when a request names none.
func WithDefaultStrictness(p scoring.Policy) Option {
	return func(s *Service) {
		if p != "" {
			s.defaultPolicy = p
		}
	}
}

// WithEntryTTL sets how long an entry may wait before it expires.
func WithEntryTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.entryTTL = d
		}
	}
}

// WithSweepInterval paces expiry, pruning and the match sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithMatchSweep turns the background match sweep on or off.
func WithMatchSweep(enabled bool) Option {
	return func(s *Service) {
		s.matchSweep = enabled
	}
}

// WithMemorySessions keeps sessions in process memory.
func WithMemorySessions() Option {
	return func(s *Service) {
		s.sessionStoreKind = SessionStoreMemory
	}
}

// WithBadgerSessions stores sessions in BadgerDB.
func WithBadgerSessions(cfg repository.BadgerConfig) Option {
	return func(s *Service) {
		s.sessionStoreKind = SessionStoreBadger
		s.badgerConfig = cfg
	}
}

// WithRoomBaseURL sets the base of provisioned room links.
func WithRoomBaseURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.roomBaseURL = u
		}
	}
}

// WithRoomProvisioner replaces the static room provisioner.
func WithRoomProvisioner(p session.RoomProvisioner) Option {
	return func(s *Service) {
		if p != nil {
			s.rooms = p
		}
	}
}

// WithProvisionTimeout bounds a single room provisioning attempt.
func WithProvisionTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.provisionTimeout = d
		}
	}
}

// WithMaxSlotsPerRequest caps the slots accepted by one request.
func WithMaxSlotsPerRequest(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSlots = n
		}
	}
}

// WithClock replaces time.Now for every component.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
