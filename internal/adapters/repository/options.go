package repository

import (
	"time"

	"github.com/okian/pairup/pkg/logger"
)

// Option applies a configuration option to the MemoryQueueStore.
type Option func(*MemoryQueueStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryQueueStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryQueueStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l logger.Logger) Option {
	return func(s *MemoryQueueStore) {
		if l != nil {
			s.log = l
		}
	}
}
