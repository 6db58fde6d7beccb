// Package loadtest drives a running pairup service with concurrent joins and
// match requests and checks that no entry ends up in two sessions.
package loadtest

import (
	"errors"
	"net/url"
	"time"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Users      int           // Users per role
	Slots      int           // Number of consecutive hourly slots
	FirstSlot  time.Time     // First slot; zero means the next full hour a day ahead
	Workers    int           // Concurrent HTTP requests
	Timeout    time.Duration // HTTP request timeout
	Profession string
	Language   string
	Tools      []string
	Strictness string
	Verbose    bool
}

// Validate checks the fields a run depends on.
func (c *Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, errors.New("base url must be absolute"))
	}
	if c.Users < 1 {
		errs = append(errs, errors.New("users must be at least 1"))
	}
	if c.Slots < 1 {
		errs = append(errs, errors.New("slots must be at least 1"))
	}
	if c.Workers < 1 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.Profession == "" || c.Language == "" {
		errs = append(errs, errors.New("profession and language are required"))
	}
	return errors.Join(errs...)
}

func (c *Config) slots() []time.Time {
	first := c.FirstSlot
	if first.IsZero() {
		first = time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
	}
	out := make([]time.Time, c.Slots)
	for i := range out {
		out[i] = first.Add(time.Duration(i) * time.Hour)
	}
	return out
}

// Stats holds run statistics.
type Stats struct {
	Joined        int64
	JoinDuplicate int64
	JoinFailed    int64
	MatchRequests int64
	Matched       int64
	NoMatch       int64
	MatchFailed   int64
	Backpressure  int64
	Sessions      int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
