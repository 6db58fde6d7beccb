// Package timezone converts wall-clock times in IANA zones into canonical UTC
// slot keys and back. No other package does date arithmetic on slots.
package timezone

import (
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host zoneinfo
)

// LocalLayout is the canonical wall-clock format used for input and display.
const LocalLayout = "2006-01-02T15:04"

// DateLayout is the format of a local calendar date.
const DateLayout = "2006-01-02"

var localLayouts = []string{
	LocalLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithGranularityMinutes rounds slot keys down to an n-minute grid.
// Values below 2 keep plain minute truncation.
func WithGranularityMinutes(n int) Option {
	return func(z *Normalizer) {
		if n > 1 {
			z.granularity = time.Duration(n) * time.Minute
		}
	}
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	granularity time.Duration
	zones       sync.Map // zone id -> *time.Location
}

// NewNormalizer creates a normalizer with minute granularity unless configured otherwise.
func NewNormalizer(opts ...Option) *Normalizer {
	z := &Normalizer{granularity: time.Minute}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// Granularity returns the slot grid size.
func (z *Normalizer) Granularity() time.Duration { return z.granularity }

// Location resolves an IANA zone identifier.
func (z *Normalizer) Location(zone string) (*time.Location, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" || zone == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidZone, zone)
	}
	if loc, ok := z.zones.Load(zone); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidZone, zone, err)
	}
	z.zones.Store(zone, loc)
	return loc, nil
}

// Normalize converts a wall-clock time in zone into a UTC slot key.
// Wall-clock times skipped by a DST transition are rejected.
func (z *Normalizer) Normalize(localTime, zone string) (time.Time, error) {
	loc, err := z.Location(zone)
	if err != nil {
		return time.Time{}, err
	}
	wall, err := parseWallClock(localTime)
	if err != nil {
		return time.Time{}, err
	}

	t := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), 0, 0, loc)
	if t.Year() != wall.Year() || t.Month() != wall.Month() || t.Day() != wall.Day() ||
		t.Hour() != wall.Hour() || t.Minute() != wall.Minute() {
		return time.Time{}, fmt.Errorf("%w: %q does not exist in %s", ErrInvalidLocalTime, localTime, zone)
	}
	return z.NormalizeInstant(t), nil
}

// NormalizeInstant puts an absolute instant onto the UTC slot grid.
func (z *Normalizer) NormalizeInstant(t time.Time) time.Time {
	return t.UTC().Truncate(z.granularity)
}

// ParseInstant parses an RFC3339 instant and puts it on the slot grid.
func (z *Normalizer) ParseInstant(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInstant, s)
	}
	return z.NormalizeInstant(t), nil
}

// ToLocal renders a UTC instant in zone.
func (z *Normalizer) ToLocal(utc time.Time, zone string) (time.Time, error) {
	loc, err := z.Location(zone)
	if err != nil {
		return time.Time{}, err
	}
	return utc.In(loc), nil
}

// FormatLocal renders a UTC instant in zone using LocalLayout.
func (z *Normalizer) FormatLocal(utc time.Time, zone string) (string, error) {
	t, err := z.ToLocal(utc, zone)
	if err != nil {
		return "", err
	}
	return t.Format(LocalLayout), nil
}

// DayRange returns the UTC half-open interval [from, to) covering a local
// calendar date in zone. DST days are 23 or 25 hours long.
func (z *Normalizer) DayRange(dateLocal, zone string) (time.Time, time.Time, error) {
	loc, err := z.Location(zone)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	d, err := time.Parse(DateLayout, strings.TrimSpace(dateLocal))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, dateLocal)
	}
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	to := time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc)
	return from.UTC(), to.UTC(), nil
}

func parseWallClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidLocalTime, s)
}
