// Package config defines service configuration and its defaults.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers a YAML file and PAIRUP_* env vars on top and validates.
// - Errors wrap this package's sentinels so callers can use errors.Is.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SlotGranularityMinutes is the slot grid. 0 or 1 keeps minute precision.
	SlotGranularityMinutes int `koanf:"slot_granularity_minutes"`

	// PartialMinOverlap is the shared-tool minimum for the partial policy.
	PartialMinOverlap int `koanf:"partial_min_overlap"`

	// ExactMode is subset or equal.
	ExactMode string `koanf:"exact_mode"`

	// DefaultStrictness applies when a request names none.
	DefaultStrictness string `koanf:"default_strictness"`

	// ToolWeights change ranking only; thresholds always count tools.
	ToolWeights map[string]float64 `koanf:"tool_weights"`

	// DefaultToolWeight is used for tools missing from ToolWeights.
	DefaultToolWeight float64 `koanf:"default_tool_weight"`

	// EntryTTLSeconds is how long an entry may wait before it expires.
	EntryTTLSeconds int `koanf:"entry_ttl_seconds"`

	// SweepIntervalSeconds paces expiry, pruning and the match sweep.
	SweepIntervalSeconds int `koanf:"sweep_interval_seconds"`

	// MatchSweepEnabled turns the background match sweep on.
	MatchSweepEnabled bool `koanf:"match_sweep_enabled"`

	// WorkerCount sets the number of background match workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the match job queue.
	QueueSize int `koanf:"queue_size"`

	// InFlightSize bounds the in-flight job tracker.
	InFlightSize int `koanf:"inflight_size"`

	// SessionStore is memory or badger.
	SessionStore string `koanf:"session_store"`

	// BadgerPath is the BadgerDB directory for session_store=badger.
	BadgerPath string `koanf:"badger_path"`

	// BadgerInMemory keeps BadgerDB in memory only.
	BadgerInMemory bool `koanf:"badger_in_memory"`

	// RoomBaseURL is the base of provisioned meeting-room links.
	RoomBaseURL string `koanf:"room_base_url"`

	// ProvisionTimeoutSeconds bounds one room provisioning attempt.
	ProvisionTimeoutSeconds int `koanf:"provision_timeout_seconds"`

	// RateLimitRPS and RateLimitBurst shape the token bucket on the write
	// endpoints. RateLimitRPS 0 disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// MaxSlotsPerRequest caps slotsUtc in preference and match requests.
	MaxSlotsPerRequest int `koanf:"max_slots_per_request"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		SlotGranularityMinutes:  1,
		PartialMinOverlap:       2,
		ExactMode:               "subset",
		DefaultStrictness:       "any",
		ToolWeights:             map[string]float64{},
		DefaultToolWeight:       1.0,
		EntryTTLSeconds:         int((24 * time.Hour).Seconds()),
		SweepIntervalSeconds:    30,
		MatchSweepEnabled:       true,
		WorkerCount:             runtime.NumCPU(),
		QueueSize:               4096,
		InFlightSize:            50_000,
		SessionStore:            "memory",
		BadgerPath:              "data/sessions",
		RoomBaseURL:             "https://meet.pairup.local",
		ProvisionTimeoutSeconds: 5,
		RateLimitRPS:            200,
		RateLimitBurst:          400,
		MaxSlotsPerRequest:      48,
	}
}

// EntryTTL returns EntryTTLSeconds as a duration.
func (c *Config) EntryTTL() time.Duration {
	return time.Duration(c.EntryTTLSeconds) * time.Second
}

// SweepInterval returns SweepIntervalSeconds as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// ProvisionTimeout returns ProvisionTimeoutSeconds as a duration.
func (c *Config) ProvisionTimeout() time.Duration {
	return time.Duration(c.ProvisionTimeoutSeconds) * time.Second
}
