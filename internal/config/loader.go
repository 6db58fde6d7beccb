package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/okian/pairup/pkg/logger"
)

// Env names read by Load.
const (
	EnvPrefix     = "PAIRUP_"
	EnvConfigPath = "PAIRUP_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PAIRUP_CONFIG is set
//  3. env (prefix PAIRUP_)
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PAIRUP_QUEUE_SIZE -> queue_size; underscores are kept to match the tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		if s == strings.ToLower(EnvConfigPath) {
			return ""
		}
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.Addr != "", "addr must not be empty")
	check(logger.ValidLevel(c.LogLevel), "log_level %q", c.LogLevel)
	check(c.LogFormat == logger.FormatText || c.LogFormat == logger.FormatJSON, "log_format %q must be text or json", c.LogFormat)
	check(c.SlotGranularityMinutes >= 0 && c.SlotGranularityMinutes <= 24*60,
		"slot_granularity_minutes %d out of range", c.SlotGranularityMinutes)
	check(c.PartialMinOverlap >= 1, "partial_min_overlap must be at least 1")
	if _, err := scoring.ParseExactMode(c.ExactMode); err != nil {
		errs = append(errs, fmt.Errorf("%w: exact_mode: %w", ErrInvalidConfig, err))
	}
	if _, err := scoring.ParsePolicy(c.DefaultStrictness); err != nil {
		errs = append(errs, fmt.Errorf("%w: default_strictness: %w", ErrInvalidConfig, err))
	}
	check(c.DefaultToolWeight > 0, "default_tool_weight must be positive")
	for tool, w := range c.ToolWeights {
		check(w > 0, "tool_weights[%s] must be positive", tool)
	}
	check(c.EntryTTLSeconds > 0, "entry_ttl_seconds must be positive")
	check(c.SweepIntervalSeconds > 0, "sweep_interval_seconds must be positive")
	check(c.WorkerCount >= 0, "worker_count must not be negative")
	check(c.QueueSize > 0, "queue_size must be positive")
	check(c.InFlightSize >= 0, "inflight_size must not be negative")

	switch c.SessionStore {
	case "memory":
	case "badger":
		check(c.BadgerInMemory || c.BadgerPath != "", "badger_path is required for session_store=badger")
	default:
		check(false, "session_store %q must be memory or badger", c.SessionStore)
	}

	u, err := url.Parse(c.RoomBaseURL)
	check(err == nil && u.Scheme != "" && u.Host != "", "room_base_url %q must be an absolute URL", c.RoomBaseURL)
	check(c.ProvisionTimeoutSeconds > 0, "provision_timeout_seconds must be positive")
	check(c.RateLimitRPS >= 0, "rate_limit_rps must not be negative")
	check(c.RateLimitRPS == 0 || c.RateLimitBurst >= 1, "rate_limit_burst must be at least 1")
	check(c.MaxSlotsPerRequest >= 1, "max_slots_per_request must be at least 1")

	return errors.Join(errs...)
}
