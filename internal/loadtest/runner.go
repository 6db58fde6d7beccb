package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pairup/internal/domain/types"
	"github.com/okian/pairup/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ErrViolations is returned when the verification finds broken guarantees.
var ErrViolations = errors.New("matching guarantees violated")

var roles = []string{"candidate", "interviewer"}

// Report is the outcome of a run.
type Report struct {
	Stats      Stats
	Sessions   []types.Session
	Violations []Violation
}

// participant is one simulated user queued for one slot.
type participant struct {
	userID string
	role   string
	slot   time.Time
}

// Run executes the complete load test: health check, concurrent joins,
// concurrent match requests from both sides, then bookings verification.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	report := &Report{Stats: Stats{StartTime: time.Now()}}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting pairup load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("usersPerRole", cfg.Users),
		logger.Int("slots", cfg.Slots),
		logger.Int("workers", cfg.Workers))

	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	people := participants(cfg)
	if err := joinAll(ctx, cfg, client, people, &report.Stats, log); err != nil {
		return nil, fmt.Errorf("join phase failed: %w", err)
	}
	if err := matchAll(ctx, cfg, client, people, &report.Stats, log); err != nil {
		return nil, fmt.Errorf("match phase failed: %w", err)
	}
	bookings, err := collectBookings(ctx, cfg, client, people)
	if err != nil {
		return nil, fmt.Errorf("bookings phase failed: %w", err)
	}

	report.Sessions, report.Violations = Verify(bookings)
	report.Stats.Sessions = len(report.Sessions)
	report.Stats.EndTime = time.Now()
	report.Stats.Duration = report.Stats.EndTime.Sub(report.Stats.StartTime)
	logStats(ctx, log, report)

	if len(report.Violations) > 0 {
		for _, v := range report.Violations {
			log.Error(ctx, "violation", logger.String("detail", v.String()))
		}
		return report, fmt.Errorf("%w: %d found", ErrViolations, len(report.Violations))
	}
	return report, nil
}

func participants(cfg *Config) []participant {
	slots := cfg.slots()
	out := make([]participant, 0, cfg.Users*len(roles))
	for i := 0; i < cfg.Users; i++ {
		for _, role := range roles {
			out = append(out, participant{
				userID: fmt.Sprintf("%s-%04d", role, i),
				role:   role,
				slot:   slots[i%len(slots)],
			})
		}
	}
	return out
}

func joinAll(ctx context.Context, cfg *Config, client *Client, people []participant, stats *Stats, log logger.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, p := range people {
		g.Go(func() error {
			status, _, err := client.Join(gctx, types.JoinRequest{
				UserID:     p.userID,
				Role:       p.role,
				Profession: cfg.Profession,
				Language:   cfg.Language,
				SlotUTC:    p.slot.Format(time.RFC3339),
				Tools:      cfg.Tools,
			})
			switch {
			case err != nil:
				atomic.AddInt64(&stats.JoinFailed, 1)
				if cfg.Verbose {
					log.Warn(gctx, "join failed", logger.String("user", p.userID), logger.Error(err))
				}
			case status == http.StatusCreated:
				atomic.AddInt64(&stats.Joined, 1)
			case status == http.StatusConflict:
				atomic.AddInt64(&stats.JoinDuplicate, 1)
			case status == http.StatusTooManyRequests:
				atomic.AddInt64(&stats.Backpressure, 1)
			default:
				atomic.AddInt64(&stats.JoinFailed, 1)
			}
			return gctx.Err()
		})
	}
	return g.Wait()
}

func matchAll(ctx context.Context, cfg *Config, client *Client, people []participant, stats *Stats, log logger.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, p := range people {
		g.Go(func() error {
			atomic.AddInt64(&stats.MatchRequests, 1)
			status, resp, err := client.RequestMatch(gctx, types.MatchRequest{
				UserID:     p.userID,
				Role:       p.role,
				Profession: cfg.Profession,
				Language:   cfg.Language,
				SlotsUTC:   []string{p.slot.Format(time.RFC3339)},
				Tools:      cfg.Tools,
				Strictness: cfg.Strictness,
			})
			switch {
			case err != nil:
				atomic.AddInt64(&stats.MatchFailed, 1)
				if cfg.Verbose {
					log.Warn(gctx, "match failed", logger.String("user", p.userID), logger.Error(err))
				}
			case status == http.StatusTooManyRequests:
				atomic.AddInt64(&stats.Backpressure, 1)
			case status != http.StatusOK:
				atomic.AddInt64(&stats.MatchFailed, 1)
			case resp.Status == types.MatchStatusMatched:
				atomic.AddInt64(&stats.Matched, 1)
			default:
				atomic.AddInt64(&stats.NoMatch, 1)
			}
			return gctx.Err()
		})
	}
	return g.Wait()
}

func collectBookings(ctx context.Context, cfg *Config, client *Client, people []participant) (map[string]types.BookingsResponse, error) {
	var mu sync.Mutex
	out := make(map[string]types.BookingsResponse, len(people))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, p := range people {
		g.Go(func() error {
			b, err := client.Bookings(gctx, p.userID)
			if err != nil {
				return err
			}
			mu.Lock()
			out[p.userID] = b
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func logStats(ctx context.Context, log logger.Logger, r *Report) {
	s := r.Stats
	var perSecond float64
	if s.Duration > 0 {
		perSecond = float64(s.Joined+s.MatchRequests) / s.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int64("joined", s.Joined),
		logger.Int64("joinDuplicate", s.JoinDuplicate),
		logger.Int64("joinFailed", s.JoinFailed),
		logger.Int64("matchRequests", s.MatchRequests),
		logger.Int64("matched", s.Matched),
		logger.Int64("noMatch", s.NoMatch),
		logger.Int64("matchFailed", s.MatchFailed),
		logger.Int64("backpressure", s.Backpressure),
		logger.Int("sessions", s.Sessions),
		logger.Int("violations", len(r.Violations)),
		logger.Duration("duration", s.Duration),
		logger.Float64("requestsPerSecond", perSecond))
}
