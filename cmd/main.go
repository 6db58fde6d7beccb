package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/pairup/internal/adapters/http/api"
	"github.com/okian/pairup/internal/adapters/http/swagger"
	"github.com/okian/pairup/internal/adapters/repository"
	app "github.com/okian/pairup/internal/app"
	"github.com/okian/pairup/internal/config"
	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/okian/pairup/pkg/logger"
	"github.com/okian/pairup/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 15 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithFormat(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	_ = logger.SetLevelString(cfg.LogLevel)
	log := logger.Named("pairup")

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// newService translates the configuration into service options.
func newService(cfg *config.Config, log logger.Logger) *app.Service {
	// Validate has already accepted both values.
	mode, _ := scoring.ParseExactMode(cfg.ExactMode)
	policy, _ := scoring.ParsePolicy(cfg.DefaultStrictness)

	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithInFlightSize(cfg.InFlightSize),
		app.WithGranularityMinutes(cfg.SlotGranularityMinutes),
		app.WithScoring(cfg.PartialMinOverlap, mode, cfg.ToolWeights, cfg.DefaultToolWeight),
		app.WithDefaultStrictness(policy),
		app.WithEntryTTL(cfg.EntryTTL()),
		app.WithSweepInterval(cfg.SweepInterval()),
		app.WithMatchSweep(cfg.MatchSweepEnabled),
		app.WithRoomBaseURL(cfg.RoomBaseURL),
		app.WithProvisionTimeout(cfg.ProvisionTimeout()),
		app.WithMaxSlotsPerRequest(cfg.MaxSlotsPerRequest),
	}
	if cfg.SessionStore == app.SessionStoreBadger {
		opts = append(opts, app.WithBadgerSessions(repository.BadgerConfig{
			Path:     cfg.BadgerPath,
			InMemory: cfg.BadgerInMemory,
		}))
	} else {
		opts = append(opts, app.WithMemorySessions())
	}
	return app.New(opts...)
}

// newHandler registers the docs and business routes.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithLogger(log.Named("http")),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// updateServiceMetrics refreshes the gauges derived from service stats.
func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	if !svc.Started() {
		return
	}
	stats := svc.GetStats(ctx)
	metrics.UpdatePendingEntries(stats.PendingEntries)
	metrics.UpdateJobQueueSize(stats.JobQueueLength)
	metrics.UpdateWorkerCount(stats.Workers)
}
