package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/okian/pairup/internal/loadtest"
	"github.com/okian/pairup/pkg/logger"
	"github.com/spf13/cobra"
)

// Default configuration constants.
const (
	defaultUsers       = 500
	defaultSlots       = 4
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

var cfg = loadtest.Config{}

var (
	firstSlot string
	jsonLogs  bool

	rootCmd = &cobra.Command{
		Use:          "loadtest",
		Short:        "loadtest fires concurrent joins and match requests at pairup and verifies the sessions",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVarP(&cfg.Users, "users", "u", defaultUsers, "users per role")
	f.IntVarP(&cfg.Slots, "slots", "s", defaultSlots, "number of consecutive hourly slots")
	f.IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU()*defaultWorkers, "concurrent requests")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.StringVar(&cfg.Profession, "profession", "backend", "profession of every user")
	f.StringVar(&cfg.Language, "language", "en", "language of every user")
	f.StringSliceVar(&cfg.Tools, "tools", []string{"go"}, "tools of every user")
	f.StringVar(&cfg.Strictness, "strictness", "", "match strictness (exact, partial, any, ignore)")
	f.StringVar(&firstSlot, "first-slot", "", "first slot as an RFC3339 UTC instant (default: next hour, a day ahead)")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log failed requests")
	f.BoolVarP(&jsonLogs, "json", "j", false, "json format for logging")
}

func run(ctx context.Context) error {
	format := logger.FormatText
	if jsonLogs {
		format = logger.FormatJSON
	}
	if err := logger.InitWithFormat(os.Stdout, format); err != nil {
		return err
	}
	if firstSlot != "" {
		t, err := time.Parse(time.RFC3339, firstSlot)
		if err != nil {
			return err
		}
		cfg.FirstSlot = t.UTC()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	_, err := loadtest.Run(ctx, &cfg, logger.Named("loadtest"))
	return err
}
