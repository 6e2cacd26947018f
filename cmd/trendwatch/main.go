// Command trendwatch runs the draft pipeline on a schedule and serves the
// run history API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lamvh/trendwatch/internal/api"
	"github.com/lamvh/trendwatch/internal/config"
	"github.com/lamvh/trendwatch/internal/draft"
	"github.com/lamvh/trendwatch/internal/gather"
	"github.com/lamvh/trendwatch/internal/notify"
	"github.com/lamvh/trendwatch/internal/pipeline"
	"github.com/lamvh/trendwatch/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	dataDir := flag.String("data-dir", "./data", "path to data directory")
	once := flag.Bool("once", false, "execute a single run and exit")
	flag.Parse()

	// Provider tokens and the webhook URL usually live in .env rather than
	// the config file. Missing .env is fine.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env")
	}

	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	db, err := storage.OpenDatabase(filepath.Join(*dataDir, "trendwatch.db"))
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	store := storage.NewStore(db)

	providers := make([]draft.ProviderSpec, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		providers = append(providers, draft.ProviderSpec{
			Name:      p.Name,
			BaseURL:   p.BaseURL,
			AuthToken: p.AuthToken,
			Shape:     draft.Shape(p.Shape),
		})
	}

	runner := pipeline.NewRunner(
		gather.NewFetcher(),
		gather.NewProcessor(gather.Options{
			MinHeadlineLength: cfg.Gather.MinHeadlineLength,
			MaxAgeDays:        cfg.Gather.MaxAgeDays,
			Keywords:          cfg.Gather.Keywords,
		}),
		draft.NewGenerator(providers, cfg.Draft.DebugDir),
		notify.NewNotifier(cfg.Webhook.URL),
		store,
		cfg.Sources,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if _, err := runner.TryRun(ctx); err != nil {
			slog.Error("run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Scheduled runs alongside the HTTP server.
	interval := time.Duration(cfg.Gather.IntervalMinutes) * time.Minute
	go runSchedule(ctx, runner, interval)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(store, runner),
	}

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

// runSchedule triggers a pipeline run immediately and then at every interval
// tick until the context is cancelled. Ticks that land while a run is still
// active are skipped.
func runSchedule(ctx context.Context, runner *pipeline.Runner, interval time.Duration) {
	run := func() {
		if _, err := runner.TryRun(ctx); err != nil {
			if errors.Is(err, pipeline.ErrRunInProgress) {
				slog.Warn("skipping scheduled run, previous run still active")
				return
			}
			slog.Error("scheduled run failed", "error", err)
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
