package main

import (
	"buyer-intent-engine/internal/api"
	"buyer-intent-engine/internal/config"
	"buyer-intent-engine/internal/engine"
	"buyer-intent-engine/internal/jobs"
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/version"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	defer logg.Sync()

	logg.Info("🚀 Starting buyer intent engine %s...", version.Summary())
	logg.Debug("%s", cfg.SafeString())

	eng, err := engine.New(cfg, logg)
	if err != nil {
		logg.Fatal("Failed to initialize engine: %v", err)
	}
	defer eng.Close()

	var scheduler *jobs.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = jobs.NewScheduler(cfg.Scheduler, eng.Scoring, eng.Market, logg)
		if err := scheduler.Start(); err != nil {
			logg.Fatal("Failed to start job scheduler: %v", err)
		}
	} else {
		logg.Info("Job scheduler disabled, batch jobs must be triggered externally")
	}

	server := api.NewServer(cfg, logg, api.Dependencies{
		Events:      eng.Ingestion,
		Scores:      eng.Scoring,
		Preferences: eng.Preferences,
		Feed:        eng.Feed,
		Market:      eng.Market,
		Triggers:    eng.Repos.Triggers,
		Engagements: eng.Repos.Engagements,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logg.Info("🛑 Received %s, shutting down...", sig)
	case err := <-errCh:
		if err != nil {
			logg.Error("API server failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logg.Error("Server forced to shutdown: %v", err)
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	logg.Info("✅ Buyer intent engine stopped gracefully")
}
