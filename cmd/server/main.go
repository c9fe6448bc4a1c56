package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trade-approval-go/internal/approval"
	"trade-approval-go/internal/chart"
	"trade-approval-go/internal/config"
	"trade-approval-go/internal/logger"
	"trade-approval-go/internal/pushcut"
	"trade-approval-go/internal/store"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize the chart renderer
	renderer, err := chart.NewFileRenderer(cfg.Charts.Dir, log)
	if err != nil {
		log.Fatal("Failed to initialize chart renderer", zap.Error(err))
	}

	// Initialize the Pushcut notification client
	notifier := pushcut.NewClient(&cfg.Pushcut, cfg.Server.BaseURL, cfg.Approval.Timeout, log)

	// Initialize the trade store and lifecycle manager
	trades := store.New()
	manager := approval.NewManager(trades, renderer, notifier, cfg.Server.BaseURL, cfg.Approval.Timeout, log)
	sweeper := approval.NewSweeper(trades, renderer, cfg.Approval.Retention, cfg.Approval.SweepInterval, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start the eviction sweep loop
	go sweeper.Run(ctx)

	// Start the API server
	apiServer := approval.NewAPIServer(manager, renderer, cfg.Server.Port, log)
	apiServer.Start()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server cleanly", zap.Error(err))
	}

	log.Info("Service has been shut down.")
}
