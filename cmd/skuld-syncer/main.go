// Package main initializes and runs the skuld syncer: the background
// worker that propagates flag changes from PostgreSQL into the Redis
// snapshot cache.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/skuld-io/skuld/internal/cache"
	"github.com/skuld-io/skuld/internal/config"
	"github.com/skuld-io/skuld/internal/database"
	"github.com/skuld-io/skuld/internal/logger"
	"github.com/skuld-io/skuld/internal/observability"
	"github.com/skuld-io/skuld/internal/store"
	"github.com/skuld-io/skuld/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if !cfg.Syncer.Enabled {
		return fmt.Errorf("syncer is disabled via SKULD_SYNCER_ENABLED")
	}
	if !cfg.Redis.IsConfigured() {
		return fmt.Errorf("redis configuration is required for the syncer")
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	ctx := logger.WithContext(context.Background(), log)

	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	snapshotCache := cache.NewSnapshotCache(redisClient, cfg.Redis.InvalidateChannel, cfg.Redis.SnapshotTTL)
	defer snapshotCache.Close()

	flagStore := store.NewFlagStore(pool)
	svc := syncer.New(log, cfg.Syncer, flagStore, snapshotCache)

	obsServer := observability.NewServer(log, &cfg.Observability,
		database.NewHealthChecker(pool),
		cache.NewHealthChecker(snapshotCache),
	)
	obsServer.Start()

	// Run the loop until a shutdown signal arrives.
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(runCtx); err != nil {
		return fmt.Errorf("syncer stopped with error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("observability server shutdown failed", slog.String("error", err.Error()))
	}

	log.Info("service exited successfully")
	return nil
}
