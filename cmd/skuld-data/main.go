// Package main initializes and runs the skuld data plane service: the
// gRPC evaluation API backed by the two-tier snapshot cache.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/skuld-io/skuld/internal/cache"
	"github.com/skuld-io/skuld/internal/config"
	"github.com/skuld-io/skuld/internal/database"
	"github.com/skuld-io/skuld/internal/dataapi"
	"github.com/skuld-io/skuld/internal/logger"
	"github.com/skuld-io/skuld/internal/matchengine"
	"github.com/skuld-io/skuld/internal/observability"
	"github.com/skuld-io/skuld/internal/store"
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

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	ctx := logger.WithContext(context.Background(), log)

	// Infrastructure.
	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	flagStore := store.NewFlagStore(pool)
	personStore := store.NewPersonStore(pool)
	cohortStore := store.NewCohortStore(pool)
	overrideStore := store.NewOverrideStore(pool)

	checkers := []observability.Checker{database.NewHealthChecker(pool)}

	// Redis is optional: without it the loader reads straight from
	// PostgreSQL on every L1 miss.
	var snapshotCache *cache.SnapshotCache
	var memoryCache *cache.MemoryCache
	if cfg.Redis.IsConfigured() {
		redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		snapshotCache = cache.NewSnapshotCache(redisClient, cfg.Redis.InvalidateChannel, cfg.Redis.SnapshotTTL)
		defer snapshotCache.Close()
		checkers = append(checkers, cache.NewHealthChecker(snapshotCache))

		memoryCache, err = cache.NewMemoryCache(10_000, 5*time.Minute)
		if err != nil {
			return fmt.Errorf("failed to build memory cache: %w", err)
		}
		defer memoryCache.Close()
	}

	loader := cache.NewLoader(memoryCache, snapshotCache, flagStore, log)

	// Wiring.
	matcher := matchengine.NewMatcher(personStore, cohortStore, overrideStore, log)
	api := dataapi.NewAPI(loader, matcher, log)

	// Observability server (health probes + metrics).
	obsServer := observability.NewServer(log, &cfg.Observability, checkers...)
	obsServer.Start()

	// gRPC server.
	listener, err := net.Listen("tcp", cfg.DataPlane.Address())
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", cfg.DataPlane.Address(), err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(dataapi.RequestLoggerInterceptor(log)),
		grpc.MaxRecvMsgSize(cfg.DataPlane.MaxRecvMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.DataPlane.KeepaliveTime,
			Timeout: cfg.DataPlane.KeepaliveTimeout,
		}),
	)
	api.Register(grpcServer)

	// Reflection lets grpcurl and similar tools inspect the API without
	// the .proto file.
	reflection.Register(grpcServer)

	errChan := make(chan error, 1)
	go func() {
		log.Info("grpc server listening", slog.String("addr", cfg.DataPlane.Address()))
		if err := grpcServer.Serve(listener); err != nil {
			errChan <- fmt.Errorf("failed to serve grpc: %w", err)
		}
	}()

	// Drop L1 entries as the syncer publishes invalidations.
	invalidationCtx, stopInvalidations := context.WithCancel(ctx)
	defer stopInvalidations()
	if snapshotCache != nil {
		go func() {
			if err := loader.ListenInvalidations(invalidationCtx); err != nil && invalidationCtx.Err() == nil {
				log.Error("invalidation listener stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// Graceful shutdown.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	stopInvalidations()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("observability server shutdown failed", slog.String("error", err.Error()))
	}

	// GracefulStop blocks until pending RPCs finish; bound it with the
	// configured shutdown timeout.
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Warn("graceful stop timed out, forcing shutdown")
		grpcServer.Stop()
	}

	log.Info("service exited successfully")
	return nil
}
