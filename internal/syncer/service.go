// Package syncer implements the background worker that propagates flag
// changes from PostgreSQL into the Redis snapshot cache and broadcasts
// invalidation events to the data plane instances.
package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/skuld-io/skuld/internal/cache"
	"github.com/skuld-io/skuld/internal/config"
	"github.com/skuld-io/skuld/internal/observability"
	"github.com/skuld-io/skuld/internal/store"
)

// Service orchestrates the change detection and propagation loop.
type Service struct {
	logger *slog.Logger
	cfg    config.SyncerConfig
	repo   store.FlagRepository
	cache  *cache.SnapshotCache

	// lastSync is the high-water mark for change detection. Cycles overlap
	// by starting the next window at the cycle start time, so a write that
	// lands mid-cycle is picked up again rather than missed.
	lastSync time.Time

	// lastFullResync tracks the drift-bounding full rebuild.
	lastFullResync time.Time
	knownTeams     map[int64]struct{}
}

// New creates a new syncer service.
func New(logger *slog.Logger, cfg config.SyncerConfig, repo store.FlagRepository, snapCache *cache.SnapshotCache) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if repo == nil {
		panic("syncer: flag repository cannot be nil")
	}
	if snapCache == nil {
		panic("syncer: snapshot cache cannot be nil")
	}

	if cfg.Interval < time.Second {
		cfg.Interval = 10 * time.Second
	}

	return &Service{
		logger:     logger,
		cfg:        cfg,
		repo:       repo,
		cache:      snapCache,
		knownTeams: make(map[int64]struct{}),
	}
}

// Run starts the syncer loop. It blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting syncer service", slog.String("interval", s.cfg.Interval.String()))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Run once immediately on startup so a fresh deployment does not wait
	// a full interval before serving current data.
	if err := s.syncCycle(ctx); err != nil {
		s.logger.Error("initial sync failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("syncer service stopping...")
			return nil
		case <-ticker.C:
			if err := s.syncCycle(ctx); err != nil {
				// Log and retry on the next tick instead of stopping.
				s.logger.Error("sync cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// syncCycle performs one change detection and propagation pass.
func (s *Service) syncCycle(ctx context.Context) error {
	start := time.Now()
	defer func() {
		observability.SyncerCycleDuration.Observe(time.Since(start).Seconds())
	}()

	teams, err := s.changedTeams(ctx, start)
	if err != nil {
		observability.SyncerCyclesTotal.WithLabelValues("fail").Inc()
		return err
	}

	synced := 0
	errorCount := 0

	for _, teamID := range teams {
		if err := s.syncTeam(ctx, teamID); err != nil {
			s.logger.Warn("failed to sync team snapshot",
				slog.Int64("team_id", teamID),
				slog.String("error", err.Error()),
			)
			errorCount++
			continue // Try the next team, don't abort the batch.
		}
		s.knownTeams[teamID] = struct{}{}
		synced++
	}

	// Advance the watermark only when every team propagated, so failed
	// teams are retried next cycle.
	if errorCount == 0 {
		s.lastSync = start
		observability.SyncerCyclesTotal.WithLabelValues("success").Inc()
	} else {
		observability.SyncerCyclesTotal.WithLabelValues("fail").Inc()
	}

	if synced > 0 || errorCount > 0 {
		s.logger.Info("sync cycle completed",
			slog.Int("teams_synced", synced),
			slog.Int("errors", errorCount),
			slog.String("duration", time.Since(start).String()),
		)
	}
	return nil
}

// changedTeams returns the set of teams to rebuild this cycle. On the first
// cycle and at every FullResyncInterval it returns all known-changed teams
// since the zero time, forcing a full rebuild.
func (s *Service) changedTeams(ctx context.Context, now time.Time) ([]int64, error) {
	since := s.lastSync
	if s.cfg.FullResyncInterval > 0 && now.Sub(s.lastFullResync) >= s.cfg.FullResyncInterval {
		since = time.Time{}
		s.lastFullResync = now
	}

	return s.repo.TeamsChangedSince(ctx, since)
}

// syncTeam rebuilds one team snapshot, replaces it in Redis, and publishes
// the invalidation event.
func (s *Service) syncTeam(ctx context.Context, teamID int64) error {
	snap, err := cache.BuildSnapshot(ctx, s.repo, teamID)
	if err != nil {
		return err
	}

	if err := s.cache.SetSnapshot(ctx, snap); err != nil {
		return err
	}

	if err := s.cache.PublishInvalidation(ctx, teamID); err != nil {
		return err
	}

	observability.SyncerTeamsSynced.Inc()
	s.logger.Debug("team snapshot published",
		slog.Int64("team_id", teamID),
		slog.Int("flags", len(snap.Flags)),
	)
	return nil
}
