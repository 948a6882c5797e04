package cache

import (
	"context"
	"log/slog"

	"github.com/skuld-io/skuld/internal/observability"
	"github.com/skuld-io/skuld/internal/store"
	"github.com/skuld-io/skuld/internal/validation"
)

// SnapshotProvider yields the current flag snapshot for a team.
type SnapshotProvider interface {
	SnapshotForTeam(ctx context.Context, teamID int64) (*Snapshot, error)
}

// Loader is the read-through snapshot provider used by the data plane:
// L1 memory, then Redis, then PostgreSQL. Lower tiers are backfilled on
// the way out.
type Loader struct {
	memory *MemoryCache
	redis  *SnapshotCache
	flags  store.FlagRepository
	logger *slog.Logger
}

// NewLoader creates a read-through loader. memory and redis may be nil,
// in which case the corresponding tier is skipped; flags is mandatory.
func NewLoader(memory *MemoryCache, redis *SnapshotCache, flags store.FlagRepository, log *slog.Logger) *Loader {
	if flags == nil {
		panic("critical error: flag repository cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Loader{
		memory: memory,
		redis:  redis,
		flags:  flags,
		logger: log,
	}
}

// SnapshotForTeam resolves a team snapshot through the cache tiers.
// Redis errors degrade to a PostgreSQL read instead of failing the request.
func (l *Loader) SnapshotForTeam(ctx context.Context, teamID int64) (*Snapshot, error) {
	if l.memory != nil {
		if snap, ok := l.memory.Get(teamID); ok {
			observability.SnapshotL1Hits.Inc()
			return snap, nil
		}
		observability.SnapshotL1Misses.Inc()
	}

	if l.redis != nil {
		snap, err := l.redis.GetSnapshot(ctx, teamID)
		if err != nil {
			l.logger.Warn("redis snapshot read failed, falling back to database",
				slog.Int64("team_id", teamID),
				slog.Any("error", err),
			)
		} else if snap != nil {
			observability.SnapshotL2Hits.Inc()
			if l.memory != nil {
				l.memory.Set(teamID, snap)
			}
			return snap, nil
		} else {
			observability.SnapshotL2Misses.Inc()
		}
	}

	snap, err := BuildSnapshot(ctx, l.flags, teamID)
	if err != nil {
		return nil, err
	}

	if l.redis != nil {
		if err := l.redis.SetSnapshot(ctx, snap); err != nil {
			l.logger.Warn("redis snapshot backfill failed",
				slog.Int64("team_id", teamID),
				slog.Any("error", err),
			)
		}
	}
	if l.memory != nil {
		l.memory.Set(teamID, snap)
	}

	return snap, nil
}

// ListenInvalidations runs the pub/sub listener, dropping L1 entries as
// invalidation events arrive. Blocks until the context is canceled.
func (l *Loader) ListenInvalidations(ctx context.Context) error {
	validation.AssertNotNil(l.redis, "snapshot cache")

	return l.redis.SubscribeInvalidations(ctx, l.logger, func(teamID int64) {
		observability.SnapshotInvalidations.Inc()
		if l.memory != nil {
			l.memory.Del(teamID)
		}
		l.logger.Debug("snapshot invalidated", slog.Int64("team_id", teamID))
	})
}
