// Package cache provides the two-tier flag snapshot cache: an in-memory
// L1 (otter) in front of a Redis L2, filled from PostgreSQL. Snapshots are
// replaced wholesale per team so evaluation never observes a partially
// updated flag set.
package cache

import (
	"context"
	"time"

	"github.com/skuld-io/skuld/internal/matchengine"
	"github.com/skuld-io/skuld/internal/store"
)

// Snapshot is the complete set of active flags for one team at a point in
// time. Generation increases monotonically per team so stale publishes can
// be detected.
type Snapshot struct {
	TeamID     int64                     `json:"team_id"`
	Generation int64                     `json:"generation"`
	BuiltAt    time.Time                 `json:"built_at"`
	Flags      []matchengine.FeatureFlag `json:"flags"`
}

// FlagByKey returns the flag with the given key, or nil.
func (s *Snapshot) FlagByKey(key string) *matchengine.FeatureFlag {
	for i := range s.Flags {
		if s.Flags[i].Key == key {
			return &s.Flags[i]
		}
	}
	return nil
}

// BuildSnapshot loads the active flags for a team from the repository and
// wraps them in a snapshot stamped with the current time. The generation is
// the build timestamp in nanoseconds, which is monotonic enough across a
// single syncer instance.
func BuildSnapshot(ctx context.Context, flags store.FlagRepository, teamID int64) (*Snapshot, error) {
	active, err := flags.ListActiveFlags(ctx, teamID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Snapshot{
		TeamID:     teamID,
		Generation: now.UnixNano(),
		BuiltAt:    now,
		Flags:      active,
	}, nil
}
