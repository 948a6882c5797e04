package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuld-io/skuld/internal/cache"
	"github.com/skuld-io/skuld/internal/config"
	"github.com/skuld-io/skuld/internal/matchengine"
)

// recordingRepo records the watermark passed to TeamsChangedSince.
type recordingRepo struct {
	sinceCalls []time.Time
	teams      []int64
}

func (r *recordingRepo) CreateFlag(ctx context.Context, f *matchengine.FeatureFlag) error {
	return nil
}

func (r *recordingRepo) ListActiveFlags(ctx context.Context, teamID int64) ([]matchengine.FeatureFlag, error) {
	return nil, nil
}

func (r *recordingRepo) SoftDeleteFlag(ctx context.Context, teamID int64, key string) error {
	return nil
}

func (r *recordingRepo) TeamsChangedSince(ctx context.Context, since time.Time) ([]int64, error) {
	r.sinceCalls = append(r.sinceCalls, since)
	return r.teams, nil
}

// offlineCache builds a snapshot cache whose client never connects; only
// tests that avoid Redis round-trips may use it.
func offlineCache() *cache.SnapshotCache {
	client := redis.NewClient(&redis.Options{Addr: "localhost:1"})
	return cache.NewSnapshotCache(client, "skuld:flags:invalidate", time.Hour)
}

func TestNewAppliesSafeIntervalDefault(t *testing.T) {
	svc := New(nil, config.SyncerConfig{Interval: 0}, &recordingRepo{}, offlineCache())
	assert.Equal(t, 10*time.Second, svc.cfg.Interval)
}

func TestNewPanicsOnMissingDependencies(t *testing.T) {
	assert.Panics(t, func() {
		New(nil, config.SyncerConfig{}, nil, offlineCache())
	})
	assert.Panics(t, func() {
		New(nil, config.SyncerConfig{}, &recordingRepo{}, nil)
	})
}

func TestChangedTeamsWatermark(t *testing.T) {
	repo := &recordingRepo{}
	svc := New(nil, config.SyncerConfig{
		Interval:           time.Second,
		FullResyncInterval: time.Hour,
	}, repo, offlineCache())

	now := time.Now()

	// First call triggers a full resync (zero watermark).
	_, err := svc.changedTeams(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, repo.sinceCalls, 1)
	assert.True(t, repo.sinceCalls[0].IsZero())

	// Subsequent calls inside the resync window use the incremental mark.
	svc.lastSync = now
	_, err = svc.changedTeams(context.Background(), now.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, repo.sinceCalls, 2)
	assert.Equal(t, now, repo.sinceCalls[1])

	// Crossing the resync interval forces another full rebuild.
	_, err = svc.changedTeams(context.Background(), now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, repo.sinceCalls, 3)
	assert.True(t, repo.sinceCalls[2].IsZero())
}
