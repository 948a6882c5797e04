//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuld-io/skuld/internal/cache"
	"github.com/skuld-io/skuld/internal/matchengine"
	"github.com/skuld-io/skuld/internal/testsupport"
)

func TestSnapshotCacheRoundTrip(t *testing.T) {
	ctx := context.Background()

	redisCtr, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisCtr.Terminate(ctx)

	sut := redisCtr.Cache

	t.Run("Should return nil on a miss", func(t *testing.T) {
		snap, err := sut.GetSnapshot(ctx, 404)
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("Should store and retrieve a snapshot", func(t *testing.T) {
		pct := 50.0
		stored := &cache.Snapshot{
			TeamID:     1,
			Generation: 100,
			BuiltAt:    time.Now().UTC().Truncate(time.Second),
			Flags: []matchengine.FeatureFlag{
				{
					ID:     10,
					TeamID: 1,
					Key:    "checkout-v2",
					Active: true,
					Groups: []matchengine.ConditionGroup{
						{RolloutPercentage: &pct},
					},
				},
			},
		}

		require.NoError(t, sut.SetSnapshot(ctx, stored))

		got, err := sut.GetSnapshot(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, stored.Generation, got.Generation)
		require.Len(t, got.Flags, 1)
		assert.Equal(t, "checkout-v2", got.Flags[0].Key)
		require.NotNil(t, got.Flags[0].Groups[0].RolloutPercentage)
		assert.Equal(t, 50.0, *got.Flags[0].Groups[0].RolloutPercentage)
	})

	t.Run("Should delete a stored snapshot", func(t *testing.T) {
		require.NoError(t, sut.DeleteSnapshot(ctx, 1))

		got, err := sut.GetSnapshot(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestInvalidationPubSub(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	redisCtr, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisCtr.Terminate(context.Background())

	memory, err := cache.NewMemoryCache(16, time.Minute)
	require.NoError(t, err)
	defer memory.Close()

	memory.Set(42, &cache.Snapshot{TeamID: 42, Generation: 1})

	repo := &stubRepo{}
	loader := cache.NewLoader(memory, redisCtr.Cache, repo, nil)

	listenerCtx, stopListener := context.WithCancel(ctx)
	defer stopListener()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loader.ListenInvalidations(listenerCtx)
	}()

	// Give the subscription a moment to establish before publishing.
	time.Sleep(500 * time.Millisecond)

	require.NoError(t, redisCtr.Cache.PublishInvalidation(ctx, 42))

	assert.Eventually(t, func() bool {
		_, ok := memory.Get(42)
		return !ok
	}, 10*time.Second, 100*time.Millisecond, "L1 entry should be dropped after invalidation")

	stopListener()
	<-done
}

type stubRepo struct{}

func (stubRepo) CreateFlag(ctx context.Context, f *matchengine.FeatureFlag) error { return nil }
func (stubRepo) ListActiveFlags(ctx context.Context, teamID int64) ([]matchengine.FeatureFlag, error) {
	return nil, nil
}
func (stubRepo) SoftDeleteFlag(ctx context.Context, teamID int64, key string) error { return nil }
func (stubRepo) TeamsChangedSince(ctx context.Context, since time.Time) ([]int64, error) {
	return nil, nil
}
