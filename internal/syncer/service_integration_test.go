//go:build integration

package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuld-io/skuld/internal/config"
	"github.com/skuld-io/skuld/internal/matchengine"
	"github.com/skuld-io/skuld/internal/store"
	"github.com/skuld-io/skuld/internal/testsupport"
)

func TestSyncerPropagatesFlagChanges(t *testing.T) {
	ctx := context.Background()

	pgCtr, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
	require.NoError(t, err)
	defer pgCtr.Terminate(ctx)

	redisCtr, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisCtr.Terminate(ctx)

	flagStore := store.NewFlagStore(pgCtr.DB)
	svc := New(nil, config.SyncerConfig{Interval: time.Second}, flagStore, redisCtr.Cache)

	pct := 100.0
	flag := &matchengine.FeatureFlag{
		TeamID: 1,
		Key:    "new-onboarding",
		Active: true,
		Groups: []matchengine.ConditionGroup{{RolloutPercentage: &pct}},
	}
	require.NoError(t, flagStore.CreateFlag(ctx, flag))

	t.Run("Should publish a snapshot for a changed team", func(t *testing.T) {
		require.NoError(t, svc.syncCycle(ctx))

		snap, err := redisCtr.Cache.GetSnapshot(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, snap)
		require.Len(t, snap.Flags, 1)
		assert.Equal(t, "new-onboarding", snap.Flags[0].Key)
	})

	t.Run("Should replace the snapshot after a soft delete", func(t *testing.T) {
		require.NoError(t, flagStore.SoftDeleteFlag(ctx, 1, "new-onboarding"))

		// The watermark overlaps the cycle start, so the delete from the
		// same second is still detected.
		require.NoError(t, svc.syncCycle(ctx))

		snap, err := redisCtr.Cache.GetSnapshot(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Empty(t, snap.Flags)
	})

	t.Run("Should broadcast invalidations on the pub/sub channel", func(t *testing.T) {
		received := make(chan string, 1)
		sub := redisCtr.Client.Subscribe(ctx, "skuld:flags:invalidate")
		defer sub.Close()
		_, err := sub.Receive(ctx)
		require.NoError(t, err)

		go func() {
			msg, err := sub.ReceiveMessage(ctx)
			if err == nil {
				received <- msg.Payload
			}
		}()

		pct := 50.0
		require.NoError(t, flagStore.CreateFlag(ctx, &matchengine.FeatureFlag{
			TeamID: 2,
			Key:    "another-flag",
			Active: true,
			Groups: []matchengine.ConditionGroup{{RolloutPercentage: &pct}},
		}))
		require.NoError(t, svc.syncCycle(ctx))

		select {
		case payload := <-received:
			assert.Contains(t, []string{"1", "2"}, payload)
		case <-time.After(10 * time.Second):
			t.Fatal("no invalidation received")
		}
	})
}
