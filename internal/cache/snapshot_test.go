package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuld-io/skuld/internal/matchengine"
)

// fakeFlagRepo serves canned flags per team.
type fakeFlagRepo struct {
	flags map[int64][]matchengine.FeatureFlag
	err   error
	calls int
}

func (r *fakeFlagRepo) CreateFlag(ctx context.Context, f *matchengine.FeatureFlag) error {
	return errors.New("not implemented")
}

func (r *fakeFlagRepo) ListActiveFlags(ctx context.Context, teamID int64) ([]matchengine.FeatureFlag, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.flags[teamID], nil
}

func (r *fakeFlagRepo) SoftDeleteFlag(ctx context.Context, teamID int64, key string) error {
	return errors.New("not implemented")
}

func (r *fakeFlagRepo) TeamsChangedSince(ctx context.Context, since time.Time) ([]int64, error) {
	return nil, nil
}

func TestBuildSnapshot(t *testing.T) {
	repo := &fakeFlagRepo{
		flags: map[int64][]matchengine.FeatureFlag{
			1: {
				{ID: 10, TeamID: 1, Key: "checkout-v2", Active: true},
				{ID: 11, TeamID: 1, Key: "dark-mode", Active: true},
			},
		},
	}

	snap, err := BuildSnapshot(context.Background(), repo, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), snap.TeamID)
	assert.Len(t, snap.Flags, 2)
	assert.NotZero(t, snap.Generation)
	assert.WithinDuration(t, time.Now(), snap.BuiltAt, time.Minute)
}

func TestSnapshotFlagByKey(t *testing.T) {
	snap := &Snapshot{
		Flags: []matchengine.FeatureFlag{
			{Key: "checkout-v2"},
			{Key: "dark-mode"},
		},
	}

	assert.Equal(t, "dark-mode", snap.FlagByKey("dark-mode").Key)
	assert.Nil(t, snap.FlagByKey("missing"))
}

func TestLoaderFallsBackToRepository(t *testing.T) {
	repo := &fakeFlagRepo{
		flags: map[int64][]matchengine.FeatureFlag{
			7: {{ID: 1, TeamID: 7, Key: "beta", Active: true}},
		},
	}

	memory, err := NewMemoryCache(16, time.Minute)
	require.NoError(t, err)
	defer memory.Close()

	loader := NewLoader(memory, nil, repo, nil)

	snap, err := loader.SnapshotForTeam(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, snap.Flags, 1)
	assert.Equal(t, "beta", snap.Flags[0].Key)
	assert.Equal(t, 1, repo.calls)

	// Second read is served from L1 without touching the repository.
	again, err := loader.SnapshotForTeam(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, snap.Generation, again.Generation)
	assert.Equal(t, 1, repo.calls)
}

func TestLoaderPropagatesRepositoryError(t *testing.T) {
	repo := &fakeFlagRepo{err: errors.New("connection refused")}

	loader := NewLoader(nil, nil, repo, nil)

	_, err := loader.SnapshotForTeam(context.Background(), 7)
	assert.Error(t, err)
}
