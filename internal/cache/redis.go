package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skuld-io/skuld/internal/validation"
)

// keyPrefix is the namespace for team snapshot keys in Redis.
// Example: "skuld:flags:team:42"
const keyPrefix = "skuld:flags:team:"

// SnapshotCache is the L2 cache. Snapshots are stored as JSON blobs keyed
// by team and invalidations are broadcast on a pub/sub channel.
type SnapshotCache struct {
	client  *redis.Client
	channel string
	ttl     time.Duration
}

// NewSnapshotCache wraps an existing Redis client. channel is the pub/sub
// channel used for invalidation events and ttl bounds snapshot staleness
// when the syncer is down.
func NewSnapshotCache(client *redis.Client, channel string, ttl time.Duration) *SnapshotCache {
	validation.AssertNotNil(client, "redis client")

	return &SnapshotCache{
		client:  client,
		channel: channel,
		ttl:     ttl,
	}
}

func snapshotKey(teamID int64) string {
	return keyPrefix + strconv.FormatInt(teamID, 10)
}

// GetSnapshot fetches the snapshot for a team. Returns (nil, nil) on a miss.
func (c *SnapshotCache) GetSnapshot(ctx context.Context, teamID int64) (*Snapshot, error) {
	raw, err := c.client.Get(ctx, snapshotKey(teamID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for team %d: %w", teamID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for team %d: %w", teamID, err)
	}

	return &snap, nil
}

// SetSnapshot replaces the stored snapshot for a team. Callers must pass a
// fully built snapshot; partial updates are not supported by design of the
// whole-snapshot replacement model.
func (c *SnapshotCache) SetSnapshot(ctx context.Context, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for team %d: %w", snap.TeamID, err)
	}

	if err := c.client.Set(ctx, snapshotKey(snap.TeamID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot for team %d: %w", snap.TeamID, err)
	}

	return nil
}

// DeleteSnapshot removes the stored snapshot for a team.
func (c *SnapshotCache) DeleteSnapshot(ctx context.Context, teamID int64) error {
	if err := c.client.Del(ctx, snapshotKey(teamID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot for team %d: %w", teamID, err)
	}
	return nil
}

// PublishInvalidation broadcasts a team id on the invalidation channel so
// every data plane instance drops its L1 entry.
func (c *SnapshotCache) PublishInvalidation(ctx context.Context, teamID int64) error {
	payload := strconv.FormatInt(teamID, 10)
	if err := c.client.Publish(ctx, c.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation for team %d: %w", teamID, err)
	}
	return nil
}

// SubscribeInvalidations listens on the invalidation channel and calls
// handler with each team id until the context is canceled. Malformed
// payloads are logged and skipped.
func (c *SnapshotCache) SubscribeInvalidations(ctx context.Context, log *slog.Logger, handler func(teamID int64)) error {
	sub := c.client.Subscribe(ctx, c.channel)
	defer func() { _ = sub.Close() }()

	// Fail fast if the subscription could not be established.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", c.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			teamID, err := strconv.ParseInt(msg.Payload, 10, 64)
			if err != nil {
				log.Warn("ignoring malformed invalidation payload",
					slog.String("payload", msg.Payload),
				)
				continue
			}
			handler(teamID)
		}
	}
}

// HealthCheck verifies the connection to the Redis server.
func (c *SnapshotCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}
