package cache

import (
	"time"

	"github.com/maypok86/otter"
)

// MemoryCache is the L1 layer holding recently evaluated team snapshots,
// backed by otter's S3-FIFO cache.
type MemoryCache struct {
	store otter.Cache[int64, *Snapshot]
}

// NewMemoryCache initializes the in-memory snapshot cache.
// capacity caps the number of cached teams to prevent OOM; ttl is the
// safety net for missed invalidation events.
func NewMemoryCache(capacity int, ttl time.Duration) (*MemoryCache, error) {
	builder := otter.MustBuilder[int64, *Snapshot](capacity).
		WithTTL(ttl)

	cache, err := builder.Build()
	if err != nil {
		return nil, err
	}

	return &MemoryCache{store: cache}, nil
}

// Get retrieves a team snapshot from memory.
func (c *MemoryCache) Get(teamID int64) (*Snapshot, bool) {
	return c.store.Get(teamID)
}

// Set adds or updates a team snapshot. The configured TTL applies.
func (c *MemoryCache) Set(teamID int64, snap *Snapshot) {
	c.store.Set(teamID, snap)
}

// Del removes a team snapshot. Called by the pub/sub invalidation listener.
func (c *MemoryCache) Del(teamID int64) {
	c.store.Delete(teamID)
}

// Close shuts down the cache and its background cleanup goroutines.
func (c *MemoryCache) Close() {
	c.store.Close()
}
