package cache

import (
	"context"
	"fmt"
)

// HealthChecker implements the observability.Checker interface for Redis.
type HealthChecker struct {
	cache *SnapshotCache
}

// NewHealthChecker creates a new health checker for the snapshot cache.
func NewHealthChecker(cache *SnapshotCache) *HealthChecker {
	return &HealthChecker{cache: cache}
}

// Name returns the component name.
func (h *HealthChecker) Name() string {
	return "redis"
}

// Check verifies the Redis connection.
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.cache == nil {
		return fmt.Errorf("redis cache is nil")
	}
	return h.cache.HealthCheck(ctx)
}
