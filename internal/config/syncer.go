package config

import "time"

// SyncerConfig controls the background worker that propagates flag and
// cohort changes from PostgreSQL into the Redis snapshot cache.
type SyncerConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"true"`

	Interval     time.Duration `envconfig:"INTERVAL" default:"10s"`
	RetryBackoff time.Duration `envconfig:"RETRY_BACKOFF" default:"5s"`
	MaxRetries   int           `envconfig:"MAX_RETRIES" default:"3" validate:"min=1"`

	// FullResyncInterval forces a rebuild of every team snapshot even when
	// no change was detected, bounding drift after missed notifications.
	FullResyncInterval time.Duration `envconfig:"FULL_RESYNC_INTERVAL" default:"10m"`
}
