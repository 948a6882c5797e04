package config

import (
	"fmt"
	"net"
	"time"
)

// RedisConfig contains settings for the Redis instance backing the
// L2 flag snapshot cache and the invalidation pub/sub channel.
type RedisConfig struct {
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT" default:"6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0" validate:"min=0,max=15"`

	PoolSize     int           `envconfig:"POOL_SIZE" default:"10" validate:"min=1"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2" validate:"min=0"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`

	PingRetries  int           `envconfig:"PING_RETRIES" default:"3" validate:"min=1"`
	PingInterval time.Duration `envconfig:"PING_INTERVAL" default:"1s"`

	SnapshotTTL       time.Duration `envconfig:"SNAPSHOT_TTL" default:"24h"`
	InvalidateChannel string        `envconfig:"INVALIDATE_CHANNEL" default:"skuld:flags:invalidate"`
}

// Address returns the host:port pair for the Redis client.
func (c *RedisConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate checks the Redis configuration. Password strength is only
// enforced in production.
func (c *RedisConfig) Validate(environment string) error {
	if !c.IsConfigured() {
		return nil
	}

	if err := validateHost(c.Host, "redis"); err != nil {
		return err
	}
	if err := validatePort(c.Port, "redis"); err != nil {
		return err
	}

	if environment == EnvironmentProduction {
		if c.Password == "" {
			return fmt.Errorf("redis password is required in production environment")
		}
		if err := validatePasswordStrength(c.Password, "redis", environment); err != nil {
			return err
		}
	}

	if c.MinIdleConns > c.PoolSize {
		return fmt.Errorf("min_idle_conns (%d) cannot be greater than pool_size (%d)", c.MinIdleConns, c.PoolSize)
	}

	if c.InvalidateChannel == "" {
		return fmt.Errorf("redis invalidate channel cannot be empty")
	}

	return nil
}

// IsConfigured reports whether a Redis host was provided.
func (c *RedisConfig) IsConfigured() bool {
	return c.Host != ""
}
