package config

import (
	"fmt"
	"strings"
	"time"
)

// ObservabilityConfig contains settings for the HTTP server exposing
// metrics and health probes.
type ObservabilityConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port string `envconfig:"PORT" default:"9090"`

	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`

	MetricsPath   string `envconfig:"METRICS_PATH" default:"/metrics"`
	LivenessPath  string `envconfig:"LIVENESS_PATH" default:"/healthz"`
	ReadinessPath string `envconfig:"READINESS_PATH" default:"/readyz"`
}

// Address returns the host:port pair the observability server listens on.
func (c *ObservabilityConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Validate checks the observability configuration.
func (c *ObservabilityConfig) Validate() error {
	if err := validateHost(c.Host, "observability"); err != nil {
		return err
	}
	if err := validatePort(c.Port, "observability"); err != nil {
		return err
	}
	for _, p := range []struct{ name, value string }{
		{"metrics path", c.MetricsPath},
		{"liveness path", c.LivenessPath},
		{"readiness path", c.ReadinessPath},
	} {
		if !strings.HasPrefix(p.value, "/") {
			return fmt.Errorf("observability %s must start with '/', got '%s'", p.name, p.value)
		}
	}
	return nil
}
