package config

import (
	"maps"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalRequiredConfig provides database and Redis config needed for all tests
func minimalRequiredConfig() map[string]string {
	return map[string]string{
		"SKULD_DB_HOST":        "localhost",
		"SKULD_DB_PORT":        "5432",
		"SKULD_DB_NAME":        "skuld_test",
		"SKULD_DB_USER":        "test_user",
		"SKULD_DB_PASSWORD":    "test_pass",
		"SKULD_REDIS_HOST":     "localhost",
		"SKULD_REDIS_PORT":     "6379",
		"SKULD_REDIS_PASSWORD": "redis_password_123",
	}
}

// mergeEnvVars merges additional env vars with minimal required config
func mergeEnvVars(additional map[string]string) map[string]string {
	result := minimalRequiredConfig()
	maps.Copy(result, additional)
	return result
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name:    "Should use defaults when no env vars are set",
			envVars: minimalRequiredConfig(),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "skuld", cfg.App.Name)
				assert.Equal(t, "dev", cfg.App.Version)
				assert.Equal(t, "development", cfg.App.Environment)
				assert.Equal(t, "info", cfg.App.LogLevel)
				assert.Equal(t, "text", cfg.App.LogFormat)
				assert.Equal(t, 30*time.Second, cfg.App.ShutdownTimeout)
				assert.Equal(t, "50051", cfg.DataPlane.Port)
				assert.Equal(t, "9090", cfg.Observability.Port)
				assert.True(t, cfg.Syncer.Enabled)
				assert.Equal(t, 10*time.Second, cfg.Syncer.Interval)
			},
			wantErr: false,
		},
		{
			name: "Should load all custom environment variables correctly",
			envVars: mergeEnvVars(map[string]string{
				"SKULD_APP_NAME":             "test-app",
				"SKULD_APP_VERSION":          "1.0.0",
				"SKULD_APP_ENV":              "staging",
				"SKULD_APP_LOG_LEVEL":        "debug",
				"SKULD_APP_LOG_FORMAT":       "json",
				"SKULD_APP_SHUTDOWN_TIMEOUT": "60s",
				"SKULD_DATA_PORT":            "50052",
				"SKULD_OBS_PORT":             "9191",
				"SKULD_SYNCER_ENABLED":       "false",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "test-app", cfg.App.Name)
				assert.Equal(t, "1.0.0", cfg.App.Version)
				assert.Equal(t, "staging", cfg.App.Environment)
				assert.Equal(t, "debug", cfg.App.LogLevel)
				assert.Equal(t, "json", cfg.App.LogFormat)
				assert.Equal(t, 60*time.Second, cfg.App.ShutdownTimeout)
				assert.Equal(t, "50052", cfg.DataPlane.Port)
				assert.Equal(t, "9191", cfg.Observability.Port)
				assert.False(t, cfg.Syncer.Enabled)
			},
			wantErr: false,
		},
		{
			name: "Should fail validation on invalid environment value",
			envVars: mergeEnvVars(map[string]string{
				"SKULD_APP_ENV": "invalid",
			}),
			wantErr: true,
		},
		{
			name: "Should fail validation on invalid log level",
			envVars: mergeEnvVars(map[string]string{
				"SKULD_APP_LOG_LEVEL": "trace",
			}),
			wantErr: true,
		},
		{
			name: "Should fail validation on invalid log format",
			envVars: mergeEnvVars(map[string]string{
				"SKULD_APP_LOG_FORMAT": "xml",
			}),
			wantErr: true,
		},
		{
			name: "Should allow missing passwords in non-production environments",
			envVars: mergeEnvVars(map[string]string{
				"SKULD_APP_ENV":        "development",
				"SKULD_DB_PASSWORD":    "",
				"SKULD_REDIS_PASSWORD": "",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.App.Environment)
				assert.Equal(t, "", cfg.Database.Password)
				assert.Equal(t, "", cfg.Redis.Password)
			},
			wantErr: false,
		},
		{
			name: "Should require database password in production",
			envVars: mergeEnvVars(map[string]string{
				"SKULD_APP_ENV":     "production",
				"SKULD_DB_PASSWORD": "",
			}),
			wantErr: true,
		},
		{
			name: "Should require secure SSL mode in production",
			envVars: mergeEnvVars(map[string]string{
				"SKULD_APP_ENV":     "production",
				"SKULD_DB_PASSWORD": "SuperSecure123!",
				"SKULD_DB_SSL_MODE": "prefer",
			}),
			wantErr: true,
		},
		{
			name: "Should pass validation with a complete production configuration",
			envVars: mergeEnvVars(map[string]string{
				"SKULD_APP_ENV":        "production",
				"SKULD_DB_PASSWORD":    "SuperSecure123!",
				"SKULD_DB_SSL_MODE":    "require",
				"SKULD_REDIS_PASSWORD": "RedisSecure123!",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "production", cfg.App.Environment)
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// t.Setenv automatically prevents parallel execution and cleans up after the test
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			if tt.want != nil {
				tt.want(t, cfg)
			}
		})
	}
}

func TestObservabilityConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
	}{
		{
			name: "Should fail validation on port too low",
			envVars: map[string]string{
				"SKULD_OBS_PORT": "0",
			},
			wantErr: true,
		},
		{
			name: "Should fail validation on port too high",
			envVars: map[string]string{
				"SKULD_OBS_PORT": "70000",
			},
			wantErr: true,
		},
		{
			name: "Should fail validation on metrics path without leading slash",
			envVars: map[string]string{
				"SKULD_OBS_METRICS_PATH": "metrics",
			},
			wantErr: true,
		},
		{
			name: "Should accept custom probe paths",
			envVars: map[string]string{
				"SKULD_OBS_LIVENESS_PATH":  "/live",
				"SKULD_OBS_READINESS_PATH": "/ready",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range mergeEnvVars(tt.envVars) {
				t.Setenv(key, value)
			}

			_, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
