package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "STRUCTURED", cfg.Logging.Profile)

		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)

		assert.True(t, cfg.Health.Enabled)

		assert.False(t, cfg.Debug.Enabled)
		assert.False(t, cfg.Debug.PprofEnabled)

		assert.Equal(t, 4, cfg.Workers)

		assert.NotEmpty(t, cfg.Instances.BaseDir)
		assert.NotEmpty(t, cfg.Results.DBPath)
		assert.NotEmpty(t, cfg.Results.RunsDir)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Non-overridden values remain default.
		assert.Equal(t, "STRUCTURED", cfg.Logging.Profile)
		assert.Equal(t, 9090, cfg.Metrics.Port)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("OPENSHOP_PORT", "3000")
		t.Setenv("OPENSHOP_LOG_LEVEL", "warn")
		t.Setenv("OPENSHOP_METRICS_ENABLED", "false")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		t.Setenv("OPENSHOP_PORT", "4000")

		overrides := map[string]any{
			"server": map[string]any{
				"port": 5000,
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		// Runtime override wins over env var.
		assert.Equal(t, 5000, cfg.Server.Port)
	})

	t.Run("InstancesDirFromEnv", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("OPENSHOP_INSTANCES_DIR", dir)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, dir, cfg.Instances.BaseDir)
	})
}

func TestDurationParsing(t *testing.T) {
	ctx := context.Background()

	t.Setenv("OPENSHOP_READ_TIMEOUT", "45s")
	t.Setenv("OPENSHOP_SHUTDOWN_TIMEOUT", "5m")

	cfg, err := Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Server.ShutdownTimeout)
}

func TestGetConfig(t *testing.T) {
	ctx := context.Background()

	cfg, err := Load(ctx)
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
	assert.Equal(t, cfg.Logging.Level, retrieved.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErr  bool
		contains string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:     "bad server port",
			mutate:   func(c *Config) { c.Server.Port = 70000 },
			wantErr:  true,
			contains: "server port",
		},
		{
			name:     "bad metrics port",
			mutate:   func(c *Config) { c.Metrics.Port = -1 },
			wantErr:  true,
			contains: "metrics port",
		},
		{
			name:     "zero workers",
			mutate:   func(c *Config) { c.Workers = 0 },
			wantErr:  true,
			contains: "workers",
		},
		{
			name:     "bad log level",
			mutate:   func(c *Config) { c.Logging.Level = "verbose" },
			wantErr:  true,
			contains: "log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:  ServerConfig{Host: "localhost", Port: 8080},
				Logging: LoggingConfig{Level: "info"},
				Metrics: MetricsConfig{Port: 9090},
				Workers: 4,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.contains)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigReload(t *testing.T) {
	ctx := context.Background()

	cfg1, err := Load(ctx)
	require.NoError(t, err)
	initialPort := cfg1.Server.Port

	overrides := map[string]any{
		"server": map[string]any{
			"port": initialPort + 1000,
		},
	}

	cfg2, err := Load(ctx, overrides)
	require.NoError(t, err)
	assert.Equal(t, initialPort+1000, cfg2.Server.Port)

	current := GetConfig()
	assert.Equal(t, cfg2.Server.Port, current.Server.Port)
}
