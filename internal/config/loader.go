// Package config loads application configuration with layered precedence:
// runtime overrides > environment variables > config file > defaults.
//
// Environment variables use the OPENSHOP_ prefix (OPENSHOP_PORT,
// OPENSHOP_LOG_LEVEL, ...). An optional openshop.yaml config file is read
// from the working directory or the app data dir when present.
package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// AppName is the identity used for app data paths and env prefixes.
const AppName = "openshop"

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
	Debug     DebugConfig     `mapstructure:"debug"`
	Instances InstancesConfig `mapstructure:"instances"`
	Results   ResultsConfig   `mapstructure:"results"`

	// Workers is the default worker count for scan and evaluation pools.
	Workers int `mapstructure:"workers"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig configures health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig configures debug facilities.
type DebugConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// InstancesConfig configures the local instance store.
type InstancesConfig struct {
	// BaseDir is where relative instance paths resolve.
	BaseDir string `mapstructure:"base_dir"`
}

// ResultsConfig configures result persistence.
type ResultsConfig struct {
	// DBPath is the SQLite results database path.
	DBPath string `mapstructure:"db_path"`

	// RunsDir is where run records are written.
	RunsDir string `mapstructure:"runs_dir"`
}

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// Load builds the configuration, applying optional runtime overrides on
// top of environment variables, an optional config file, and defaults.
//
// The loaded config is cached and retrievable via GetConfig.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(AppName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(gfconfig.GetAppDataDir(AppName))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	for _, spec := range envSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", spec.Name, err)
		}
	}

	// Explicit Set has the highest precedence in viper, so runtime
	// overrides win over env vars and config files.
	for _, override := range overrides {
		for path, value := range flattenOverrides("", override) {
			v.Set(path, value)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil when
// Load has not been called.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "STRUCTURED")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)

	v.SetDefault("workers", 4)

	appData := gfconfig.GetAppDataDir(AppName)
	v.SetDefault("instances.base_dir", filepath.Join(appData, "instances"))
	v.SetDefault("results.db_path", filepath.Join(appData, "results.db"))
	v.SetDefault("results.runs_dir", filepath.Join(appData, "runs"))
}

// flattenOverrides converts nested override maps into dotted viper paths.
func flattenOverrides(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for key, value := range m {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			for p, v := range flattenOverrides(path, nested) {
				out[p] = v
			}
			continue
		}
		out[path] = value
	}
	return out
}

// envSpec maps an environment variable to a config path.
type envSpec struct {
	Name string
	Path string
}

func envSpecs() []envSpec {
	return []envSpec{
		{Name: "OPENSHOP_HOST", Path: "server.host"},
		{Name: "OPENSHOP_PORT", Path: "server.port"},
		{Name: "OPENSHOP_READ_TIMEOUT", Path: "server.read_timeout"},
		{Name: "OPENSHOP_WRITE_TIMEOUT", Path: "server.write_timeout"},
		{Name: "OPENSHOP_IDLE_TIMEOUT", Path: "server.idle_timeout"},
		{Name: "OPENSHOP_SHUTDOWN_TIMEOUT", Path: "server.shutdown_timeout"},
		{Name: "OPENSHOP_LOG_LEVEL", Path: "logging.level"},
		{Name: "OPENSHOP_LOG_PROFILE", Path: "logging.profile"},
		{Name: "OPENSHOP_METRICS_ENABLED", Path: "metrics.enabled"},
		{Name: "OPENSHOP_METRICS_PORT", Path: "metrics.port"},
		{Name: "OPENSHOP_HEALTH_ENABLED", Path: "health.enabled"},
		{Name: "OPENSHOP_DEBUG", Path: "debug.enabled"},
		{Name: "OPENSHOP_PPROF_ENABLED", Path: "debug.pprof_enabled"},
		{Name: "OPENSHOP_WORKERS", Path: "workers"},
		{Name: "OPENSHOP_INSTANCES_DIR", Path: "instances.base_dir"},
		{Name: "OPENSHOP_RESULTS_DB", Path: "results.db_path"},
		{Name: "OPENSHOP_RUNS_DIR", Path: "results.runs_dir"},
	}
}
