// Package config loads the service configuration from TOML files and
// SHIFTMATCH_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/shiftmatch/pkg/database"
	"github.com/JaimeStill/shiftmatch/pkg/storage"
	"github.com/JaimeStill/shiftmatch/pkg/tracing"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvShiftmatchEnv             = "SHIFTMATCH_ENV"
	EnvShiftmatchShutdownTimeout = "SHIFTMATCH_SHUTDOWN_TIMEOUT"
	EnvShiftmatchVersion         = "SHIFTMATCH_VERSION"
	EnvShiftmatchLogLevel        = "SHIFTMATCH_LOG_LEVEL"
)

var databaseEnv = &database.Env{
	Host:            "SHIFTMATCH_DB_HOST",
	Port:            "SHIFTMATCH_DB_PORT",
	Name:            "SHIFTMATCH_DB_NAME",
	User:            "SHIFTMATCH_DB_USER",
	Password:        "SHIFTMATCH_DB_PASSWORD",
	SSLMode:         "SHIFTMATCH_DB_SSL_MODE",
	MaxOpenConns:    "SHIFTMATCH_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "SHIFTMATCH_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "SHIFTMATCH_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "SHIFTMATCH_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Enabled:          "SHIFTMATCH_STORAGE_ENABLED",
	ContainerName:    "SHIFTMATCH_STORAGE_CONTAINER_NAME",
	ConnectionString: "SHIFTMATCH_STORAGE_CONNECTION_STRING",
	AccountURL:       "SHIFTMATCH_STORAGE_ACCOUNT_URL",
	Prefix:           "SHIFTMATCH_STORAGE_PREFIX",
}

var tracingEnv = &tracing.Env{
	Enabled:        "SHIFTMATCH_TRACING_ENABLED",
	ServiceName:    "SHIFTMATCH_TRACING_SERVICE_NAME",
	ServiceVersion: "SHIFTMATCH_VERSION",
	Stdout:         "SHIFTMATCH_TRACING_STDOUT",
}

// Config is the root configuration for the attribution service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	API             APIConfig         `toml:"api"`
	Attribution     AttributionConfig `toml:"attribution"`
	Tracing         tracing.Config    `toml:"tracing"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
	LogLevel        string            `toml:"log_level"`
}

// Env returns the SHIFTMATCH_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvShiftmatchEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	_ = lvl.UnmarshalText([]byte(c.LogLevel))
	return lvl
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	return LoadFrom(BaseConfigFile)
}

// LoadFrom behaves like Load with an explicit base file path. The overlay is
// resolved next to the base file.
func LoadFrom(base string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(base); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Attribution.Merge(&overlay.Attribution)
	c.Tracing.Merge(&overlay.Tracing)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Attribution.Finalize(); err != nil {
		return fmt.Errorf("attribution: %w", err)
	}
	if c.Tracing.ServiceVersion == "" {
		c.Tracing.ServiceVersion = c.Version
	}
	if err := c.Tracing.Finalize(tracingEnv); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvShiftmatchShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvShiftmatchVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvShiftmatchLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(base string) string {
	env := os.Getenv(EnvShiftmatchEnv)
	if env == "" {
		return ""
	}

	path := filepath.Join(filepath.Dir(base), fmt.Sprintf(OverlayConfigPattern, env))
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
