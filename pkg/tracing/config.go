package tracing

import (
	"fmt"
	"os"
	"strconv"
)

// Config controls tracer provider initialization.
type Config struct {
	Enabled        bool   `toml:"enabled"`
	ServiceName    string `toml:"service_name"`
	ServiceVersion string `toml:"service_version"`
	// Stdout exports spans to standard output. Without it spans are recorded
	// but not exported.
	Stdout bool `toml:"stdout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled        string
	ServiceName    string
	ServiceVersion string
	Stdout         string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Stdout {
		c.Stdout = true
	}
	if overlay.ServiceName != "" {
		c.ServiceName = overlay.ServiceName
	}
	if overlay.ServiceVersion != "" {
		c.ServiceVersion = overlay.ServiceVersion
	}
}

func (c *Config) loadDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "shiftmatch"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
	}
	if env.ServiceName != "" {
		if v := os.Getenv(env.ServiceName); v != "" {
			c.ServiceName = v
		}
	}
	if env.ServiceVersion != "" {
		if v := os.Getenv(env.ServiceVersion); v != "" {
			c.ServiceVersion = v
		}
	}
	if env.Stdout != "" {
		if v := os.Getenv(env.Stdout); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Stdout = b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Enabled && c.ServiceName == "" {
		return fmt.Errorf("service_name required")
	}
	return nil
}
