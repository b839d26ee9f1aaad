package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
)

const (
	EnvAttributionExcludedShiftTypes     = "SHIFTMATCH_ATTRIBUTION_EXCLUDED_SHIFT_TYPES"
	EnvAttributionExcludedEmployeeGroups = "SHIFTMATCH_ATTRIBUTION_EXCLUDED_EMPLOYEE_GROUPS"
	EnvAttributionToleranceWindow        = "SHIFTMATCH_ATTRIBUTION_TOLERANCE_WINDOW"
	EnvAttributionReferenceTimezone      = "SHIFTMATCH_ATTRIBUTION_REFERENCE_TIMEZONE"
	EnvAttributionWorkers                = "SHIFTMATCH_ATTRIBUTION_WORKERS"
	EnvAttributionActor                  = "SHIFTMATCH_ATTRIBUTION_ACTOR"
)

// AttributionConfig holds the engine parameters: exclusion lists, tolerance
// window, reference timezone, and batch runner settings.
type AttributionConfig struct {
	ExcludedShiftTypes     []string `toml:"excluded_shift_types"`
	ExcludedEmployeeGroups []string `toml:"excluded_employee_groups"`
	ToleranceWindow        string   `toml:"tolerance_window"`
	ReferenceTimezone      string   `toml:"reference_timezone"`
	Workers                int      `toml:"workers"`
	Actor                  string   `toml:"actor"`
}

// ToleranceWindowDuration returns ToleranceWindow as a time.Duration.
func (c *AttributionConfig) ToleranceWindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.ToleranceWindow)
	return d
}

// Engine builds the resolver configuration. The reference timezone is
// loaded from the system tz database.
func (c *AttributionConfig) Engine() (attribution.Config, error) {
	loc, err := time.LoadLocation(c.ReferenceTimezone)
	if err != nil {
		return attribution.Config{}, fmt.Errorf("load reference_timezone %q: %w", c.ReferenceTimezone, err)
	}

	return attribution.Config{
		Exclusions: attribution.Exclusions{
			ShiftTypes:     c.ExcludedShiftTypes,
			EmployeeGroups: c.ExcludedEmployeeGroups,
		},
		Window:   c.ToleranceWindowDuration(),
		Location: loc,
	}, nil
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AttributionConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Exclusion lists are replaced
// wholesale when the overlay sets them.
func (c *AttributionConfig) Merge(overlay *AttributionConfig) {
	if overlay.ExcludedShiftTypes != nil {
		c.ExcludedShiftTypes = overlay.ExcludedShiftTypes
	}
	if overlay.ExcludedEmployeeGroups != nil {
		c.ExcludedEmployeeGroups = overlay.ExcludedEmployeeGroups
	}
	if overlay.ToleranceWindow != "" {
		c.ToleranceWindow = overlay.ToleranceWindow
	}
	if overlay.ReferenceTimezone != "" {
		c.ReferenceTimezone = overlay.ReferenceTimezone
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.Actor != "" {
		c.Actor = overlay.Actor
	}
}

func (c *AttributionConfig) loadDefaults() {
	if c.ToleranceWindow == "" {
		c.ToleranceWindow = "1h"
	}
	if c.ReferenceTimezone == "" {
		c.ReferenceTimezone = "Europe/Rome"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Actor == "" {
		c.Actor = "system:auto-attribution"
	}
}

func (c *AttributionConfig) loadEnv() {
	if v := os.Getenv(EnvAttributionExcludedShiftTypes); v != "" {
		c.ExcludedShiftTypes = splitList(v)
	}
	if v := os.Getenv(EnvAttributionExcludedEmployeeGroups); v != "" {
		c.ExcludedEmployeeGroups = splitList(v)
	}
	if v := os.Getenv(EnvAttributionToleranceWindow); v != "" {
		c.ToleranceWindow = v
	}
	if v := os.Getenv(EnvAttributionReferenceTimezone); v != "" {
		c.ReferenceTimezone = v
	}
	if v := os.Getenv(EnvAttributionWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvAttributionActor); v != "" {
		c.Actor = v
	}
}

func (c *AttributionConfig) validate() error {
	d, err := time.ParseDuration(c.ToleranceWindow)
	if err != nil {
		return fmt.Errorf("invalid tolerance_window: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("tolerance_window must not be negative")
	}
	if _, err := time.LoadLocation(c.ReferenceTimezone); err != nil {
		return fmt.Errorf("invalid reference_timezone: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
