package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/shiftmatch/pkg/formatting"
	"github.com/JaimeStill/shiftmatch/pkg/middleware"
	"github.com/JaimeStill/shiftmatch/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "SHIFTMATCH_CORS_ENABLED",
	Origins:          "SHIFTMATCH_CORS_ORIGINS",
	AllowedMethods:   "SHIFTMATCH_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "SHIFTMATCH_CORS_ALLOWED_HEADERS",
	AllowCredentials: "SHIFTMATCH_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "SHIFTMATCH_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "SHIFTMATCH_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "SHIFTMATCH_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, pagination, and import size settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxImportSize string                `toml:"max_import_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
}

// MaxImportSizeBytes returns the request body limit for bulk import endpoints.
func (c *APIConfig) MaxImportSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxImportSize)
	if err != nil {
		return 10 * 1024 * 1024
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if _, err := formatting.ParseBytes(c.MaxImportSize); err != nil {
		return fmt.Errorf("invalid max_import_size: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxImportSize != "" {
		c.MaxImportSize = overlay.MaxImportSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxImportSize == "" {
		c.MaxImportSize = "10MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("SHIFTMATCH_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("SHIFTMATCH_API_MAX_IMPORT_SIZE"); v != "" {
		c.MaxImportSize = v
	}
}
