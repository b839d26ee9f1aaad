package api

import (
	"fmt"

	"github.com/JaimeStill/shiftmatch/internal/config"
	"github.com/JaimeStill/shiftmatch/internal/infrastructure"
	"github.com/JaimeStill/shiftmatch/internal/runs"
	"github.com/JaimeStill/shiftmatch/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination    pagination.Config
	MaxImportSize int64
	Attribution   runs.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) (*Runtime, error) {
	engine, err := cfg.Attribution.Engine()
	if err != nil {
		return nil, fmt.Errorf("attribution engine config: %w", err)
	}

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Pagination:    cfg.API.Pagination,
		MaxImportSize: cfg.API.MaxImportSizeBytes(),
		Attribution: runs.Config{
			Engine:  engine,
			Workers: cfg.Attribution.Workers,
			Actor:   cfg.Attribution.Actor,
		},
	}, nil
}
