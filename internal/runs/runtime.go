package runs

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
	"github.com/JaimeStill/shiftmatch/internal/events"
	"github.com/JaimeStill/shiftmatch/internal/matches"
	"github.com/JaimeStill/shiftmatch/internal/shifts"
	"github.com/JaimeStill/shiftmatch/pkg/storage"
)

// EventSource supplies the events a run attributes.
type EventSource interface {
	Pending(ctx context.Context, filters events.Filters) ([]events.Event, error)
	Find(ctx context.Context, id uuid.UUID) (*events.Event, error)
}

// ShiftSource supplies the shift snapshot a run resolves against.
type ShiftSource interface {
	Snapshot(ctx context.Context, q shifts.SnapshotQuery) ([]attribution.Shift, error)
}

// Ledger records automatic attributions.
type Ledger interface {
	RecordAuto(ctx context.Context, cmd matches.AutoCommand) ([]matches.Match, error)
}

// Config parameterizes batch execution.
type Config struct {
	Engine  attribution.Config
	Workers int
	Actor   string
}

// Runtime bundles the dependencies that batch execution requires.
// It is constructed by higher-level composition code from Infrastructure and Domain systems.
type Runtime struct {
	Events  EventSource
	Shifts  ShiftSource
	Ledger  Ledger
	Storage storage.System
	Engine  *attribution.Resolver
	Workers int
	Actor   string
	Logger  *slog.Logger
}

// NewRuntime builds a Runtime from cfg and the domain systems it drives.
func NewRuntime(
	cfg Config,
	evts EventSource,
	shfts ShiftSource,
	ledger Ledger,
	store storage.System,
	logger *slog.Logger,
) *Runtime {
	return &Runtime{
		Events:  evts,
		Shifts:  shfts,
		Ledger:  ledger,
		Storage: store,
		Engine:  attribution.NewResolver(cfg.Engine),
		Workers: cfg.Workers,
		Actor:   cfg.Actor,
		Logger:  logger,
	}
}

func (rt *Runtime) workers() int {
	if rt.Workers > 0 {
		return rt.Workers
	}
	return runtime.NumCPU()
}
