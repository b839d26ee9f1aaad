package api

import (
	"github.com/JaimeStill/shiftmatch/internal/events"
	"github.com/JaimeStill/shiftmatch/internal/matches"
	"github.com/JaimeStill/shiftmatch/internal/runs"
	"github.com/JaimeStill/shiftmatch/internal/shifts"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Events  events.System
	Shifts  shifts.System
	Matches matches.System
	Runs    runs.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	eventsSystem := events.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	shiftsSystem := shifts.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
		runtime.Attribution.Engine.Location,
	)

	matchesSystem := matches.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	runsSystem := runs.New(
		runtime.Database.Connection(),
		runtime.Attribution,
		runtime.Logger,
		runtime.Pagination,
		runtime.Storage,
		eventsSystem,
		shiftsSystem,
		matchesSystem,
	)

	return &Domain{
		Events:  eventsSystem,
		Shifts:  shiftsSystem,
		Matches: matchesSystem,
		Runs:    runsSystem,
	}
}
