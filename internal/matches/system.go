package matches

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/pkg/pagination"
)

// System defines the public contract for the match ledger.
type System interface {
	Handler() *Handler

	// RecordAuto persists the proposals for an event as AUTO matches and
	// returns them. It claims the event atomically: if the event already has
	// any match, or a concurrent writer claimed it, nothing is written and
	// ErrAlreadyAttributed is returned. Empty proposals write nothing.
	RecordAuto(ctx context.Context, cmd AutoCommand) ([]Match, error)

	// Override replaces the employee on a match, marks it MANUAL, and appends
	// an audit line recording the previous values.
	Override(ctx context.Context, id uuid.UUID, cmd OverrideCommand) (*Match, error)

	CreateManual(ctx context.Context, cmd ManualCommand) (*Match, error)

	// Reset removes the AUTO matches of an event and, when no match remains,
	// releases the event so the next batch run attributes it again.
	Reset(ctx context.Context, eventID uuid.UUID, cmd ResetCommand) (*ResetResult, error)

	Find(ctx context.Context, id uuid.UUID) (*Match, error)

	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Match, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Match], error)

	EventSummary(
		ctx context.Context,
		page pagination.PageRequest,
		filters SummaryFilters,
	) (*pagination.PageResult[EventSummary], error)

	EmployeeTally(
		ctx context.Context,
		page pagination.PageRequest,
		filters SummaryFilters,
	) (*pagination.PageResult[EmployeeTally], error)
}
