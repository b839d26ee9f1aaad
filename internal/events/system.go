package events

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/pkg/pagination"
)

// System defines the public contract for event domain operations.
type System interface {
	Handler(maxImportSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Event], error)

	Find(ctx context.Context, id uuid.UUID) (*Event, error)

	// Import stores well-formed records and reports the rest as rejected.
	// A malformed record never fails the whole import.
	Import(ctx context.Context, records []Record) (*ImportResult, error)

	// Pending returns every unattributed event matching filters, oldest first.
	// The Attributed filter is ignored.
	Pending(ctx context.Context, filters Filters) ([]Event, error)
}
