package shifts

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
	"github.com/JaimeStill/shiftmatch/pkg/pagination"
)

// System defines the public contract for shift domain operations.
type System interface {
	Handler(maxImportSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Shift], error)

	Find(ctx context.Context, id uuid.UUID) (*Shift, error)

	// Import stores well-formed records and reports the rest as rejected.
	Import(ctx context.Context, records []Record) (*ImportResult, error)

	// Snapshot loads every shift for the given stores and date range in
	// import order, ready for resolution.
	Snapshot(ctx context.Context, q SnapshotQuery) ([]attribution.Shift, error)
}
