package runs

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
	"github.com/JaimeStill/shiftmatch/pkg/pagination"
)

// System defines the public contract for batch attribution runs.
type System interface {
	Handler() *Handler

	// Execute performs and records one batch run. The returned report is
	// nil only when the run could not be recorded at all.
	Execute(ctx context.Context, cmd Command) (*Report, error)

	Preview(ctx context.Context, eventID uuid.UUID) (*attribution.Resolution, error)

	Find(ctx context.Context, id uuid.UUID) (*Run, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Run], error)

	// Report opens the archived JSON report of a run.
	Report(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
}
