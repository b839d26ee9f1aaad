package events

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/pkg/pagination"
	"github.com/JaimeStill/shiftmatch/pkg/query"
	"github.com/JaimeStill/shiftmatch/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an event repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "events"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxImportSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxImportSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Event], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "ExternalID", "StoreID", "Kind")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Event, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	e, err := repository.QueryOne(ctx, r.db, q, args, scanEvent)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &e, nil
}

func (r *repo) Pending(ctx context.Context, filters Filters) ([]Event, error) {
	unattributed := false
	filters.Attributed = &unattributed

	qb := query.NewBuilder(
		projection,
		query.SortField{Field: "OccurredAt"},
		query.SortField{Field: "ID"},
	)
	filters.Apply(qb)

	q, args := qb.Build()
	items, err := repository.QueryMany(ctx, r.db, q, args, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	return items, nil
}

const insertEvent = `
	INSERT INTO events(id, external_id, kind, store_id, occurred_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (kind, external_id) DO NOTHING`

func (r *repo) Import(ctx context.Context, records []Record) (*ImportResult, error) {
	result := &ImportResult{Rejected: []Rejected{}}

	valid := make([]parsed, 0, len(records))
	for i, rec := range records {
		p, err := rec.parse()
		if err != nil {
			r.logger.Warn("rejecting malformed event", "index", i, "external_id", rec.ExternalID, "error", err)
			result.Rejected = append(result.Rejected, Rejected{
				Index:      i,
				ExternalID: rec.ExternalID,
				Reason:     err.Error(),
			})
			continue
		}
		valid = append(valid, p)
	}

	imported, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int, error) {
		n := 0
		for _, p := range valid {
			affected, err := repository.ExecAffected(
				ctx, tx, insertEvent,
				uuid.New(), p.externalID, p.kind, p.storeID, p.occurredAt,
			)
			if err != nil {
				return 0, fmt.Errorf("insert event %s/%s: %w", p.kind, p.externalID, err)
			}
			n += int(affected)
		}
		return n, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	result.Imported = imported
	result.Duplicates = len(valid) - imported

	r.logger.Info(
		"events imported",
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"rejected", len(result.Rejected),
	)
	return result, nil
}
