package shifts

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
	"github.com/JaimeStill/shiftmatch/pkg/pagination"
	"github.com/JaimeStill/shiftmatch/pkg/query"
	"github.com/JaimeStill/shiftmatch/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
	loc        *time.Location
}

// New creates a shift repository implementing the System interface.
// loc is the reference timezone for wall-clock bounds in imported records.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	loc *time.Location,
) System {
	if loc == nil {
		loc = time.UTC
	}
	return &repo{
		db:         db,
		logger:     logger.With("system", "shifts"),
		pagination: pagination,
		loc:        loc,
	}
}

func (r *repo) Handler(maxImportSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxImportSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Shift], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "EmployeeName", "StoreID", "ShiftType", "EmployeeGroup")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count shifts: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanShift)
	if err != nil {
		return nil, fmt.Errorf("query shifts: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Shift, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	s, err := repository.QueryOne(ctx, r.db, q, args, scanShift)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &s, nil
}

func (r *repo) Snapshot(ctx context.Context, q SnapshotQuery) ([]attribution.Shift, error) {
	if len(q.StoreIDs) == 0 {
		return []attribution.Shift{}, nil
	}

	stores := make([]any, len(q.StoreIDs))
	for i, id := range q.StoreIDs {
		stores[i] = id
	}

	qb := query.
		NewBuilder(projection, query.SortField{Field: "s.seq"}).
		WhereIn("StoreID", stores).
		WhereRange("Date", q.From.String(), q.To.String())

	stmt, args := qb.Build()
	rows, err := repository.QueryMany(ctx, r.db, stmt, args, scanShift)
	if err != nil {
		return nil, fmt.Errorf("query shift snapshot: %w", err)
	}

	out := make([]attribution.Shift, len(rows))
	for i, s := range rows {
		out[i] = s.Candidate()
	}

	r.logger.Debug(
		"shift snapshot loaded",
		"stores", len(q.StoreIDs),
		"from", q.From,
		"to", q.To,
		"shifts", len(out),
	)
	return out, nil
}

const insertShift = `
	INSERT INTO shifts(id, external_ref, store_id, shift_date, employee_name,
		scheduled_start, scheduled_end, shift_type, employee_group, imported_at)
	VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, COALESCE($10, NOW()))`

func (r *repo) Import(ctx context.Context, records []Record) (*ImportResult, error) {
	result := &ImportResult{Rejected: []Rejected{}}

	valid := make([]Shift, 0, len(records))
	for i, rec := range records {
		s, err := rec.Parse(r.loc)
		if err != nil {
			r.logger.Warn("rejecting malformed shift", "index", i, "external_ref", rec.ExternalRef, "error", err)
			result.Rejected = append(result.Rejected, Rejected{
				Index:       i,
				ExternalRef: rec.ExternalRef,
				Reason:      err.Error(),
			})
			continue
		}
		valid = append(valid, s)
	}

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		for _, s := range valid {
			if _, err := tx.ExecContext(
				ctx, insertShift,
				uuid.New(),
				s.ExternalRef,
				s.StoreID,
				s.Date.String(),
				s.EmployeeName,
				s.ScheduledStart,
				s.ScheduledEnd,
				s.ShiftType,
				s.EmployeeGroup,
				s.ImportedAt,
			); err != nil {
				return struct{}{}, fmt.Errorf("insert shift for %s on %s: %w", s.StoreID, s.Date, err)
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	result.Imported = len(valid)

	r.logger.Info("shifts imported", "imported", result.Imported, "rejected", len(result.Rejected))
	return result, nil
}
