package matches

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

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
}

// New creates a match ledger implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "matches"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

// claimAuto takes the event for automatic attribution. It inserts nothing
// when the event already has matches or is claimed by another writer.
const claimAuto = `
	INSERT INTO public.event_attributions(event_id, method, run_id, attributed_by)
	SELECT $1::uuid, 'AUTO', $2::uuid, $3
	WHERE NOT EXISTS (SELECT 1 FROM public.matches WHERE event_id = $1::uuid)
	ON CONFLICT (event_id) DO NOTHING`

const claimManual = `
	INSERT INTO public.event_attributions(event_id, method, attributed_by)
	VALUES ($1, 'MANUAL', $2)
	ON CONFLICT (event_id) DO NOTHING`

const insertMatch = `
	INSERT INTO public.matches(
		id, event_id, shift_id, run_id, employee_name, employee_key,
		confidence, method, created_by, notes
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (r *repo) RecordAuto(ctx context.Context, cmd AutoCommand) ([]Match, error) {
	proposals := uniqueProposals(cmd.Proposals)
	if len(proposals) == 0 {
		return []Match{}, nil
	}

	actor := strings.TrimSpace(cmd.Actor)
	if actor == "" {
		return nil, fmt.Errorf("%w: actor required", ErrInvalidInput)
	}

	ids, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) ([]uuid.UUID, error) {
		claimed, err := repository.ExecAffected(ctx, tx, claimAuto, cmd.EventID, cmd.RunID, actor)
		if err != nil {
			if repository.IsForeignKeyViolation(err) {
				return nil, ErrEventNotFound
			}
			return nil, fmt.Errorf("claim event: %w", err)
		}
		if claimed == 0 {
			return nil, ErrAlreadyAttributed
		}

		ids := make([]uuid.UUID, 0, len(proposals))
		for _, p := range proposals {
			id := uuid.New()
			name := attribution.NewEmployeeName(p.EmployeeName)
			err := repository.ExecExpectOne(
				ctx, tx, insertMatch,
				id, cmd.EventID, p.ShiftID, cmd.RunID,
				name.String(), name.Key(),
				string(p.Confidence), string(attribution.MethodAuto),
				actor, "",
			)
			if err != nil {
				if repository.IsForeignKeyViolation(err) {
					return nil, ErrReferenceNotFound
				}
				return nil, fmt.Errorf("insert match for %s: %w", name, err)
			}
			ids = append(ids, id)
		}
		return ids, nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyAttributed) {
			r.logger.Debug("event already attributed", "event_id", cmd.EventID)
			return nil, err
		}
		return nil, repository.MapError(err, ErrNotFound, ErrAlreadyAttributed)
	}

	matches, err := r.ListByEvent(ctx, cmd.EventID)
	if err != nil {
		return nil, err
	}

	r.logger.Info("event attributed", "event_id", cmd.EventID, "matches", len(ids), "actor", actor)
	return matches, nil
}

const updateOverride = `
	UPDATE public.matches
	SET employee_name = $2,
		employee_key = $3,
		confidence = 'MANUAL',
		method = 'MANUAL',
		created_by = $5,
		updated_at = NOW(),
		notes = $4
	WHERE id = $1`

func (r *repo) Override(ctx context.Context, id uuid.UUID, cmd OverrideCommand) (*Match, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	name := attribution.NewEmployeeName(cmd.EmployeeName)
	actor := strings.TrimSpace(cmd.Actor)

	m, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Match, error) {
		q, args := query.NewBuilder(projection).BuildSingle("ID", id)
		prev, err := repository.QueryOne(ctx, tx, q+" FOR UPDATE OF m", args, scanMatch)
		if err != nil {
			return Match{}, err
		}

		notes := appendNote(prev.Notes, overrideNote(prev, name, cmd))
		if err := repository.ExecExpectOne(ctx, tx, updateOverride, id, name.String(), name.Key(), notes, actor); err != nil {
			return Match{}, err
		}

		return repository.QueryOne(ctx, tx, q, args, scanMatch)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"match overridden",
		"id", id,
		"event_id", m.EventID,
		"employee_name", m.EmployeeName,
		"actor", actor,
	)
	return &m, nil
}

func (r *repo) CreateManual(ctx context.Context, cmd ManualCommand) (*Match, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	name := attribution.NewEmployeeName(cmd.EmployeeName)
	actor := strings.TrimSpace(cmd.Actor)

	m, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Match, error) {
		if _, err := repository.ExecAffected(ctx, tx, claimManual, cmd.EventID, actor); err != nil {
			if repository.IsForeignKeyViolation(err) {
				return Match{}, ErrEventNotFound
			}
			return Match{}, fmt.Errorf("claim event: %w", err)
		}

		id := uuid.New()
		err := repository.ExecExpectOne(
			ctx, tx, insertMatch,
			id, cmd.EventID, cmd.ShiftID, nil,
			name.String(), name.Key(),
			string(attribution.ConfidenceManual), string(attribution.MethodManual),
			actor, strings.TrimSpace(cmd.Notes),
		)
		if err != nil {
			if repository.IsForeignKeyViolation(err) {
				return Match{}, ErrReferenceNotFound
			}
			return Match{}, err
		}

		q, args := query.NewBuilder(projection).BuildSingle("ID", id)
		return repository.QueryOne(ctx, tx, q, args, scanMatch)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"manual match created",
		"id", m.ID,
		"event_id", m.EventID,
		"employee_name", m.EmployeeName,
		"actor", actor,
	)
	return &m, nil
}

const (
	eventExists    = `SELECT EXISTS (SELECT 1 FROM public.events WHERE id = $1)`
	deleteAuto     = `DELETE FROM public.matches WHERE event_id = $1 AND method = 'AUTO'`
	countRemaining = `SELECT COUNT(*) FROM public.matches WHERE event_id = $1`
	releaseClaim   = `DELETE FROM public.event_attributions WHERE event_id = $1`
)

func (r *repo) Reset(ctx context.Context, eventID uuid.UUID, cmd ResetCommand) (*ResetResult, error) {
	actor := strings.TrimSpace(cmd.Actor)
	if actor == "" {
		return nil, fmt.Errorf("%w: actor required", ErrInvalidInput)
	}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ResetResult, error) {
		res := ResetResult{EventID: eventID}

		var exists bool
		if err := tx.QueryRowContext(ctx, eventExists, eventID).Scan(&exists); err != nil {
			return res, err
		}
		if !exists {
			return res, ErrEventNotFound
		}

		removed, err := repository.ExecAffected(ctx, tx, deleteAuto, eventID)
		if err != nil {
			return res, fmt.Errorf("delete auto matches: %w", err)
		}
		res.Removed = int(removed)

		if err := tx.QueryRowContext(ctx, countRemaining, eventID).Scan(&res.Remaining); err != nil {
			return res, err
		}

		if res.Remaining == 0 {
			if _, err := repository.ExecAffected(ctx, tx, releaseClaim, eventID); err != nil {
				return res, fmt.Errorf("release claim: %w", err)
			}
			res.Released = true
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info(
		"event attribution reset",
		"event_id", eventID,
		"removed", result.Removed,
		"remaining", result.Remaining,
		"released", result.Released,
		"actor", actor,
	)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Match, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	m, err := repository.QueryOne(ctx, r.db, q, args, scanMatch)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &m, nil
}

func (r *repo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Match, error) {
	q, args := query.NewBuilder(
		projection,
		query.SortField{Field: "CreatedAt"},
		query.SortField{Field: "EmployeeKey"},
	).
		WhereEquals("EventID", eventID).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanMatch)
	if err != nil {
		return nil, fmt.Errorf("query event matches: %w", err)
	}
	return items, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Match], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "EmployeeName", "StoreID", "Notes")
	filters.Apply(qb)

	return listPage(ctx, r.db, qb, page, scanMatch, "matches")
}

func (r *repo) EventSummary(
	ctx context.Context,
	page pagination.PageRequest,
	filters SummaryFilters,
) (*pagination.PageResult[EventSummary], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(summaryProjection, query.SortField{Field: "OccurredAt", Descending: true}).
		WhereSearch(page.Search, "StoreID", "Kind")
	filters.Apply(qb)
	qb.GroupBy("EventID")

	return listPage(ctx, r.db, qb, page, scanSummary, "event summaries")
}

func (r *repo) EmployeeTally(
	ctx context.Context,
	page pagination.PageRequest,
	filters SummaryFilters,
) (*pagination.PageResult[EmployeeTally], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(
		tallyProjection,
		query.SortField{Field: "Events", Descending: true},
		query.SortField{Field: "EmployeeKey"},
	)
	filters.Apply(qb)
	qb.GroupBy("EmployeeKey")

	return listPage(ctx, r.db, qb, page, scanTally, "employee tally")
}

func listPage[T any](
	ctx context.Context,
	db *sql.DB,
	qb *query.Builder,
	page pagination.PageRequest,
	scan repository.ScanFunc[T],
	label string,
) (*pagination.PageResult[T], error) {
	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count %s: %w", label, err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, db, pageSQL, pageArgs, scan)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", label, err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}
