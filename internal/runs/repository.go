package runs

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
	"github.com/JaimeStill/shiftmatch/pkg/pagination"
	"github.com/JaimeStill/shiftmatch/pkg/query"
	"github.com/JaimeStill/shiftmatch/pkg/repository"
	"github.com/JaimeStill/shiftmatch/pkg/storage"
)

type repo struct {
	db         *sql.DB
	rt         *Runtime
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a run repository implementing the System interface.
func New(
	db *sql.DB,
	cfg Config,
	logger *slog.Logger,
	pagination pagination.Config,
	store storage.System,
	evts EventSource,
	shfts ShiftSource,
	ledger Ledger,
) System {
	rt := NewRuntime(cfg, evts, shfts, ledger, store, logger.With("runtime", "attribution"))
	return &repo{
		db:         db,
		rt:         rt,
		logger:     logger.With("system", "runs"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

const insertRun = `
	INSERT INTO public.attribution_runs(id, actor, store_id, kind, from_at, to_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING started_at`

const finishRun = `
	UPDATE public.attribution_runs
	SET status = $2,
		scanned = $3,
		attributed = $4,
		unattributed = $5,
		skipped = $6,
		malformed = $7,
		failed = $8,
		matches_created = $9,
		report_key = $10,
		error = $11,
		completed_at = $12
	WHERE id = $1`

func (r *repo) Execute(ctx context.Context, cmd Command) (*Report, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	run := Run{
		ID:      uuid.New(),
		Actor:   cmd.actor(r.rt.Actor),
		Status:  StatusRunning,
		StoreID: cmd.StoreID,
		Kind:    cmd.Kind,
		From:    cmd.From,
		To:      cmd.To,
	}

	err := r.db.QueryRowContext(
		ctx, insertRun,
		run.ID, run.Actor, run.StoreID, run.Kind, run.From, run.To,
	).Scan(&run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	r.logger.Info("attribution run started", "run_id", run.ID, "actor", run.Actor)

	result, execErr := Execute(ctx, r.rt, run.ID, cmd)

	report := settle(run, result, execErr, time.Now().UTC())

	// The run record and archive are written even when the caller's context
	// was cancelled mid-run.
	persistCtx := context.WithoutCancel(ctx)
	r.archive(persistCtx, &report)

	if err := r.finish(persistCtx, &report.Run); err != nil {
		return nil, errors.Join(execErr, err)
	}

	if execErr != nil {
		r.logger.Error("attribution run failed", "run_id", run.ID, "error", execErr)
		return &report, execErr
	}
	return &report, nil
}

func (r *repo) archive(ctx context.Context, report *Report) {
	if !storage.Enabled(r.rt.Storage) {
		return
	}

	key := r.rt.Storage.Key(report.Run.ID.String() + ".json")
	report.Run.ReportKey = &key

	data, err := json.Marshal(report)
	if err != nil {
		r.logger.Warn("encode run report failed", "run_id", report.Run.ID, "error", err)
		report.Run.ReportKey = nil
		return
	}

	if err := r.rt.Storage.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		r.logger.Warn("archive run report failed", "run_id", report.Run.ID, "key", key, "error", err)
		report.Run.ReportKey = nil
		return
	}

	r.logger.Info("run report archived", "run_id", report.Run.ID, "key", key)
}

func (r *repo) finish(ctx context.Context, run *Run) error {
	err := repository.ExecExpectOne(
		ctx, r.db, finishRun,
		run.ID,
		string(run.Status),
		run.Scanned,
		run.Attributed,
		run.Unattributed,
		run.Skipped,
		run.Malformed,
		run.Failed,
		run.MatchesCreated,
		run.ReportKey,
		run.Error,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}
	return nil
}

func (r *repo) Preview(ctx context.Context, eventID uuid.UUID) (*attribution.Resolution, error) {
	return Preview(ctx, r.rt, eventID)
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Run, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	run, err := repository.QueryOne(ctx, r.db, q, args, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &run, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Run], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Actor", "StoreID", "Kind")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Report(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	run, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.ReportKey == nil {
		return nil, ErrReportUnavailable
	}

	rc, err := r.rt.Storage.Download(ctx, *run.ReportKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrDisabled) {
			return nil, ErrReportUnavailable
		}
		return nil, fmt.Errorf("download run report: %w", err)
	}
	return rc, nil
}
