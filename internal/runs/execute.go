package runs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
	"github.com/JaimeStill/shiftmatch/internal/events"
	"github.com/JaimeStill/shiftmatch/internal/matches"
	"github.com/JaimeStill/shiftmatch/internal/shifts"
	"github.com/JaimeStill/shiftmatch/pkg/tracing"
)

var tracer = tracing.Tracer("runs")

type bucket struct {
	store string
	date  civil.Date
}

// Execute attributes every pending event in scope. All events resolve
// against one shift snapshot loaded up front, in parallel up to the
// configured worker count. Each event is persisted on its own, so a failure
// or cancellation leaves earlier attributions in place and a later run picks
// up where this one stopped.
//
// Per-event failures are reported in the outcomes. An error is returned only
// when the run could not start or was interrupted.
func Execute(ctx context.Context, rt *Runtime, runID uuid.UUID, cmd Command) (*Result, error) {
	ctx, span := tracer.Start(ctx, "runs.execute", trace.WithAttributes(
		attribute.String("run.id", runID.String()),
	))
	defer span.End()

	actor := cmd.actor(rt.Actor)

	pending, err := rt.Events.Pending(ctx, cmd.filters())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load pending events")
		return nil, fmt.Errorf("load pending events: %w", err)
	}

	result := &Result{Outcomes: make([]EventOutcome, len(pending))}
	valid := make([]int, 0, len(pending))

	for i, e := range pending {
		result.Outcomes[i] = EventOutcome{
			EventID:    e.ID,
			ExternalID: e.ExternalID,
			Kind:       e.Kind,
			StoreID:    e.StoreID,
			OccurredAt: e.OccurredAt,
		}
		if err := attribution.CheckEvent(e.Subject()); err != nil {
			rt.Logger.Warn("skipping malformed event", "event_id", e.ID, "external_id", e.ExternalID, "error", err)
			result.Outcomes[i].Outcome = OutcomeMalformed
			result.Outcomes[i].Error = err.Error()
			continue
		}
		valid = append(valid, i)
	}

	span.SetAttributes(
		attribute.Int("run.events", len(pending)),
		attribute.Int("run.workers", rt.workers()),
	)

	index, err := loadSnapshot(ctx, rt, pending, valid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load shift snapshot")
		return nil, err
	}

	var g errgroup.Group
	g.SetLimit(rt.workers())

	for _, i := range valid {
		g.Go(func() error {
			result.Outcomes[i] = resolveEvent(ctx, rt, runID, actor, pending[i], index, result.Outcomes[i])
			return nil
		})
	}
	_ = g.Wait()

	result.tally()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "interrupted")
		return result, fmt.Errorf("run interrupted: %w", err)
	}

	rt.Logger.Info(
		"attribution run finished",
		"run_id", runID,
		"scanned", result.Counts.Scanned,
		"attributed", result.Counts.Attributed,
		"unattributed", result.Counts.Unattributed,
		"skipped", result.Counts.Skipped,
		"malformed", result.Counts.Malformed,
		"failed", result.Counts.Failed,
		"matches_created", result.Counts.MatchesCreated,
	)
	return result, nil
}

// Preview resolves one event against the current roster without writing
// anything. Rejected candidates are returned with their reason.
func Preview(ctx context.Context, rt *Runtime, eventID uuid.UUID) (*attribution.Resolution, error) {
	ctx, span := tracer.Start(ctx, "runs.preview", trace.WithAttributes(
		attribute.String("event.id", eventID.String()),
	))
	defer span.End()

	e, err := rt.Events.Find(ctx, eventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	subject := e.Subject()
	if err := attribution.CheckEvent(subject); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	day := rt.Engine.EventDate(subject)
	snapshot, err := rt.Shifts.Snapshot(ctx, shifts.SnapshotQuery{
		StoreIDs: []string{strings.TrimSpace(e.StoreID)},
		From:     day,
		To:       day,
	})
	if err != nil {
		return nil, fmt.Errorf("load shift snapshot: %w", err)
	}

	res := rt.Engine.Resolve(subject, snapshot)
	return &res, nil
}

func loadSnapshot(ctx context.Context, rt *Runtime, pending []events.Event, valid []int) (map[bucket][]attribution.Shift, error) {
	index := make(map[bucket][]attribution.Shift)
	if len(valid) == 0 {
		return index, nil
	}

	stores := make([]string, 0)
	var from, to civil.Date
	for n, i := range valid {
		subject := pending[i].Subject()
		store := strings.TrimSpace(subject.StoreID)
		if !slices.Contains(stores, store) {
			stores = append(stores, store)
		}
		day := rt.Engine.EventDate(subject)
		if n == 0 || day.Before(from) {
			from = day
		}
		if n == 0 || day.After(to) {
			to = day
		}
	}
	slices.Sort(stores)

	snapshot, err := rt.Shifts.Snapshot(ctx, shifts.SnapshotQuery{
		StoreIDs: stores,
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, fmt.Errorf("load shift snapshot: %w", err)
	}

	for _, s := range snapshot {
		key := bucket{store: strings.TrimSpace(s.StoreID), date: s.Date}
		index[key] = append(index[key], s)
	}

	rt.Logger.Debug(
		"shift snapshot loaded",
		"stores", len(stores),
		"from", from.String(),
		"to", to.String(),
		"shifts", len(snapshot),
	)
	return index, nil
}

func resolveEvent(
	ctx context.Context,
	rt *Runtime,
	runID uuid.UUID,
	actor string,
	e events.Event,
	index map[bucket][]attribution.Shift,
	out EventOutcome,
) EventOutcome {
	ctx, span := tracer.Start(ctx, "runs.resolve_event", trace.WithAttributes(
		attribute.String("event.id", e.ID.String()),
		attribute.String("event.store_id", e.StoreID),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		out.Outcome = OutcomeFailed
		out.Error = err.Error()
		return out
	}

	subject := e.Subject()
	candidates := index[bucket{
		store: strings.TrimSpace(subject.StoreID),
		date:  rt.Engine.EventDate(subject),
	}]

	res := rt.Engine.Resolve(subject, candidates)
	for _, rej := range res.Rejections {
		rt.Logger.Debug(
			"candidate rejected",
			"event_id", e.ID,
			"shift_id", rej.ShiftID,
			"employee_name", rej.EmployeeName,
			"reason", rej.Reason,
		)
	}

	out.Proposals = res.Proposals
	span.SetAttributes(attribute.Int("event.proposals", len(res.Proposals)))

	if !res.Attributed() {
		out.Outcome = OutcomeUnattributed
		return out
	}

	created, err := rt.Ledger.RecordAuto(ctx, matches.AutoCommand{
		EventID:   e.ID,
		Proposals: res.Proposals,
		RunID:     &runID,
		Actor:     actor,
	})

	switch {
	case errors.Is(err, matches.ErrAlreadyAttributed):
		out.Outcome = OutcomeSkipped
	case err != nil:
		rt.Logger.Error("record attribution failed", "event_id", e.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "record attribution")
		out.Outcome = OutcomeFailed
		out.Error = err.Error()
	default:
		out.Outcome = OutcomeAttributed
		out.Matches = len(created)
	}
	return out
}
