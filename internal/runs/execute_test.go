package runs_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
	"github.com/JaimeStill/shiftmatch/internal/events"
	"github.com/JaimeStill/shiftmatch/internal/matches"
	"github.com/JaimeStill/shiftmatch/internal/runs"
	"github.com/JaimeStill/shiftmatch/internal/shifts"
	"github.com/JaimeStill/shiftmatch/pkg/storage"
)

type fakeEvents struct {
	pending   []events.Event
	err       error
	gotFilter events.Filters
}

func (f *fakeEvents) Pending(_ context.Context, filters events.Filters) ([]events.Event, error) {
	f.gotFilter = filters
	return f.pending, f.err
}

func (f *fakeEvents) Find(_ context.Context, id uuid.UUID) (*events.Event, error) {
	for _, e := range f.pending {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, events.ErrNotFound
}

type fakeShifts struct {
	shifts  []attribution.Shift
	queries []shifts.SnapshotQuery
}

func (f *fakeShifts) Snapshot(_ context.Context, q shifts.SnapshotQuery) ([]attribution.Shift, error) {
	f.queries = append(f.queries, q)
	return f.shifts, nil
}

type fakeLedger struct {
	mu       sync.Mutex
	recorded map[uuid.UUID]matches.AutoCommand
	fail     map[uuid.UUID]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		recorded: make(map[uuid.UUID]matches.AutoCommand),
		fail:     make(map[uuid.UUID]error),
	}
}

func (f *fakeLedger) RecordAuto(_ context.Context, cmd matches.AutoCommand) ([]matches.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.fail[cmd.EventID]; ok {
		return nil, err
	}
	if _, ok := f.recorded[cmd.EventID]; ok {
		return nil, matches.ErrAlreadyAttributed
	}
	f.recorded[cmd.EventID] = cmd

	out := make([]matches.Match, len(cmd.Proposals))
	for i, p := range cmd.Proposals {
		out[i] = matches.Match{EventID: cmd.EventID, EmployeeName: p.EmployeeName, Confidence: p.Confidence}
	}
	return out, nil
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func event(external, store, occurred string) events.Event {
	return events.Event{
		ID:         uuid.New(),
		ExternalID: external,
		Kind:       "wrong_order",
		StoreID:    store,
		OccurredAt: *at(occurred),
	}
}

func shift(store string, day civil.Date, name, start, end, shiftType string) attribution.Shift {
	return attribution.Shift{
		ID:             uuid.New(),
		StoreID:        store,
		Date:           day,
		EmployeeName:   name,
		ScheduledStart: at(start),
		ScheduledEnd:   at(end),
		ShiftType:      shiftType,
	}
}

var march1 = civil.Date{Year: 2024, Month: time.March, Day: 1}

func newRuntime(t *testing.T, ev *fakeEvents, sh *fakeShifts, ledger *fakeLedger) *runs.Runtime {
	t.Helper()

	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.New(&storage.Config{}, logger)
	if err != nil {
		t.Fatal(err)
	}

	return runs.NewRuntime(
		runs.Config{
			Engine: attribution.Config{
				Exclusions: attribution.Exclusions{ShiftTypes: []string{"Unpaid absence"}},
				Window:     time.Hour,
				Location:   loc,
			},
			Workers: 2,
			Actor:   "system:auto-attribution",
		},
		ev, sh, ledger, store, logger,
	)
}

func outcomeOf(t *testing.T, result *runs.Result, id uuid.UUID) runs.EventOutcome {
	t.Helper()
	for _, o := range result.Outcomes {
		if o.EventID == id {
			return o
		}
	}
	t.Fatalf("no outcome for %s", id)
	return runs.EventOutcome{}
}

func TestExecuteOutcomes(t *testing.T) {
	attributed := event("ord-1", "S1", "2024-03-01T12:30:00Z")
	unmatched := event("ord-2", "S2", "2024-03-01T12:30:00Z")
	skipped := event("ord-3", "S1", "2024-03-01T13:00:00Z")
	failing := event("ord-4", "S1", "2024-03-01T14:00:00Z")
	malformed := event("ord-5", "  ", "2024-03-01T14:00:00Z")

	ev := &fakeEvents{pending: []events.Event{attributed, unmatched, skipped, failing, malformed}}
	sh := &fakeShifts{shifts: []attribution.Shift{
		shift("S1", march1, "Maria Rossi", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z", ""),
		shift("S1", march1, "Luca Bianchi", "2024-03-01T13:20:00Z", "2024-03-01T17:00:00Z", ""),
		shift("S1", march1, "Anna Neri", "2024-03-01T11:00:00Z", "2024-03-01T15:00:00Z", "Unpaid absence"),
	}}
	ledger := newFakeLedger()
	ledger.recorded[skipped.ID] = matches.AutoCommand{EventID: skipped.ID}
	ledger.fail[failing.ID] = errors.New("connection reset")

	rt := newRuntime(t, ev, sh, ledger)
	runID := uuid.New()
	store := "S1"

	result, err := runs.Execute(context.Background(), rt, runID, runs.Command{StoreID: &store})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if ev.gotFilter.StoreID == nil || *ev.gotFilter.StoreID != "S1" {
		t.Errorf("pending filter = %+v", ev.gotFilter)
	}

	if len(sh.queries) != 1 {
		t.Fatalf("snapshot queries = %d, want one shared snapshot", len(sh.queries))
	}
	q := sh.queries[0]
	if len(q.StoreIDs) != 2 || q.StoreIDs[0] != "S1" || q.StoreIDs[1] != "S2" {
		t.Errorf("snapshot stores = %v", q.StoreIDs)
	}
	if q.From != march1 || q.To != march1 {
		t.Errorf("snapshot range = %s..%s", q.From, q.To)
	}

	want := runs.Counts{
		Scanned:        5,
		Attributed:     1,
		Unattributed:   1,
		Skipped:        1,
		Malformed:      1,
		Failed:         1,
		MatchesCreated: 2,
	}
	if result.Counts != want {
		t.Errorf("counts = %+v, want %+v", result.Counts, want)
	}

	o := outcomeOf(t, result, attributed.ID)
	if o.Outcome != runs.OutcomeAttributed || o.Matches != 2 {
		t.Errorf("attributed outcome = %+v", o)
	}
	cmd := ledger.recorded[attributed.ID]
	if cmd.RunID == nil || *cmd.RunID != runID || cmd.Actor != "system:auto-attribution" {
		t.Errorf("recorded command = %+v", cmd)
	}
	confidence := map[string]attribution.Confidence{}
	for _, p := range cmd.Proposals {
		confidence[p.EmployeeName] = p.Confidence
	}
	if confidence["Maria Rossi"] != attribution.ConfidenceHigh || confidence["Luca Bianchi"] != attribution.ConfidenceMedium {
		t.Errorf("proposals = %+v", cmd.Proposals)
	}
	if _, ok := confidence["Anna Neri"]; ok {
		t.Error("excluded shift type produced a proposal")
	}

	if o := outcomeOf(t, result, unmatched.ID); o.Outcome != runs.OutcomeUnattributed {
		t.Errorf("unmatched outcome = %+v", o)
	}
	if _, ok := ledger.recorded[unmatched.ID]; ok {
		t.Error("unattributed event was written to the ledger")
	}
	if o := outcomeOf(t, result, skipped.ID); o.Outcome != runs.OutcomeSkipped {
		t.Errorf("skipped outcome = %+v", o)
	}
	if o := outcomeOf(t, result, failing.ID); o.Outcome != runs.OutcomeFailed || o.Error == "" {
		t.Errorf("failing outcome = %+v", o)
	}
	if o := outcomeOf(t, result, malformed.ID); o.Outcome != runs.OutcomeMalformed {
		t.Errorf("malformed outcome = %+v", o)
	}
}

func TestExecuteTwiceCreatesNoNewMatches(t *testing.T) {
	e := event("ord-1", "S1", "2024-03-01T12:30:00Z")
	ev := &fakeEvents{pending: []events.Event{e}}
	sh := &fakeShifts{shifts: []attribution.Shift{
		shift("S1", march1, "Maria Rossi", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z", ""),
	}}
	ledger := newFakeLedger()
	rt := newRuntime(t, ev, sh, ledger)

	first, err := runs.Execute(context.Background(), rt, uuid.New(), runs.Command{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := runs.Execute(context.Background(), rt, uuid.New(), runs.Command{})
	if err != nil {
		t.Fatal(err)
	}

	if first.Counts.MatchesCreated != 1 {
		t.Errorf("first run matches = %d, want 1", first.Counts.MatchesCreated)
	}
	if second.Counts.MatchesCreated != 0 || second.Counts.Skipped != 1 {
		t.Errorf("second run counts = %+v", second.Counts)
	}
}

func TestExecuteNoPendingEvents(t *testing.T) {
	sh := &fakeShifts{}
	rt := newRuntime(t, &fakeEvents{}, sh, newFakeLedger())

	result, err := runs.Execute(context.Background(), rt, uuid.New(), runs.Command{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Counts.Scanned != 0 {
		t.Errorf("scanned = %d", result.Counts.Scanned)
	}
	if len(sh.queries) != 0 {
		t.Errorf("snapshot loaded %d times for an empty run", len(sh.queries))
	}
}

func TestExecutePendingError(t *testing.T) {
	rt := newRuntime(t, &fakeEvents{err: errors.New("db down")}, &fakeShifts{}, newFakeLedger())

	if _, err := runs.Execute(context.Background(), rt, uuid.New(), runs.Command{}); err == nil {
		t.Fatal("expected error when pending events cannot be loaded")
	}
}

func TestExecuteCancelled(t *testing.T) {
	ev := &fakeEvents{pending: []events.Event{event("ord-1", "S1", "2024-03-01T12:30:00Z")}}
	sh := &fakeShifts{shifts: []attribution.Shift{
		shift("S1", march1, "Maria Rossi", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z", ""),
	}}
	ledger := newFakeLedger()
	rt := newRuntime(t, ev, sh, ledger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := runs.Execute(ctx, rt, uuid.New(), runs.Command{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result == nil || result.Counts.Failed != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(ledger.recorded) != 0 {
		t.Error("cancelled run wrote to the ledger")
	}
}

func TestPreview(t *testing.T) {
	e := event("ord-1", "S1", "2024-03-01T12:30:00Z")
	ev := &fakeEvents{pending: []events.Event{e}}
	sh := &fakeShifts{shifts: []attribution.Shift{
		shift("S1", march1, "Maria Rossi", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z", ""),
		shift("S1", march1, "Paolo Conti", "2024-03-01T18:00:00Z", "2024-03-01T22:00:00Z", ""),
	}}
	ledger := newFakeLedger()
	rt := newRuntime(t, ev, sh, ledger)

	res, err := runs.Preview(context.Background(), rt, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Proposals) != 1 || res.Proposals[0].EmployeeName != "Maria Rossi" {
		t.Errorf("proposals = %+v", res.Proposals)
	}
	if len(res.Rejections) != 1 || res.Rejections[0].Reason != attribution.ReasonOutOfWindow {
		t.Errorf("rejections = %+v", res.Rejections)
	}
	if len(ledger.recorded) != 0 {
		t.Error("preview wrote to the ledger")
	}

	q := sh.queries[0]
	if len(q.StoreIDs) != 1 || q.StoreIDs[0] != "S1" || q.From != march1 || q.To != march1 {
		t.Errorf("snapshot query = %+v", q)
	}

	if _, err := runs.Preview(context.Background(), rt, uuid.New()); !errors.Is(err, runs.ErrEventNotFound) {
		t.Errorf("unknown event err = %v, want ErrEventNotFound", err)
	}
}
