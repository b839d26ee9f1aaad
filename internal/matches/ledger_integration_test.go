//go:build integration

package matches_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
	"github.com/JaimeStill/shiftmatch/internal/events"
	"github.com/JaimeStill/shiftmatch/internal/matches"
	"github.com/JaimeStill/shiftmatch/internal/shifts"
	"github.com/JaimeStill/shiftmatch/pkg/pagination"
)

type ledgerFixture struct {
	db     *sql.DB
	events events.System
	shifts shifts.System
	ledger matches.System
	engine *attribution.Resolver
}

func setupLedger(t *testing.T) *ledgerFixture {
	t.Helper()
	ctx := context.Background()

	pg, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("shiftmatch"),
		tcpostgres.WithUsername("shiftmatch"),
		tcpostgres.WithPassword("shiftmatch"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("skip: cannot start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	source, err := iofs.New(os.DirFS("../../cmd/migrate/migrations"), ".")
	if err != nil {
		t.Fatal(err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Up(); err != nil {
		t.Fatal(err)
	}
	m.Close()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	page := pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

	return &ledgerFixture{
		db:     db,
		events: events.New(db, logger, page),
		shifts: shifts.New(db, logger, page, loc),
		ledger: matches.New(db, logger, page),
		engine: attribution.NewResolver(attribution.Config{
			Exclusions: attribution.Exclusions{ShiftTypes: []string{"Unpaid absence"}},
			Window:     time.Hour,
			Location:   loc,
		}),
	}
}

// seed imports one event and the shifts of scenarios A to C, then resolves it.
func (f *ledgerFixture) seed(t *testing.T) (events.Event, attribution.Resolution) {
	t.Helper()
	ctx := context.Background()

	if _, err := f.events.Import(ctx, []events.Record{{
		ExternalID: "ord-1001",
		Kind:       "wrong_order",
		StoreID:    "S1",
		OccurredAt: "2024-03-01T12:30:00Z",
	}}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.shifts.Import(ctx, []shifts.Record{
		{StoreID: "S1", Date: "2024-03-01", EmployeeName: "Maria Rossi", ScheduledStart: "2024-03-01T12:00:00Z", ScheduledEnd: "2024-03-01T16:00:00Z"},
		{StoreID: "S1", Date: "2024-03-01", EmployeeName: "Luca Bianchi", ScheduledStart: "2024-03-01T13:20:00Z", ScheduledEnd: "2024-03-01T17:00:00Z"},
		{StoreID: "S1", Date: "2024-03-01", EmployeeName: "Anna Neri", ScheduledStart: "2024-03-01T11:00:00Z", ScheduledEnd: "2024-03-01T15:00:00Z", ShiftType: "Unpaid absence"},
	}); err != nil {
		t.Fatal(err)
	}

	pending, err := f.events.Pending(ctx, events.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	e := pending[0]

	day := civil.Date{Year: 2024, Month: time.March, Day: 1}
	snapshot, err := f.shifts.Snapshot(ctx, shifts.SnapshotQuery{StoreIDs: []string{"S1"}, From: day, To: day})
	if err != nil {
		t.Fatal(err)
	}

	return e, f.engine.Resolve(e.Subject(), snapshot)
}

func ptr[T any](v T) *T { return &v }

func (f *ledgerFixture) count(t *testing.T, eventID uuid.UUID) int {
	t.Helper()
	var n int
	if err := f.db.QueryRow("SELECT COUNT(*) FROM matches WHERE event_id = $1", eventID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestLedgerRecordAutoIsIdempotent(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	e, res := f.seed(t)
	if len(res.Proposals) != 2 {
		t.Fatalf("proposals = %+v, want Maria HIGH and Luca MEDIUM", res.Proposals)
	}

	created, err := f.ledger.RecordAuto(ctx, matches.AutoCommand{EventID: e.ID, Proposals: res.Proposals, Actor: "system:auto-attribution"})
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 2 {
		t.Fatalf("created = %d, want 2", len(created))
	}

	byName := map[string]attribution.Confidence{}
	for _, m := range created {
		if m.Method != attribution.MethodAuto {
			t.Errorf("method = %s, want AUTO", m.Method)
		}
		byName[m.EmployeeName] = m.Confidence
	}
	if byName["Maria Rossi"] != attribution.ConfidenceHigh || byName["Luca Bianchi"] != attribution.ConfidenceMedium {
		t.Errorf("confidences = %v", byName)
	}

	_, err = f.ledger.RecordAuto(ctx, matches.AutoCommand{EventID: e.ID, Proposals: res.Proposals, Actor: "system:auto-attribution"})
	if !errors.Is(err, matches.ErrAlreadyAttributed) {
		t.Fatalf("second run err = %v, want ErrAlreadyAttributed", err)
	}
	if n := f.count(t, e.ID); n != 2 {
		t.Errorf("matches after second run = %d, want 2", n)
	}

	pending, err := f.events.Pending(ctx, events.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after attribution = %d, want 0", len(pending))
	}
}

func TestLedgerRecordAutoConcurrentClaim(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	e, res := f.seed(t)

	const writers = 4
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		won      int
		deferred int
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.RecordAuto(ctx, matches.AutoCommand{EventID: e.ID, Proposals: res.Proposals, Actor: "worker"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, matches.ErrAlreadyAttributed):
				deferred++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if won != 1 || deferred != writers-1 {
		t.Errorf("won = %d, deferred = %d", won, deferred)
	}
	if n := f.count(t, e.ID); n != 2 {
		t.Errorf("matches = %d, want 2", n)
	}
}

func TestLedgerOverrideAndReset(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	e, res := f.seed(t)

	created, err := f.ledger.RecordAuto(ctx, matches.AutoCommand{EventID: e.ID, Proposals: res.Proposals, Actor: "system:auto-attribution"})
	if err != nil {
		t.Fatal(err)
	}

	var maria matches.Match
	for _, m := range created {
		if m.EmployeeName == "Maria Rossi" {
			maria = m
		}
	}

	updated, err := f.ledger.Override(ctx, maria.ID, matches.OverrideCommand{EmployeeName: "Giulia Verdi", Actor: "ops"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.EmployeeName != "Giulia Verdi" ||
		updated.Confidence != attribution.ConfidenceManual ||
		updated.Method != attribution.MethodManual {
		t.Errorf("updated = %+v", updated)
	}
	if !strings.Contains(updated.Notes, "Maria Rossi") {
		t.Errorf("notes %q missing prior employee", updated.Notes)
	}
	if updated.UpdatedAt == nil {
		t.Error("updated_at not set")
	}
	if updated.CreatedBy != "ops" {
		t.Errorf("created_by = %q, want ops", updated.CreatedBy)
	}
	if !strings.Contains(updated.Notes, "created_by system:auto-attribution -> ops") {
		t.Errorf("notes %q missing prior creator", updated.Notes)
	}
	if updated.ShiftID == nil || maria.ShiftID == nil || *updated.ShiftID != *maria.ShiftID {
		t.Errorf("shift_id = %v, want %v retained", updated.ShiftID, maria.ShiftID)
	}

	byActor, err := f.ledger.List(ctx, pagination.PageRequest{}, matches.Filters{CreatedBy: ptr("ops")})
	if err != nil {
		t.Fatal(err)
	}
	if byActor.Total != 1 || byActor.Data[0].ID != maria.ID {
		t.Errorf("created_by filter = %+v, want overridden match", byActor)
	}

	if _, err := f.ledger.Override(ctx, uuid.New(), matches.OverrideCommand{EmployeeName: "X", Actor: "ops"}); !errors.Is(err, matches.ErrNotFound) {
		t.Errorf("override missing err = %v, want ErrNotFound", err)
	}

	tally, err := f.ledger.EmployeeTally(ctx, pagination.PageRequest{}, matches.SummaryFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if tally.Total != 2 {
		t.Errorf("tally total = %d, want 2", tally.Total)
	}

	summary, err := f.ledger.EventSummary(ctx, pagination.PageRequest{}, matches.SummaryFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Data) != 1 || summary.Data[0].Matches != 2 || summary.Data[0].BestConfidence != attribution.ConfidenceManual {
		t.Errorf("summary = %+v", summary.Data)
	}

	reset, err := f.ledger.Reset(ctx, e.ID, matches.ResetCommand{Actor: "ops"})
	if err != nil {
		t.Fatal(err)
	}
	if reset.Removed != 1 || reset.Remaining != 1 || reset.Released {
		t.Errorf("reset = %+v, want Luca removed and override kept", reset)
	}

	if _, err := f.ledger.RecordAuto(ctx, matches.AutoCommand{EventID: e.ID, Proposals: res.Proposals, Actor: "system:auto-attribution"}); !errors.Is(err, matches.ErrAlreadyAttributed) {
		t.Errorf("record after partial reset err = %v, want ErrAlreadyAttributed", err)
	}

	if _, err := f.ledger.Reset(ctx, uuid.New(), matches.ResetCommand{Actor: "ops"}); !errors.Is(err, matches.ErrEventNotFound) {
		t.Errorf("reset missing event err = %v, want ErrEventNotFound", err)
	}
}

func TestLedgerResetReleasesEvent(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	e, res := f.seed(t)

	if _, err := f.ledger.RecordAuto(ctx, matches.AutoCommand{EventID: e.ID, Proposals: res.Proposals, Actor: "system:auto-attribution"}); err != nil {
		t.Fatal(err)
	}

	reset, err := f.ledger.Reset(ctx, e.ID, matches.ResetCommand{Actor: "ops"})
	if err != nil {
		t.Fatal(err)
	}
	if reset.Removed != 2 || !reset.Released {
		t.Errorf("reset = %+v", reset)
	}

	again, err := f.ledger.RecordAuto(ctx, matches.AutoCommand{EventID: e.ID, Proposals: res.Proposals, Actor: "system:auto-attribution"})
	if err != nil {
		t.Fatalf("record after reset: %v", err)
	}
	if len(again) != 2 {
		t.Errorf("matches after reset = %d, want 2", len(again))
	}
}

func TestLedgerManualAndUnknownEvent(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	e, res := f.seed(t)

	manual, err := f.ledger.CreateManual(ctx, matches.ManualCommand{EventID: e.ID, EmployeeName: "Sara Gallo", Actor: "ops", Notes: "seen on camera"})
	if err != nil {
		t.Fatal(err)
	}
	if manual.Confidence != attribution.ConfidenceManual || manual.ShiftID != nil {
		t.Errorf("manual = %+v", manual)
	}

	if _, err := f.ledger.RecordAuto(ctx, matches.AutoCommand{EventID: e.ID, Proposals: res.Proposals, Actor: "system:auto-attribution"}); !errors.Is(err, matches.ErrAlreadyAttributed) {
		t.Errorf("auto after manual err = %v, want ErrAlreadyAttributed", err)
	}

	if _, err := f.ledger.RecordAuto(ctx, matches.AutoCommand{EventID: uuid.New(), Proposals: res.Proposals, Actor: "system:auto-attribution"}); !errors.Is(err, matches.ErrEventNotFound) {
		t.Errorf("auto unknown event err = %v, want ErrEventNotFound", err)
	}

	if _, err := f.ledger.CreateManual(ctx, matches.ManualCommand{EventID: uuid.New(), EmployeeName: "Sara Gallo", Actor: "ops"}); !errors.Is(err, matches.ErrEventNotFound) {
		t.Errorf("manual unknown event err = %v, want ErrEventNotFound", err)
	}
}
