package shifts_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
	"github.com/JaimeStill/shiftmatch/internal/shifts"
	"github.com/JaimeStill/shiftmatch/pkg/pagination"
)

type mockSystem struct {
	listFn     func(ctx context.Context, page pagination.PageRequest, filters shifts.Filters) (*pagination.PageResult[shifts.Shift], error)
	findFn     func(ctx context.Context, id uuid.UUID) (*shifts.Shift, error)
	importFn   func(ctx context.Context, records []shifts.Record) (*shifts.ImportResult, error)
	snapshotFn func(ctx context.Context, q shifts.SnapshotQuery) ([]attribution.Shift, error)
}

func (m *mockSystem) Handler(maxImportSize int64) *shifts.Handler {
	return shifts.NewHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil)), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}, maxImportSize)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters shifts.Filters) (*pagination.PageResult[shifts.Shift], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*shifts.Shift, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Import(ctx context.Context, records []shifts.Record) (*shifts.ImportResult, error) {
	return m.importFn(ctx, records)
}

func (m *mockSystem) Snapshot(ctx context.Context, q shifts.SnapshotQuery) ([]attribution.Shift, error) {
	return m.snapshotFn(ctx, q)
}

func setupMux(h *shifts.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func sampleShift() shifts.Shift {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)
	return shifts.Shift{
		ID:             uuid.MustParse("0b7f5f7e-8a43-4c52-9d7e-2a1f7c7e1b11"),
		StoreID:        "S1",
		Date:           civil.Date{Year: 2024, Month: time.March, Day: 1},
		EmployeeName:   "Maria Rossi",
		ScheduledStart: &start,
		ScheduledEnd:   &end,
		ShiftType:      "Ordinary",
		EmployeeGroup:  "Staff",
	}
}

func TestHandlerFind(t *testing.T) {
	s := sampleShift()
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*shifts.Shift, error) {
			if id == s.ID {
				return &s, nil
			}
			return nil, shifts.ErrNotFound
		},
	}

	mux := setupMux(sys.Handler(1024))

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/shifts/"+s.ID.String(), nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var raw map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if raw["date"] != "2024-03-01" {
			t.Errorf("date = %v, want 2024-03-01", raw["date"])
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/shifts/"+uuid.NewString(), nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerSearchDateRange(t *testing.T) {
	var captured shifts.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, page pagination.PageRequest, f shifts.Filters) (*pagination.PageResult[shifts.Shift], error) {
			captured = f
			result := pagination.NewPageResult([]shifts.Shift{sampleShift()}, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}

	mux := setupMux(sys.Handler(1024))

	body := `{"store_id": "S1", "from": "2024-03-01", "to": "2024-03-31"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/shifts/search", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.From == nil || captured.From.String() != "2024-03-01" {
		t.Errorf("from = %v", captured.From)
	}
	if captured.To == nil || captured.To.String() != "2024-03-31" {
		t.Errorf("to = %v", captured.To)
	}
}

func TestHandlerImport(t *testing.T) {
	var received []shifts.Record
	sys := &mockSystem{
		importFn: func(_ context.Context, records []shifts.Record) (*shifts.ImportResult, error) {
			received = records
			return &shifts.ImportResult{Imported: len(records), Rejected: []shifts.Rejected{}}, nil
		},
	}

	mux := setupMux(sys.Handler(1 << 20))

	body := `[{"store_id": "S1", "date": "2024-03-01", "employee_name": "Maria Rossi",
		"scheduled_start": "12:00", "scheduled_end": "16:00", "shift_type": "Ordinary"}]`

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/shifts/import", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(received) != 1 || received[0].ScheduledStart != "12:00" {
		t.Errorf("received = %+v", received)
	}
}
