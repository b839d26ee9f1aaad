package attribution_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
)

func TestNormalizeKeepsEarliestImport(t *testing.T) {
	first := shift("Maria Rossi", "S1", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z")
	first.ImportedAt = ptr(at("2024-03-01T10:00:00Z"))

	second := first
	second.ID = uuid.New()
	second.ImportedAt = ptr(at("2024-03-01T10:05:00Z"))

	t.Run("earliest first", func(t *testing.T) {
		got := attribution.Normalize([]attribution.Shift{first, second}, time.UTC)
		if len(got) != 1 {
			t.Fatalf("len = %d, want 1", len(got))
		}
		if got[0].ID != first.ID {
			t.Errorf("kept %s, want the 10:00 import %s", got[0].ID, first.ID)
		}
	})

	t.Run("earliest last", func(t *testing.T) {
		got := attribution.Normalize([]attribution.Shift{second, first}, time.UTC)
		if len(got) != 1 {
			t.Fatalf("len = %d, want 1", len(got))
		}
		if got[0].ID != first.ID {
			t.Errorf("kept %s, want the 10:00 import %s", got[0].ID, first.ID)
		}
	})
}

func TestNormalizeTieKeepsFirst(t *testing.T) {
	a := shift("Maria Rossi", "S1", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z")
	b := shift("Maria Rossi", "S1", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z")

	got := attribution.Normalize([]attribution.Shift{a, b}, time.UTC)
	if len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("got %+v, want only the first record", got)
	}

	stamped := b
	stamped.ImportedAt = ptr(at("2024-03-01T09:00:00Z"))
	got = attribution.Normalize([]attribution.Shift{a, stamped}, time.UTC)
	if len(got) != 1 || got[0].ID != stamped.ID {
		t.Fatalf("a record with an import timestamp should win over one without")
	}
}

func TestNormalizeKey(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		a, b attribution.Shift
		want int
	}{
		{
			name: "name spacing and case",
			a:    shift("Maria Rossi", "S1", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z"),
			b:    shift("  maria  ROSSI ", "S1", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z"),
			want: 1,
		},
		{
			name: "same instant different offsets",
			a:    shift("Maria Rossi", "S1", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z"),
			b:    shift("Maria Rossi", "S1", "2024-03-01", "2024-03-01T13:00:00+01:00", "2024-03-01T17:00:00+01:00"),
			want: 1,
		},
		{
			name: "different end",
			a:    shift("Maria Rossi", "S1", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z"),
			b:    shift("Maria Rossi", "S1", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T17:00:00Z"),
			want: 2,
		},
		{
			name: "different store",
			a:    shift("Maria Rossi", "S1", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z"),
			b:    shift("Maria Rossi", "S2", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z"),
			want: 2,
		},
		{
			name: "different date",
			a:    shift("Maria Rossi", "S1", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z"),
			b:    shift("Maria Rossi", "S1", "2024-03-02", "2024-03-02T12:00:00Z", "2024-03-02T16:00:00Z"),
			want: 2,
		},
		{
			name: "missing bounds collapse on sentinel",
			a:    shift("Maria Rossi", "S1", "2024-03-01", "", ""),
			b:    shift("Maria Rossi", "S1", "2024-03-01", "", ""),
			want: 1,
		},
		{
			name: "missing start is not a real start",
			a:    shift("Maria Rossi", "S1", "2024-03-01", "", "2024-03-01T16:00:00Z"),
			b:    shift("Maria Rossi", "S1", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z"),
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := attribution.Normalize([]attribution.Shift{tt.a, tt.b}, rome)
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestNormalizeMalformedDate(t *testing.T) {
	a := shift("Maria Rossi", "S1", "2024-03-01", "2024-03-01T12:00:00Z", "2024-03-01T16:00:00Z")
	a.Date.Month = 0
	b := a
	b.ID = uuid.New()

	got := attribution.Normalize([]attribution.Shift{a, b}, nil)
	if len(got) != 1 {
		t.Errorf("len = %d, want 1 for two undated copies", len(got))
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if got := attribution.Normalize(nil, time.UTC); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}
