package attribution_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
)

func ptr[T any](v T) *T { return &v }

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func shift(name, store, day, start, end string) attribution.Shift {
	s := attribution.Shift{
		ID:            uuid.New(),
		StoreID:       store,
		Date:          date(day),
		EmployeeName:  name,
		ShiftType:     "Ordinary",
		EmployeeGroup: "Staff",
	}
	if start != "" {
		s.ScheduledStart = ptr(at(start))
	}
	if end != "" {
		s.ScheduledEnd = ptr(at(end))
	}
	return s
}

func TestConfidenceRank(t *testing.T) {
	order := []attribution.Confidence{
		attribution.ConfidenceLow,
		attribution.ConfidenceMedium,
		attribution.ConfidenceHigh,
		attribution.ConfidenceManual,
	}

	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("%s rank %d should exceed %s rank %d",
				order[i], order[i].Rank(), order[i-1], order[i-1].Rank())
		}
	}

	if attribution.Confidence("BOGUS").Valid() {
		t.Error("unknown confidence should not be valid")
	}
}

func TestMethodValid(t *testing.T) {
	if !attribution.MethodAuto.Valid() || !attribution.MethodManual.Valid() {
		t.Error("defined methods should be valid")
	}
	if attribution.Method("batch").Valid() {
		t.Error("unknown method should not be valid")
	}
}

func TestEmployeeName(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		display string
		key     string
	}{
		{"plain", "Maria Rossi", "Maria Rossi", "maria rossi"},
		{"padded", "  Maria Rossi ", "Maria Rossi", "maria rossi"},
		{"inner whitespace", "Maria \t Rossi", "Maria Rossi", "maria rossi"},
		{"empty", "   ", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := attribution.NewEmployeeName(tt.raw)
			if n.String() != tt.display {
				t.Errorf("String() = %q, want %q", n.String(), tt.display)
			}
			if n.Key() != tt.key {
				t.Errorf("Key() = %q, want %q", n.Key(), tt.key)
			}
		})
	}

	if !attribution.NewEmployeeName("LUCA BIANCHI").Equal(attribution.NewEmployeeName("luca  bianchi")) {
		t.Error("names differing only in case and spacing should be equal")
	}
	if attribution.NewEmployeeName("Luca Bianchi").Equal(attribution.NewEmployeeName("Luca Bianco")) {
		t.Error("different names should not be equal")
	}
}
