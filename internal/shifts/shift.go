// Package shifts implements the roster store. Shift records are kept exactly
// as imported, duplicates included; deduplication is the Normalizer's job at
// resolution time.
package shifts

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
)

// Shift is a stored roster record.
type Shift struct {
	ID             uuid.UUID  `json:"id"`
	ExternalRef    *string    `json:"external_ref"`
	StoreID        string     `json:"store_id"`
	Date           civil.Date `json:"date"`
	EmployeeName   string     `json:"employee_name"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	ScheduledEnd   *time.Time `json:"scheduled_end"`
	ShiftType      string     `json:"shift_type"`
	EmployeeGroup  string     `json:"employee_group"`
	ImportedAt     *time.Time `json:"imported_at"`
}

// Candidate returns the engine view of the shift.
func (s Shift) Candidate() attribution.Shift {
	return attribution.Shift{
		ID:             s.ID,
		StoreID:        s.StoreID,
		Date:           s.Date,
		EmployeeName:   s.EmployeeName,
		ScheduledStart: s.ScheduledStart,
		ScheduledEnd:   s.ScheduledEnd,
		ShiftType:      s.ShiftType,
		EmployeeGroup:  s.EmployeeGroup,
		ImportedAt:     s.ImportedAt,
	}
}

// Record is one shift as delivered by the roster collaborator.
//
// Date is YYYY-MM-DD. ScheduledStart and ScheduledEnd are either RFC 3339
// instants or wall-clock HH:MM on Date in the reference timezone; a wall-clock
// end earlier than its start rolls over to the next day. Empty bounds are
// stored as absent. ImportedAt is optional RFC 3339 and defaults to the time
// of import.
type Record struct {
	ExternalRef    string `json:"external_ref"`
	StoreID        string `json:"store_id"`
	Date           string `json:"date"`
	EmployeeName   string `json:"employee_name"`
	ScheduledStart string `json:"scheduled_start"`
	ScheduledEnd   string `json:"scheduled_end"`
	ShiftType      string `json:"shift_type"`
	EmployeeGroup  string `json:"employee_group"`
	ImportedAt     string `json:"imported_at"`
}

var clockLayouts = []string{"15:04", "15:04:05"}

// Parse validates r and resolves its bounds against loc.
func (r Record) Parse(loc *time.Location) (Shift, error) {
	s := Shift{
		StoreID:       strings.TrimSpace(r.StoreID),
		EmployeeName:  strings.TrimSpace(r.EmployeeName),
		ShiftType:     strings.TrimSpace(r.ShiftType),
		EmployeeGroup: strings.TrimSpace(r.EmployeeGroup),
	}

	if ref := strings.TrimSpace(r.ExternalRef); ref != "" {
		s.ExternalRef = &ref
	}

	if s.StoreID == "" {
		return s, fmt.Errorf("%w: store_id required", ErrMalformed)
	}

	date, err := civil.ParseDate(strings.TrimSpace(r.Date))
	if err != nil {
		return s, fmt.Errorf("%w: date: %v", ErrMalformed, err)
	}
	s.Date = date

	start, startClock, err := bound(r.ScheduledStart, date, loc)
	if err != nil {
		return s, fmt.Errorf("%w: scheduled_start: %v", ErrMalformed, err)
	}
	end, endClock, err := bound(r.ScheduledEnd, date, loc)
	if err != nil {
		return s, fmt.Errorf("%w: scheduled_end: %v", ErrMalformed, err)
	}
	if start != nil && end != nil && startClock && endClock && end.Before(*start) {
		next := end.AddDate(0, 0, 1)
		end = &next
	}
	s.ScheduledStart = start
	s.ScheduledEnd = end

	if v := strings.TrimSpace(r.ImportedAt); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return s, fmt.Errorf("%w: imported_at: %v", ErrMalformed, err)
		}
		t = t.UTC()
		s.ImportedAt = &t
	}

	return s, nil
}

// bound parses one scheduled bound. clock reports whether the value was a
// wall-clock time rather than an absolute instant.
func bound(raw string, date civil.Date, loc *time.Location) (t *time.Time, clock bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false, nil
	}

	if v, err := time.Parse(time.RFC3339, raw); err == nil {
		v = v.UTC()
		return &v, false, nil
	}

	for _, layout := range clockLayouts {
		c, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		v := time.Date(date.Year, date.Month, date.Day, c.Hour(), c.Minute(), c.Second(), 0, loc).UTC()
		return &v, true, nil
	}

	return nil, false, fmt.Errorf("unrecognized time %q", raw)
}

// Rejected describes an import record that was not stored.
type Rejected struct {
	Index       int    `json:"index"`
	ExternalRef string `json:"external_ref,omitempty"`
	Reason      string `json:"reason"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Imported int        `json:"imported"`
	Rejected []Rejected `json:"rejected"`
}

// SnapshotQuery selects the shifts a batch run resolves against.
type SnapshotQuery struct {
	StoreIDs []string
	From     civil.Date
	To       civil.Date
}
