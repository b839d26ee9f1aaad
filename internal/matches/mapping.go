package matches

import (
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
	"github.com/JaimeStill/shiftmatch/pkg/query"
	"github.com/JaimeStill/shiftmatch/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "matches", "m").
	Project("id", "ID").
	Project("event_id", "EventID").
	Project("shift_id", "ShiftID").
	Project("run_id", "RunID").
	Project("employee_name", "EmployeeName").
	Project("employee_key", "EmployeeKey").
	Project("confidence", "Confidence").
	Project("method", "Method").
	Project("created_by", "CreatedBy").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Project("notes", "Notes").
	Join("public", "events", "e", "INNER JOIN", "e.id = m.event_id").
	Project("store_id", "StoreID").
	Project("kind", "Kind").
	Project("occurred_at", "OccurredAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

var summaryProjection = query.
	NewProjectionMap("public", "events", "e").
	Project("id", "EventID").
	Project("store_id", "StoreID").
	Project("kind", "Kind").
	Project("occurred_at", "OccurredAt").
	Join("public", "matches", "m", "LEFT JOIN", "m.event_id = e.id").
	ProjectExpr("COUNT(m.id)", "Matches").
	ProjectExpr("COUNT(m.id) FILTER (WHERE m.method = 'MANUAL')", "ManualMatches").
	ProjectExpr(`COALESCE(MAX(CASE m.confidence
		WHEN 'MANUAL' THEN 4
		WHEN 'HIGH' THEN 3
		WHEN 'MEDIUM' THEN 2
		WHEN 'LOW' THEN 1
	END), 0)`, "BestRank")

var tallyProjection = query.
	NewProjectionMap("public", "matches", "m").
	Project("employee_key", "EmployeeKey").
	ProjectExpr("MIN(m.employee_name)", "EmployeeName").
	ProjectExpr("COUNT(DISTINCT m.event_id)", "Events").
	ProjectExpr("COUNT(DISTINCT m.event_id) FILTER (WHERE m.confidence = 'HIGH')", "High").
	ProjectExpr("COUNT(DISTINCT m.event_id) FILTER (WHERE m.confidence = 'MEDIUM')", "Medium").
	ProjectExpr("COUNT(DISTINCT m.event_id) FILTER (WHERE m.confidence = 'MANUAL')", "Manual").
	Join("public", "events", "e", "INNER JOIN", "e.id = m.event_id").
	Reference("store_id", "StoreID").
	Reference("kind", "Kind").
	Reference("occurred_at", "OccurredAt")

// Filters contains optional filtering criteria for match queries.
// From and To bound the event's OccurredAt inclusively.
type Filters struct {
	EventID      *uuid.UUID              `json:"event_id,omitempty"`
	ShiftID      *uuid.UUID              `json:"shift_id,omitempty"`
	RunID        *uuid.UUID              `json:"run_id,omitempty"`
	EmployeeName *string                 `json:"employee_name,omitempty"`
	Confidence   *attribution.Confidence `json:"confidence,omitempty"`
	Method       *attribution.Method     `json:"method,omitempty"`
	CreatedBy    *string                 `json:"created_by,omitempty"`
	StoreID      *string                 `json:"store_id,omitempty"`
	Kind         *string                 `json:"kind,omitempty"`
	From         *time.Time              `json:"from,omitempty"`
	To           *time.Time              `json:"to,omitempty"`
}

// Apply adds filter conditions to a query builder over matches.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("EventID", f.EventID).
		WhereEquals("ShiftID", f.ShiftID).
		WhereEquals("RunID", f.RunID).
		WhereContains("EmployeeName", f.EmployeeName).
		WhereEquals("Confidence", f.Confidence).
		WhereEquals("Method", f.Method).
		WhereEquals("CreatedBy", f.CreatedBy).
		WhereEquals("StoreID", f.StoreID).
		WhereEquals("Kind", f.Kind).
		WhereRange("OccurredAt", f.From, f.To)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unparseable identifiers and timestamps are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	f.EventID = uuidParam(values, "event_id")
	f.ShiftID = uuidParam(values, "shift_id")
	f.RunID = uuidParam(values, "run_id")

	if n := values.Get("employee_name"); n != "" {
		f.EmployeeName = &n
	}

	if c := values.Get("confidence"); c != "" {
		conf := attribution.Confidence(c)
		f.Confidence = &conf
	}

	if m := values.Get("method"); m != "" {
		method := attribution.Method(m)
		f.Method = &method
	}

	if by := values.Get("created_by"); by != "" {
		f.CreatedBy = &by
	}

	if s := values.Get("store_id"); s != "" {
		f.StoreID = &s
	}

	if k := values.Get("kind"); k != "" {
		f.Kind = &k
	}

	f.From = timeParam(values, "from")
	f.To = timeParam(values, "to")

	return f
}

// SummaryFilters narrows the per-event and per-employee aggregations.
type SummaryFilters struct {
	StoreID    *string    `json:"store_id,omitempty"`
	Kind       *string    `json:"kind,omitempty"`
	Attributed *bool      `json:"attributed,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

// Apply adds filter conditions to a grouped query builder. Attributed is
// evaluated per event so it remains valid alongside GROUP BY.
func (f SummaryFilters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("StoreID", f.StoreID).
		WhereEquals("Kind", f.Kind).
		WhereRange("OccurredAt", f.From, f.To)

	if f.Attributed != nil {
		clause := "EXISTS (SELECT 1 FROM public.matches am WHERE am.event_id = e.id)"
		if !*f.Attributed {
			clause = "NOT " + clause
		}
		b.Where(clause)
	}
	return b
}

// SummaryFiltersFromQuery extracts aggregation filters from URL query parameters.
func SummaryFiltersFromQuery(values url.Values) SummaryFilters {
	var f SummaryFilters

	if s := values.Get("store_id"); s != "" {
		f.StoreID = &s
	}

	if k := values.Get("kind"); k != "" {
		f.Kind = &k
	}

	switch values.Get("attributed") {
	case "true", "1":
		v := true
		f.Attributed = &v
	case "false", "0":
		v := false
		f.Attributed = &v
	}

	f.From = timeParam(values, "from")
	f.To = timeParam(values, "to")

	return f
}

func uuidParam(values url.Values, key string) *uuid.UUID {
	raw := values.Get(key)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func timeParam(values url.Values, key string) *time.Time {
	raw := values.Get(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

func scanMatch(s repository.Scanner) (Match, error) {
	var (
		m           Match
		employeeKey string
		kind        string
	)
	err := s.Scan(
		&m.ID,
		&m.EventID,
		&m.ShiftID,
		&m.RunID,
		&m.EmployeeName,
		&employeeKey,
		&m.Confidence,
		&m.Method,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.Notes,
		&m.StoreID,
		&kind,
		&m.OccurredAt,
	)
	return m, err
}

var confidenceByRank = map[int]attribution.Confidence{
	4: attribution.ConfidenceManual,
	3: attribution.ConfidenceHigh,
	2: attribution.ConfidenceMedium,
	1: attribution.ConfidenceLow,
}

func scanSummary(s repository.Scanner) (EventSummary, error) {
	var (
		sum  EventSummary
		rank int
	)
	err := s.Scan(
		&sum.EventID,
		&sum.StoreID,
		&sum.Kind,
		&sum.OccurredAt,
		&sum.Matches,
		&sum.ManualMatches,
		&rank,
	)
	sum.BestConfidence = confidenceByRank[rank]
	return sum, err
}

func scanTally(s repository.Scanner) (EmployeeTally, error) {
	var t EmployeeTally
	err := s.Scan(
		&t.EmployeeKey,
		&t.EmployeeName,
		&t.Events,
		&t.High,
		&t.Medium,
		&t.Manual,
	)
	return t, err
}
