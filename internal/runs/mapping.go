package runs

import (
	"net/url"

	"github.com/JaimeStill/shiftmatch/pkg/query"
	"github.com/JaimeStill/shiftmatch/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "attribution_runs", "ar").
	Project("id", "ID").
	Project("actor", "Actor").
	Project("status", "Status").
	Project("store_id", "StoreID").
	Project("kind", "Kind").
	Project("from_at", "From").
	Project("to_at", "To").
	Project("report_key", "ReportKey").
	Project("error", "Error").
	Project("started_at", "StartedAt").
	Project("completed_at", "CompletedAt").
	Project("scanned", "Scanned").
	Project("attributed", "Attributed").
	Project("unattributed", "Unattributed").
	Project("skipped", "Skipped").
	Project("malformed", "Malformed").
	Project("failed", "Failed").
	Project("matches_created", "MatchesCreated")

var defaultSort = query.SortField{
	Field:      "StartedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for run queries.
type Filters struct {
	Status  *Status `json:"status,omitempty"`
	Actor   *string `json:"actor,omitempty"`
	StoreID *string `json:"store_id,omitempty"`
	Kind    *string `json:"kind,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("Actor", f.Actor).
		WhereEquals("StoreID", f.StoreID).
		WhereEquals("Kind", f.Kind)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		status := Status(s)
		f.Status = &status
	}

	if a := values.Get("actor"); a != "" {
		f.Actor = &a
	}

	if s := values.Get("store_id"); s != "" {
		f.StoreID = &s
	}

	if k := values.Get("kind"); k != "" {
		f.Kind = &k
	}

	return f
}

func scanRun(s repository.Scanner) (Run, error) {
	var r Run
	err := s.Scan(
		&r.ID,
		&r.Actor,
		&r.Status,
		&r.StoreID,
		&r.Kind,
		&r.From,
		&r.To,
		&r.ReportKey,
		&r.Error,
		&r.StartedAt,
		&r.CompletedAt,
		&r.Scanned,
		&r.Attributed,
		&r.Unattributed,
		&r.Skipped,
		&r.Malformed,
		&r.Failed,
		&r.MatchesCreated,
	)
	return r, err
}
