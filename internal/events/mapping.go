package events

import (
	"net/url"
	"strconv"
	"time"

	"github.com/JaimeStill/shiftmatch/pkg/query"
	"github.com/JaimeStill/shiftmatch/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "events", "e").
	Project("id", "ID").
	Project("external_id", "ExternalID").
	Project("kind", "Kind").
	Project("store_id", "StoreID").
	Project("occurred_at", "OccurredAt").
	Project("imported_at", "ImportedAt").
	ProjectExpr("EXISTS (SELECT 1 FROM public.matches m WHERE m.event_id = e.id)", "Attributed")

var defaultSort = query.SortField{
	Field:      "OccurredAt",
	Descending: true,
}

// Filters contains optional filtering criteria for event queries.
// Nil fields are ignored. From and To bound OccurredAt inclusively.
type Filters struct {
	StoreID    *string    `json:"store_id,omitempty"`
	Kind       *string    `json:"kind,omitempty"`
	ExternalID *string    `json:"external_id,omitempty"`
	Attributed *bool      `json:"attributed,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("StoreID", f.StoreID).
		WhereEquals("Kind", f.Kind).
		WhereEquals("ExternalID", f.ExternalID).
		WhereEquals("Attributed", f.Attributed).
		WhereRange("OccurredAt", f.From, f.To)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unparseable booleans and timestamps are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("store_id"); s != "" {
		f.StoreID = &s
	}

	if k := values.Get("kind"); k != "" {
		f.Kind = &k
	}

	if x := values.Get("external_id"); x != "" {
		f.ExternalID = &x
	}

	if a := values.Get("attributed"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.Attributed = &v
		}
	}

	if from := values.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			f.From = &t
		}
	}

	if to := values.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			f.To = &t
		}
	}

	return f
}

func scanEvent(s repository.Scanner) (Event, error) {
	var e Event
	err := s.Scan(
		&e.ID,
		&e.ExternalID,
		&e.Kind,
		&e.StoreID,
		&e.OccurredAt,
		&e.ImportedAt,
		&e.Attributed,
	)
	return e, err
}
