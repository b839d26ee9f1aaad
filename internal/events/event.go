// Package events implements the event store: timestamped external
// occurrences (refunds, complaints, reviews) awaiting attribution.
// Events are immutable once imported.
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
)

// Event is a stored external occurrence. Attributed is derived from the
// match ledger at read time.
type Event struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
	Kind       string    `json:"kind"`
	StoreID    string    `json:"store_id"`
	OccurredAt time.Time `json:"occurred_at"`
	ImportedAt time.Time `json:"imported_at"`
	Attributed bool      `json:"attributed"`
}

// Subject returns the engine view of the event.
func (e Event) Subject() attribution.Event {
	return attribution.Event{
		ID:         e.ID,
		StoreID:    e.StoreID,
		OccurredAt: e.OccurredAt,
		Kind:       e.Kind,
	}
}

// Record is one event as delivered by an ingestion collaborator.
// OccurredAt must be RFC 3339 with an explicit offset.
type Record struct {
	ExternalID string `json:"external_id"`
	Kind       string `json:"kind"`
	StoreID    string `json:"store_id"`
	OccurredAt string `json:"occurred_at"`
}

type parsed struct {
	externalID string
	kind       string
	storeID    string
	occurredAt time.Time
}

func (r Record) parse() (parsed, error) {
	p := parsed{
		externalID: strings.TrimSpace(r.ExternalID),
		kind:       strings.TrimSpace(r.Kind),
		storeID:    strings.TrimSpace(r.StoreID),
	}

	if p.externalID == "" {
		return p, fmt.Errorf("%w: external_id required", ErrMalformed)
	}
	if p.kind == "" {
		return p, fmt.Errorf("%w: kind required", ErrMalformed)
	}
	if p.storeID == "" {
		return p, fmt.Errorf("%w: store_id required", ErrMalformed)
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(r.OccurredAt))
	if err != nil {
		return p, fmt.Errorf("%w: occurred_at: %v", ErrMalformed, err)
	}
	p.occurredAt = t.UTC()

	return p, nil
}

// Rejected describes an import record that was not stored.
type Rejected struct {
	Index      int    `json:"index"`
	ExternalID string `json:"external_id"`
	Reason     string `json:"reason"`
}

// ImportResult summarizes a bulk import. Duplicates are records whose
// (kind, external_id) already existed.
type ImportResult struct {
	Imported   int        `json:"imported"`
	Duplicates int        `json:"duplicates"`
	Rejected   []Rejected `json:"rejected"`
}
