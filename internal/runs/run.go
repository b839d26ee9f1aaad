// Package runs executes batch attribution: every unattributed event in scope
// is resolved against a single shift snapshot and the proposals are recorded
// in the match ledger. Each run is persisted with its counts and, when blob
// storage is configured, an archived JSON report.
package runs

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
	"github.com/JaimeStill/shiftmatch/internal/events"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Outcome is what a run did with one event.
type Outcome string

const (
	OutcomeAttributed   Outcome = "attributed"
	OutcomeUnattributed Outcome = "unattributed"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeMalformed    Outcome = "malformed"
	OutcomeFailed       Outcome = "failed"
)

// Command scopes a run. Nil fields are unbounded. From and To bound the
// event's OccurredAt inclusively. An empty Actor uses the configured default.
type Command struct {
	StoreID *string    `json:"store_id,omitempty"`
	Kind    *string    `json:"kind,omitempty"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
	Actor   string     `json:"actor,omitempty"`
}

func (c Command) validate() error {
	if c.From != nil && c.To != nil && c.To.Before(*c.From) {
		return fmt.Errorf("%w: to precedes from", ErrInvalidInput)
	}
	return nil
}

func (c Command) filters() events.Filters {
	return events.Filters{
		StoreID: c.StoreID,
		Kind:    c.Kind,
		From:    c.From,
		To:      c.To,
	}
}

func (c Command) actor(fallback string) string {
	if a := strings.TrimSpace(c.Actor); a != "" {
		return a
	}
	return fallback
}

// Counts summarizes the outcomes of a run.
type Counts struct {
	Scanned        int `json:"scanned"`
	Attributed     int `json:"attributed"`
	Unattributed   int `json:"unattributed"`
	Skipped        int `json:"skipped"`
	Malformed      int `json:"malformed"`
	Failed         int `json:"failed"`
	MatchesCreated int `json:"matches_created"`
}

// EventOutcome records the result of one event within a run.
type EventOutcome struct {
	EventID    uuid.UUID              `json:"event_id"`
	ExternalID string                 `json:"external_id"`
	Kind       string                 `json:"kind"`
	StoreID    string                 `json:"store_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Outcome    Outcome                `json:"outcome"`
	Matches    int                    `json:"matches"`
	Proposals  []attribution.Proposal `json:"proposals,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Result is the in-memory outcome of executing a run.
type Result struct {
	Counts   Counts         `json:"counts"`
	Outcomes []EventOutcome `json:"outcomes"`
}

func (r *Result) tally() {
	c := Counts{Scanned: len(r.Outcomes)}
	for _, o := range r.Outcomes {
		switch o.Outcome {
		case OutcomeAttributed:
			c.Attributed++
			c.MatchesCreated += o.Matches
		case OutcomeUnattributed:
			c.Unattributed++
		case OutcomeSkipped:
			c.Skipped++
		case OutcomeMalformed:
			c.Malformed++
		case OutcomeFailed:
			c.Failed++
		}
	}
	r.Counts = c
}

// Run is the persisted record of one batch execution.
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Actor       string     `json:"actor"`
	Status      Status     `json:"status"`
	StoreID     *string    `json:"store_id,omitempty"`
	Kind        *string    `json:"kind,omitempty"`
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
	ReportKey   *string    `json:"report_key,omitempty"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Counts
}

// Report is a completed run together with its per-event outcomes.
type Report struct {
	Run      Run            `json:"run"`
	Outcomes []EventOutcome `json:"outcomes"`
}

// settle closes out a run: the counts and outcomes of result, a terminal
// status derived from execErr, and completion stamped at completedAt.
// result may be nil when the run failed before resolving anything.
func settle(run Run, result *Result, execErr error, completedAt time.Time) Report {
	report := Report{Run: run, Outcomes: []EventOutcome{}}
	if result != nil {
		report.Run.Counts = result.Counts
		report.Outcomes = result.Outcomes
	}

	report.Run.Status = StatusCompleted
	if execErr != nil {
		msg := execErr.Error()
		report.Run.Status = StatusFailed
		report.Run.Error = &msg
	}

	report.Run.CompletedAt = &completedAt
	return report
}
