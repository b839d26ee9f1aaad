// Package matches implements the Match Ledger: the persisted record of which
// employees an event is attributed to, how each attribution was produced, and
// the audit trail of manual corrections.
package matches

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/shiftmatch/internal/attribution"
)

// Match asserts that one event is attributable to one employee's shift.
// ShiftID is nil for manual matches created without a shift and for matches
// whose shift has since been deleted.
type Match struct {
	ID           uuid.UUID              `json:"id"`
	EventID      uuid.UUID              `json:"event_id"`
	ShiftID      *uuid.UUID             `json:"shift_id,omitempty"`
	RunID        *uuid.UUID             `json:"run_id,omitempty"`
	EmployeeName string                 `json:"employee_name"`
	Confidence   attribution.Confidence `json:"confidence"`
	Method       attribution.Method     `json:"method"`
	CreatedBy    string                 `json:"created_by"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    *time.Time             `json:"updated_at,omitempty"`
	Notes        string                 `json:"notes"`
	StoreID      string                 `json:"store_id"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

// AutoCommand carries the proposals produced for one event by a batch run.
type AutoCommand struct {
	EventID   uuid.UUID
	Proposals []attribution.Proposal
	RunID     *uuid.UUID
	Actor     string
}

// OverrideCommand replaces the employee on an existing match.
type OverrideCommand struct {
	EmployeeName string `json:"employee_name"`
	Actor        string `json:"actor"`
	Notes        string `json:"notes,omitempty"`
}

// ManualCommand creates a match by hand.
type ManualCommand struct {
	EventID      uuid.UUID  `json:"event_id"`
	ShiftID      *uuid.UUID `json:"shift_id,omitempty"`
	EmployeeName string     `json:"employee_name"`
	Actor        string     `json:"actor"`
	Notes        string     `json:"notes,omitempty"`
}

// ResetCommand identifies who released an event back to automatic attribution.
type ResetCommand struct {
	Actor string `json:"actor"`
}

// ResetResult reports what a reset removed. Released is false when manual
// matches remain on the event, which keeps it out of later batch runs.
type ResetResult struct {
	EventID   uuid.UUID `json:"event_id"`
	Removed   int       `json:"removed"`
	Remaining int       `json:"remaining"`
	Released  bool      `json:"released"`
}

// EventSummary answers whether an event is attributed and how strongly.
type EventSummary struct {
	EventID        uuid.UUID              `json:"event_id"`
	StoreID        string                 `json:"store_id"`
	Kind           string                 `json:"kind"`
	OccurredAt     time.Time              `json:"occurred_at"`
	Matches        int                    `json:"matches"`
	ManualMatches  int                    `json:"manual_matches"`
	BestConfidence attribution.Confidence `json:"best_confidence,omitempty"`
}

// Attributed reports whether the event has at least one match.
func (s EventSummary) Attributed() bool {
	return s.Matches > 0
}

// EmployeeTally counts the events attributed to one employee.
type EmployeeTally struct {
	EmployeeKey  string `json:"employee_key"`
	EmployeeName string `json:"employee_name"`
	Events       int    `json:"events"`
	High         int    `json:"high"`
	Medium       int    `json:"medium"`
	Manual       int    `json:"manual"`
}

func (c OverrideCommand) validate() error {
	if attribution.NewEmployeeName(c.EmployeeName).IsEmpty() {
		return fmt.Errorf("%w: employee_name required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.Actor) == "" {
		return fmt.Errorf("%w: actor required", ErrInvalidInput)
	}
	return nil
}

func (c ManualCommand) validate() error {
	if c.EventID == uuid.Nil {
		return fmt.Errorf("%w: event_id required", ErrInvalidInput)
	}
	if attribution.NewEmployeeName(c.EmployeeName).IsEmpty() {
		return fmt.Errorf("%w: employee_name required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.Actor) == "" {
		return fmt.Errorf("%w: actor required", ErrInvalidInput)
	}
	return nil
}

// overrideNote renders one audit line describing the change from prev.
func overrideNote(prev Match, next attribution.EmployeeName, cmd OverrideCommand) string {
	note := fmt.Sprintf(
		"override by %s: employee_name %q -> %q; created_by %s -> %s; confidence %s -> %s; method %s -> %s",
		strings.TrimSpace(cmd.Actor),
		prev.EmployeeName, next.String(),
		prev.CreatedBy, strings.TrimSpace(cmd.Actor),
		prev.Confidence, attribution.ConfidenceManual,
		prev.Method, attribution.MethodManual,
	)
	if extra := strings.TrimSpace(cmd.Notes); extra != "" {
		note += "; " + extra
	}
	return note
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// uniqueProposals drops proposals naming an employee already proposed,
// keeping the first occurrence.
func uniqueProposals(proposals []attribution.Proposal) []attribution.Proposal {
	seen := make(map[string]struct{}, len(proposals))
	out := make([]attribution.Proposal, 0, len(proposals))
	for _, p := range proposals {
		name := attribution.NewEmployeeName(p.EmployeeName)
		if name.IsEmpty() {
			continue
		}
		if _, ok := seen[name.Key()]; ok {
			continue
		}
		seen[name.Key()] = struct{}{}
		out = append(out, p)
	}
	return out
}
