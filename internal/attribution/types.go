package attribution

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Event is an external, timestamped occurrence that needs attribution.
// Kind is carried for callers and never inspected by the engine.
type Event struct {
	ID         uuid.UUID
	StoreID    string
	OccurredAt time.Time
	Kind       string
}

// Shift is one rostered work period as imported from the scheduling system.
// ScheduledStart, ScheduledEnd and ImportedAt are nil when the source omitted them.
type Shift struct {
	ID             uuid.UUID
	StoreID        string
	Date           civil.Date
	EmployeeName   string
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	ShiftType      string
	EmployeeGroup  string
	ImportedAt     *time.Time
}

// Employee returns the normalized roster identity of the shift.
func (s Shift) Employee() EmployeeName {
	return NewEmployeeName(s.EmployeeName)
}

// Proposal is a candidate match produced by the Resolver.
type Proposal struct {
	EmployeeName string     `json:"employee_name"`
	ShiftID      uuid.UUID  `json:"shift_id"`
	Confidence   Confidence `json:"confidence"`
}

// Rejection records a candidate shift that produced no proposal.
type Rejection struct {
	ShiftID      uuid.UUID `json:"shift_id"`
	EmployeeName string    `json:"employee_name"`
	Reason       Reason    `json:"reason"`
}

// Resolution is the full outcome of resolving one event.
// Rejections are diagnostics only; correctness depends on Proposals alone.
type Resolution struct {
	EventID    uuid.UUID   `json:"event_id"`
	Proposals  []Proposal  `json:"proposals"`
	Rejections []Rejection `json:"rejections"`
}

// Attributed reports whether at least one proposal survived.
func (r Resolution) Attributed() bool {
	return len(r.Proposals) > 0
}

func present(t *time.Time) bool {
	return t != nil && !t.IsZero()
}
