// Package attribution implements the event-to-shift attribution engine.
// Given a timestamped event at a store and the shifts rostered for that store,
// it decides which employees were plausibly on duty and with what confidence.
//
// Everything in this package is pure: the Normalizer, the exclusion Filter,
// the Scorer, and the Resolver hold no state between calls and perform no I/O.
// Persistence of the resulting matches belongs to the matches package.
package attribution

// Confidence is the discrete strength of a match.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	// ConfidenceLow is defined for stored data compatibility but is never
	// produced by automatic resolution.
	ConfidenceLow    Confidence = "LOW"
	ConfidenceManual Confidence = "MANUAL"
)

// Rank orders automatic confidences; higher is stronger.
// MANUAL ranks above everything since a human decided it.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceManual:
		return 4
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether c is one of the defined confidence levels.
func (c Confidence) Valid() bool {
	return c.Rank() > 0
}

// Method records how a match was produced.
type Method string

const (
	MethodAuto   Method = "AUTO"
	MethodManual Method = "MANUAL"
)

// Valid reports whether m is a defined method.
func (m Method) Valid() bool {
	return m == MethodAuto || m == MethodManual
}

// Reason explains why a candidate shift did not produce a proposal.
type Reason string

const (
	ReasonOtherStore        Reason = "other_store"
	ReasonOtherDate         Reason = "other_date"
	ReasonDuplicate         Reason = "duplicate_import"
	ReasonExcludedShiftType Reason = "excluded_shift_type"
	ReasonExcludedGroup     Reason = "excluded_employee_group"
	ReasonMissingStart      Reason = "missing_scheduled_start"
	ReasonMissingEnd        Reason = "missing_scheduled_end"
	ReasonInvertedWindow    Reason = "scheduled_end_before_start"
	ReasonMissingEmployee   Reason = "missing_employee_name"
	ReasonOutOfWindow       Reason = "outside_tolerance_window"
	ReasonSuperseded        Reason = "superseded_by_stronger_shift"
)
