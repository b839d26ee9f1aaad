package attribution

import "strings"

// EmployeeName is the roster's free-text identity for an employee.
// Matching across shifts and matches is exact equality on Key, which trims,
// collapses inner whitespace, and case-folds the display name. No fuzzy
// matching is attempted; near-duplicates are a roster data-quality concern.
type EmployeeName struct {
	display string
	key     string
}

// NewEmployeeName normalizes a raw roster name.
func NewEmployeeName(raw string) EmployeeName {
	display := strings.Join(strings.Fields(raw), " ")
	return EmployeeName{
		display: display,
		key:     strings.ToLower(display),
	}
}

// String returns the whitespace-normalized display form.
func (n EmployeeName) String() string {
	return n.display
}

// Key returns the join key.
func (n EmployeeName) Key() string {
	return n.key
}

// IsEmpty reports whether the name has no visible characters.
func (n EmployeeName) IsEmpty() bool {
	return n.key == ""
}

// Equal reports whether two names refer to the same roster identity.
func (n EmployeeName) Equal(other EmployeeName) bool {
	return n.key == other.key
}
