package attribution

import "strings"

// Exclusions lists the shift types and employee groups that are never
// attributable. Labels are compared case-insensitively after whitespace
// normalization.
type Exclusions struct {
	ShiftTypes     []string `json:"shift_types"`
	EmployeeGroups []string `json:"employee_groups"`
}

// Filter decides whether a shift may be considered for attribution at all.
type Filter struct {
	shiftTypes map[string]struct{}
	groups     map[string]struct{}
}

// NewFilter builds a Filter from the configured exclusion sets.
func NewFilter(ex Exclusions) *Filter {
	return &Filter{
		shiftTypes: labelSet(ex.ShiftTypes),
		groups:     labelSet(ex.EmployeeGroups),
	}
}

// Eligible reports whether s passes every exclusion rule.
func (f *Filter) Eligible(s Shift) bool {
	_, ok := f.Check(s)
	return ok
}

// Check returns the first exclusion rule s violates, or ok when none apply.
func (f *Filter) Check(s Shift) (Reason, bool) {
	if _, excluded := f.shiftTypes[label(s.ShiftType)]; excluded {
		return ReasonExcludedShiftType, false
	}
	if _, excluded := f.groups[label(s.EmployeeGroup)]; excluded {
		return ReasonExcludedGroup, false
	}
	if s.Employee().IsEmpty() {
		return ReasonMissingEmployee, false
	}
	if !present(s.ScheduledStart) {
		return ReasonMissingStart, false
	}
	if !present(s.ScheduledEnd) {
		return ReasonMissingEnd, false
	}
	if s.ScheduledEnd.Before(*s.ScheduledStart) {
		return ReasonInvertedWindow, false
	}
	return "", true
}

func labelSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if k := label(l); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

func label(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
