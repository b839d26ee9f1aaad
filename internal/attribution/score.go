package attribution

import "time"

// DefaultWindow is the tolerance around a shift inside which an event still
// earns MEDIUM confidence.
const DefaultWindow = time.Hour

// Scorer grades the temporal relationship between an event and a shift.
type Scorer struct {
	window time.Duration
}

// NewScorer creates a Scorer with the given tolerance window.
// Negative windows are treated as zero.
func NewScorer(window time.Duration) Scorer {
	return Scorer{window: max(window, 0)}
}

// Window returns the tolerance in use.
func (s Scorer) Window() time.Duration {
	return s.window
}

// Score returns HIGH when the event falls inside [start, end], MEDIUM when it
// falls inside [start-window, end+window], and false otherwise. Shifts without
// both bounds never score.
func (s Scorer) Score(eventTime time.Time, shift Shift) (Confidence, bool) {
	if !present(shift.ScheduledStart) || !present(shift.ScheduledEnd) {
		return "", false
	}

	start, end := *shift.ScheduledStart, *shift.ScheduledEnd

	if within(eventTime, start, end) {
		return ConfidenceHigh, true
	}
	if within(eventTime, start.Add(-s.window), end.Add(s.window)) {
		return ConfidenceMedium, true
	}
	return "", false
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
