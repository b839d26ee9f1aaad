package attribution

import (
	"strings"
	"time"
)

const (
	noDate  = "no-date"
	noStart = "no-start"
	noEnd   = "no-end"
)

// shiftKey identifies a real shift regardless of how many times it was imported.
type shiftKey struct {
	employee string
	store    string
	date     string
	start    string
	end      string
}

func keyOf(s Shift, loc *time.Location) shiftKey {
	date := noDate
	if s.Date.IsValid() {
		date = s.Date.String()
	}
	return shiftKey{
		employee: s.Employee().Key(),
		store:    strings.TrimSpace(s.StoreID),
		date:     date,
		start:    clock(s.ScheduledStart, loc, noStart),
		end:      clock(s.ScheduledEnd, loc, noEnd),
	}
}

func clock(t *time.Time, loc *time.Location, sentinel string) string {
	if !present(t) {
		return sentinel
	}
	return t.In(loc).Format("15:04:05")
}

// Normalize collapses repeated imports of the same real shift into one record.
// Two shifts are the same when employee, store, date, and the time-of-day of
// both scheduled bounds (in loc) agree. The survivor is the record with the
// earliest ImportedAt; a record carrying a timestamp wins over one without,
// and ties keep the first record encountered. The input order must therefore
// be stable for the result to be deterministic.
//
// The result preserves the order in which each distinct shift was first seen,
// but callers must not rely on that.
func Normalize(shifts []Shift, loc *time.Location) []Shift {
	kept, _ := dedupe(shifts, loc)
	return kept
}

func dedupe(shifts []Shift, loc *time.Location) (kept, dropped []Shift) {
	if loc == nil {
		loc = time.UTC
	}

	index := make(map[shiftKey]int, len(shifts))
	kept = make([]Shift, 0, len(shifts))

	for _, s := range shifts {
		k := keyOf(s, loc)

		i, seen := index[k]
		if !seen {
			index[k] = len(kept)
			kept = append(kept, s)
			continue
		}

		if importedEarlier(s, kept[i]) {
			dropped = append(dropped, kept[i])
			kept[i] = s
			continue
		}
		dropped = append(dropped, s)
	}

	return kept, dropped
}

func importedEarlier(candidate, current Shift) bool {
	if !present(candidate.ImportedAt) {
		return false
	}
	if !present(current.ImportedAt) {
		return true
	}
	return candidate.ImportedAt.Before(*current.ImportedAt)
}
