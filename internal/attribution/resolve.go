package attribution

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Config parameterizes a Resolver. It is passed explicitly so that the same
// engine serves every event kind without ambient state.
type Config struct {
	Exclusions Exclusions
	Window     time.Duration
	// Location is the reference timezone used to bucket events into calendar
	// days and to compare shift times of day during normalization.
	Location *time.Location
}

// Validate checks that the config can drive a Resolver.
func (c Config) Validate() error {
	if c.Window < 0 {
		return fmt.Errorf("%w: negative tolerance window %s", ErrInvalidConfig, c.Window)
	}
	if c.Location == nil {
		return fmt.Errorf("%w: reference location required", ErrInvalidConfig)
	}
	return nil
}

// Resolver attributes a single event to the shifts rostered around it.
type Resolver struct {
	filter *Filter
	scorer Scorer
	loc    *time.Location
}

// NewResolver creates a Resolver. A nil Location falls back to UTC.
func NewResolver(cfg Config) *Resolver {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{
		filter: NewFilter(cfg.Exclusions),
		scorer: NewScorer(cfg.Window),
		loc:    loc,
	}
}

// Location returns the reference timezone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// EventDate returns the calendar day the event belongs to in the reference timezone.
func (r *Resolver) EventDate(e Event) civil.Date {
	return civil.DateOf(e.OccurredAt.In(r.loc))
}

// CheckEvent reports whether the event carries enough data to be resolved.
func CheckEvent(e Event) error {
	if strings.TrimSpace(e.StoreID) == "" {
		return fmt.Errorf("%w: event %s has no store", ErrMalformedEvent, e.ID)
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("%w: event %s has no timestamp", ErrMalformedEvent, e.ID)
	}
	return nil
}

type scored struct {
	shift      Shift
	confidence Confidence
}

// Resolve computes the best-confidence proposal per employee for the event.
//
// Candidates at other stores or dates are rejected, the remainder is
// normalized, filtered, and scored, and for each employee only the strongest
// shift survives. Ties between equally strong shifts go to the earlier
// scheduled start, then the lower shift id, so the result does not depend on
// candidate order. An empty Proposals slice means the event stays
// unattributed; that is an expected outcome, not an error.
func (r *Resolver) Resolve(e Event, candidates []Shift) Resolution {
	res := Resolution{
		EventID:    e.ID,
		Proposals:  []Proposal{},
		Rejections: []Rejection{},
	}

	if CheckEvent(e) != nil {
		return res
	}

	store := strings.TrimSpace(e.StoreID)
	date := r.EventDate(e)

	sameDay := make([]Shift, 0, len(candidates))
	for _, s := range candidates {
		switch {
		case strings.TrimSpace(s.StoreID) != store:
			res.reject(s, ReasonOtherStore)
		case s.Date != date:
			res.reject(s, ReasonOtherDate)
		default:
			sameDay = append(sameDay, s)
		}
	}

	kept, dropped := dedupe(sameDay, r.loc)
	for _, s := range dropped {
		res.reject(s, ReasonDuplicate)
	}

	best := make(map[string]scored)
	for _, s := range kept {
		if reason, ok := r.filter.Check(s); !ok {
			res.reject(s, reason)
			continue
		}

		conf, ok := r.scorer.Score(e.OccurredAt, s)
		if !ok {
			res.reject(s, ReasonOutOfWindow)
			continue
		}

		candidate := scored{shift: s, confidence: conf}
		key := s.Employee().Key()

		current, exists := best[key]
		switch {
		case !exists:
			best[key] = candidate
		case stronger(candidate, current):
			res.reject(current.shift, ReasonSuperseded)
			best[key] = candidate
		default:
			res.reject(s, ReasonSuperseded)
		}
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		b := best[k]
		res.Proposals = append(res.Proposals, Proposal{
			EmployeeName: b.shift.Employee().String(),
			ShiftID:      b.shift.ID,
			Confidence:   b.confidence,
		})
	}

	return res
}

func stronger(a, b scored) bool {
	if a.confidence.Rank() != b.confidence.Rank() {
		return a.confidence.Rank() > b.confidence.Rank()
	}
	as, bs := *a.shift.ScheduledStart, *b.shift.ScheduledStart
	if !as.Equal(bs) {
		return as.Before(bs)
	}
	return a.shift.ID.String() < b.shift.ID.String()
}

func (res *Resolution) reject(s Shift, reason Reason) {
	res.Rejections = append(res.Rejections, Rejection{
		ShiftID:      s.ID,
		EmployeeName: s.Employee().String(),
		Reason:       reason,
	})
}
