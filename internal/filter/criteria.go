package filter

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/repairdesk/repairdesk-search/internal/daterange"
	"github.com/repairdesk/repairdesk-search/internal/models"
)

// DateFilter is the date constraint of a search. Kind none disables it.
type DateFilter struct {
	Kind  daterange.Period
	Start time.Time
	End   time.Time
}

// Active reports whether the filter constrains anything. A kind without
// bounds constrains nothing; a single bound leaves the other side open.
func (d DateFilter) Active() bool {
	if d.Kind == "" || d.Kind == daterange.PeriodNone {
		return false
	}
	return !d.Start.IsZero() || !d.End.IsZero()
}

// NoDate is the unconstrained date filter.
func NoDate() DateFilter {
	return DateFilter{Kind: daterange.PeriodNone}
}

// PresetDate resolves a preset period against ref at selection time. Custom,
// none and unknown tokens return the unconstrained filter.
func PresetDate(period daterange.Period, ref time.Time) DateFilter {
	w, ok := daterange.RangeFor(period, ref)
	if !ok {
		return NoDate()
	}
	return DateFilter{Kind: period, Start: w.Start, End: w.End}
}

// CustomDate wraps a validated custom window.
func CustomDate(w models.DateWindow) DateFilter {
	return DateFilter{Kind: daterange.PeriodCustom, Start: w.Start, End: w.End}
}

// Criteria is the immutable set of user-selected constraints. Use the With
// methods to derive a changed copy.
type Criteria struct {
	Status string
	Text   string
	Date   DateFilter
}

// WithStatus returns a copy with the status token replaced.
func (c Criteria) WithStatus(status string) Criteria {
	c.Status = strings.TrimSpace(status)
	return c
}

// WithText returns a copy with the free-text query replaced.
func (c Criteria) WithText(text string) Criteria {
	c.Text = text
	return c
}

// WithDate returns a copy with the date filter replaced.
func (c Criteria) WithDate(d DateFilter) Criteria {
	c.Date = d
	return c
}

// IsZero reports whether no constraint is set.
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Status) == "" && strings.TrimSpace(c.Text) == "" && !c.Date.Active()
}

// DefaultMinTextLength is the shortest free-text query worth re-filtering for.
const DefaultMinTextLength = 3

// TextPolicy decides which keystrokes reach the engine. An empty query always
// clears the text predicate; queries shorter than MinLength are held back.
type TextPolicy struct {
	MinLength int
}

// Accept reports whether q should replace the applied text query.
func (p TextPolicy) Accept(q string) bool {
	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		return true
	}
	min := p.MinLength
	if min <= 0 {
		min = DefaultMinTextLength
	}
	return utf8.RuneCountInString(trimmed) >= min
}
