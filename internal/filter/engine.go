// Package filter narrows a record window with status, text and date criteria
// entirely in memory.
//
// Every Apply call is a full, synchronous pass over the collection: there is
// no incremental state to invalidate. Output order follows input order and
// never contains a record that was not in the input.
package filter

import (
	"math"
	"strings"
	"time"

	"github.com/repairdesk/repairdesk-search/internal/models"
	"github.com/repairdesk/repairdesk-search/internal/utils"
)

// Engine evaluates Criteria against records.
type Engine struct {
	labels models.Labels
	loc    *time.Location
}

// NewEngine builds an engine using labels for status matching and loc for
// calendar-day reduction. A nil loc means time.Local.
func NewEngine(labels models.Labels, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{labels: labels, loc: loc}
}

// Location is the zone used to reduce instants to calendar days.
func (e *Engine) Location() *time.Location { return e.loc }

// Apply returns the records matching every active predicate of c.
func (e *Engine) Apply(records []models.Record, c Criteria) []models.Record {
	match := e.Predicate(c)
	out := make([]models.Record, 0, len(records))
	for _, rec := range records {
		if match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Predicate compiles c into a single record predicate.
func (e *Engine) Predicate(c Criteria) func(models.Record) bool {
	var preds []func(models.Record) bool

	if status := strings.TrimSpace(c.Status); status != "" {
		preds = append(preds, e.statusPredicate(status))
	}
	if text := strings.TrimSpace(c.Text); text != "" {
		preds = append(preds, textPredicate(text))
	}
	if c.Date.Active() {
		preds = append(preds, e.datePredicate(c.Date))
	}

	return func(rec models.Record) bool {
		for _, p := range preds {
			if !p(rec) {
				return false
			}
		}
		return true
	}
}

// statusPredicate matches a label containing the token or a code equal to it.
func (e *Engine) statusPredicate(token string) func(models.Record) bool {
	lowered := strings.ToLower(token)
	return func(rec models.Record) bool {
		label := strings.ToLower(e.labels.StatusLabel(rec.Status))
		if strings.Contains(label, lowered) {
			return true
		}
		return strings.EqualFold(rec.Status, token)
	}
}

func textPredicate(query string) func(models.Record) bool {
	lowered := strings.ToLower(query)
	return func(rec models.Record) bool {
		for _, field := range searchableFields(rec) {
			if field != "" && strings.Contains(strings.ToLower(field), lowered) {
				return true
			}
		}
		return false
	}
}

func searchableFields(rec models.Record) []string {
	fields := []string{rec.Code, rec.Customer.DisplayName(), rec.DeclaredFault}
	if rec.Device != nil {
		fields = append(fields, rec.Device.Brand, rec.Device.Model, rec.Device.SerialNumber)
	}
	return fields
}

// datePredicate treats a zero bound as open-ended.
func (e *Engine) datePredicate(d DateFilter) func(models.Record) bool {
	from, to := math.MinInt, math.MaxInt
	if !d.Start.IsZero() {
		from = utils.DayKey(d.Start, e.loc)
	}
	if !d.End.IsZero() {
		to = utils.DayKey(d.End, e.loc)
	}
	return func(rec models.Record) bool {
		day := utils.DayKey(rec.ComparisonDate(), e.loc)
		return from <= day && day <= to
	}
}
