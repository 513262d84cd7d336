// Package aggregate derives dashboard facet counts from a filtered record view.
package aggregate

import (
	"sort"

	"github.com/repairdesk/repairdesk-search/internal/models"
)

// Facet names a dimension records are grouped along.
type Facet string

const (
	FacetStatus    Facet = "status"
	FacetPayment   Facet = "payment"
	FacetCondition Facet = "condition"
)

// Facets lists every dimension in dashboard order.
var Facets = []Facet{FacetStatus, FacetPayment, FacetCondition}

// SummaryCards is how many facets the summary cards show.
const SummaryCards = 4

// Aggregate groups records by the display label of facet and returns the
// counts ordered by descending count. Equal counts keep the order in which
// their label first appeared. The counts always sum to len(records).
func Aggregate(records []models.Record, facet Facet, labels models.Labels) []models.FacetCount {
	labelOf := labeler(facet, labels)

	index := make(map[string]int)
	counts := make([]models.FacetCount, 0)
	for _, rec := range records {
		label := labelOf(rec)
		i, ok := index[label]
		if !ok {
			i = len(counts)
			index[label] = i
			counts = append(counts, models.FacetCount{Label: label})
		}
		counts[i].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

// Top returns at most n leading counts.
func Top(counts []models.FacetCount, n int) []models.FacetCount {
	if n < 0 {
		n = 0
	}
	if len(counts) > n {
		counts = counts[:n]
	}
	return append([]models.FacetCount(nil), counts...)
}

// Total sums every count.
func Total(counts []models.FacetCount) int {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return total
}

func labeler(facet Facet, labels models.Labels) func(models.Record) string {
	switch facet {
	case FacetPayment:
		return func(r models.Record) string { return models.FacetLabel(labels.PaymentLabel(r.PaymentStatus)) }
	case FacetCondition:
		return func(r models.Record) string { return models.FacetLabel(labels.ConditionLabel(r.Condition)) }
	default:
		return func(r models.Record) string { return models.FacetLabel(labels.StatusLabel(r.Status)) }
	}
}
