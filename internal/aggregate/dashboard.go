package aggregate

import "github.com/repairdesk/repairdesk-search/internal/models"

// Dashboard is every facet of one filtered view, recomputed from scratch.
type Dashboard struct {
	Total     int
	Status    []models.FacetCount
	Payment   []models.FacetCount
	Condition []models.FacetCount
}

// Build computes the dashboard for records.
func Build(records []models.Record, labels models.Labels) Dashboard {
	return Dashboard{
		Total:     len(records),
		Status:    Aggregate(records, FacetStatus, labels),
		Payment:   Aggregate(records, FacetPayment, labels),
		Condition: Aggregate(records, FacetCondition, labels),
	}
}

// Facet returns the full ordered counts for f, for chart rendering.
func (d Dashboard) Facet(f Facet) []models.FacetCount {
	switch f {
	case FacetPayment:
		return d.Payment
	case FacetCondition:
		return d.Condition
	default:
		return d.Status
	}
}

// Cards returns the summary-card cut of facet f.
func (d Dashboard) Cards(f Facet) []models.FacetCount {
	return Top(d.Facet(f), SummaryCards)
}

// Share returns the fraction of the view a count represents, for chart slices.
func (d Dashboard) Share(c models.FacetCount) float64 {
	if d.Total == 0 {
		return 0
	}
	return float64(c.Count) / float64(d.Total)
}
