package models

import "strings"

// UnspecifiedLabel is shown for records that carry no code for a facet.
const UnspecifiedLabel = "Non specificato"

// Labels maps raw codes to display labels for each facet dimension.
type Labels struct {
	Status    map[string]string
	Payment   map[string]string
	Condition map[string]string
}

// DefaultLabels returns the built-in tables used by the shop console.
func DefaultLabels() Labels {
	return Labels{
		Status: map[string]string{
			"RECEIVED":       "Ricevuto",
			"DIAGNOSING":     "In diagnosi",
			"QUOTED":         "Preventivo inviato",
			"WAITING_PARTS":  "In attesa ricambi",
			"IN_REPAIR":      "In riparazione",
			"READY":          "Pronto per il ritiro",
			"DELIVERED":      "Consegnato",
			"NOT_REPAIRABLE": "Non riparabile",
			"CANCELLED":      "Annullato",
			"DRAFT":          "Bozza",
			"ORDERED":        "Ordinato",
			"COMPLETED":      "Completato",
		},
		Payment: map[string]string{
			"UNPAID":   "Non pagato",
			"PARTIAL":  "Acconto",
			"PAID":     "Pagato",
			"REFUNDED": "Rimborsato",
		},
		Condition: map[string]string{
			"NEW":       "Nuovo",
			"EXCELLENT": "Ottimo",
			"GOOD":      "Buono",
			"FAIR":      "Discreto",
			"POOR":      "Scarso",
			"BROKEN":    "Guasto",
		},
	}
}

// WithOverrides returns a copy of l with the given entries replacing or
// extending the built-in ones. Keys are matched case-insensitively.
func (l Labels) WithOverrides(status, payment, condition map[string]string) Labels {
	return Labels{
		Status:    mergeLabels(l.Status, status),
		Payment:   mergeLabels(l.Payment, payment),
		Condition: mergeLabels(l.Condition, condition),
	}
}

// StatusLabel returns the display label for a status code, falling back to the raw code.
func (l Labels) StatusLabel(code string) string { return lookupLabel(l.Status, code) }

// PaymentLabel returns the display label for a payment status code.
func (l Labels) PaymentLabel(code string) string { return lookupLabel(l.Payment, code) }

// ConditionLabel returns the display label for a device condition code.
func (l Labels) ConditionLabel(code string) string { return lookupLabel(l.Condition, code) }

// FacetLabel is label, or UnspecifiedLabel when label is blank. Only facet
// grouping uses the placeholder; matching sees the raw code.
func FacetLabel(label string) string {
	if strings.TrimSpace(label) == "" {
		return UnspecifiedLabel
	}
	return label
}

func lookupLabel(table map[string]string, code string) string {
	trimmed := strings.TrimSpace(code)
	if label, ok := table[strings.ToUpper(trimmed)]; ok {
		return label
	}
	return code
}

func mergeLabels(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}
