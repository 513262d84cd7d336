package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelsFallBackToRawCode(t *testing.T) {
	l := DefaultLabels().WithOverrides(map[string]string{"legacy": "Storico"}, nil, nil)

	assert.Equal(t, "Ricevuto", l.StatusLabel("received"))
	assert.Equal(t, "Storico", l.StatusLabel("LEGACY"))
	assert.Equal(t, "custom_state", l.StatusLabel("custom_state"))
	assert.Equal(t, "", l.StatusLabel(""))
	assert.Equal(t, "", l.PaymentLabel("  "))
}

func TestFacetLabelOnlyFillsBlanks(t *testing.T) {
	assert.Equal(t, UnspecifiedLabel, FacetLabel(""))
	assert.Equal(t, UnspecifiedLabel, FacetLabel("  "))
	assert.Equal(t, "Pagato", FacetLabel("Pagato"))
}
