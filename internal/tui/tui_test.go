package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repairdesk-search/internal/diagnostics"
	"github.com/repairdesk/repairdesk-search/internal/lookup"
	"github.com/repairdesk/repairdesk-search/internal/models"
	"github.com/repairdesk/repairdesk-search/internal/services"
)

type fetcherStub struct{ records []models.Record }

func (f fetcherStub) SearchRecords(context.Context, models.SearchRequest) ([]models.Record, error) {
	return f.records, nil
}

type diagStub struct{}

func (diagStub) FetchDiagnostics(context.Context, string, string) (diagnostics.Record, bool, error) {
	return diagnostics.Record{"scanner": true, "wiFi": false}, true, nil
}

func (diagStub) UpsertDiagnostics(context.Context, string, string, diagnostics.Record, bool) error {
	return nil
}

var now = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

func newTestSearchModel(t *testing.T) SearchModel {
	t.Helper()
	records := []models.Record{
		{ID: "1", Kind: models.KindTicket, Code: "T-100", Status: "RECEIVED", CreatedAt: now.AddDate(0, 0, -3),
			Customer: &models.Customer{FirstName: "Mario", LastName: "Rossi"}, Device: &models.Device{Brand: "Apple", Model: "iPhone 12"}},
		{ID: "2", Kind: models.KindTicket, Code: "T-101", Status: "READY", CreatedAt: now,
			Customer: &models.Customer{CompanyName: "Bianchi Srl"}},
		{ID: "3", Kind: models.KindTicket, Code: "T-102", Status: "DELIVERED", CreatedAt: now.AddDate(0, -5, 0)},
	}
	labels := models.DefaultLabels()
	session := services.NewSearchSession(nil, fetcherStub{records: records}, diagStub{}, services.SessionOptions{
		TenantID: "shop-1",
		Location: time.UTC,
		Labels:   labels,
		Now:      func() time.Time { return now },
	})
	m := NewSearchModel(context.Background(), session, labels)
	return update(t, m, m.mountCmd()()).(SearchModel)
}

func update(t *testing.T, m tea.Model, msg tea.Msg) tea.Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next
}

func typeText(t *testing.T, m tea.Model, s string) tea.Model {
	t.Helper()
	for _, r := range s {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestSearchModelMountsWindow(t *testing.T) {
	m := newTestSearchModel(t)
	assert.False(t, m.loading)
	assert.Len(t, m.CurrentView().Records, 3)
	assert.Contains(t, m.View(), "T-100")
	assert.Contains(t, m.View(), "Ricevuto")
}

func TestSearchModelTextFilter(t *testing.T) {
	m := newTestSearchModel(t)

	held := typeText(t, m, "ro").(SearchModel)
	assert.Len(t, held.CurrentView().Records, 3)
	assert.Contains(t, held.View(), "almeno tre caratteri")

	filtered := typeText(t, held, "s").(SearchModel)
	require.Len(t, filtered.CurrentView().Records, 1)
	assert.Equal(t, "T-100", filtered.CurrentView().Records[0].Code)
}

func TestSearchModelStatusFilter(t *testing.T) {
	m := newTestSearchModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab}).(SearchModel)
	m = typeText(t, m, "pronto").(SearchModel)

	require.Len(t, m.CurrentView().Records, 1)
	assert.Equal(t, "T-101", m.CurrentView().Records[0].Code)
}

func TestSearchModelCyclesPresets(t *testing.T) {
	m := newTestSearchModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP}).(SearchModel)

	assert.Len(t, m.CurrentView().Records, 1, "today")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR}).(SearchModel)
	assert.Len(t, m.CurrentView().Records, 3)
}

func TestSearchModelRejectsInvertedCustomRange(t *testing.T) {
	m := newTestSearchModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab}).(SearchModel)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab}).(SearchModel)
	m = typeText(t, m, "2024-03-13").(SearchModel)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab}).(SearchModel)
	m = typeText(t, m, "2024-03-01").(SearchModel)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter}).(SearchModel)

	assert.Contains(t, m.View(), "intervallo non valido")
	assert.Len(t, m.CurrentView().Records, 3)
}

func TestSearchModelOpensDiagnostics(t *testing.T) {
	m := newTestSearchModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	m = update(t, next, cmd()).(SearchModel)
	view := m.View()
	assert.Contains(t, view, "Diagnosi T-100")
	assert.Contains(t, view, "test eseguiti 2")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc}).(SearchModel)
	assert.Nil(t, m.detail)
}

func TestSearchModelExpandAtLimit(t *testing.T) {
	m := newTestSearchModel(t)
	m = update(t, m, windowLoadedMsg{view: m.CurrentView(), err: services.ErrExpandUnavailable}).(SearchModel)
	assert.NoError(t, m.err)
	assert.Contains(t, m.View(), "estesa al massimo")
}

func drainLookup(t *testing.T, m LookupModel, until func(LookupModel) bool) LookupModel {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !until(m) {
		msgs := make(chan tea.Msg, 1)
		go func() { msgs <- m.waitForState()() }()
		select {
		case msg := <-msgs:
			m = update(t, m, msg).(LookupModel)
		case <-deadline:
			t.Fatalf("timed out waiting for lookup state")
		}
	}
	return m
}

func TestLookupModelSelectsEntry(t *testing.T) {
	search := func(_ context.Context, q string) ([]models.DirectoryEntry, error) {
		return []models.DirectoryEntry{
			{Customer: &models.Customer{FirstName: "Mario", LastName: "Rossi " + q}},
			{Customer: &models.Customer{FirstName: "Maria", LastName: "Rossi " + q}},
		}, nil
	}
	m := NewLookupModel(models.DirectoryCustomers, search, LookupOptions{QuietPeriod: 20 * time.Millisecond, Policy: lookup.LatestIssued})
	m = typeText(t, m, "ros").(LookupModel)
	m = drainLookup(t, m, func(m LookupModel) bool {
		return len(m.state.Results) == 2 && strings.HasSuffix(m.state.Results[0].Label(), "ros")
	})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown}).(LookupModel)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	entry, ok := next.(LookupModel).Selected()
	require.True(t, ok)
	assert.Equal(t, "Maria Rossi ros", entry.Label())
}

func TestLookupModelShowsFailure(t *testing.T) {
	search := func(context.Context, string) ([]models.DirectoryEntry, error) {
		return nil, errors.New("503")
	}
	m := NewLookupModel(models.DirectoryDevices, search, LookupOptions{QuietPeriod: time.Millisecond})
	defer m.close()
	m = typeText(t, m, "sam").(LookupModel)
	m = drainLookup(t, m, func(m LookupModel) bool { return m.state.Err != nil })

	assert.True(t, strings.Contains(m.View(), "ricerca non disponibile"))
	_, ok := m.Selected()
	assert.False(t, ok)
}
