package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/repairdesk/repairdesk-search/internal/aggregate"
	"github.com/repairdesk/repairdesk-search/internal/daterange"
	"github.com/repairdesk/repairdesk-search/internal/diagnostics"
	"github.com/repairdesk/repairdesk-search/internal/models"
	"github.com/repairdesk/repairdesk-search/internal/services"
	"github.com/repairdesk/repairdesk-search/internal/utils"
)

// =============================================================================
// Messages
// =============================================================================

// windowLoadedMsg carries the view after a mount or expand completes.
type windowLoadedMsg struct {
	view services.View
	err  error
}

// diagnosticsMsg carries a fetched diagnostic detail.
type diagnosticsMsg struct {
	detail services.DiagnosticsDetail
	err    error
}

// =============================================================================
// Model
// =============================================================================

type searchField int

const (
	fieldText searchField = iota
	fieldStatus
	fieldFrom
	fieldTo
	fieldCount
)

// SearchModel is the bubbletea model for a ticket or purchase search screen.
type SearchModel struct {
	ctx     context.Context
	session *services.SearchSession
	labels  models.Labels

	inputs [fieldCount]textinput.Model
	focus  searchField
	preset int

	view    services.View
	cursor  int
	loading bool
	notice  string
	err     error

	detail     *services.DiagnosticsDetail
	detailCode string

	width  int
	height int
}

// NewSearchModel creates a screen bound to session. ctx bounds the fetches
// the screen starts.
func NewSearchModel(ctx context.Context, session *services.SearchSession, labels models.Labels) SearchModel {
	m := SearchModel{ctx: ctx, session: session, labels: labels, loading: true}
	placeholders := [fieldCount]string{"codice, cliente, dispositivo…", "stato", "dal (aaaa-mm-gg)", "al (aaaa-mm-gg)"}
	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = 64
		in.Width = 28
		m.inputs[i] = in
	}
	m.inputs[fieldText].Focus()
	m.view = session.View()
	return m
}

// Init implements tea.Model.
func (m SearchModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.mountCmd())
}

func (m SearchModel) mountCmd() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		err := session.Mount(ctx)
		return windowLoadedMsg{view: session.View(), err: err}
	}
}

func (m SearchModel) expandCmd() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		err := session.ExpandWindow(ctx)
		return windowLoadedMsg{view: session.View(), err: err}
	}
}

func (m SearchModel) diagnosticsCmd(recordID string) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		detail, err := session.Diagnostics(ctx, recordID)
		return diagnosticsMsg{detail: detail, err: err}
	}
}

// Update implements tea.Model.
func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case windowLoadedMsg:
		m.loading = false
		m.setView(msg.view)
		m.err = msg.err
		if errors.Is(msg.err, services.ErrExpandUnavailable) {
			m.err = nil
			m.notice = "finestra già estesa al massimo"
		}
		return m, nil

	case diagnosticsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.detail = &msg.detail
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m SearchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.detail != nil {
		switch msg.String() {
		case "esc", "enter", "q":
			m.detail = nil
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "shift+tab":
		m.moveFocus(msg.String() == "tab")
		return m, nil
	case "ctrl+p":
		m.preset = (m.preset + 1) % len(daterange.Presets)
		m.notice = ""
		m.setView(m.session.SetDatePeriod(daterange.Presets[m.preset]))
		return m, nil
	case "ctrl+e":
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.notice = "caricamento dati meno recenti…"
		return m, m.expandCmd()
	case "ctrl+r":
		m.resetInputs()
		m.preset = 0
		m.setView(m.session.ClearFilters())
		return m, nil
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.cursor < len(m.view.Records)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		if m.focus == fieldFrom || m.focus == fieldTo {
			return m.applyCustomRange(), nil
		}
		if rec, ok := m.Selected(); ok && rec.Kind == models.KindTicket {
			m.detailCode = rec.Code
			return m, m.diagnosticsCmd(rec.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	before := m.inputs[m.focus].Value()
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	after := m.inputs[m.focus].Value()
	if before != after {
		m.applyField(m.focus, after)
	}
	return m, cmd
}

func (m *SearchModel) moveFocus(forward bool) {
	m.inputs[m.focus].Blur()
	if forward {
		m.focus = (m.focus + 1) % fieldCount
	} else {
		m.focus = (m.focus + fieldCount - 1) % fieldCount
	}
	m.inputs[m.focus].Focus()
}

func (m *SearchModel) resetInputs() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
}

// applyField pushes a changed input into the session. Text below the
// minimum length is held back by the session.
func (m *SearchModel) applyField(field searchField, value string) {
	m.notice = ""
	switch field {
	case fieldText:
		view, applied := m.session.SetText(value)
		if !applied {
			m.notice = "digita almeno tre caratteri"
			return
		}
		m.setView(view)
	case fieldStatus:
		m.setView(m.session.SetStatus(value))
	}
}

func (m SearchModel) applyCustomRange() SearchModel {
	view, err := m.session.SetCustomRange(m.inputs[fieldFrom].Value(), m.inputs[fieldTo].Value())
	if err != nil {
		if utils.IsKind(err, utils.KindValidation) {
			m.notice = "intervallo non valido: indica entrambe le date in ordine"
			return m
		}
		m.err = err
		return m
	}
	m.notice = ""
	m.setView(view)
	return m
}

func (m *SearchModel) setView(v services.View) {
	m.view = v
	if m.cursor >= len(v.Records) {
		m.cursor = len(v.Records) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Selected returns the record under the cursor.
func (m SearchModel) Selected() (models.Record, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Records) {
		return models.Record{}, false
	}
	return m.view.Records[m.cursor], true
}

// CurrentView exposes the last rendered session view.
func (m SearchModel) CurrentView() services.View { return m.view }

// =============================================================================
// Rendering
// =============================================================================

// View implements tea.Model.
func (m SearchModel) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.detail != nil {
		b.WriteString(m.renderDiagnostics())
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("esc: chiudi"))
		return b.String()
	}

	b.WriteString(m.renderFilters())
	b.WriteString("\n\n")
	b.WriteString(m.renderCards())
	b.WriteString("\n")
	b.WriteString(m.renderTable())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m SearchModel) renderHeader() string {
	title := "Ricerca schede di riparazione"
	if m.view.Kind == models.KindPurchase {
		title = "Ricerca acquisti"
	}
	line := titleStyle.Render(title)
	switch {
	case m.loading:
		line += mutedStyle.Render("  caricamento…")
	case m.view.Loaded:
		line += mutedStyle.Render(fmt.Sprintf("  %s → %s · %d/%d",
			utils.FormatDay(m.view.Window.Start), utils.FormatDay(m.view.Window.End),
			len(m.view.Records), m.view.WindowLen))
	}
	return line
}

func (m SearchModel) renderFilters() string {
	labels := [fieldCount]string{"Testo", "Stato", "Dal", "Al"}
	var parts []string
	for i, in := range m.inputs {
		label := labels[i]
		if searchField(i) == m.focus {
			label = focusStyle.Render(label)
		}
		parts = append(parts, label+" "+in.View())
	}
	period := daterange.Presets[m.preset]
	if m.view.Criteria.Date.Kind == daterange.PeriodCustom {
		period = daterange.PeriodCustom
	}
	parts = append(parts, "Periodo: "+string(period))
	return strings.Join(parts, "\n")
}

func (m SearchModel) renderCards() string {
	d := m.view.Dashboard
	var cards []string
	for _, facet := range aggregate.Facets {
		var lines []string
		lines = append(lines, titleStyle.Render(string(facet)))
		for _, c := range d.Cards(facet) {
			lines = append(lines, fmt.Sprintf("%-22s %4d %s", truncate(c.Label, 22), c.Count, bar(d.Share(c), 10)))
		}
		if len(lines) == 1 {
			lines = append(lines, mutedStyle.Render("nessun dato"))
		}
		cards = append(cards, cardStyle.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m SearchModel) renderTable() string {
	if !m.view.Loaded && !m.loading {
		return mutedStyle.Render("nessuna scheda caricata")
	}
	if len(m.view.Records) == 0 {
		return mutedStyle.Render("nessun risultato")
	}

	rows := m.height - 20
	if rows < 10 {
		rows = 10
	}
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := start + rows
	if end > len(m.view.Records) {
		end = len(m.view.Records)
	}

	var b strings.Builder
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%-10s %-10s %-22s %-20s %-20s %10s", "Codice", "Data", "Cliente", "Dispositivo", "Stato", "Saldo")))
	b.WriteString("\n")
	for i := start; i < end; i++ {
		rec := m.view.Records[i]
		line := fmt.Sprintf("%-10s %-10s %-22s %-20s %-20s %10s",
			truncate(rec.Code, 10),
			utils.FormatDay(rec.ComparisonDate()),
			truncate(rec.Customer.DisplayName(), 22),
			truncate(rec.Device.DisplayName(), 20),
			truncate(m.labels.StatusLabel(rec.Status), 20),
			money(rec.Balance()),
		)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m SearchModel) renderFooter() string {
	var lines []string
	if m.err != nil {
		lines = append(lines, errorStyle.Render("errore: "+m.err.Error()))
	}
	if m.notice != "" {
		lines = append(lines, mutedStyle.Render(m.notice))
	}
	help := "tab: campo · ctrl+p: periodo · ctrl+r: azzera · enter: diagnosi · esc: esci"
	if m.view.CanExpand {
		help = "ctrl+e: carica dati meno recenti · " + help
	}
	lines = append(lines, mutedStyle.Render(help))
	return strings.Join(lines, "\n")
}

func (m SearchModel) renderDiagnostics() string {
	d := m.detail
	var b strings.Builder
	b.WriteString(titleStyle.Render("Diagnosi " + m.detailCode))
	b.WriteString("\n")
	if !d.Found {
		b.WriteString(mutedStyle.Render("dispositivo non ancora testato"))
		return b.String()
	}
	b.WriteString(fmt.Sprintf("test eseguiti %d · superati %d · falliti %d\n", d.Totals.Performed, d.Totals.Passed, d.Totals.Failed))
	for _, section := range d.Sections {
		b.WriteString("\n" + section.Label + "\n")
		for _, e := range section.Entries {
			state := errorStyle.Render("✗")
			if e.State == diagnostics.True {
				state = passStyle.Render("✓")
			}
			b.WriteString(fmt.Sprintf("  %s %s\n", state, e.Attribute.Label))
		}
	}
	return b.String()
}
