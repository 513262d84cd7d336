package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/repairdesk/repairdesk-search/internal/lookup"
	"github.com/repairdesk/repairdesk-search/internal/models"
)

// lookupStateMsg delivers a controller snapshot into the event loop.
type lookupStateMsg struct {
	state lookup.State[models.DirectoryEntry]
}

// LookupOptions configure a LookupModel.
type LookupOptions struct {
	QuietPeriod time.Duration
	Policy      lookup.Policy
	Clock       lookup.Clock
	Logger      *slog.Logger
}

// LookupModel is a directory typeahead: type to search, arrows to move,
// enter to pick.
type LookupModel struct {
	directory models.Directory
	input     textinput.Model
	ctrl      *lookup.Controller[models.DirectoryEntry]
	states    chan lookup.State[models.DirectoryEntry]
	done      chan struct{}
	closeOnce *sync.Once

	state    lookup.State[models.DirectoryEntry]
	cursor   int
	selected *models.DirectoryEntry
	quitting bool
}

// NewLookupModel wires a controller around search for directory.
func NewLookupModel(directory models.Directory, search lookup.SearchFunc[models.DirectoryEntry], opts LookupOptions) LookupModel {
	states := make(chan lookup.State[models.DirectoryEntry], 32)
	done := make(chan struct{})

	ctrl := lookup.New(search, lookup.Options[models.DirectoryEntry]{
		Name:        string(directory),
		QuietPeriod: opts.QuietPeriod,
		Policy:      opts.Policy,
		Clock:       opts.Clock,
		Logger:      opts.Logger,
		OnChange: func(s lookup.State[models.DirectoryEntry]) {
			select {
			case states <- s:
			case <-done:
			}
		},
	})

	in := textinput.New()
	in.Placeholder = fmt.Sprintf("cerca %s…", directoryNoun(directory))
	in.CharLimit = 80
	in.Width = 40
	in.Focus()

	return LookupModel{
		directory: directory,
		input:     in,
		ctrl:      ctrl,
		states:    states,
		done:      done,
		closeOnce: &sync.Once{},
	}
}

func directoryNoun(d models.Directory) string {
	if d == models.DirectoryDevices {
		return "dispositivo"
	}
	return "cliente"
}

// Init implements tea.Model.
func (m LookupModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForState())
}

func (m LookupModel) waitForState() tea.Cmd {
	states, done := m.states, m.done
	return func() tea.Msg {
		select {
		case s := <-states:
			return lookupStateMsg{state: s}
		case <-done:
			return nil
		}
	}
}

// Update implements tea.Model.
func (m LookupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case lookupStateMsg:
		if msg.state.Version > m.state.Version {
			m.state = msg.state
			if m.cursor >= len(m.state.Results) {
				m.cursor = 0
			}
		}
		return m, m.waitForState()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			m.close()
			return m, tea.Quit
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down":
			if m.cursor < len(m.state.Results)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			if m.cursor < len(m.state.Results) {
				entry := m.state.Results[m.cursor]
				m.selected = &entry
				m.ctrl.Select(entry)
				m.close()
				return m, tea.Quit
			}
			return m, nil
		}

		var cmd tea.Cmd
		before := m.input.Value()
		m.input, cmd = m.input.Update(msg)
		if after := m.input.Value(); after != before {
			m.ctrl.Input(after)
		}
		return m, cmd
	}
	return m, nil
}

func (m LookupModel) close() {
	m.closeOnce.Do(func() {
		m.ctrl.Close()
		close(m.done)
	})
}

// Selected returns the picked entry, if any.
func (m LookupModel) Selected() (models.DirectoryEntry, bool) {
	if m.selected == nil {
		return models.DirectoryEntry{}, false
	}
	return *m.selected, true
}

// View implements tea.Model.
func (m LookupModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Rubrica " + string(m.directory)))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.state.Loading():
		b.WriteString(mutedStyle.Render("ricerca…"))
		b.WriteString("\n")
	case m.state.Err != nil:
		b.WriteString(errorStyle.Render("ricerca non disponibile"))
		b.WriteString("\n")
	case strings.TrimSpace(m.state.Query) != "" && len(m.state.Results) == 0 && m.state.Seq > 0:
		b.WriteString(mutedStyle.Render("nessun risultato"))
		b.WriteString("\n")
	}

	for i, entry := range m.state.Results {
		line := entry.Label()
		if i == m.cursor {
			line = selectedStyle.Render("› " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("↑/↓: scegli · enter: seleziona · esc: annulla"))
	return b.String()
}
