// Package tui provides the terminal screens of the search console.
//
// # Description
//
// SearchModel drives one ticket or purchase search screen on top of a
// services.SearchSession. LookupModel is the directory typeahead built on
// lookup.Controller.
//
// # Thread Safety
//
// Models are used from the bubbletea event loop only. Background work
// reports back through tea.Msg values.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	cardStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	passStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// bar renders a proportional bar for a chart slice.
func bar(share float64, width int) string {
	if width <= 0 {
		return ""
	}
	n := int(share*float64(width) + 0.5)
	if n > width {
		n = width
	}
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func money(d decimal.Decimal) string {
	return fmt.Sprintf("€ %s", d.StringFixed(2))
}
