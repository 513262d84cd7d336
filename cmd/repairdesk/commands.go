package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/repairdesk/repairdesk-search/internal/aggregate"
	"github.com/repairdesk/repairdesk-search/internal/daterange"
	"github.com/repairdesk/repairdesk-search/internal/diagnostics"
	"github.com/repairdesk/repairdesk-search/internal/models"
	"github.com/repairdesk/repairdesk-search/internal/services"
	"github.com/repairdesk/repairdesk-search/internal/tui"
	"github.com/repairdesk/repairdesk-search/internal/utils"
)

// =============================================================================
// Interactive search
// =============================================================================

func newSearchCmd(use, short string, kind models.RecordKind) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			_, stopOps, err := a.startOps()
			if err != nil {
				return err
			}
			defer stopOps()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			model := tui.NewSearchModel(ctx, a.session(kind), a.labels)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
}

// =============================================================================
// Facet report
// =============================================================================

type facetsOptions struct {
	kind      string
	period    string
	status    string
	text      string
	from      string
	to        string
	expand    bool
	jsonOut   bool
	cardsOnly bool
}

type facetReport struct {
	Kind    string                         `json:"kind"`
	From    string                         `json:"from"`
	To      string                         `json:"to"`
	Window  int                            `json:"windowRecords"`
	Matched int                            `json:"matchedRecords"`
	Facets  map[string][]models.FacetCount `json:"facets"`
}

func newFacetsCmd() *cobra.Command {
	var opts facetsOptions
	cmd := &cobra.Command{
		Use:   "facets",
		Short: "Print facet counts for a filtered window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			return runFacets(cmd.Context(), a, opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.kind, "kind", string(models.KindTicket), "Record kind: ticket or purchase")
	f.StringVar(&opts.period, "period", "", "Date preset: today, week, month, year")
	f.StringVar(&opts.status, "status", "", "Status code or label fragment")
	f.StringVar(&opts.text, "text", "", "Free-text query")
	f.StringVar(&opts.from, "from", "", "Custom range start (YYYY-MM-DD)")
	f.StringVar(&opts.to, "to", "", "Custom range end (YYYY-MM-DD)")
	f.BoolVar(&opts.expand, "expand", false, "Search the wider trailing window")
	f.BoolVar(&opts.jsonOut, "json", false, "Emit JSON")
	f.BoolVar(&opts.cardsOnly, "cards", false, "Only the summary-card cut of each facet")
	return cmd
}

func runFacets(ctx context.Context, a *app, opts facetsOptions, out io.Writer) error {
	kind := models.RecordKind(strings.ToLower(opts.kind))
	if kind != models.KindTicket && kind != models.KindPurchase {
		return fmt.Errorf("unknown kind %q", opts.kind)
	}

	session := a.session(kind)
	if err := session.Mount(ctx); err != nil {
		return err
	}
	if opts.expand {
		if err := session.ExpandWindow(ctx); err != nil {
			return err
		}
	}

	session.SetStatus(opts.status)
	if _, applied := session.SetText(opts.text); !applied {
		return utils.NewAppError("facets", utils.KindValidation, "text query too short", nil)
	}
	var view services.View
	switch {
	case opts.from != "" || opts.to != "":
		v, err := session.SetCustomRange(opts.from, opts.to)
		if err != nil {
			return err
		}
		view = v
	default:
		view = session.SetDatePeriod(daterange.ParsePeriod(opts.period))
	}

	report := facetReport{
		Kind:    string(kind),
		From:    utils.FormatDay(view.Window.Start),
		To:      utils.FormatDay(view.Window.End),
		Window:  view.WindowLen,
		Matched: len(view.Records),
		Facets:  make(map[string][]models.FacetCount, len(aggregate.Facets)),
	}
	for _, facet := range aggregate.Facets {
		counts := view.Dashboard.Facet(facet)
		if opts.cardsOnly {
			counts = view.Dashboard.Cards(facet)
		}
		report.Facets[string(facet)] = counts
	}

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(out, "%s %s..%s: %d of %d records\n", report.Kind, report.From, report.To, report.Matched, report.Window)
	for _, facet := range aggregate.Facets {
		fmt.Fprintf(out, "\n%s\n", facet)
		for _, c := range report.Facets[string(facet)] {
			fmt.Fprintf(out, "  %-28s %6d  %5.1f%%\n", c.Label, c.Count, 100*view.Dashboard.Share(c))
		}
	}
	return nil
}

// =============================================================================
// Directory lookup
// =============================================================================

func newLookupCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:       "lookup (customers|devices) [query]",
		Short:     "Search the customer or device directory",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{string(models.DirectoryCustomers), string(models.DirectoryDevices)},
		RunE: func(cmd *cobra.Command, args []string) error {
			directory := models.Directory(args[0])
			if directory != models.DirectoryCustomers && directory != models.DirectoryDevices {
				return fmt.Errorf("unknown directory %q", args[0])
			}

			interactive := len(args) == 1
			a, err := newApp(interactive)
			if err != nil {
				return err
			}
			defer a.Close()

			_, stopOps, err := a.startOps()
			if err != nil {
				return err
			}
			defer stopOps()

			search := a.searchFunc(directory, refresh)
			if !interactive {
				entries, err := search(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintln(cmd.OutOrStdout(), e.Label())
				}
				return nil
			}

			model := tui.NewLookupModel(directory, search, tui.LookupOptions{
				QuietPeriod: a.cfg.Lookup.QuietPeriod,
				Policy:      a.policy,
				Logger:      a.logger,
			})
			final, err := tea.NewProgram(model).Run()
			if err != nil {
				return err
			}
			if entry, ok := final.(tui.LookupModel).Selected(); ok {
				fmt.Fprintln(cmd.OutOrStdout(), entry.Label())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Drop cached results and ask the directory service again")
	return cmd
}

// =============================================================================
// Diagnostics
// =============================================================================

func newDiagnosticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Show or record the diagnostic sheet of a ticket",
	}

	show := &cobra.Command{
		Use:   "show RECORD_ID",
		Short: "Print the tested attributes of a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			detail, err := a.session(models.KindTicket).Diagnostics(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printDiagnostics(cmd.OutOrStdout(), detail)
			return nil
		},
	}

	var fillUntested bool
	save := &cobra.Command{
		Use:   "save RECORD_ID attribute=true|false...",
		Short: "Write the full diagnostic sheet of a ticket",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.session(models.KindTicket).SaveDiagnostics(cmd.Context(), args[0], rec, fillUntested)
		},
	}
	save.Flags().BoolVar(&fillUntested, "fill-untested", false, "Record untested attributes as failed instead of refusing")

	cmd.AddCommand(show, save)
	return cmd
}

// parseAssignments reads attribute=bool pairs, storing each under its canonical name.
func parseAssignments(args []string) (diagnostics.Record, error) {
	rec := diagnostics.Record{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("expected attribute=true|false, got %q", arg)
		}
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", key, err)
		}
		rec[diagnostics.Canonical(strings.TrimSpace(key))] = b
	}
	return rec, nil
}

func printDiagnostics(out io.Writer, detail services.DiagnosticsDetail) {
	if !detail.Found {
		fmt.Fprintf(out, "%s: not yet tested\n", detail.RecordID)
		return
	}
	t := detail.Totals
	fmt.Fprintf(out, "%s: %d tests, %d passed, %d failed\n", detail.RecordID, t.Performed, t.Passed, t.Failed)
	for _, section := range detail.Sections {
		fmt.Fprintf(out, "\n%s\n", section.Label)
		entries := append([]diagnostics.Entry(nil), section.Entries...)
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].State > entries[j].State })
		for _, e := range entries {
			mark := "FAIL"
			if e.State == diagnostics.True {
				mark = "ok"
			}
			fmt.Fprintf(out, "  %-4s %s\n", mark, e.Attribute.Label)
		}
	}
}
