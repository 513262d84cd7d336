package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/repairdesk/repairdesk-search/internal/aggregate"
	"github.com/repairdesk/repairdesk-search/internal/daterange"
	"github.com/repairdesk/repairdesk-search/internal/diagnostics"
	"github.com/repairdesk/repairdesk-search/internal/filter"
	"github.com/repairdesk/repairdesk-search/internal/metrics"
	"github.com/repairdesk/repairdesk-search/internal/models"
	"github.com/repairdesk/repairdesk-search/internal/window"
)

// ErrExpandUnavailable is returned when the window already reaches the
// widest supported range.
var ErrExpandUnavailable = errors.New("record window cannot be expanded further")

// DiagnosticsRepo defines the diagnostic record operations a session needs.
type DiagnosticsRepo interface {
	FetchDiagnostics(ctx context.Context, tenantID, recordID string) (diagnostics.Record, bool, error)
	UpsertDiagnostics(ctx context.Context, tenantID, recordID string, rec diagnostics.Record, fillAbsent bool) error
}

// SessionOptions configure one search screen.
type SessionOptions struct {
	TenantID       string
	Kind           models.RecordKind
	PageSize       int
	SortBy         string
	SortDescending bool
	InitialYears   int
	ExpandYears    int
	TextMinLength  int
	Location       *time.Location
	Labels         models.Labels
	Now            func() time.Time
}

// View is the rendered state of a session: the filtered records and the
// facets derived from exactly those records.
type View struct {
	Kind      models.RecordKind
	Criteria  filter.Criteria
	Window    models.DateWindow
	Records   []models.Record
	Dashboard aggregate.Dashboard
	Loaded    bool
	WindowLen int
	CanExpand bool
	Err       error
}

// SearchSession orchestrates the window store, filter engine and facet
// aggregation behind one ticket or purchase search screen.
type SearchSession struct {
	logger *slog.Logger
	store  *window.Store
	engine *filter.Engine
	diag   DiagnosticsRepo
	opts   SessionOptions
	text   filter.TextPolicy

	mu       sync.RWMutex
	criteria filter.Criteria
	view     View
}

// NewSearchSession constructs an unmounted session.
func NewSearchSession(logger *slog.Logger, fetcher window.Fetcher, diag DiagnosticsRepo, opts SessionOptions) *SearchSession {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Kind == "" {
		opts.Kind = models.KindTicket
	}
	if opts.InitialYears <= 0 {
		opts.InitialYears = 1
	}
	if opts.ExpandYears < opts.InitialYears {
		opts.ExpandYears = 3
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Labels.Status == nil {
		opts.Labels = models.DefaultLabels()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger = logger.With(slog.String("kind", string(opts.Kind)))
	store := window.NewStore(logger, fetcher, window.Options{
		TenantID:       opts.TenantID,
		Kind:           opts.Kind,
		PageSize:       opts.PageSize,
		SortBy:         opts.SortBy,
		SortDescending: opts.SortDescending,
	})

	s := &SearchSession{
		logger:   logger,
		store:    store,
		engine:   filter.NewEngine(opts.Labels, opts.Location),
		diag:     diag,
		opts:     opts,
		text:     filter.TextPolicy{MinLength: opts.TextMinLength},
		criteria: filter.Criteria{Date: filter.NoDate()},
	}
	s.view = View{Kind: opts.Kind, Criteria: s.criteria}
	return s
}

func (s *SearchSession) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// Mount fetches the trailing initial window and computes the first view.
func (s *SearchSession) Mount(ctx context.Context) error {
	w := daterange.TrailingYears(s.now(), s.opts.InitialYears)
	err := s.store.Load(ctx, w)
	s.recompute()
	return err
}

// ExpandWindow replaces the collection with the wider trailing window.
func (s *SearchSession) ExpandWindow(ctx context.Context) error {
	now := s.now()
	if !s.store.CanExpand(now, s.opts.ExpandYears) {
		return ErrExpandUnavailable
	}
	err := s.store.Expand(ctx, daterange.TrailingYears(now, s.opts.ExpandYears))
	s.recompute()
	return err
}

// SetStatus replaces the status token. Empty clears it.
func (s *SearchSession) SetStatus(status string) View {
	return s.update(func(c filter.Criteria) filter.Criteria { return c.WithStatus(status) })
}

// SetText replaces the free-text query when the policy accepts it. Queries
// below the minimum length leave the applied text untouched and report false.
func (s *SearchSession) SetText(q string) (View, bool) {
	if !s.text.Accept(q) {
		return s.View(), false
	}
	return s.update(func(c filter.Criteria) filter.Criteria { return c.WithText(q) }), true
}

// SetDatePeriod applies a preset resolved against the current time. Unknown
// tokens and "custom" without bounds clear the date constraint.
func (s *SearchSession) SetDatePeriod(period daterange.Period) View {
	d := filter.PresetDate(period, s.now())
	return s.update(func(c filter.Criteria) filter.Criteria { return c.WithDate(d) })
}

// SetCustomRange applies a custom day range. Invalid input changes nothing.
func (s *SearchSession) SetCustomRange(start, end string) (View, error) {
	w, err := daterange.CustomRange(start, end, s.opts.Location)
	if err != nil {
		return s.View(), err
	}
	return s.update(func(c filter.Criteria) filter.Criteria { return c.WithDate(filter.CustomDate(w)) }), nil
}

// ClearFilters drops every constraint.
func (s *SearchSession) ClearFilters() View {
	return s.update(func(filter.Criteria) filter.Criteria {
		return filter.Criteria{Date: filter.NoDate()}
	})
}

// View returns the last computed view.
func (s *SearchSession) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Criteria returns the applied criteria.
func (s *SearchSession) Criteria() filter.Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

func (s *SearchSession) update(change func(filter.Criteria) filter.Criteria) View {
	s.mu.Lock()
	s.criteria = change(s.criteria)
	s.mu.Unlock()
	return s.recompute()
}

// recompute runs filter then aggregation over the current window. It holds
// the session lock so views are produced in criteria order.
func (s *SearchSession) recompute() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	records := s.engine.Apply(s.store.Records(), s.criteria)
	view := View{
		Kind:      s.opts.Kind,
		Criteria:  s.criteria,
		Window:    s.store.Window(),
		Records:   records,
		Dashboard: aggregate.Build(records, s.opts.Labels),
		Loaded:    s.store.Loaded(),
		WindowLen: s.store.Len(),
		CanExpand: s.store.CanExpand(s.now(), s.opts.ExpandYears),
		Err:       s.store.Err(),
	}
	metrics.ObserveRecompute(time.Since(started))
	s.view = view
	return view
}

// DiagnosticsDetail is the diagnostic summary shown for one record.
type DiagnosticsDetail struct {
	RecordID string
	Found    bool
	Record   diagnostics.Record
	Sections []diagnostics.Section
	Totals   diagnostics.Totals
}

// Diagnostics fetches and summarises the diagnostic record of recordID.
func (s *SearchSession) Diagnostics(ctx context.Context, recordID string) (DiagnosticsDetail, error) {
	if s.diag == nil {
		return DiagnosticsDetail{}, fmt.Errorf("diagnostics repository not configured")
	}
	rec, found, err := s.diag.FetchDiagnostics(ctx, s.opts.TenantID, recordID)
	if err != nil {
		s.logger.Error("fetch diagnostics failed", slog.String("record_id", recordID), slog.Any("error", err))
		return DiagnosticsDetail{}, err
	}
	detail := DiagnosticsDetail{RecordID: recordID, Found: found, Record: rec}
	if found {
		detail.Sections = diagnostics.Summarize(rec)
		detail.Totals = diagnostics.Tally(rec)
	}
	return detail, nil
}

// SaveDiagnostics writes the full diagnostic sheet of recordID.
func (s *SearchSession) SaveDiagnostics(ctx context.Context, recordID string, rec diagnostics.Record, fillAbsent bool) error {
	if s.diag == nil {
		return fmt.Errorf("diagnostics repository not configured")
	}
	if err := s.diag.UpsertDiagnostics(ctx, s.opts.TenantID, recordID, rec, fillAbsent); err != nil {
		s.logger.Warn("save diagnostics failed", slog.String("record_id", recordID), slog.Any("error", err))
		return err
	}
	return nil
}
