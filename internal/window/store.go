// Package window holds the time-bounded record collection behind a search screen.
//
// The store is only ever replaced wholesale. Load and Expand both re-fetch the
// full window; there is no append or merge, so records at window boundaries
// can never be duplicated or dropped by an incremental update.
package window

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/repairdesk/repairdesk-search/internal/metrics"
	"github.com/repairdesk/repairdesk-search/internal/models"
)

// Fetcher retrieves every record of one kind inside a window.
type Fetcher interface {
	SearchRecords(ctx context.Context, req models.SearchRequest) ([]models.Record, error)
}

// Options configure the fetch requests a Store issues.
type Options struct {
	TenantID       string
	Kind           models.RecordKind
	PageSize       int
	SortBy         string
	SortDescending bool
}

// Store is the current window and its records.
type Store struct {
	fetcher Fetcher
	opts    Options
	logger  *slog.Logger

	mu      sync.RWMutex
	window  models.DateWindow
	records []models.Record
	loaded  bool
	err     error
}

// NewStore constructs an empty store.
func NewStore(logger *slog.Logger, fetcher Fetcher, opts Options) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 1000
	}
	if opts.SortBy == "" {
		opts.SortBy = "createdAt"
	}
	if opts.Kind == "" {
		opts.Kind = models.KindTicket
	}
	return &Store{fetcher: fetcher, opts: opts, logger: logger}
}

// Load replaces the collection with the records inside w. On failure the
// previous collection and window are kept and the error is retained.
func (s *Store) Load(ctx context.Context, w models.DateWindow) error {
	return s.replace(ctx, "load", w)
}

// Expand widens the window. Mechanically identical to Load: the wider window
// is fetched in full and replaces the collection.
func (s *Store) Expand(ctx context.Context, w models.DateWindow) error {
	return s.replace(ctx, "expand", w)
}

func (s *Store) replace(ctx context.Context, op string, w models.DateWindow) error {
	if s.fetcher == nil {
		return s.fail(op, fmt.Errorf("record fetcher not configured"))
	}
	if w.End.Before(w.Start) {
		return s.fail(op, fmt.Errorf("window end %s precedes start %s", w.End, w.Start))
	}

	req := models.SearchRequest{
		TenantID:       s.opts.TenantID,
		Kind:           s.opts.Kind,
		From:           w.Start,
		To:             w.End,
		Page:           1,
		PageSize:       s.opts.PageSize,
		SortBy:         s.opts.SortBy,
		SortDescending: s.opts.SortDescending,
	}

	started := time.Now()
	records, err := s.fetcher.SearchRecords(ctx, req)
	if err != nil {
		metrics.ObserveWindowFetch(string(s.opts.Kind), op, time.Since(started), metrics.OutcomeError)
		return s.fail(op, err)
	}
	metrics.ObserveWindowFetch(string(s.opts.Kind), op, time.Since(started), metrics.OutcomeSuccess)

	s.mu.Lock()
	s.window = w
	s.records = records
	s.loaded = true
	s.err = nil
	s.mu.Unlock()

	metrics.SetWindowSize(string(s.opts.Kind), len(records))
	s.logger.Info("record window replaced",
		slog.String("op", op),
		slog.String("kind", string(s.opts.Kind)),
		slog.Time("from", w.Start),
		slog.Time("to", w.End),
		slog.Int("records", len(records)),
	)
	return nil
}

func (s *Store) fail(op string, err error) error {
	wrapped := fmt.Errorf("%s record window: %w", op, err)
	s.mu.Lock()
	s.err = wrapped
	kept := len(s.records)
	s.mu.Unlock()
	s.logger.Warn("record window fetch failed", slog.String("op", op), slog.Int("kept_records", kept), slog.Any("error", err))
	return wrapped
}

// Records returns a copy of the current collection.
func (s *Store) Records() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Record(nil), s.records...)
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Window returns the bounds of the current collection.
func (s *Store) Window() models.DateWindow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

// Loaded reports whether any fetch has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Err returns the error of the most recent attempt, nil after a success.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// CanExpand reports whether older data can still be requested: the current
// window must start in a year more recent than now minus years.
func (s *Store) CanExpand(now time.Time, years int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return false
	}
	return s.window.Start.Year() > now.AddDate(-years, 0, 0).Year()
}
