// Package lookup implements as-you-type directory search gated by a quiet period.
//
// # Description
//
// A Controller records each keystroke immediately, but only issues a remote
// request once input has been idle for the quiet period. Requests carry a
// monotonically increasing sequence number. Under the LatestIssued policy a
// response is shown only if no newer request has been issued since; under
// LastCompleted whichever response arrives last is shown, even if it answers
// an older query.
//
// # Thread Safety
//
// All methods are safe for concurrent use. OnChange and OnSelect are invoked
// without the controller lock held, possibly from timer or request
// goroutines; consumers should order snapshots by State.Version.
package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/repairdesk/repairdesk-search/internal/metrics"
)

// DefaultQuietPeriod is the idle time required before a lookup fires.
const DefaultQuietPeriod = 300 * time.Millisecond

// SearchFunc performs one remote lookup.
type SearchFunc[T any] func(ctx context.Context, query string) ([]T, error)

// Policy decides which completed request populates the suggestions.
type Policy int

const (
	// LatestIssued discards responses to requests older than the newest one issued.
	LatestIssued Policy = iota
	// LastCompleted shows whichever response completes last.
	LastCompleted
)

func (p Policy) String() string {
	if p == LastCompleted {
		return "last-completed"
	}
	return "latest-issued"
}

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "latest-issued", "latest":
		return LatestIssued, nil
	case "last-completed", "legacy":
		return LastCompleted, nil
	default:
		return LatestIssued, fmt.Errorf("unknown lookup policy %q", value)
	}
}

// State is a snapshot of the controller for rendering.
type State[T any] struct {
	// Version increases with every change; older snapshots can be dropped.
	Version  uint64
	Query    string
	Results  []T
	InFlight int
	// Seq is the sequence number of the request whose results are shown.
	Seq uint64
	Err error
}

// Loading reports whether any request is outstanding.
func (s State[T]) Loading() bool { return s.InFlight > 0 }

// Options configure a Controller.
type Options[T any] struct {
	// Name labels logs and metrics, e.g. "customers".
	Name        string
	QuietPeriod time.Duration
	Policy      Policy
	Clock       Clock
	Logger      *slog.Logger
	OnChange    func(State[T])
	OnSelect    func(T)
}

// Controller manages one typeahead field.
type Controller[T any] struct {
	search SearchFunc[T]
	opts   Options[T]
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	version  uint64
	query    string
	results  []T
	err      error
	timer    Timer
	timerGen uint64
	issued   uint64
	shown    uint64
	inFlight int
	closed   bool
}

// New constructs a Controller around search.
func New[T any](search SearchFunc[T], opts Options[T]) *Controller[T] {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Name == "" {
		opts.Name = "directory"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller[T]{search: search, opts: opts, ctx: ctx, cancel: cancel}
}

// Input records a new query. Blank input clears the suggestions and drops any
// pending request; anything else restarts the quiet period.
func (c *Controller[T]) Input(query string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.query = query
	c.stopTimerLocked()

	if strings.TrimSpace(query) == "" {
		c.results = nil
		c.err = nil
		if c.opts.Policy == LatestIssued {
			// Responses still in flight answer a query the user has erased.
			c.issued++
		}
	} else {
		gen := c.timerGen
		trimmed := strings.TrimSpace(query)
		c.timer = c.opts.Clock.AfterFunc(c.opts.QuietPeriod, func() { c.fire(gen, trimmed) })
	}
	state := c.changedLocked()
	c.mu.Unlock()

	c.notify(state)
}

// Select accepts a suggestion: the pending timer is dropped, suggestions are
// cleared and OnSelect receives the item.
func (c *Controller[T]) Select(item T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.results = nil
	c.err = nil
	if c.opts.Policy == LatestIssued {
		c.issued++
	}
	state := c.changedLocked()
	c.mu.Unlock()

	c.notify(state)
	if c.opts.OnSelect != nil {
		c.opts.OnSelect(item)
	}
}

// State returns the current snapshot.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops the timer and abandons outstanding requests. Later input is ignored.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopTimerLocked()
	c.mu.Unlock()
	c.cancel()
}

func (c *Controller[T]) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	// Invalidate a callback that already started before Stop.
	c.timerGen++
}

func (c *Controller[T]) fire(gen uint64, query string) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.issued++
	seq := c.issued
	c.inFlight++
	state := c.changedLocked()
	c.mu.Unlock()

	c.opts.Logger.Debug("lookup issued", slog.String("directory", c.opts.Name), slog.String("query", query), slog.Uint64("seq", seq))
	c.notify(state)
	go c.run(seq, query)
}

func (c *Controller[T]) run(seq uint64, query string) {
	results, err := c.search(c.ctx, query)

	c.mu.Lock()
	c.inFlight--
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.opts.Policy == LatestIssued && seq < c.issued {
		latest := c.issued
		state := c.changedLocked()
		c.mu.Unlock()
		metrics.ObserveLookup(c.opts.Name, metrics.LookupStale)
		c.opts.Logger.Debug("lookup discarded", slog.String("directory", c.opts.Name), slog.Uint64("seq", seq), slog.Uint64("latest", latest))
		c.notify(state)
		return
	}
	if err != nil {
		c.results = nil
		c.err = err
	} else {
		c.results = results
		c.err = nil
	}
	c.shown = seq
	state := c.changedLocked()
	c.mu.Unlock()

	if err != nil {
		metrics.ObserveLookup(c.opts.Name, metrics.LookupFailed)
		c.opts.Logger.Warn("lookup failed", slog.String("directory", c.opts.Name), slog.String("query", query), slog.Any("error", err))
	} else {
		metrics.ObserveLookup(c.opts.Name, metrics.LookupApplied)
	}
	c.notify(state)
}

func (c *Controller[T]) changedLocked() State[T] {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller[T]) snapshotLocked() State[T] {
	return State[T]{
		Version:  c.version,
		Query:    c.query,
		Results:  append([]T(nil), c.results...),
		InFlight: c.inFlight,
		Seq:      c.shown,
		Err:      c.err,
	}
}

func (c *Controller[T]) notify(state State[T]) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(state)
	}
}
