package lookup

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs due callbacks in deadline order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

type recorder struct {
	mu     sync.Mutex
	states []State[string]
	ch     chan State[string]
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan State[string], 64)}
}

func (r *recorder) onChange(s State[string]) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
	r.ch <- s
}

func (r *recorder) waitFor(t *testing.T, pred func(State[string]) bool) State[string] {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-r.ch:
			if pred(s) {
				return s
			}
		case <-timeout:
			t.Fatalf("timed out waiting for lookup state")
			return State[string]{}
		}
	}
}

type gatedSearch struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	calls []string
}

func newGatedSearch(queries ...string) *gatedSearch {
	g := &gatedSearch{gates: make(map[string]chan struct{})}
	for _, q := range queries {
		g.gates[q] = make(chan struct{})
	}
	return g
}

func (g *gatedSearch) search(_ context.Context, q string) ([]string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, q)
	gate := g.gates[q]
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return []string{"result:" + q}, nil
}

func (g *gatedSearch) release(q string) { close(g.gates[q]) }

func (g *gatedSearch) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// raceScenario issues request A at t=0 and B at t=310ms, then lets B complete
// before A, mirroring a slow first response overtaken by a fast second one.
func raceScenario(t *testing.T, policy Policy) State[string] {
	t.Helper()
	clock := &manualClock{}
	rec := newRecorder()
	search := newGatedSearch("mar", "mari")
	c := New(search.search, Options[string]{Clock: clock, Policy: policy, OnChange: rec.onChange})
	defer c.Close()

	c.Input("mar")
	clock.Advance(300 * time.Millisecond)
	rec.waitFor(t, func(s State[string]) bool { return s.InFlight == 1 })

	clock.Advance(10 * time.Millisecond)
	c.Input("mari")
	clock.Advance(300 * time.Millisecond)
	rec.waitFor(t, func(s State[string]) bool { return s.InFlight == 2 })

	search.release("mari")
	rec.waitFor(t, func(s State[string]) bool { return s.InFlight == 1 })
	search.release("mar")
	return rec.waitFor(t, func(s State[string]) bool { return s.InFlight == 0 })
}

func TestLastCompletedShowsSlowStaleResults(t *testing.T) {
	final := raceScenario(t, LastCompleted)
	assert.Equal(t, []string{"result:mar"}, final.Results)
	assert.Equal(t, "mari", final.Query)
}

func TestLatestIssuedDiscardsStaleResults(t *testing.T) {
	final := raceScenario(t, LatestIssued)
	assert.Equal(t, []string{"result:mari"}, final.Results)
	assert.Equal(t, uint64(2), final.Seq)
}

func TestQuietPeriodCoalescesKeystrokes(t *testing.T) {
	clock := &manualClock{}
	rec := newRecorder()
	search := newGatedSearch()
	c := New(search.search, Options[string]{Clock: clock, OnChange: rec.onChange})
	defer c.Close()

	c.Input("r")
	clock.Advance(100 * time.Millisecond)
	c.Input("ro")
	clock.Advance(100 * time.Millisecond)
	c.Input("ros")
	assert.Equal(t, "ros", c.State().Query, "query is recorded immediately")

	clock.Advance(299 * time.Millisecond)
	assert.Equal(t, 0, search.callCount())

	clock.Advance(time.Millisecond)
	final := rec.waitFor(t, func(s State[string]) bool { return len(s.Results) > 0 })
	assert.Equal(t, []string{"result:ros"}, final.Results)
	assert.Equal(t, 1, search.callCount())
}

func TestBlankInputClearsAndSuppresses(t *testing.T) {
	clock := &manualClock{}
	rec := newRecorder()
	search := newGatedSearch()
	c := New(search.search, Options[string]{Clock: clock, OnChange: rec.onChange})
	defer c.Close()

	c.Input("rossi")
	clock.Advance(DefaultQuietPeriod)
	rec.waitFor(t, func(s State[string]) bool { return len(s.Results) == 1 })

	c.Input("bia")
	c.Input("   ")
	assert.Empty(t, c.State().Results)

	clock.Advance(time.Second)
	assert.Equal(t, 1, search.callCount())
}

func TestSelectDropsPendingTimer(t *testing.T) {
	clock := &manualClock{}
	search := newGatedSearch()
	var selected []string
	c := New(search.search, Options[string]{
		Clock:    clock,
		OnSelect: func(s string) { selected = append(selected, s) },
	})
	defer c.Close()

	c.Input("ross")
	clock.Advance(100 * time.Millisecond)
	c.Select("Mario Rossi")

	clock.Advance(time.Second)
	assert.Equal(t, 0, search.callCount())
	assert.Equal(t, []string{"Mario Rossi"}, selected)
	assert.Empty(t, c.State().Results)
}

func TestFailedLookupYieldsNoSuggestions(t *testing.T) {
	clock := &manualClock{}
	rec := newRecorder()
	boom := errors.New("503 Service Unavailable")
	calls := 0
	search := func(_ context.Context, q string) ([]string, error) {
		calls++
		if calls == 1 {
			return []string{"ok:" + q}, nil
		}
		return nil, boom
	}
	c := New(search, Options[string]{Clock: clock, OnChange: rec.onChange})
	defer c.Close()

	c.Input("abc")
	clock.Advance(DefaultQuietPeriod)
	rec.waitFor(t, func(s State[string]) bool { return len(s.Results) == 1 })

	c.Input("abcd")
	clock.Advance(DefaultQuietPeriod)
	final := rec.waitFor(t, func(s State[string]) bool { return s.Err != nil })
	assert.Empty(t, final.Results)
	assert.ErrorIs(t, final.Err, boom)
}

func TestCloseIgnoresLaterInput(t *testing.T) {
	clock := &manualClock{}
	search := newGatedSearch()
	c := New(search.search, Options[string]{Clock: clock})

	c.Input("abc")
	c.Close()
	clock.Advance(time.Second)
	c.Input("abcd")
	clock.Advance(time.Second)
	assert.Equal(t, 0, search.callCount())
}

func TestStateVersionsIncrease(t *testing.T) {
	clock := &manualClock{}
	rec := newRecorder()
	c := New(newGatedSearch().search, Options[string]{Clock: clock, OnChange: rec.onChange})
	defer c.Close()

	c.Input("a")
	c.Input("ab")
	c.Input("")
	require.Len(t, rec.states, 3)
	assert.Less(t, rec.states[0].Version, rec.states[1].Version)
	assert.Less(t, rec.states[1].Version, rec.states[2].Version)
	assert.Equal(t, rec.states[2].Version, c.State().Version)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, LatestIssued, p)

	p, err = ParsePolicy("Last-Completed")
	require.NoError(t, err)
	assert.Equal(t, LastCompleted, p)
	assert.Equal(t, "last-completed", p.String())

	_, err = ParsePolicy("random")
	assert.Error(t, err)
}
