package models

import "time"

// DateWindow bounds a set of records by instant. Start never follows End.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the window was never set.
func (w DateWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether t falls inside the window, bounds included.
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// FacetCount is one bar or slice of a dashboard chart.
type FacetCount struct {
	Label string
	Count int
}
