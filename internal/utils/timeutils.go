package utils

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the wire and display format for calendar-day values.
const DayLayout = "2006-01-02"

// StartOfDay returns t at 00:00:00.000 in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns t at 23:59:59.999 in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DayKey reduces t to an orderable yyyymmdd integer in loc, discarding time-of-day.
func DayKey(t time.Time, loc *time.Location) int {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// ParseDay parses a calendar day (2006-01-02) at midnight in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty day value")
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DayLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day: %w", err)
	}
	return t, nil
}

// FormatDay renders t as a calendar day in its own location.
func FormatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DayLayout)
}
