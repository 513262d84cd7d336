// Package daterange turns relative period tokens into concrete calendar windows.
//
// All arithmetic happens in the location of the reference instant, so callers
// control the shop's time zone by converting the reference before calling.
package daterange

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/repairdesk/repairdesk-search/internal/models"
	"github.com/repairdesk/repairdesk-search/internal/utils"
)

// Period is a relative date token selected on the search screens.
type Period string

const (
	PeriodNone   Period = "none"
	PeriodToday  Period = "today"
	PeriodWeek   Period = "week"
	PeriodMonth  Period = "month"
	PeriodYear   Period = "year"
	PeriodCustom Period = "custom"
)

// Presets lists the toggle order used by the screens.
var Presets = []Period{PeriodNone, PeriodToday, PeriodWeek, PeriodMonth, PeriodYear}

const (
	initialWindowYears = 1
	expandWindowYears  = 3
)

// ParsePeriod normalises user input to a Period. Unknown input is returned
// as-is so RangeFor can report it as unrecognised.
func ParsePeriod(value string) Period {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none", "all":
		return PeriodNone
	case "today", "oggi":
		return PeriodToday
	case "week", "settimana":
		return PeriodWeek
	case "month", "mese":
		return PeriodMonth
	case "year", "anno":
		return PeriodYear
	case "custom":
		return PeriodCustom
	default:
		return Period(value)
	}
}

// RangeFor returns the window for a preset period relative to ref. Custom,
// none and unknown tokens yield ok=false: the caller applies no date constraint.
func RangeFor(period Period, ref time.Time) (models.DateWindow, bool) {
	switch period {
	case PeriodToday:
		return models.DateWindow{Start: utils.StartOfDay(ref), End: utils.EndOfDay(ref)}, true
	case PeriodWeek:
		// Monday of the current week through the reference day, not Sunday.
		back := int(ref.Weekday()) - 1
		if ref.Weekday() == time.Sunday {
			back = 6
		}
		monday := ref.AddDate(0, 0, -back)
		return models.DateWindow{Start: utils.StartOfDay(monday), End: utils.EndOfDay(ref)}, true
	case PeriodMonth:
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		last := time.Date(ref.Year(), ref.Month()+1, 0, 0, 0, 0, 0, ref.Location())
		return models.DateWindow{Start: first, End: utils.EndOfDay(last)}, true
	case PeriodYear:
		first := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location())
		last := time.Date(ref.Year(), time.December, 31, 0, 0, 0, 0, ref.Location())
		return models.DateWindow{Start: first, End: utils.EndOfDay(last)}, true
	default:
		return models.DateWindow{}, false
	}
}

// InitialWindow is the trailing-year window fetched when a screen mounts.
func InitialWindow(ref time.Time) models.DateWindow {
	return TrailingYears(ref, initialWindowYears)
}

// ExpandWindow is the trailing three-year window behind "load older data".
func ExpandWindow(ref time.Time) models.DateWindow {
	return TrailingYears(ref, expandWindowYears)
}

// TrailingYears returns [ref-years at 00:00, ref at 23:59:59.999].
func TrailingYears(ref time.Time, years int) models.DateWindow {
	if years < 0 {
		years = 0
	}
	return models.DateWindow{
		Start: utils.StartOfDay(ref.AddDate(-years, 0, 0)),
		End:   utils.EndOfDay(ref),
	}
}

// customBounds is validated before a custom range is accepted.
type customBounds struct {
	Start string `validate:"required,datetime=2006-01-02"`
	End   string `validate:"required,datetime=2006-01-02"`
}

var validate = validator.New()

// CustomRange builds a day-granular window from two calendar-day strings.
// Both bounds must be present and ordered; otherwise nothing is applied.
func CustomRange(start, end string, loc *time.Location) (models.DateWindow, error) {
	bounds := customBounds{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
	if err := validate.Struct(bounds); err != nil {
		return models.DateWindow{}, utils.NewAppError("daterange.CustomRange", utils.KindValidation, "both bounds must be calendar days", err)
	}
	from, err := utils.ParseDay(bounds.Start, loc)
	if err != nil {
		return models.DateWindow{}, utils.NewAppError("daterange.CustomRange", utils.KindValidation, "invalid start day", err)
	}
	to, err := utils.ParseDay(bounds.End, loc)
	if err != nil {
		return models.DateWindow{}, utils.NewAppError("daterange.CustomRange", utils.KindValidation, "invalid end day", err)
	}
	if to.Before(from) {
		return models.DateWindow{}, utils.NewAppError("daterange.CustomRange", utils.KindValidation, "end day precedes start day", nil)
	}
	return models.DateWindow{Start: from, End: utils.EndOfDay(to)}, nil
}
