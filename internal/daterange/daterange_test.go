package daterange

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repairdesk-search/internal/utils"
)

func rome(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	return loc
}

func TestRangeForWeekEndsAtReferenceDay(t *testing.T) {
	loc := rome(t)
	ref := time.Date(2024, time.March, 13, 15, 42, 7, 0, loc)

	w, ok := RangeFor(PeriodWeek, ref)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, loc), w.Start)
	assert.Equal(t, time.Date(2024, time.March, 13, 23, 59, 59, 999_000_000, loc), w.End)
}

func TestRangeForWeekOnSundayStepsBackSixDays(t *testing.T) {
	loc := rome(t)
	sunday := time.Date(2024, time.January, 7, 9, 0, 0, 0, loc)
	for i := 0; i < 60; i++ {
		ref := sunday.AddDate(0, 0, 7*i)
		require.Equal(t, time.Sunday, ref.Weekday())

		w, ok := RangeFor(PeriodWeek, ref)
		require.True(t, ok)
		want := utils.StartOfDay(ref.AddDate(0, 0, -6))
		assert.Equal(t, want, w.Start, "ref %s", ref)
		assert.Equal(t, time.Monday, w.Start.Weekday())
		assert.Equal(t, utils.EndOfDay(ref), w.End)
	}
}

func TestRangeForWeekOnMondayStartsSameDay(t *testing.T) {
	loc := rome(t)
	ref := time.Date(2024, time.March, 11, 8, 0, 0, 0, loc)
	w, ok := RangeFor(PeriodWeek, ref)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, loc), w.Start)
}

func TestRangeForMonthCoversWholeMonth(t *testing.T) {
	loc := rome(t)
	ref := time.Date(2023, time.January, 1, 12, 0, 0, 0, loc)
	for ; ref.Year() < 2026; ref = ref.AddDate(0, 0, 1) {
		w, ok := RangeFor(PeriodMonth, ref)
		require.True(t, ok)

		assert.Equal(t, 1, w.Start.Day())
		assert.Equal(t, ref.Month(), w.Start.Month())
		assert.Equal(t, 0, w.Start.Hour())

		nextMonth := time.Date(ref.Year(), ref.Month()+1, 1, 0, 0, 0, 0, loc)
		assert.Equal(t, nextMonth, w.End.Add(time.Millisecond), "ref %s", ref.Format(utils.DayLayout))
		assert.Equal(t, 23, w.End.Hour())
		assert.Equal(t, 999_000_000, w.End.Nanosecond())
	}
}

func TestRangeForMonthLastDays(t *testing.T) {
	loc := time.UTC
	cases := map[string]int{
		"2024-02-10": 29,
		"2023-02-10": 28,
		"2024-04-30": 30,
		"2024-12-01": 31,
	}
	for day, last := range cases {
		ref, err := utils.ParseDay(day, loc)
		require.NoError(t, err)
		w, ok := RangeFor(PeriodMonth, ref)
		require.True(t, ok)
		assert.Equal(t, last, w.End.Day(), day)
	}
}

func TestRangeForTodayAndYear(t *testing.T) {
	loc := rome(t)
	ref := time.Date(2024, time.July, 4, 18, 30, 0, 0, loc)

	today, ok := RangeFor(PeriodToday, ref)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.July, 4, 0, 0, 0, 0, loc), today.Start)
	assert.Equal(t, time.Date(2024, time.July, 4, 23, 59, 59, 999_000_000, loc), today.End)

	year, ok := RangeFor(PeriodYear, ref)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, loc), year.Start)
	assert.Equal(t, time.Date(2024, time.December, 31, 23, 59, 59, 999_000_000, loc), year.End)
}

func TestRangeForUnknownTokenHasNoWindow(t *testing.T) {
	ref := time.Now()
	for _, p := range []Period{PeriodNone, PeriodCustom, Period("fortnight"), Period("")} {
		w, ok := RangeFor(p, ref)
		assert.False(t, ok, string(p))
		assert.True(t, w.IsZero())
	}
}

func TestInitialAndExpandWindows(t *testing.T) {
	loc := rome(t)
	ref := time.Date(2025, time.May, 20, 10, 0, 0, 0, loc)

	initial := InitialWindow(ref)
	assert.Equal(t, time.Date(2024, time.May, 20, 0, 0, 0, 0, loc), initial.Start)
	assert.Equal(t, time.Date(2025, time.May, 20, 23, 59, 59, 999_000_000, loc), initial.End)

	expanded := ExpandWindow(ref)
	assert.Equal(t, time.Date(2022, time.May, 20, 0, 0, 0, 0, loc), expanded.Start)
	assert.Equal(t, initial.End, expanded.End)
}

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, PeriodNone, ParsePeriod(""))
	assert.Equal(t, PeriodWeek, ParsePeriod(" Week "))
	assert.Equal(t, PeriodMonth, ParsePeriod("mese"))
	assert.Equal(t, Period("quarter"), ParsePeriod("quarter"))
}

func TestCustomRange(t *testing.T) {
	loc := rome(t)

	w, err := CustomRange("2024-03-01", "2024-03-05", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, loc), w.Start)
	assert.Equal(t, time.Date(2024, time.March, 5, 23, 59, 59, 999_000_000, loc), w.End)

	for _, bounds := range [][2]string{{"", "2024-03-05"}, {"2024-03-01", ""}, {"03/01/2024", "2024-03-05"}, {"2024-03-06", "2024-03-05"}} {
		_, err := CustomRange(bounds[0], bounds[1], loc)
		require.Error(t, err, bounds)
		assert.True(t, utils.IsKind(err, utils.KindValidation))
	}
}
