package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func TestNew(t *testing.T) {
	_, err := New([]string{"2025-13-01"})
	assert.Error(t, err)

	cal, err := New([]string{"2025-11-27"})
	require.NoError(t, err)
	assert.True(t, cal.IsHoliday(date(2025, time.November, 27)))
	assert.False(t, cal.IsHoliday(date(2025, time.November, 26)))
}

func TestCalendar_IsServingDay(t *testing.T) {
	cal := MustNew("2025-11-27", "2025-11-29") // Thursday, Saturday

	tests := []struct {
		name   string
		day    time.Time
		want   bool
		reason Reason
	}{
		{name: "weekday", day: date(2025, time.November, 24), want: true, reason: ReasonNone},
		{name: "holiday", day: date(2025, time.November, 27), want: false, reason: ReasonHoliday},
		{name: "saturday", day: date(2025, time.November, 22), want: false, reason: ReasonWeekend},
		{name: "sunday", day: date(2025, time.November, 23), want: false, reason: ReasonWeekend},
		{name: "holiday on a weekend", day: date(2025, time.November, 29), want: false, reason: ReasonHoliday},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsServingDay(tt.day))
			assert.Equal(t, !tt.want, cal.IsNonServingDay(tt.day))
			assert.Equal(t, tt.reason, cal.NonServingReason(tt.day))
			assert.Equal(t, cal.IsServingDay(tt.day), !(IsWeekend(tt.day) || cal.IsHoliday(tt.day)))
		})
	}
}

func TestCalendar_CountServingDays(t *testing.T) {
	cal := MustNew("2025-11-27")
	noHolidays := MustNew()

	tests := []struct {
		name       string
		cal        *Calendar
		start, end time.Time
		want       int
	}{
		{name: "full week with weekend", cal: noHolidays, start: date(2025, time.November, 17), end: date(2025, time.November, 23), want: 5},
		{name: "week with a holiday", cal: cal, start: date(2025, time.November, 24), end: date(2025, time.November, 30), want: 4},
		{name: "single serving day", cal: cal, start: date(2025, time.November, 24), end: date(2025, time.November, 24), want: 1},
		{name: "weekend only", cal: cal, start: date(2025, time.November, 22), end: date(2025, time.November, 23), want: 0},
		{name: "start after end", cal: cal, start: date(2025, time.November, 25), end: date(2025, time.November, 24), want: 0},
		{name: "nil calendar has no holidays", cal: nil, start: date(2025, time.November, 24), end: date(2025, time.November, 28), want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cal.CountServingDays(tt.start, tt.end))
			assert.Len(t, tt.cal.ServingDays(tt.start, tt.end), tt.want)
		})
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 1, DaysBetween(date(2025, time.March, 3), EndOfDay(date(2025, time.March, 3))))
	assert.Equal(t, 7, DaysBetween(date(2025, time.March, 3), date(2025, time.March, 9)))
	assert.Equal(t, 0, DaysBetween(date(2025, time.March, 9), date(2025, time.March, 3)))

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// spans the DST switch of 2025-03-09
	start := time.Date(2025, time.March, 8, 0, 0, 0, 0, ny)
	end := time.Date(2025, time.March, 10, 23, 0, 0, 0, ny)
	assert.Equal(t, 3, DaysBetween(start, end))
}

func TestStartEndOfDay(t *testing.T) {
	d := date(2025, time.March, 3)
	assert.Equal(t, time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC), StartOfDay(d))
	eod := EndOfDay(d)
	assert.Equal(t, 23, eod.Hour())
	assert.Equal(t, 59, eod.Minute())
	assert.Equal(t, 59, eod.Second())
	assert.Equal(t, 999999999, eod.Nanosecond())
}
