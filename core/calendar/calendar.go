package calendar

import (
	"time"

	"github.com/pkg/errors"
)

const DateLayout = "2006-01-02"

// Reason tells why a day is not a serving day.
type Reason string

const (
	ReasonNone    Reason = "none"
	ReasonHoliday Reason = "holiday"
	ReasonWeekend Reason = "weekend"
)

// Calendar knows which days meals are served on: every weekday that is not a holiday.
type Calendar struct {
	holidays map[string]struct{}
}

// New builds a Calendar from a list of YYYY-MM-DD holiday dates.
func New(holidays []string) (*Calendar, error) {
	cal := &Calendar{holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		d, err := time.Parse(DateLayout, h)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing holiday %q", h)
		}
		cal.holidays[d.Format(DateLayout)] = struct{}{}
	}
	return cal, nil
}

// MustNew is like New but panics on invalid dates.
func MustNew(holidays ...string) *Calendar {
	cal, err := New(holidays)
	if err != nil {
		panic(err)
	}
	return cal
}

func (cal *Calendar) IsHoliday(d time.Time) bool {
	if cal == nil {
		return false
	}
	_, ok := cal.holidays[d.Format(DateLayout)]
	return ok
}

func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (cal *Calendar) IsServingDay(d time.Time) bool {
	return !(IsWeekend(d) || cal.IsHoliday(d))
}

func (cal *Calendar) IsNonServingDay(d time.Time) bool {
	return !cal.IsServingDay(d)
}

// NonServingReason returns ReasonHoliday before ReasonWeekend when both apply.
func (cal *Calendar) NonServingReason(d time.Time) Reason {
	switch {
	case cal.IsHoliday(d):
		return ReasonHoliday
	case IsWeekend(d):
		return ReasonWeekend
	default:
		return ReasonNone
	}
}

// CountServingDays counts the serving days in [start, end], both calendar days included.
// It is 0 when start is after end.
func (cal *Calendar) CountServingDays(start, end time.Time) int {
	var n int
	cal.walk(start, end, func(time.Time) { n++ })
	return n
}

// ServingDays lists the serving days in [start, end] at start of day.
func (cal *Calendar) ServingDays(start, end time.Time) []time.Time {
	var days []time.Time
	cal.walk(start, end, func(d time.Time) { days = append(days, d) })
	return days
}

func (cal *Calendar) walk(start, end time.Time, fn func(time.Time)) {
	last := StartOfDay(end)
	for d := StartOfDay(start); !d.After(last); d = d.AddDate(0, 0, 1) {
		if cal.IsServingDay(d) {
			fn(d)
		}
	}
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// DaysBetween counts the calendar days in [start, end], both included.
func DaysBetween(start, end time.Time) int {
	s, e := StartOfDay(start), StartOfDay(end)
	if e.Before(s) {
		return 0
	}
	// dates, not durations: DST days are 23h or 25h long
	s = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	e = time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}
