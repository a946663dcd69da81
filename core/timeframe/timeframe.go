package timeframe

import (
	"time"

	"github.com/trezcool/nutridash/core/calendar"
)

// Timeframe is the symbolic period selected on the dashboard.
type Timeframe string

const (
	PriorDay  Timeframe = "prior-day"
	Day       Timeframe = "day"
	Week      Timeframe = "week"
	LastWeek  Timeframe = "last-week"
	Month     Timeframe = "month"
	LastMonth Timeframe = "last-month"
	Year      Timeframe = "year"
	PriorYear Timeframe = "prior-year"
	AllYears  Timeframe = "all-years"
	Custom    Timeframe = "custom"
)

var All = []Timeframe{PriorDay, Day, Week, LastWeek, Month, LastMonth, Year, PriorYear, AllYears, Custom}

// maxLookback bounds the backward walk to the previous serving day.
const maxLookback = 366

// Parse reports whether s is a known Timeframe.
func Parse(s string) (Timeframe, bool) {
	for _, tf := range All {
		if string(tf) == s {
			return tf, true
		}
	}
	return Timeframe(s), false
}

// IsDaily reports whether the timeframe covers a single day.
func (tf Timeframe) IsDaily() bool {
	return tf == PriorDay || tf == Day
}

// Range is a concrete [Start, End] window.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days is the number of calendar days covered by the range.
func (r Range) Days() int {
	return calendar.DaysBetween(r.Start, r.End)
}

// Contains reports whether the calendar day of t falls in the range.
// Rows are dated at midnight, so a partial "so far today" range still holds today's rows.
func (r Range) Contains(t time.Time) bool {
	day := calendar.StartOfDay(t.In(r.Start.Location()))
	return !day.Before(calendar.StartOfDay(r.Start)) && !day.After(r.End)
}

// Previous returns the mirrored prior period: the window of identical day length
// ending right before Start.
func (r Range) Previous() Range {
	days := r.Days()
	if days < 1 {
		days = 1
	}
	return Range{
		Start: calendar.StartOfDay(r.Start.AddDate(0, 0, -days)),
		End:   calendar.EndOfDay(r.Start.AddDate(0, 0, -1)),
	}
}

// Extended spans the previous period and the range itself.
func (r Range) Extended() Range {
	return Range{Start: r.Previous().Start, End: r.End}
}

// Window is a resolved timeframe.
type Window struct {
	Timeframe        Timeframe       `json:"timeframe"`
	Range            Range           `json:"range"`
	NonServingPeriod bool            `json:"non_serving_period"`
	Reason           calendar.Reason `json:"non_serving_reason"`
	ServingDays      int             `json:"serving_days"`
}

// Resolver turns timeframes into windows using a school calendar.
type Resolver struct {
	Calendar  *calendar.Calendar
	EpochYear int // July 1st of this year starts `all-years`
}

func NewResolver(cal *calendar.Calendar, epochYear int) *Resolver {
	return &Resolver{Calendar: cal, EpochYear: epochYear}
}

// Resolve maps tf at instant now to a Window. custom is only read for the Custom timeframe.
func (res *Resolver) Resolve(tf Timeframe, now time.Time, custom *Range) Window {
	r := res.resolveRange(tf, now, custom)
	w := Window{
		Timeframe:   tf,
		Range:       r,
		Reason:      calendar.ReasonNone,
		ServingDays: res.Calendar.CountServingDays(r.Start, r.End),
	}
	if tf.IsDaily() && res.Calendar.IsNonServingDay(r.Start) {
		w.NonServingPeriod = true
		w.Reason = res.Calendar.NonServingReason(r.Start)
	}
	return w
}

func (res *Resolver) resolveRange(tf Timeframe, now time.Time, custom *Range) Range {
	switch tf {
	case PriorDay:
		return res.priorServingDay(now)
	case Day:
		if res.Calendar.IsNonServingDay(now) {
			return res.priorServingDay(now)
		}
		return Range{Start: calendar.StartOfDay(now), End: now}
	case Week:
		return weekOf(now)
	case LastWeek:
		return weekOf(now.AddDate(0, 0, -7))
	case Month:
		return monthOf(now, 0)
	case LastMonth:
		return monthOf(now, -1)
	case Year:
		return academicYearOf(now, 0)
	case PriorYear:
		return academicYearOf(now, -1)
	case AllYears:
		curr := academicYearOf(now, 0)
		return Range{
			Start: time.Date(res.EpochYear, time.July, 1, 0, 0, 0, 0, now.Location()),
			End:   curr.End,
		}
	case Custom:
		if custom == nil || custom.Start.IsZero() || custom.End.IsZero() {
			return Range{Start: calendar.StartOfDay(now), End: now}
		}
		return Range{Start: calendar.StartOfDay(custom.Start), End: calendar.EndOfDay(custom.End)}
	default:
		return Range{Start: calendar.StartOfDay(now), End: calendar.EndOfDay(now)}
	}
}

func (res *Resolver) priorServingDay(now time.Time) Range {
	d := now.AddDate(0, 0, -1)
	for i := 0; i < maxLookback && res.Calendar.IsNonServingDay(d); i++ {
		d = d.AddDate(0, 0, -1)
	}
	return Range{Start: calendar.StartOfDay(d), End: calendar.EndOfDay(d)}
}

func weekOf(t time.Time) Range {
	offset := (int(t.Weekday()) + 6) % 7 // days since Monday
	monday := calendar.StartOfDay(t.AddDate(0, 0, -offset))
	return Range{Start: monday, End: calendar.EndOfDay(monday.AddDate(0, 0, 6))}
}

func monthOf(t time.Time, shift int) Range {
	first := time.Date(t.Year(), t.Month()+time.Month(shift), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)
	return Range{Start: first, End: calendar.EndOfDay(last)}
}

// academicYearOf returns the July 1st - June 30th year holding t, shifted by `shift` years.
func academicYearOf(t time.Time, shift int) Range {
	startYear := t.Year()
	if int(t.Month())-1 < 6 { // before July
		startYear--
	}
	startYear += shift
	return Range{
		Start: time.Date(startYear, time.July, 1, 0, 0, 0, 0, t.Location()),
		End:   calendar.EndOfDay(time.Date(startYear+1, time.June, 30, 0, 0, 0, 0, t.Location())),
	}
}
