package kpi

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/nutridash/core/calendar"
	"github.com/trezcool/nutridash/core/timeframe"
)

const (
	mealsID   = "kpi-meals"
	wasteID   = "kpi-waste"
	ecoDisID  = "kpi-ecodis"
	lunchID   = "kpi-lunch"
	revenueID = "kpi-revenue"
	satID     = "kpi-satisfaction"
	countID   = "kpi-visits"
	ratioID   = "kpi-ratio"
)

var (
	noHolidays = calendar.MustNew()

	// week of Monday 2025-11-17, previous week is 2025-11-10
	thisWeek = DateRange{Start: day(17), End: calendar.EndOfDay(day(23))}
	lastWeek = DateRange{Start: day(10), End: calendar.EndOfDay(day(16))}

	definitions = []KPI{
		{ID: mealsID, Name: "Meals", Unit: UnitCount, Benchmark: 100},
		{ID: wasteID, Name: "Waste", Unit: UnitCurrency, Benchmark: 20},
		{ID: ecoDisID, Name: "Eco Dis", Unit: UnitCount, Benchmark: 60},
		{ID: lunchID, Name: "Lunch", Unit: UnitPercent, Benchmark: 70},
		{ID: revenueID, Name: "Revenue", Unit: UnitCurrency, Benchmark: 500},
		{ID: satID, Name: "Satisfaction", Unit: UnitPercent, Benchmark: 80},
		{ID: countID, Name: "Nurse Visits", Unit: UnitCount, Benchmark: 3},
		{ID: ratioID, Name: "Plate Ratio", Unit: UnitRatio, Benchmark: 1},
	}
)

func day(d int) time.Time {
	return time.Date(2025, time.November, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func query(kpiID string, r DateRange, tf timeframe.Timeframe, schools ...string) Query {
	if len(schools) == 0 {
		schools = []string{DistrictSentinel}
	}
	return Query{KPIID: kpiID, Schools: schools, Range: r, Timeframe: tf}
}

func TestEngine_Aggregate_meals(t *testing.T) {
	e := NewEngine(Dataset{
		KPIs: definitions,
		Metrics: []SchoolMetric{
			{SchoolID: "a", Date: day(18), BreakfastCount: 10, LunchCount: 20, SnackCount: 0, SupperCount: 7},
			{SchoolID: "b", Date: day(19), BreakfastCount: 5, LunchCount: 15, SnackCount: 5},
			{SchoolID: "b", Date: day(12), BreakfastCount: 100, LunchCount: 100},
		},
	}, noHolidays)

	v, ok := e.Aggregate(query(mealsID, thisWeek, timeframe.Week))
	assert.True(t, ok)
	assert.Equal(t, 55.0, v)

	v, ok = e.Aggregate(query(mealsID, thisWeek, timeframe.Week, "b"))
	assert.True(t, ok)
	assert.Equal(t, 25.0, v)

	v, ok = e.Aggregate(query(mealsID, thisWeek, timeframe.Week, "a", "b"))
	assert.True(t, ok)
	assert.Equal(t, 55.0, v)
}

func TestEngine_Aggregate_nullVersusZero(t *testing.T) {
	e := NewEngine(Dataset{KPIs: definitions}, noHolidays)

	_, ok := e.Aggregate(query("unknown", thisWeek, timeframe.Week))
	assert.False(t, ok, "unknown KPI has no value")

	for _, id := range []string{mealsID, wasteID, ecoDisID, lunchID, revenueID} {
		v, ok := e.Aggregate(query(id, thisWeek, timeframe.Week))
		assert.True(t, ok, "metric-derived KPI %s measures zero", id)
		assert.Equal(t, 0.0, v)
	}

	_, ok = e.Aggregate(query(satID, thisWeek, timeframe.Week))
	assert.False(t, ok, "generic KPI without values has no value")
}

func TestEngine_Aggregate_waste(t *testing.T) {
	e := NewEngine(Dataset{
		KPIs: definitions,
		Metrics: []SchoolMetric{
			{SchoolID: "a", Date: day(17), ProducedMeals: 110, ServedMeals: 100},
			{SchoolID: "a", Date: day(18), ProducedMeals: 90, ServedMeals: 100}, // over-served is not negative waste
			{SchoolID: "b", Date: day(18), ProducedMeals: 52, ServedMeals: 50},
		},
	}, noHolidays)

	v, ok := e.Aggregate(query(wasteID, thisWeek, timeframe.Week))
	assert.True(t, ok)
	assert.InDelta(t, 12*WasteCostPerPortion, v, 1e-9)
}

func TestEngine_Aggregate_ecoDis(t *testing.T) {
	e := NewEngine(Dataset{
		KPIs: definitions,
		Schools: []School{
			{ID: "a", TotalEnrollment: 200, FreeCount: 80, ReducedCount: 20},
			{ID: "b", TotalEnrollment: 300, FreeCount: 100, ReducedCount: 50},
			{ID: "empty"},
		},
	}, noHolidays)

	v, _ := e.Aggregate(query(ecoDisID, thisWeek, timeframe.Week))
	assert.InDelta(t, 50.0, v, 1e-9)

	v, _ = e.Aggregate(query(ecoDisID, thisWeek, timeframe.Week, "a"))
	assert.InDelta(t, 50.0, v, 1e-9)

	v, _ = e.Aggregate(query(ecoDisID, thisWeek, timeframe.Week, "b"))
	assert.InDelta(t, 50.0, v, 1e-9)

	v, ok := e.Aggregate(query(ecoDisID, thisWeek, timeframe.Week, "empty"))
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestEngine_Aggregate_participation(t *testing.T) {
	e := NewEngine(Dataset{
		KPIs: definitions,
		Metrics: []SchoolMetric{
			{SchoolID: "a", Date: day(17), TotalEnrollment: 100, LunchFree: 40, LunchReduced: 10, LunchPaid: 20},
			{SchoolID: "a", Date: day(18), TotalEnrollment: 100, LunchFree: 35, LunchReduced: 10, LunchPaid: 28},
		},
	}, noHolidays)

	v, ok := e.Aggregate(query(lunchID, thisWeek, timeframe.Week))
	assert.True(t, ok)
	want := 143.0 / (200 * AttendanceFactor * 5) * 100
	assert.InDelta(t, want, v, 1e-9)

	// a weekend window has no serving day: no division by zero
	weekend := DateRange{Start: day(22), End: calendar.EndOfDay(day(23))}
	v, ok = e.Aggregate(query(lunchID, weekend, timeframe.Custom))
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestEngine_Aggregate_revenue(t *testing.T) {
	e := NewEngine(Dataset{
		KPIs: definitions,
		Metrics: []SchoolMetric{{
			SchoolID: "a", Date: day(17),
			BreakfastFree: 10, BreakfastReduced: 10, BreakfastPaid: 10,
			LunchFree: 10, LunchReduced: 10, LunchPaid: 10,
			SnackFree: 10, SnackReduced: 10, SnackPaid: 10,
			SupperFree: 10, SupperReduced: 10, SupperPaid: 10,
			ALaCarteRevenue: 12.5,
		}},
	}, noHolidays)

	v, ok := e.Aggregate(query(revenueID, thisWeek, timeframe.Week))
	assert.True(t, ok)
	want := 10*(2.50+2.30+0.75) + 10*(3.75+3.35+0.50) + 2*10*(1.00+0.50+0.25) + 12.5
	assert.InDelta(t, want, v, 1e-9)
}

func TestEngine_Aggregate_generic(t *testing.T) {
	e := NewEngine(Dataset{
		KPIs: definitions,
		Values: []KPIValue{
			{KPIID: satID, Date: day(17), SchoolID: strPtr("a"), Value: 80},
			{KPIID: satID, Date: day(18), SchoolID: strPtr("a"), Value: 90},
			{KPIID: satID, Date: day(18), SchoolID: strPtr("b"), Value: 70},
			{KPIID: satID, Date: day(10), SchoolID: strPtr("a"), Value: 10},
			{KPIID: countID, Date: day(17), SchoolID: strPtr("a"), Value: 2},
			{KPIID: countID, Date: day(18), Value: 3}, // district-level
			{KPIID: ratioID, Date: day(17), SchoolID: strPtr("a"), Value: 1},
			{KPIID: ratioID, Date: day(18), SchoolID: strPtr("a"), Value: 2},
		},
	}, noHolidays)

	tests := []struct {
		name    string
		q       Query
		want    float64
		wantNil bool
	}{
		{name: "percent is averaged", q: query(satID, thisWeek, timeframe.Week), want: 80},
		{name: "count is summed", q: query(countID, thisWeek, timeframe.Week), want: 5},
		{name: "district-level values need the district selection", q: query(countID, thisWeek, timeframe.Week, "a"), want: 2},
		{name: "plain ratio is averaged", q: query(ratioID, thisWeek, timeframe.Week, "a"), want: 1.5},
		{name: "school filter", q: query(satID, thisWeek, timeframe.Week, "b"), want: 70},
		{name: "two schools", q: query(satID, thisWeek, timeframe.Week, "a", "b"), want: 80},
		{
			name: "single school on a day is its latest value",
			q:    query(satID, DateRange{Start: day(17), End: calendar.EndOfDay(day(18))}, timeframe.Day, "a"),
			want: 90,
		},
		{name: "no value in range", q: query(satID, DateRange{Start: day(1), End: calendar.EndOfDay(day(2))}, timeframe.Custom), wantNil: true},
		{name: "unknown school", q: query(satID, thisWeek, timeframe.Week, "z"), wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := e.Aggregate(tt.q)
			if tt.wantNil {
				assert.False(t, ok)
				return
			}
			assert.True(t, ok)
			assert.InDelta(t, tt.want, v, 1e-9)
		})
	}
}

func TestEngine_Trend(t *testing.T) {
	e := NewEngine(Dataset{
		KPIs: definitions,
		Schools: []School{
			{ID: "a", TotalEnrollment: 200, FreeCount: 80, ReducedCount: 20},
		},
		Metrics: []SchoolMetric{
			{SchoolID: "a", Date: day(17), BreakfastCount: 10, LunchCount: 20, TotalEnrollment: 100, LunchFree: 50},
			{SchoolID: "b", Date: day(18), BreakfastCount: 5, LunchCount: 15},
			{SchoolID: "a", Date: day(11), BreakfastCount: 4, LunchCount: 6, TotalEnrollment: 100, LunchFree: 25},
		},
		Values: []KPIValue{
			{KPIID: satID, Date: day(17), SchoolID: strPtr("a"), Value: 80},
			{KPIID: satID, Date: day(12), SchoolID: strPtr("a"), Value: 60},
			{KPIID: countID, Date: day(17), SchoolID: strPtr("a"), Value: 4},
		},
	}, noHolidays)

	tests := []struct {
		name       string
		q          Query
		nonServing bool
		want       float64
	}{
		{name: "meals, district", q: query(mealsID, thisWeek, timeframe.Week), want: 50 - 10},
		{name: "meals, school b", q: query(mealsID, thisWeek, timeframe.Week, "b"), want: 20},
		{name: "non-serving period is always zero", q: query(mealsID, thisWeek, timeframe.Day), nonServing: true, want: 0},
		{name: "unknown KPI", q: query("unknown", thisWeek, timeframe.Week), want: 0},
		{name: "eco dis has no history", q: query(ecoDisID, thisWeek, timeframe.Week), want: 0},
		{
			name: "participation uses each window's serving days",
			q:    query(lunchID, thisWeek, timeframe.Week, "a"),
			want: 50.0/(100*AttendanceFactor*5)*100 - 25.0/(100*AttendanceFactor*5)*100,
		},
		{name: "generic window difference", q: query(satID, thisWeek, timeframe.Week), want: 20},
		{name: "generic without previous data", q: query(countID, thisWeek, timeframe.Week), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.Trend(tt.q, tt.nonServing), 1e-9)
		})
	}
}

func TestEngine_Trend_singleSchoolDayComparesLastTwoValues(t *testing.T) {
	values := []KPIValue{
		{KPIID: satID, Date: day(20), SchoolID: strPtr("a"), Value: 75},
		{KPIID: satID, Date: day(3), SchoolID: strPtr("a"), Value: 10}, // outside both windows
		{KPIID: satID, Date: day(21), SchoolID: strPtr("a"), Value: 82},
		{KPIID: satID, Date: day(14), SchoolID: strPtr("a"), Value: 50},
		{KPIID: satID, Date: day(21), SchoolID: strPtr("b"), Value: 0},
	}
	e := NewEngine(Dataset{KPIs: definitions, Values: values}, noHolidays)
	today := DateRange{Start: day(21), End: day(21).Add(9 * time.Hour)}

	got := e.Trend(query(satID, today, timeframe.Day, "a"), false)
	assert.InDelta(t, 82.0-75.0, got, 1e-9)

	// two school values only: not enough history
	e = NewEngine(Dataset{KPIs: definitions, Values: values[4:]}, noHolidays)
	assert.Equal(t, 0.0, e.Trend(query(satID, today, timeframe.Day, "b"), false))

	// the same single school on a week compares windows
	e = NewEngine(Dataset{KPIs: definitions, Values: values}, noHolidays)
	got = e.Trend(query(satID, thisWeek, timeframe.Week, "a"), false)
	assert.InDelta(t, (75.0+82.0)/2-50.0, got, 1e-9)
}

func TestEngine_neverPanicsOnEmptyData(t *testing.T) {
	e := NewEngine(Dataset{}, nil)
	for _, tf := range timeframe.All {
		v, ok := e.Aggregate(query(mealsID, thisWeek, tf))
		assert.False(t, ok)
		assert.Equal(t, 0.0, v)
		assert.Equal(t, 0.0, e.Trend(query(mealsID, thisWeek, tf), false))
	}
	assert.False(t, math.IsNaN(e.Trend(query(lunchID, lastWeek, timeframe.Week), false)))
}
