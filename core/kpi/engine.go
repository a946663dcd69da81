package kpi

import (
	"sort"

	"github.com/trezcool/nutridash/core/calendar"
)

// Engine computes KPI values, trends and benchmarks over one Dataset.
// It never fails: missing or malformed inputs yield "no value" or 0.
type Engine struct {
	data *Dataset
	cal  *calendar.Calendar
}

// NewEngine resolves the formula of every KPI of data.
func NewEngine(data Dataset, cal *calendar.Calendar) *Engine {
	kpis := make([]KPI, len(data.KPIs))
	copy(kpis, data.KPIs)
	ResolveFormulas(kpis)
	data.KPIs = kpis
	return &Engine{data: &data, cal: cal}
}

func (e *Engine) Dataset() *Dataset { return e.data }

// Aggregate computes the current value of a KPI. ok is false when there is no value:
// the KPI is unknown or, for generic KPIs, no point value matches the query.
// Metric-derived KPIs measure 0 when no metric matches.
func (e *Engine) Aggregate(q Query) (value float64, ok bool) {
	k, found := e.data.KPI(q.KPIID)
	if !found {
		return 0, false
	}

	switch k.Formula.Kind {
	case FormulaGeneric:
		values := e.filterValues(k.ID, q.Schools, &q.Range)
		if schoolID, single := q.Schools.SingleSchool(); single && schoolID != "" && q.Timeframe.IsDaily() {
			return latestValue(values)
		}
		return combineValues(k.Unit, values)
	case FormulaEcoDis:
		return ecoDis(e.filterSchools(q.Schools)), true
	default:
		metrics := e.filterMetrics(q.Schools, &q.Range)
		return e.metricFormula(k.Formula, metrics, q.Range), true
	}
}

// Trend is the current value minus the value over the mirrored prior period.
// It is 0 on non-serving periods and whenever either side cannot be computed.
func (e *Engine) Trend(q Query, nonServingPeriod bool) float64 {
	if nonServingPeriod {
		return 0
	}
	k, found := e.data.KPI(q.KPIID)
	if !found {
		return 0
	}
	prev := q.Range.Previous()

	switch k.Formula.Kind {
	case FormulaGeneric:
		if schoolID, single := q.Schools.SingleSchool(); single && q.Timeframe.IsDaily() {
			// day over day: compare the last two observations of the school, whatever their dates
			values := e.filterValues(k.ID, Selection{schoolID}, nil)
			if len(values) < 2 {
				return 0
			}
			sortByDate(values)
			return values[len(values)-1].Value - values[len(values)-2].Value
		}
		curr, okCurr := combineValues(k.Unit, e.filterValues(k.ID, q.Schools, &q.Range))
		prevVal, okPrev := combineValues(k.Unit, e.filterValues(k.ID, q.Schools, &prev))
		if !okCurr || !okPrev {
			return 0
		}
		return curr - prevVal
	case FormulaEcoDis:
		// enrollment is a snapshot of the schools, it has no history
		return 0
	default:
		metrics := e.filterMetrics(q.Schools, nil)
		curr := e.metricFormula(k.Formula, inRange(metrics, q.Range), q.Range)
		prevVal := e.metricFormula(k.Formula, inRange(metrics, prev), prev)
		return curr - prevVal
	}
}

// ExpectedBenchmark scales the benchmark of the KPI to the window of the query.
func (e *Engine) ExpectedBenchmark(kpiID string, override *float64, servingDays int) (float64, bool) {
	k, found := e.data.KPI(kpiID)
	if !found {
		return 0, false
	}
	return ExpectedBenchmark(k, override, servingDays), true
}

func (e *Engine) metricFormula(f Formula, metrics []SchoolMetric, r DateRange) float64 {
	switch f.Kind {
	case FormulaWaste:
		return waste(metrics)
	case FormulaMeals:
		return meals(metrics)
	case FormulaParticipation:
		return participation(metrics, f.Meal, e.cal.CountServingDays(r.Start, r.End))
	case FormulaRevenue:
		return revenue(metrics)
	default:
		return 0
	}
}

// filterMetrics keeps the metrics of the selected schools, within r when r is set.
func (e *Engine) filterMetrics(sel Selection, r *DateRange) []SchoolMetric {
	district := sel.IsDistrict()
	if district && r == nil {
		return e.data.Metrics
	}
	filtered := make([]SchoolMetric, 0, len(e.data.Metrics))
	for _, m := range e.data.Metrics {
		if (district || sel.Has(m.SchoolID)) && (r == nil || r.Contains(m.Date)) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

func (e *Engine) filterSchools(sel Selection) []School {
	if sel.IsDistrict() {
		return e.data.Schools
	}
	filtered := make([]School, 0, len(sel))
	for _, s := range e.data.Schools {
		if sel.Has(s.ID) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// filterValues keeps the point values of a KPI for the selected schools, within r when r is set.
// District-level values (no school) only match the district selection.
func (e *Engine) filterValues(kpiID string, sel Selection, r *DateRange) []KPIValue {
	district := sel.IsDistrict()
	var filtered []KPIValue
	for _, v := range e.data.Values {
		if v.KPIID != kpiID {
			continue
		}
		if !district && (v.SchoolID == nil || !sel.Has(*v.SchoolID)) {
			continue
		}
		if r != nil && !r.Contains(v.Date) {
			continue
		}
		filtered = append(filtered, v)
	}
	return filtered
}

func inRange(metrics []SchoolMetric, r DateRange) []SchoolMetric {
	filtered := make([]SchoolMetric, 0, len(metrics))
	for _, m := range metrics {
		if r.Contains(m.Date) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

func sortByDate(values []KPIValue) {
	sort.SliceStable(values, func(i, j int) bool { return values[i].Date.Before(values[j].Date) })
}

func latestValue(values []KPIValue) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	latest := values[0]
	for _, v := range values[1:] {
		if !v.Date.Before(latest.Date) {
			latest = v
		}
	}
	return latest.Value, true
}

// combineValues sums counts and money, and averages rates.
func combineValues(unit Unit, values []KPIValue) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v.Value
	}
	if unit.Additive() {
		return sum, true
	}
	return sum / float64(len(values)), true
}
