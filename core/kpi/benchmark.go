package kpi

// ExpectedBenchmark returns the target of a KPI over a window of servingDays.
// schoolBenchmark overrides the district benchmark when set. Rates are returned as is,
// counts and money are defined per serving day and scale with the window.
func ExpectedBenchmark(k KPI, schoolBenchmark *float64, servingDays int) float64 {
	benchmark := k.Benchmark
	if schoolBenchmark != nil {
		benchmark = *schoolBenchmark
	}

	f := k.Formula
	if f.Kind == FormulaGeneric {
		f = ResolveFormula(k.Name) // definitions built by hand skip ResolveFormulas
	}
	if f.Kind == FormulaEcoDis || k.Unit == UnitPercent {
		return benchmark
	}
	if k.Unit.Additive() {
		return benchmark * float64(servingDays)
	}
	return benchmark
}
