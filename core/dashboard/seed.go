package dashboard

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/nutridash/core/calendar"
	"github.com/trezcool/nutridash/core/kpi"
)

// SeedSummary counts the records written by Seed.
type SeedSummary struct {
	Schools int
	KPIs    int
	Metrics int
	Values  int
}

// DefaultKPIs returns the standard KPI definitions of a district.
func DefaultKPIs(districtID string) []kpi.KPI {
	defs := []struct {
		name, display string
		unit          kpi.Unit
		benchmark     float64
	}{
		{"Meals", "Meals served", kpi.UnitCount, 450},
		{"Breakfast", "Breakfast ADP", kpi.UnitPercent, 40},
		{"Lunch", "Lunch ADP", kpi.UnitPercent, 70},
		{"Snack", "Snack ADP", kpi.UnitPercent, 20},
		{"Supper", "Supper ADP", kpi.UnitPercent, 10},
		{"Revenue", "Revenue", kpi.UnitCurrency, 1500},
		{"Waste", "Food waste", kpi.UnitCurrency, 50},
		{"Eco Dis", "Economically disadvantaged", kpi.UnitPercent, 60},
		{"Satisfaction", "Student satisfaction", kpi.UnitPercent, 85},
	}
	kpis := make([]kpi.KPI, 0, len(defs))
	for i, d := range defs {
		kpis = append(kpis, kpi.KPI{
			DistrictID:  districtID,
			Name:        d.name,
			DisplayName: d.display,
			Unit:        d.unit,
			Benchmark:   d.benchmark,
			Order:       i + 1,
			Visible:     true,
		})
	}
	return kpis
}

// Seed writes a demo district into store: three schools, the default KPIs and, for every
// serving day of [from, to], one metric per school & one satisfaction score per school.
// The generated numbers only depend on seed.
func Seed(ctx context.Context, store Store, cal *calendar.Calendar, districtID string, from, to time.Time, seed int64) (SeedSummary, error) {
	var summary SeedSummary
	rnd := rand.New(rand.NewSource(seed))

	schools := []kpi.School{
		{DistrictID: districtID, Name: "Lincoln Elementary", TotalEnrollment: 420, FreeCount: 180, ReducedCount: 40},
		{DistrictID: districtID, Name: "Washington Middle", TotalEnrollment: 610, FreeCount: 220, ReducedCount: 60},
		{DistrictID: districtID, Name: "Roosevelt High", TotalEnrollment: 980, FreeCount: 300, ReducedCount: 90},
	}
	for i, s := range schools {
		saved, err := store.SaveSchool(ctx, s)
		if err != nil {
			return summary, errors.Wrap(err, "saving school")
		}
		schools[i] = saved
		summary.Schools++
	}

	var satisfactionID string
	for _, k := range DefaultKPIs(districtID) {
		saved, err := store.SaveKPI(ctx, k)
		if err != nil {
			return summary, errors.Wrap(err, "saving kpi")
		}
		if saved.Name == "Satisfaction" {
			satisfactionID = saved.ID
		}
		summary.KPIs++
	}

	for _, d := range cal.ServingDays(from, to) {
		date := calendar.StartOfDay(d)
		for _, s := range schools {
			if _, err := store.SaveDailyMetric(ctx, demoMetric(rnd, s, date)); err != nil {
				return summary, errors.Wrap(err, "saving daily metric")
			}
			summary.Metrics++

			schoolID := s.ID
			v := kpi.KPIValue{KPIID: satisfactionID, Date: date, SchoolID: &schoolID, Value: 70 + rnd.Float64()*25}
			if _, err := store.SaveKPIValue(ctx, v); err != nil {
				return summary, errors.Wrap(err, "saving kpi value")
			}
			summary.Values++
		}
	}
	return summary, nil
}

func demoMetric(rnd *rand.Rand, s kpi.School, date time.Time) kpi.SchoolMetric {
	attending := int(float64(s.TotalEnrollment) * kpi.AttendanceFactor)
	share := func(rate float64) int { return int(float64(attending) * (rate + rnd.Float64()*0.1)) }
	tiers := func(total int) (free, reduced, paid int) {
		free = total * s.FreeCount / s.TotalEnrollment
		reduced = total * s.ReducedCount / s.TotalEnrollment
		return free, reduced, total - free - reduced
	}

	m := kpi.SchoolMetric{
		SchoolID:        s.ID,
		Date:            date,
		TotalEnrollment: s.TotalEnrollment,
		FreeCount:       s.FreeCount,
		ReducedCount:    s.ReducedCount,
		BreakfastCount:  share(0.35),
		LunchCount:      share(0.65),
		SnackCount:      share(0.15),
		SupperCount:     share(0.05),
		UpdatedAt:       date.Add(18 * time.Hour),
	}
	m.BreakfastFree, m.BreakfastReduced, m.BreakfastPaid = tiers(m.BreakfastCount)
	m.LunchFree, m.LunchReduced, m.LunchPaid = tiers(m.LunchCount)
	m.SnackFree, m.SnackReduced, m.SnackPaid = tiers(m.SnackCount)
	m.SupperFree, m.SupperReduced, m.SupperPaid = tiers(m.SupperCount)

	m.ServedMeals = m.BreakfastCount + m.LunchCount + m.SnackCount + m.SupperCount
	m.PlannedMeals = m.ServedMeals + m.ServedMeals/20
	m.ProducedMeals = m.ServedMeals + rnd.Intn(m.ServedMeals/10+1)
	m.ALaCarteRevenue = float64(rnd.Intn(20000)) / 100
	if attending > 0 {
		m.BreakfastParticipation = float64(m.BreakfastCount) / float64(attending) * 100
		m.LunchParticipation = float64(m.LunchCount) / float64(attending) * 100
	}
	return m
}
