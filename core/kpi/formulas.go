package kpi

// waste is the cost of the portions produced but not served.
func waste(metrics []SchoolMetric) float64 {
	var portions int
	for _, m := range metrics {
		if leftover := m.ProducedMeals - m.ServedMeals; leftover > 0 {
			portions += leftover
		}
	}
	return float64(portions) * WasteCostPerPortion
}

// ecoDis is the share of enrolled students eligible for free or reduced meals.
func ecoDis(schools []School) float64 {
	var eligible, enrolled int
	for _, s := range schools {
		eligible += s.FreeCount + s.ReducedCount
		enrolled += s.TotalEnrollment
	}
	if enrolled == 0 {
		return 0
	}
	return float64(eligible) / float64(enrolled) * 100
}

func meals(metrics []SchoolMetric) float64 {
	var n int
	for _, m := range metrics {
		n += m.BreakfastCount + m.LunchCount + m.SnackCount
	}
	return float64(n)
}

// participation is the Average Daily Participation of a meal type: meals served over
// the attendance-adjusted enrollment of every serving day.
func participation(metrics []SchoolMetric, meal MealType, servingDays int) float64 {
	var served, enrolled int
	for _, m := range metrics {
		served += m.Tiers(meal).Total()
		enrolled += m.TotalEnrollment
	}
	denom := float64(enrolled) * AttendanceFactor * float64(servingDays)
	if denom == 0 {
		return 0
	}
	return float64(served) / denom * 100
}

func revenue(metrics []SchoolMetric) float64 {
	var total float64
	for _, m := range metrics {
		for _, meal := range mealTypes {
			total += mealPrices[meal].revenue(m.Tiers(meal))
		}
		total += m.ALaCarteRevenue
	}
	return total
}
