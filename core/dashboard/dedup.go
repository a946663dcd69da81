package dashboard

import (
	"github.com/trezcool/nutridash/core/calendar"
	"github.com/trezcool/nutridash/core/kpi"
)

// DedupMetrics keeps one metric per (school, date), in first-seen order.
// A duplicate replaces the kept row when it was updated later or at the same time:
// sources without an update timestamp resolve to the last row encountered.
func DedupMetrics(metrics []kpi.SchoolMetric) []kpi.SchoolMetric {
	type key struct{ school, date string }

	idx := make(map[key]int, len(metrics))
	deduped := make([]kpi.SchoolMetric, 0, len(metrics))
	for _, m := range metrics {
		k := key{m.SchoolID, m.Date.Format(calendar.DateLayout)}
		i, seen := idx[k]
		if !seen {
			idx[k] = len(deduped)
			deduped = append(deduped, m)
			continue
		}
		if !m.UpdatedAt.Before(deduped[i].UpdatedAt) {
			deduped[i] = m
		}
	}
	return deduped
}
