package dashboard

import (
	"time"

	"github.com/trezcool/nutridash/core/calendar"
	"github.com/trezcool/nutridash/core/kpi"
	"github.com/trezcool/nutridash/core/timeframe"
)

type (
	// Selection is what the user looks at: a timeframe and a set of schools.
	Selection struct {
		Timeframe   timeframe.Timeframe `json:"timeframe" validate:"required"`
		CustomStart string              `json:"custom_start" validate:"omitempty,isodate"`
		CustomEnd   string              `json:"custom_end" validate:"omitempty,isodate"`
		Schools     []string            `json:"schools" validate:"omitempty,schoolsel,dive,notblank"`
	}

	NewSession struct {
		DistrictID string `json:"district_id" validate:"required,notblank"`
		Selection
	}

	// State is the observable state of a session.
	State struct {
		ID               string              `json:"id"`
		DistrictID       string              `json:"district_id"`
		Timeframe        timeframe.Timeframe `json:"timeframe"`
		Schools          []string            `json:"schools"`
		Start            time.Time           `json:"start"`
		End              time.Time           `json:"end"`
		NonServingPeriod bool                `json:"non_serving_period"`
		NonServingReason calendar.Reason     `json:"non_serving_reason"`
		ServingDays      int                 `json:"serving_days"`
		Loading          bool                `json:"loading"`
		Error            string              `json:"error"`
	}

	// Report is the computed card of one KPI.
	Report struct {
		KPI       kpi.KPI  `json:"kpi"`
		Value     *float64 `json:"value"` // nil: no data
		Trend     float64  `json:"trend"`
		Benchmark float64  `json:"benchmark"`
	}
)

// normalized defaults an empty school selection to the whole district.
func (sel Selection) normalized() Selection {
	schools := make([]string, 0, len(sel.Schools))
	for _, id := range sel.Schools {
		if id != "" {
			schools = append(schools, id)
		}
	}
	if len(schools) == 0 {
		schools = []string{kpi.DistrictSentinel}
	}
	sel.Schools = schools
	return sel
}

// customRange returns the user-picked range, nil unless both ends are set and valid.
func (sel Selection) customRange(loc *time.Location) *timeframe.Range {
	if sel.CustomStart == "" || sel.CustomEnd == "" {
		return nil
	}
	start, err := time.ParseInLocation(calendar.DateLayout, sel.CustomStart, loc)
	if err != nil {
		return nil
	}
	end, err := time.ParseInLocation(calendar.DateLayout, sel.CustomEnd, loc)
	if err != nil {
		return nil
	}
	return &timeframe.Range{Start: calendar.StartOfDay(start), End: calendar.EndOfDay(end)}
}
