package kpi

import (
	"time"

	"github.com/trezcool/nutridash/core/timeframe"
)

// DistrictSentinel is the school selection meaning "all schools pooled together".
const DistrictSentinel = "district"

type DateRange = timeframe.Range

// Unit of a KPI value.
type Unit string

const (
	UnitPercent  Unit = "%"
	UnitCount    Unit = "#"
	UnitCurrency Unit = "$"
	UnitRatio    Unit = "" // anything else is read as a plain ratio
)

// Additive reports whether values of this unit add up over time (counts & money).
func (u Unit) Additive() bool {
	return u == UnitCount || u == UnitCurrency
}

// KPI is a named metric definition of a district.
type KPI struct {
	ID          string  `json:"id" db:"id"`
	DistrictID  string  `json:"district_id" db:"district_id"`
	Name        string  `json:"name" db:"name"`
	DisplayName string  `json:"display_name" db:"display_name"`
	Description string  `json:"description" db:"description"`
	Unit        Unit    `json:"unit" db:"unit"`
	Benchmark   float64 `json:"benchmark" db:"benchmark"` // daily target
	Order       int     `json:"order" db:"display_order"`
	Visible     bool    `json:"visible" db:"visible"`
	Formula     Formula `json:"-" db:"-"`
}

// School is a member of a district.
type School struct {
	ID              string `json:"id" db:"id"`
	DistrictID      string `json:"district_id" db:"district_id"`
	Name            string `json:"name" db:"name"`
	TotalEnrollment int    `json:"total_enrollment" db:"total_enrollment"`
	FreeCount       int    `json:"free_count" db:"free_count"`
	ReducedCount    int    `json:"reduced_count" db:"reduced_count"`
}

// MealType is one of the four reimbursable meal services.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Snack     MealType = "snack"
	Supper    MealType = "supper"
)

// TierCounts holds the meals of one type served per eligibility tier.
type TierCounts struct {
	Free    int
	Reduced int
	Paid    int
}

func (tc TierCounts) Total() int { return tc.Free + tc.Reduced + tc.Paid }

// SchoolMetric is the daily record of one school. There is at most one per (SchoolID, Date).
type SchoolMetric struct {
	ID              string    `json:"id" db:"id"`
	SchoolID        string    `json:"school_id" db:"school_id"`
	Date            time.Time `json:"date" db:"date"`
	TotalEnrollment int       `json:"total_enrollment" db:"total_enrollment"`
	FreeCount       int       `json:"free_count" db:"free_count"`
	ReducedCount    int       `json:"reduced_count" db:"reduced_count"`

	BreakfastCount int `json:"breakfast_count" db:"breakfast_count"`
	LunchCount     int `json:"lunch_count" db:"lunch_count"`
	SnackCount     int `json:"snack_count" db:"snack_count"`
	SupperCount    int `json:"supper_count" db:"supper_count"`

	BreakfastFree    int `json:"breakfast_free" db:"breakfast_free"`
	BreakfastReduced int `json:"breakfast_reduced" db:"breakfast_reduced"`
	BreakfastPaid    int `json:"breakfast_paid" db:"breakfast_paid"`
	LunchFree        int `json:"lunch_free" db:"lunch_free"`
	LunchReduced     int `json:"lunch_reduced" db:"lunch_reduced"`
	LunchPaid        int `json:"lunch_paid" db:"lunch_paid"`
	SnackFree        int `json:"snack_free" db:"snack_free"`
	SnackReduced     int `json:"snack_reduced" db:"snack_reduced"`
	SnackPaid        int `json:"snack_paid" db:"snack_paid"`
	SupperFree       int `json:"supper_free" db:"supper_free"`
	SupperReduced    int `json:"supper_reduced" db:"supper_reduced"`
	SupperPaid       int `json:"supper_paid" db:"supper_paid"`

	ProducedMeals int `json:"produced_meals" db:"produced_meals"`
	ServedMeals   int `json:"served_meals" db:"served_meals"`
	PlannedMeals  int `json:"planned_meals" db:"planned_meals"`

	ReimbursementRevenue float64 `json:"reimbursement_revenue" db:"reimbursement_revenue"`
	ALaCarteRevenue      float64 `json:"a_la_carte_revenue" db:"a_la_carte_revenue"`

	BreakfastParticipation float64 `json:"breakfast_participation_rate" db:"breakfast_participation_rate"`
	LunchParticipation     float64 `json:"lunch_participation_rate" db:"lunch_participation_rate"`

	UpdatedAt time.Time `json:"updated_at" db:"-"` // zero when the source has no such column
}

// Tiers returns the per-tier counts of the given meal type.
func (m SchoolMetric) Tiers(meal MealType) TierCounts {
	switch meal {
	case Breakfast:
		return TierCounts{m.BreakfastFree, m.BreakfastReduced, m.BreakfastPaid}
	case Lunch:
		return TierCounts{m.LunchFree, m.LunchReduced, m.LunchPaid}
	case Snack:
		return TierCounts{m.SnackFree, m.SnackReduced, m.SnackPaid}
	case Supper:
		return TierCounts{m.SupperFree, m.SupperReduced, m.SupperPaid}
	default:
		return TierCounts{}
	}
}

// KPIValue is a point observation of a KPI not derived from school metrics.
type KPIValue struct {
	ID       string    `json:"id" db:"id"`
	KPIID    string    `json:"kpi_id" db:"kpi_id"`
	Date     time.Time `json:"date" db:"date"`
	SchoolID *string   `json:"school_id" db:"-"` // nil: district-level value
	Value    float64   `json:"value" db:"value"`
}

// Dataset is everything fetched for one dashboard window.
type Dataset struct {
	KPIs    []KPI
	Values  []KPIValue
	Metrics []SchoolMetric
	Schools []School
}

// KPI returns the definition with the given ID.
func (ds *Dataset) KPI(id string) (KPI, bool) {
	for _, k := range ds.KPIs {
		if k.ID == id {
			return k, true
		}
	}
	return KPI{}, false
}

// Selection is the set of schools a query is about.
type Selection []string

// IsDistrict reports whether the selection pools every school of the district.
func (sel Selection) IsDistrict() bool {
	for _, id := range sel {
		if id == DistrictSentinel {
			return true
		}
	}
	return false
}

// Has reports whether schoolID is selected. The district sentinel selects every school.
func (sel Selection) Has(schoolID string) bool {
	if sel.IsDistrict() {
		return true
	}
	for _, id := range sel {
		if id == schoolID {
			return true
		}
	}
	return false
}

// SingleSchool returns the selected school when exactly one real school is selected.
func (sel Selection) SingleSchool() (string, bool) {
	if len(sel) != 1 || sel.IsDistrict() {
		return "", false
	}
	return sel[0], true
}

// Query asks for one KPI over a school selection and a window.
type Query struct {
	KPIID     string
	Schools   Selection
	Range     DateRange
	Timeframe timeframe.Timeframe
}
