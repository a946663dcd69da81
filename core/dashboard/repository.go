package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/nutridash/core/kpi"
)

var (
	// errors
	ErrSessionNotFound = errors.New("dashboard session not found")
	ErrSessionClosed   = errors.New("dashboard session closed")
	ErrNoData          = errors.New("dashboard data not loaded")
	ErrKPINotFound     = errors.New("kpi not found")
)

// Repository is the data-fetch contract of the external persistence service.
type Repository interface {
	FetchSchools(ctx context.Context, districtID string) ([]kpi.School, error)
	// FetchKPIDefinitions returns the KPIs of a district with the user visibility & order preferences merged in.
	FetchKPIDefinitions(ctx context.Context, districtID string) ([]kpi.KPI, error)
	FetchDailyMetrics(ctx context.Context, districtID string, dateRange kpi.DateRange) ([]kpi.SchoolMetric, error)
	// FetchKPIValues returns the point values of a KPI in [start, end]; all schools when schoolID is nil.
	FetchKPIValues(ctx context.Context, kpiID string, start, end time.Time, schoolID *string) ([]kpi.KPIValue, error)
}

// Store is a Repository that can be written to. Save methods assign an ID to new records.
type Store interface {
	Repository

	SaveSchool(ctx context.Context, school kpi.School) (kpi.School, error)
	SaveKPI(ctx context.Context, k kpi.KPI) (kpi.KPI, error)
	// SetKPIPreference overrides the visibility & display order of a KPI for its district.
	SetKPIPreference(ctx context.Context, districtID, kpiID string, visible bool, order int) error
	SaveDailyMetric(ctx context.Context, metric kpi.SchoolMetric) (kpi.SchoolMetric, error)
	SaveKPIValue(ctx context.Context, value kpi.KPIValue) (kpi.KPIValue, error)
}
