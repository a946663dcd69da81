package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/nutridash/core"
	"github.com/trezcool/nutridash/core/dashboard"
	"github.com/trezcool/nutridash/core/kpi"
)

const (
	schoolColumns = `id, district_id, name, total_enrollment, free_count, reduced_count`

	metricColumns = `id, school_id, date, total_enrollment, free_count, reduced_count,
	breakfast_count, lunch_count, snack_count, supper_count,
	breakfast_free, breakfast_reduced, breakfast_paid, lunch_free, lunch_reduced, lunch_paid,
	snack_free, snack_reduced, snack_paid, supper_free, supper_reduced, supper_paid,
	produced_meals, served_meals, planned_meals, reimbursement_revenue, a_la_carte_revenue,
	breakfast_participation_rate, lunch_participation_rate`
)

type (
	dashboardRepository struct {
		db  core.DBExecutor
		loc *time.Location
	}

	metricRow struct {
		kpi.SchoolMetric
		UpdatedAt null.Time `db:"updated_at"`
	}

	valueRow struct {
		kpi.KPIValue
		SchoolID null.String `db:"school_id"`
	}
)

var _ dashboard.Store = (*dashboardRepository)(nil) // interface compliance check

// NewDashboardRepository reads & writes the dashboard tables. Dates are read back as midnight in loc.
func NewDashboardRepository(db core.DBExecutor, loc *time.Location) dashboard.Store {
	if loc == nil {
		loc = time.UTC
	}
	return &dashboardRepository{db: db, loc: loc}
}

// localDate maps a DATE column, read as UTC midnight, to midnight in the calendar location.
func (repo *dashboardRepository) localDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, repo.loc)
}

func dateParam(t time.Time) string {
	return t.Format("2006-01-02")
}

// utcDate keeps the calendar day of t so that the DATE column stores that day whatever the session zone.
func utcDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (repo *dashboardRepository) FetchSchools(ctx context.Context, districtID string) ([]kpi.School, error) {
	schools := make([]kpi.School, 0)
	q := repo.db.Rebind(`SELECT ` + schoolColumns + ` FROM school WHERE district_id = ? ORDER BY name`)
	if err := repo.db.SelectContext(ctx, &schools, q, districtID); err != nil {
		return nil, errors.Wrap(err, "selecting schools")
	}
	return schools, nil
}

func (repo *dashboardRepository) FetchKPIDefinitions(ctx context.Context, districtID string) ([]kpi.KPI, error) {
	kpis := make([]kpi.KPI, 0)
	q := repo.db.Rebind(`
		SELECT k.id, k.district_id, k.name, k.display_name, k.description, k.unit, k.benchmark,
			COALESCE(p.display_order, k.display_order) AS display_order,
			COALESCE(p.visible, true) AS visible
		FROM kpi k
		LEFT JOIN kpi_preference p ON p.kpi_id = k.id AND p.district_id = k.district_id
		WHERE k.district_id = ?
		ORDER BY display_order, k.name`)
	if err := repo.db.SelectContext(ctx, &kpis, q, districtID); err != nil {
		return nil, errors.Wrap(err, "selecting kpis")
	}
	return kpis, nil
}

func (repo *dashboardRepository) FetchDailyMetrics(ctx context.Context, districtID string, dateRange kpi.DateRange) ([]kpi.SchoolMetric, error) {
	rows := make([]metricRow, 0)
	q := repo.db.Rebind(`
		SELECT ` + prefixed("m.", metricColumns) + `, m.updated_at
		FROM school_daily_metric m
		JOIN school s ON s.id = m.school_id
		WHERE s.district_id = ? AND m.date BETWEEN ? AND ?
		ORDER BY m.date, m.school_id`)
	err := repo.db.SelectContext(ctx, &rows, q, districtID, dateParam(dateRange.Start), dateParam(dateRange.End))
	if err != nil {
		return nil, errors.Wrap(err, "selecting daily metrics")
	}

	metrics := make([]kpi.SchoolMetric, 0, len(rows))
	for _, r := range rows {
		m := r.SchoolMetric
		m.Date = repo.localDate(m.Date)
		if r.UpdatedAt.Valid {
			m.UpdatedAt = r.UpdatedAt.Time
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

func (repo *dashboardRepository) FetchKPIValues(ctx context.Context, kpiID string, start, end time.Time, schoolID *string) ([]kpi.KPIValue, error) {
	query := `SELECT id, kpi_id, school_id, date, value FROM kpi_value WHERE kpi_id = ? AND date BETWEEN ? AND ?`
	args := []interface{}{kpiID, dateParam(start), dateParam(end)}
	if schoolID != nil {
		query += ` AND school_id = ?`
		args = append(args, *schoolID)
	}
	query += ` ORDER BY date`

	rows := make([]valueRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting kpi values")
	}

	values := make([]kpi.KPIValue, 0, len(rows))
	for _, r := range rows {
		v := r.KPIValue
		v.Date = repo.localDate(v.Date)
		v.SchoolID = r.SchoolID.Ptr()
		values = append(values, v)
	}
	return values, nil
}

func (repo *dashboardRepository) SaveSchool(ctx context.Context, school kpi.School) (kpi.School, error) {
	school.ID = newID(school.ID)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO school (`+schoolColumns+`)
		VALUES (:id, :district_id, :name, :total_enrollment, :free_count, :reduced_count)
		ON CONFLICT (id) DO UPDATE SET
			district_id = EXCLUDED.district_id, name = EXCLUDED.name, total_enrollment = EXCLUDED.total_enrollment,
			free_count = EXCLUDED.free_count, reduced_count = EXCLUDED.reduced_count`, school)
	if err != nil {
		return kpi.School{}, errors.Wrap(err, "saving school")
	}
	return school, nil
}

func (repo *dashboardRepository) SaveKPI(ctx context.Context, k kpi.KPI) (kpi.KPI, error) {
	k.ID = newID(k.ID)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO kpi (id, district_id, name, display_name, description, unit, benchmark, display_order)
		VALUES (:id, :district_id, :name, :display_name, :description, :unit, :benchmark, :display_order)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, display_name = EXCLUDED.display_name, description = EXCLUDED.description,
			unit = EXCLUDED.unit, benchmark = EXCLUDED.benchmark, display_order = EXCLUDED.display_order`, k)
	if err != nil {
		return kpi.KPI{}, errors.Wrap(err, "saving kpi")
	}
	if !k.Visible {
		if err := repo.SetKPIPreference(ctx, k.DistrictID, k.ID, false, k.Order); err != nil {
			return kpi.KPI{}, err
		}
	}
	return k, nil
}

func (repo *dashboardRepository) SetKPIPreference(ctx context.Context, districtID, kpiID string, visible bool, order int) error {
	q := repo.db.Rebind(`
		INSERT INTO kpi_preference (district_id, kpi_id, visible, display_order)
		SELECT district_id, id, ?::boolean, ?::integer FROM kpi WHERE id = ? AND district_id = ?
		ON CONFLICT (district_id, kpi_id) DO UPDATE SET visible = EXCLUDED.visible, display_order = EXCLUDED.display_order`)
	res, err := repo.db.ExecContext(ctx, q, visible, order, kpiID, districtID)
	if err != nil {
		return errors.Wrap(err, "saving kpi preference")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dashboard.ErrKPINotFound
	}
	return nil
}

func (repo *dashboardRepository) SaveDailyMetric(ctx context.Context, metric kpi.SchoolMetric) (kpi.SchoolMetric, error) {
	metric.ID = newID(metric.ID)
	row := metricRow{SchoolMetric: metric}
	row.Date = utcDate(metric.Date)
	if !metric.UpdatedAt.IsZero() {
		row.UpdatedAt = null.TimeFrom(metric.UpdatedAt)
	}

	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO school_daily_metric (`+metricColumns+`, updated_at)
		VALUES (`+namedParams(metricColumns)+`, :updated_at)
		ON CONFLICT (id) DO UPDATE SET `+excludedSet(metricColumns+`, updated_at`), row)
	if err != nil {
		return kpi.SchoolMetric{}, errors.Wrap(err, "saving daily metric")
	}
	return metric, nil
}

func (repo *dashboardRepository) SaveKPIValue(ctx context.Context, value kpi.KPIValue) (kpi.KPIValue, error) {
	value.ID = newID(value.ID)
	row := valueRow{KPIValue: value, SchoolID: null.StringFromPtr(value.SchoolID)}
	row.Date = utcDate(value.Date)

	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO kpi_value (id, kpi_id, school_id, date, value)
		VALUES (:id, :kpi_id, :school_id, :date, :value)
		ON CONFLICT (id) DO UPDATE SET
			kpi_id = EXCLUDED.kpi_id, school_id = EXCLUDED.school_id, date = EXCLUDED.date, value = EXCLUDED.value`, row)
	if err != nil {
		return kpi.KPIValue{}, errors.Wrap(err, "saving kpi value")
	}
	return value, nil
}

var (
	_ core.DBExecutor = (*sqlx.DB)(nil)
	_ core.DBExecutor = (*sqlx.Tx)(nil)
)
