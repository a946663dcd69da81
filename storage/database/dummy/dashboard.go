package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/nutridash/core/dashboard"
	"github.com/trezcool/nutridash/core/kpi"
	"github.com/trezcool/nutridash/core/timeframe"
)

type dashboardRepository struct {
	db *DB
}

var _ dashboard.Store = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *DB) dashboard.Store {
	return &dashboardRepository{db: db}
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (repo *dashboardRepository) FetchSchools(ctx context.Context, districtID string) ([]kpi.School, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.school.RLock()
	defer repo.db.school.RUnlock()

	schools := make([]kpi.School, 0)
	for _, s := range repo.db.school.table {
		if s.DistrictID == districtID {
			schools = append(schools, *s)
		}
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, nil
}

func (repo *dashboardRepository) FetchKPIDefinitions(ctx context.Context, districtID string) ([]kpi.KPI, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.kpi.RLock()
	defer repo.db.kpi.RUnlock()
	repo.db.preferences.RLock()
	defer repo.db.preferences.RUnlock()

	prefs := repo.db.preferences.table[districtID]
	kpis := make([]kpi.KPI, 0)
	for _, k := range repo.db.kpi.table {
		if k.DistrictID != districtID {
			continue
		}
		def := *k
		if p, ok := prefs[k.ID]; ok {
			def.Visible = p.visible
			def.Order = p.order
		}
		kpis = append(kpis, def)
	}
	sort.SliceStable(kpis, func(i, j int) bool {
		if kpis[i].Order == kpis[j].Order {
			return kpis[i].Name < kpis[j].Name
		}
		return kpis[i].Order < kpis[j].Order
	})
	return kpis, nil
}

func (repo *dashboardRepository) FetchDailyMetrics(ctx context.Context, districtID string, dateRange kpi.DateRange) ([]kpi.SchoolMetric, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	schools := repo.districtSchools(districtID)

	repo.db.metric.RLock()
	defer repo.db.metric.RUnlock()

	metrics := make([]kpi.SchoolMetric, 0)
	for _, m := range repo.db.metric.rows {
		if schools[m.SchoolID] && dateRange.Contains(m.Date) {
			metrics = append(metrics, m)
		}
	}
	return metrics, nil
}

func (repo *dashboardRepository) FetchKPIValues(ctx context.Context, kpiID string, start, end time.Time, schoolID *string) ([]kpi.KPIValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.value.RLock()
	defer repo.db.value.RUnlock()

	rng := timeframe.Range{Start: start, End: end}
	values := make([]kpi.KPIValue, 0)
	for _, v := range repo.db.value.rows {
		if v.KPIID != kpiID || !rng.Contains(v.Date) {
			continue
		}
		if schoolID != nil && (v.SchoolID == nil || *v.SchoolID != *schoolID) {
			continue
		}
		values = append(values, v)
	}
	sort.SliceStable(values, func(i, j int) bool { return values[i].Date.Before(values[j].Date) })
	return values, nil
}

func (repo *dashboardRepository) districtSchools(districtID string) map[string]bool {
	repo.db.school.RLock()
	defer repo.db.school.RUnlock()

	ids := make(map[string]bool)
	for id, s := range repo.db.school.table {
		if s.DistrictID == districtID {
			ids[id] = true
		}
	}
	return ids
}

func (repo *dashboardRepository) SaveSchool(_ context.Context, school kpi.School) (kpi.School, error) {
	repo.db.school.Lock()
	defer repo.db.school.Unlock()

	school.ID = newID(school.ID)
	repo.db.school.table[school.ID] = &school
	return school, nil
}

func (repo *dashboardRepository) SaveKPI(_ context.Context, k kpi.KPI) (kpi.KPI, error) {
	repo.db.kpi.Lock()
	defer repo.db.kpi.Unlock()

	k.ID = newID(k.ID)
	k.Formula = kpi.Formula{}
	repo.db.kpi.table[k.ID] = &k
	return k, nil
}

func (repo *dashboardRepository) SetKPIPreference(_ context.Context, districtID, kpiID string, visible bool, order int) error {
	repo.db.kpi.RLock()
	k, ok := repo.db.kpi.table[kpiID]
	repo.db.kpi.RUnlock()
	if !ok || k.DistrictID != districtID {
		return dashboard.ErrKPINotFound
	}

	repo.db.preferences.Lock()
	defer repo.db.preferences.Unlock()
	if repo.db.preferences.table[districtID] == nil {
		repo.db.preferences.table[districtID] = make(map[string]preference)
	}
	repo.db.preferences.table[districtID][kpiID] = preference{visible: visible, order: order}
	return nil
}

func (repo *dashboardRepository) SaveDailyMetric(_ context.Context, metric kpi.SchoolMetric) (kpi.SchoolMetric, error) {
	repo.db.metric.Lock()
	defer repo.db.metric.Unlock()

	if metric.ID != "" {
		for i, m := range repo.db.metric.rows {
			if m.ID == metric.ID {
				repo.db.metric.rows[i] = metric
				return metric, nil
			}
		}
	}
	metric.ID = newID(metric.ID)
	repo.db.metric.rows = append(repo.db.metric.rows, metric)
	return metric, nil
}

func (repo *dashboardRepository) SaveKPIValue(_ context.Context, value kpi.KPIValue) (kpi.KPIValue, error) {
	repo.db.value.Lock()
	defer repo.db.value.Unlock()

	if value.ID != "" {
		for i, v := range repo.db.value.rows {
			if v.ID == value.ID {
				repo.db.value.rows[i] = value
				return value, nil
			}
		}
	}
	value.ID = newID(value.ID)
	repo.db.value.rows = append(repo.db.value.rows, value)
	return value, nil
}
