package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/nutridash/core"
	"github.com/trezcool/nutridash/core/calendar"
	"github.com/trezcool/nutridash/core/kpi"
	"github.com/trezcool/nutridash/core/timeframe"
)

var (
	// Wednesday
	now = time.Date(2025, time.October, 15, 10, 0, 0, 0, time.UTC)

	school1 = "s1"
	school2 = "s2"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

// fakeRepo serves fixed data. A hook registered under a method name runs before that method returns.
type fakeRepo struct {
	mu      sync.Mutex
	schools []kpi.School
	kpis    []kpi.KPI
	metrics []kpi.SchoolMetric
	values  []kpi.KPIValue
	hooks   map[string]func(ctx context.Context) error
	calls   map[string]int
	ranges  []kpi.DateRange
	valueOf []*string // schoolID asked by FetchKPIValues
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		schools: []kpi.School{
			{ID: school1, DistrictID: "d1", Name: "North", TotalEnrollment: 100, FreeCount: 40, ReducedCount: 10},
			{ID: school2, DistrictID: "d1", Name: "South", TotalEnrollment: 100, FreeCount: 20, ReducedCount: 10},
		},
		kpis: []kpi.KPI{
			{ID: "k-meals", DistrictID: "d1", Name: "Meals", DisplayName: "Meals served", Unit: kpi.UnitCount, Benchmark: 40, Order: 2, Visible: true},
			{ID: "k-sat", DistrictID: "d1", Name: "Satisfaction", DisplayName: "Satisfaction", Unit: kpi.UnitPercent, Benchmark: 90, Order: 1, Visible: true},
			{ID: "k-waste", DistrictID: "d1", Name: "Waste", DisplayName: "Waste", Unit: kpi.UnitCurrency, Order: 3, Visible: false},
		},
		metrics: []kpi.SchoolMetric{
			{ID: "m1", SchoolID: school1, Date: day(time.October, 15), BreakfastCount: 10, LunchCount: 20, SnackCount: 5, UpdatedAt: now},
			{ID: "m2", SchoolID: school1, Date: day(time.October, 15), BreakfastCount: 1, LunchCount: 1, SnackCount: 1, UpdatedAt: now.Add(-time.Hour)},
			{ID: "m3", SchoolID: school1, Date: day(time.October, 14), BreakfastCount: 10, LunchCount: 10, UpdatedAt: now},
		},
		values: []kpi.KPIValue{
			{ID: "v1", KPIID: "k-sat", Date: day(time.October, 15), SchoolID: &school1, Value: 80},
			{ID: "v2", KPIID: "k-sat", Date: day(time.October, 14), SchoolID: &school1, Value: 60},
		},
		hooks: make(map[string]func(ctx context.Context) error),
		calls: make(map[string]int),
	}
}

func (r *fakeRepo) hook(ctx context.Context, method string) error {
	r.mu.Lock()
	r.calls[method]++
	h := r.hooks[method]
	r.mu.Unlock()
	if h != nil {
		return h(ctx)
	}
	return nil
}

func (r *fakeRepo) setHook(method string, h func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[method] = h
}

func (r *fakeRepo) callCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

func (r *fakeRepo) FetchSchools(ctx context.Context, _ string) ([]kpi.School, error) {
	if err := r.hook(ctx, "FetchSchools"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kpi.School(nil), r.schools...), nil
}

func (r *fakeRepo) FetchKPIDefinitions(ctx context.Context, _ string) ([]kpi.KPI, error) {
	if err := r.hook(ctx, "FetchKPIDefinitions"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kpi.KPI(nil), r.kpis...), nil
}

func (r *fakeRepo) FetchDailyMetrics(ctx context.Context, _ string, dateRange kpi.DateRange) ([]kpi.SchoolMetric, error) {
	if err := r.hook(ctx, "FetchDailyMetrics"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranges = append(r.ranges, dateRange)
	var metrics []kpi.SchoolMetric
	for _, m := range r.metrics {
		if dateRange.Contains(m.Date) {
			metrics = append(metrics, m)
		}
	}
	return metrics, nil
}

func (r *fakeRepo) FetchKPIValues(ctx context.Context, kpiID string, start, end time.Time, schoolID *string) ([]kpi.KPIValue, error) {
	if err := r.hook(ctx, "FetchKPIValues"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.valueOf = append(r.valueOf, schoolID)
	rng := timeframe.Range{Start: start, End: end}
	var values []kpi.KPIValue
	for _, v := range r.values {
		if v.KPIID != kpiID || !rng.Contains(v.Date) {
			continue
		}
		if schoolID != nil && (v.SchoolID == nil || *v.SchoolID != *schoolID) {
			continue
		}
		values = append(values, v)
	}
	return values, nil
}

type logEntry struct {
	level, msg string
	args       []interface{}
}

type fakeLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

var _ core.Logger = (*fakeLogger)(nil)

func (l *fakeLogger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, msg, args})
}

func (l *fakeLogger) errors() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []logEntry
	for _, e := range l.entries {
		if e.level == "error" {
			errs = append(errs, e)
		}
	}
	return errs
}

func (l *fakeLogger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *fakeLogger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *fakeLogger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *fakeLogger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *fakeLogger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	repo   *fakeRepo
	logger *fakeLogger
	clock  *clock
	svc    *Service
}

func newTestEnv(cal *calendar.Calendar) *testEnv {
	conf := core.NewTestConfig()
	env := &testEnv{repo: newFakeRepo(), logger: &fakeLogger{}, clock: &clock{t: now}}
	env.svc = NewService(env.repo, timeframe.NewResolver(cal, 2020), env.logger, conf)
	env.svc.nowFunc = env.clock.Now
	return env
}

func daySelection(schools ...string) NewSession {
	return NewSession{DistrictID: "d1", Selection: Selection{Timeframe: timeframe.Day, Schools: schools}}
}
