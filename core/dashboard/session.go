package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/nutridash/core"
	"github.com/trezcool/nutridash/core/kpi"
	"github.com/trezcool/nutridash/core/timeframe"
)

// Session is the dashboard of one user: a selection, the data loaded for it
// and the reports computed over that data. It is safe for concurrent use.
type Session struct {
	ID         string
	DistrictID string

	repo         Repository
	resolver     *timeframe.Resolver
	logger       core.Logger
	fetchTimeout time.Duration
	loc          *time.Location
	nowFunc      func() time.Time
	group        singleflight.Group

	mu           sync.RWMutex
	selection    Selection
	window       timeframe.Window
	refreshToken int
	generation   uint64
	loading      bool
	err          error
	alive        bool
	lastUsed     time.Time
	snap         *snapshot // last successfully loaded data, kept on failures
}

// snapshot binds a dataset to the window & schools it was loaded for.
type snapshot struct {
	key     CacheKey
	window  timeframe.Window
	schools kpi.Selection
	engine  *kpi.Engine
	reports *reportCache
}

// State returns the observable state of the session.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		ID:               s.ID,
		DistrictID:       s.DistrictID,
		Timeframe:        s.window.Timeframe,
		Schools:          append([]string(nil), s.selection.Schools...),
		Start:            s.window.Range.Start,
		End:              s.window.Range.End,
		NonServingPeriod: s.window.NonServingPeriod,
		NonServingReason: s.window.Reason,
		ServingDays:      s.window.ServingDays,
		Loading:          s.loading,
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

// Window returns the currently selected window.
func (s *Session) Window() timeframe.Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

// Err returns the failure of the last refresh cycle, if any.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Refresh bumps the refresh token and reloads the data of the current selection.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.refreshToken++
	s.resolveLocked()
	key := s.keyLocked()
	s.mu.Unlock()

	return s.load(ctx, key)
}

// SetSelection changes the selection and reloads the data when it no longer matches the loaded one.
func (s *Session) SetSelection(ctx context.Context, sel Selection) error {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.selection = sel.normalized()
	s.resolveLocked()
	key := s.keyLocked()
	upToDate := s.snap != nil && s.snap.key == key && s.err == nil
	s.mu.Unlock()

	if upToDate {
		return nil
	}
	return s.load(ctx, key)
}

// Close tears the session down: in-flight cycles finishing afterwards apply nothing.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
	s.loading = false
	s.snap = nil
}

// Report returns the computed card of one KPI.
func (s *Session) Report(kpiID string) (Report, error) {
	snap, err := s.snapshot()
	if err != nil {
		return Report{}, err
	}
	k, ok := snap.engine.Dataset().KPI(kpiID)
	if !ok {
		return Report{}, ErrKPINotFound
	}
	return snap.report(k), nil
}

// Reports returns the cards of every visible KPI in display order.
func (s *Session) Reports() ([]Report, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	kpis := make([]kpi.KPI, 0, len(snap.engine.Dataset().KPIs))
	for _, k := range snap.engine.Dataset().KPIs {
		if k.Visible {
			kpis = append(kpis, k)
		}
	}
	sort.SliceStable(kpis, func(i, j int) bool { return kpis[i].Order < kpis[j].Order })

	reports := make([]Report, 0, len(kpis))
	for _, k := range kpis {
		reports = append(reports, snap.report(k))
	}
	return reports, nil
}

func (s *Session) snapshot() (*snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		return nil, ErrSessionClosed
	}
	s.lastUsed = s.nowFunc()
	if s.snap == nil {
		if s.err != nil {
			return nil, s.err
		}
		return nil, ErrNoData
	}
	return s.snap, nil
}

func (snap *snapshot) report(k kpi.KPI) Report {
	if r, ok := snap.reports.get(k.ID); ok {
		return r
	}

	q := kpi.Query{
		KPIID:     k.ID,
		Schools:   snap.schools,
		Range:     snap.window.Range,
		Timeframe: snap.window.Timeframe,
	}
	r := Report{KPI: k}
	if v, ok := snap.engine.Aggregate(q); ok {
		r.Value = &v
	}
	r.Trend = snap.engine.Trend(q, snap.window.NonServingPeriod)
	r.Benchmark, _ = snap.engine.ExpectedBenchmark(k.ID, nil, snap.window.ServingDays)

	snap.reports.set(k.ID, r)
	return r
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

func (s *Session) resolveLocked() {
	custom := s.selection.customRange(s.loc)
	s.window = s.resolver.Resolve(s.selection.Timeframe, s.nowFunc().In(s.loc), custom)
	s.lastUsed = s.nowFunc()
}

func (s *Session) keyLocked() CacheKey {
	return newCacheKey(s.DistrictID, s.window.Range, s.selection.Schools, s.refreshToken)
}

// load runs one refresh cycle for key, coalesced with the concurrent cycles of the same key.
func (s *Session) load(ctx context.Context, key CacheKey) error {
	_, err, _ := s.group.Do(key.String(), func() (interface{}, error) {
		return nil, s.cycle(ctx, key)
	})
	return err
}

func (s *Session) cycle(ctx context.Context, key CacheKey) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.loading = true
	window := s.window
	schools := kpi.Selection(append([]string(nil), s.selection.Schools...))
	s.mu.Unlock()

	data, err := s.fetch(ctx, window, schools)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive || gen != s.generation {
		return nil // superseded
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.logger.Error("dashboard refresh failed", err, core.District{ID: s.DistrictID})
		return err
	}
	s.err = nil
	s.snap = &snapshot{
		key:     key,
		window:  window,
		schools: schools,
		engine:  kpi.NewEngine(data, s.resolver.Calendar),
		reports: newReportCache(),
	}
	return nil
}

// fetch loads the data of window: the previous period is included for trends.
func (s *Session) fetch(ctx context.Context, window timeframe.Window, schools kpi.Selection) (kpi.Dataset, error) {
	var data kpi.Dataset
	extended := window.Range.Extended()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.call(gctx, "fetching schools", func(ctx context.Context) (err error) {
			data.Schools, err = s.repo.FetchSchools(ctx, s.DistrictID)
			return
		})
	})
	g.Go(func() error {
		return s.call(gctx, "fetching kpi definitions", func(ctx context.Context) (err error) {
			data.KPIs, err = s.repo.FetchKPIDefinitions(ctx, s.DistrictID)
			return
		})
	})
	if err := g.Wait(); err != nil {
		return kpi.Dataset{}, err
	}

	err := s.call(ctx, "fetching daily metrics", func(ctx context.Context) error {
		metrics, err := s.repo.FetchDailyMetrics(ctx, s.DistrictID, extended)
		data.Metrics = DedupMetrics(metrics)
		return err
	})
	if err != nil {
		return kpi.Dataset{}, err
	}

	if window.NonServingPeriod {
		return data, nil
	}

	var schoolID *string
	if id, single := schools.SingleSchool(); single {
		schoolID = &id
	}
	perKPI := make([][]kpi.KPIValue, len(data.KPIs))
	g, gctx = errgroup.WithContext(ctx)
	for i, k := range data.KPIs {
		i, kpiID := i, k.ID
		g.Go(func() error {
			return s.call(gctx, "fetching values of kpi "+kpiID, func(ctx context.Context) (err error) {
				perKPI[i], err = s.repo.FetchKPIValues(ctx, kpiID, extended.Start, extended.End, schoolID)
				return
			})
		})
	}
	if err := g.Wait(); err != nil {
		return kpi.Dataset{}, err
	}
	for _, values := range perKPI {
		data.Values = append(data.Values, values...)
	}
	return data, nil
}

// call runs one repository fetch under the fetch timeout.
// Errors and panics come out as a *core.FetchFailure.
func (s *Session) call(ctx context.Context, op string, fetch func(ctx context.Context) error) (err error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = core.NewFetchFailure(op, r)
		}
	}()

	if err = fetch(ctx); err != nil {
		if core.IsFetchFailure(err) {
			return err
		}
		return core.NewFetchFailure(op, err)
	}
	return nil
}
