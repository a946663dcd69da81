package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/nutridash/core/timeframe"
)

// CacheKey identifies one loaded dataset. Computed reports are dropped whenever it changes.
type CacheKey struct {
	DistrictID   string
	RangeHash    string
	SchoolsHash  string
	RefreshToken int
}

func newCacheKey(districtID string, r timeframe.Range, schools []string, refreshToken int) CacheKey {
	sorted := make([]string, len(schools))
	copy(sorted, schools)
	sort.Strings(sorted)

	return CacheKey{
		DistrictID:   districtID,
		RangeHash:    r.Start.Format(time.RFC3339Nano) + "/" + r.End.Format(time.RFC3339Nano),
		SchoolsHash:  strings.Join(sorted, ","),
		RefreshToken: refreshToken,
	}
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%d", k.DistrictID, k.RangeHash, k.SchoolsHash, k.RefreshToken)
}

// reportCache memoizes the reports computed over one dataset.
type reportCache struct {
	mu      sync.Mutex
	reports map[string]Report
}

func newReportCache() *reportCache {
	return &reportCache{reports: make(map[string]Report)}
}

func (c *reportCache) get(kpiID string) (Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reports[kpiID]
	return r, ok
}

func (c *reportCache) set(kpiID string, r Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[kpiID] = r
}
