package dummydb

import (
	"sync"

	"github.com/trezcool/nutridash/core/kpi"
)

type (
	DB struct {
		school      *schoolTable
		kpi         *kpiTable
		preferences *preferenceTable
		metric      *metricTable
		value       *valueTable
	}

	schoolTable struct {
		sync.RWMutex
		table map[string]*kpi.School
	}

	kpiTable struct {
		sync.RWMutex
		table map[string]*kpi.KPI
	}

	preference struct {
		visible bool
		order   int
	}

	// keyed by district ID, then KPI ID
	preferenceTable struct {
		sync.RWMutex
		table map[string]map[string]preference
	}

	// slices: duplicate (school, date) rows are kept as imported
	metricTable struct {
		sync.RWMutex
		rows []kpi.SchoolMetric
	}

	valueTable struct {
		sync.RWMutex
		rows []kpi.KPIValue
	}
)

func Open() (*DB, error) {
	db := &DB{
		school:      &schoolTable{table: make(map[string]*kpi.School)},
		kpi:         &kpiTable{table: make(map[string]*kpi.KPI)},
		preferences: &preferenceTable{table: make(map[string]map[string]preference)},
		metric:      &metricTable{},
		value:       &valueTable{},
	}
	return db, nil
}
