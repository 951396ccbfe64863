package parcel

import (
	"reflect"
	"sync"
)

var (
	plans   = make(map[reflect.Type]*sealPlan)
	plansMu sync.RWMutex
)

// planFor returns the cached seal plan for t, building it on first use.
func planFor(t reflect.Type) (*sealPlan, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	// Fast path: read-lock cache check
	plansMu.RLock()
	if cached, ok := plans[t]; ok {
		plansMu.RUnlock()
		return cached, nil
	}
	plansMu.RUnlock()

	// Slow path: build and cache with write-lock
	plansMu.Lock()
	defer plansMu.Unlock()

	// Double-check pattern
	if cached, ok := plans[t]; ok {
		return cached, nil
	}

	plan, err := buildPlan(t)
	if err != nil {
		return nil, err
	}

	plans[t] = plan
	return plan, nil
}

// ResetPlans clears the seal plan cache.
// This is primarily useful for test isolation.
func ResetPlans() {
	plansMu.Lock()
	defer plansMu.Unlock()
	plans = make(map[reflect.Type]*sealPlan)
}
