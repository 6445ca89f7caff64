package telemetry

import (
	"context"
	"sort"
	"sync"
)

// DefaultBuckets are the histogram bounds, in seconds, used when none are
// given.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Memory keeps counters and a duration histogram per model and operation.
type Memory struct {
	mu       sync.RWMutex
	buckets  []float64
	queries  map[Key]*Series
	errors   map[Key]int64
	lastErrs []ErrorInfo
}

// Key labels a series.
type Key struct {
	Model     string
	Operation string
}

// Series aggregates the executions under one key.
type Series struct {
	Success int64
	Failure int64
	Rows    int64
	Seconds float64
	// Buckets counts executions at or below each bound; the extra last
	// entry counts the rest.
	Buckets []int64
}

// NewMemory creates an in-memory recorder.
func NewMemory(buckets ...float64) *Memory {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	b := append([]float64(nil), buckets...)
	sort.Float64s(b)

	return &Memory{
		buckets: b,
		queries: make(map[Key]*Series),
		errors:  make(map[Key]int64),
	}
}

// RecordQuery implements Telemetry.
func (m *Memory) RecordQuery(_ context.Context, info QueryInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key{Model: info.Model, Operation: info.Operation}
	s, ok := m.queries[key]
	if !ok {
		s = &Series{Buckets: make([]int64, len(m.buckets)+1)}
		m.queries[key] = s
	}

	if info.Success {
		s.Success++
	} else {
		s.Failure++
	}
	s.Rows += info.Rows

	secs := info.Duration.Seconds()
	s.Seconds += secs
	s.Buckets[sort.SearchFloat64s(m.buckets, secs)]++
}

// RecordError implements Telemetry.
func (m *Memory) RecordError(_ context.Context, info ErrorInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errors[Key{Model: info.Model, Operation: info.Operation}]++
	m.lastErrs = append(m.lastErrs, info)
	if len(m.lastErrs) > 100 {
		m.lastErrs = m.lastErrs[1:]
	}
}

// Flush implements Telemetry.
func (m *Memory) Flush(context.Context) error { return nil }

// Close implements Telemetry.
func (m *Memory) Close(context.Context) error { return nil }

// Query returns a copy of the series under key.
func (m *Memory) Query(key Key) (Series, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.queries[key]
	if !ok {
		return Series{}, false
	}
	out := *s
	out.Buckets = append([]int64(nil), s.Buckets...)
	return out, true
}

// Errors returns the error count under key.
func (m *Memory) Errors(key Key) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errors[key]
}

// RecentErrors returns up to the last hundred recorded errors, oldest first.
func (m *Memory) RecentErrors() []ErrorInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ErrorInfo(nil), m.lastErrs...)
}

// Keys returns every recorded key sorted by model then operation.
func (m *Memory) Keys() []Key {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]Key, 0, len(m.queries))
	for k := range m.queries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Model != keys[j].Model {
			return keys[i].Model < keys[j].Model
		}
		return keys[i].Operation < keys[j].Operation
	})
	return keys
}

var _ Telemetry = (*Memory)(nil)
