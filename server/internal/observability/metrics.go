package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates request counts and latencies per route.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	routes map[string]*RouteMetrics

	// durations keeps the most recent latencies for percentile estimates.
	durations    []time.Duration
	maxDurations int
}

// RouteMetrics represents metrics for one route.
type RouteMetrics struct {
	requestCount  atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		routes:       make(map[string]*RouteMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// Record records one finished request.
func (m *Metrics) Record(route string, duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.routes[route]
	if !ok {
		rm = &RouteMetrics{}
		m.routes[route] = rm
	}

	m.requestTotal.Add(1)
	rm.requestCount.Add(1)
	rm.totalDuration.Add(duration.Milliseconds())
	if failed {
		m.requestFailed.Add(1)
		rm.errorCount.Add(1)
	}

	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)

	m.mu.Lock()
	m.routes = make(map[string]*RouteMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	routes := make(map[string]*RouteMetricsSnapshot, len(m.routes))
	for route, rm := range m.routes {
		count := rm.requestCount.Load()
		snap := &RouteMetricsSnapshot{
			RequestCount: count,
			ErrorCount:   rm.errorCount.Load(),
		}
		if count > 0 {
			snap.AverageMs = rm.totalDuration.Load() / count
		}
		routes[route] = snap
	}

	sorted := append([]time.Duration(nil), m.durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		P50Ms:         percentile(sorted, 50),
		P95Ms:         percentile(sorted, 95),
		Routes:        routes,
	}
}

func percentile(sorted []time.Duration, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx].Milliseconds()
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                            `json:"request_total"`
	RequestFailed int64                            `json:"request_failed"`
	P50Ms         int64                            `json:"p50_ms"`
	P95Ms         int64                            `json:"p95_ms"`
	Routes        map[string]*RouteMetricsSnapshot `json:"routes"`
}

// RouteMetricsSnapshot represents metrics for one route.
type RouteMetricsSnapshot struct {
	RequestCount int64 `json:"request_count"`
	ErrorCount   int64 `json:"error_count"`
	AverageMs    int64 `json:"average_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
