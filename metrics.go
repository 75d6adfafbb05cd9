package authshift

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by authshift APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricResolveToken is an exported constant or variable used by the authentication engine.
	MetricResolveToken MetricID = iota
	// MetricResolveLegacy is an exported constant or variable used by the authentication engine.
	MetricResolveLegacy
	// MetricResolveExpired is an exported constant or variable used by the authentication engine.
	MetricResolveExpired
	// MetricResolveDenied is an exported constant or variable used by the authentication engine.
	MetricResolveDenied
	// MetricIssueSuccess is an exported constant or variable used by the authentication engine.
	MetricIssueSuccess
	// MetricIssueFailure is an exported constant or variable used by the authentication engine.
	MetricIssueFailure
	// MetricRefreshSuccess is an exported constant or variable used by the authentication engine.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the authentication engine.
	MetricRefreshFailure
	// MetricRefreshReuseDetected is an exported constant or variable used by the authentication engine.
	MetricRefreshReuseDetected
	// MetricRefreshRateLimited is an exported constant or variable used by the authentication engine.
	MetricRefreshRateLimited
	// MetricLogout is an exported constant or variable used by the authentication engine.
	MetricLogout
	// MetricLogoutAll is an exported constant or variable used by the authentication engine.
	MetricLogoutAll
	// MetricResolveLatency is an exported constant or variable used by the authentication engine.
	MetricResolveLatency
	// MetricRefreshLatency is an exported constant or variable used by the authentication engine.
	MetricRefreshLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// latencyMetricIDs lists the IDs that accept Observe calls. Histogram
// storage is indexed by position in this array, not by MetricID.
var latencyMetricIDs = [...]MetricID{MetricResolveLatency, MetricRefreshLatency}

// bucketBoundsMs are the upper bounds of the first seven histogram buckets
// in milliseconds; everything slower lands in the final +Inf bucket.
var bucketBoundsMs = [histBucketCount - 1]int64{5, 10, 25, 50, 100, 250, 500}

type metricHistogram struct {
	buckets [histBucketCount]atomic.Uint64
}

type paddedCounter struct {
	value atomic.Uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by authshift APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [len(latencyMetricIDs)]metricHistogram
}

// MetricsSnapshot defines a public type used by authshift APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics may return an error when input validation, dependency calls, or security checks fail.
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled describes the enabled operation and its observable behavior.
//
// Enabled may return an error when input validation, dependency calls, or security checks fail.
// Enabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled describes the latencyenabled operation and its observable behavior.
//
// LatencyEnabled may return an error when input validation, dependency calls, or security checks fail.
// LatencyEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc describes the inc operation and its observable behavior.
//
// Inc may return an error when input validation, dependency calls, or security checks fail.
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].value.Add(1)
}

// Observe describes the observe operation and its observable behavior.
//
// Observe may return an error when input validation, dependency calls, or security checks fail.
// Observe does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency {
		return
	}

	slot, ok := latencySlot(id)
	if !ok {
		return
	}
	m.histograms[slot].buckets[bucketIndex(d)].Add(1)
}

// Value describes the value operation and its observable behavior.
//
// Value may return an error when input validation, dependency calls, or security checks fail.
// Value does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].value.Load()
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot may return an error when input validation, dependency calls, or security checks fail.
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, len(latencyMetricIDs)),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = m.counters[id].value.Load()
	}

	if m.enableLatency {
		for slot, id := range latencyMetricIDs {
			buckets := make([]uint64, histBucketCount)
			for i := range buckets {
				buckets[i] = m.histograms[slot].buckets[i].Load()
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func latencySlot(id MetricID) (int, bool) {
	for i, latencyID := range latencyMetricIDs {
		if id == latencyID {
			return i, true
		}
	}
	return 0, false
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	for i, bound := range bucketBoundsMs {
		if ms <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
