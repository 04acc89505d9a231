package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a Manager counter or histogram.
type MetricID uint16

const (
	MetricOpenAnonymous MetricID = iota
	MetricOpenResumed
	MetricInvalidToken
	MetricExpiredRevoked
	MetricUnknownSession
	MetricCodeLogin
	MetricCodeReplayed
	MetricAccountProvisioned
	MetricTokenIssued
	MetricSessionDeleted
	MetricBackendUnavailable
	// MetricOpenLatency is the only histogram.
	MetricOpenLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters. A nil or disabled Metrics
// records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histogram     metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every metric.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the open latency histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricOpenLatency {
		return
	}
	atomic.AddUint64(&m.histogram.buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < MetricOpenLatency; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histogram.buckets[i])
		}
		s.Histograms[MetricOpenLatency] = buckets
	}

	return s
}

// Bucket upper bounds in milliseconds; the last bucket is unbounded.
var histogramBoundsMS = [histBucketCount - 1]int64{1, 2, 5, 10, 25, 50, 100}

// HistogramBounds returns the upper bounds of the finite histogram buckets.
func HistogramBounds() []time.Duration {
	out := make([]time.Duration, len(histogramBoundsMS))
	for i, ms := range histogramBoundsMS {
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	for i, bound := range histogramBoundsMS {
		if ms <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
