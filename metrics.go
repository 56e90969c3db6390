package goPortal

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one portal counter or histogram.
type MetricID uint16

const (
	// Guard outcomes.
	MetricGuardRender MetricID = iota
	MetricGuardRedirectLogin
	MetricGuardRedirectHome
	MetricGuardNotFound

	// Session lifecycle.
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginRateLimited
	MetricSessionCreated
	MetricSessionRejected
	MetricLogout

	// Identity verification flow.
	MetricIdentifySuccess
	MetricIdentifyFailure
	MetricOwnershipSuccess
	MetricOwnershipFailure
	MetricAccessRequestSuccess
	MetricAccessRequestFailure
	MetricVerificationValidationFailure

	// Password recovery flow.
	MetricCodeSent
	MetricCodeSendFailure
	MetricCodeAccepted
	MetricCodeRejected
	MetricPasswordResetSuccess
	MetricPasswordResetFailure
	MetricRecoveryValidationFailure

	// Cross-flow.
	MetricFlowRateLimited
	MetricDuplicateSubmission
	MetricFlowSuperseded

	// MetricBackendLatency is the only histogram: wall time of one backend call.
	MetricBackendLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// latencyBounds are the inclusive upper bounds of every bucket but the last,
// which takes the rest.
var latencyBounds = [histBucketCount - 1]time.Duration{
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
	5 * time.Second,
}

// paddedCounter fills one cache line.
type paddedCounter struct {
	atomic.Uint64
	_ [cacheLineSize - 8]byte
}

type latencyHistogram struct {
	buckets [histBucketCount]atomic.Uint64
	sum     atomic.Int64
}

func (h *latencyHistogram) observe(d time.Duration) {
	d = max(d, 0)
	i := 0
	for i < len(latencyBounds) && d > latencyBounds[i] {
		i++
	}
	h.buckets[i].Add(1)
	h.sum.Add(int64(d))
}

// Metrics is a fixed-size, lock-free counter set plus the backend latency
// histogram. A nil or disabled *Metrics ignores every write.
type Metrics struct {
	enabled  bool
	latency  bool
	counters [metricIDCount]paddedCounter
	backend  latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
// Histogram buckets are non-cumulative.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]time.Duration
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latency }

// Inc adds one to counter id. MetricBackendLatency is not a counter.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= MetricBackendLatency {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d for id. Only MetricBackendLatency keeps a histogram;
// other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricBackendLatency {
		return
	}
	m.backend.observe(d)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricBackendLatency {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies the current values. A disabled registry yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:      map[MetricID]uint64{},
		Histograms:    map[MetricID][]uint64{},
		HistogramSums: map[MetricID]time.Duration{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < MetricBackendLatency; id++ {
		s.Counters[id] = m.counters[id].Load()
	}
	if m.latency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.backend.buckets[i].Load()
		}
		s.Histograms[MetricBackendLatency] = buckets
		s.HistogramSums[MetricBackendLatency] = time.Duration(m.backend.sum.Load())
	}
	return s
}
