package goAuthClient

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that persisted a session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginRejected counts logins refused for an invalid or expired token.
	MetricLoginRejected
	// MetricSessionRestored counts startups that restored a persisted session.
	MetricSessionRestored
	// MetricSessionDiscarded counts startups that discarded an invalid or expired record.
	MetricSessionDiscarded
	// MetricLogout counts logout transitions of any cause.
	MetricLogout
	// MetricForcedLogout counts logouts caused by a backend authentication failure.
	MetricForcedLogout
	// MetricExpiryLogout counts logouts caused by the token reaching exp.
	MetricExpiryLogout
	// MetricCredentialAttached counts outbound requests that carried the credential.
	MetricCredentialAttached
	// MetricCredentialOmitted counts outbound requests sent without a credential.
	MetricCredentialOmitted
	// MetricOAuthRedirectSuccess counts redirect-mode completions that logged in.
	MetricOAuthRedirectSuccess
	// MetricOAuthPopupRelay counts popup-mode completions relayed to the opener.
	MetricOAuthPopupRelay
	// MetricOAuthProviderError counts completions carrying a provider error.
	MetricOAuthProviderError
	// MetricOAuthMissingToken counts completions with neither token nor error.
	MetricOAuthMissingToken
	// MetricBridgeAccepted counts popup messages accepted by the opener.
	MetricBridgeAccepted
	// MetricBridgeRejected counts popup messages rejected by origin or shape.
	MetricBridgeRejected
	// MetricGateRender counts gate evaluations that rendered content.
	MetricGateRender
	// MetricGateRedirectLogin counts gate redirects to the login entry point.
	MetricGateRedirectLogin
	// MetricGateRedirectNotAuthorized counts gate redirects caused by a role mismatch.
	MetricGateRedirectNotAuthorized
	// MetricGatePending counts gate evaluations made before initialization.
	MetricGatePending
	// MetricRequestLatency is the latency histogram of authenticated round trips.
	MetricRequestLatency
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

// Metrics is a fixed set of lock-free counters and one latency histogram. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates counters according to cfg.
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

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only MetricRequestLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRequestLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Disabled metrics yield empty maps.
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

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRequestLatency].buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
