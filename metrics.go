package signx

import (
	"sync/atomic"
	"time"

	"github.com/MrEthical07/signx/internal/flows"
	"github.com/MrEthical07/signx/internal/poll"
)

// MetricID indexes an engine counter or histogram.
type MetricID uint16

const (
	MetricLoginStarted MetricID = iota
	MetricLoginSuccess
	MetricLoginFailure
	MetricMatrixLoginStarted
	MetricMatrixLoginSuccess
	MetricMatrixLoginFailure
	MetricDataPassStarted
	MetricDataPassSuccess
	MetricDataPassFailure
	MetricSessionCreated
	MetricSessionEnded
	MetricTransactionsAdded
	MetricTransactSuccess
	MetricTransactFailure
	MetricPollAttempt
	MetricPollContinue
	MetricPollRejected
	MetricPollInvalid
	MetricPollTransportError
	MetricPollTimeout
	MetricPollCanceled
	// MetricPollAttemptLatency is the only histogram.
	MetricPollAttemptLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// pollRoutes are the routes poll cycles run against, in snapshot order. Attempts on
// any other route only reach the global counters.
var pollRoutes = [...]string{
	flows.RouteLoginFetch,
	flows.RouteMatrixLoginFetch,
	flows.RouteDataResponse,
	flows.RouteTransactResponse,
	flows.RouteTransactNext,
}

func pollRouteIndex(route string) int {
	for i, r := range pollRoutes {
		if r == route {
			return i
		}
	}
	return -1
}

// RouteOutcome keys MetricsSnapshot.Attempts.
type RouteOutcome struct {
	Route   string
	Outcome string
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters. The zero value and a nil pointer are
// disabled and ignore writes.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
	attempts      [len(pollRoutes)][poll.OutcomeCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters. Histogram buckets are
// non-cumulative. Attempts holds the non-zero per-route attempt counts, cancellations
// and timeouts included.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	Attempts   map[RouteOutcome]uint64
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

func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram for id. Only MetricPollAttemptLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricPollAttemptLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// ObserveAttempt implements poll.Observer.
func (m *Metrics) ObserveAttempt(route string, outcome poll.Outcome, latency time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	if i := pollRouteIndex(route); i >= 0 && outcome >= 0 && int(outcome) < poll.OutcomeCount {
		atomic.AddUint64(&m.attempts[i][outcome].value, 1)
	}
	switch outcome {
	case poll.OutcomeCanceled:
		m.Inc(MetricPollCanceled)
		return
	case poll.OutcomeTimeout:
		m.Inc(MetricPollTimeout)
		return
	case poll.OutcomeContinue:
		m.Inc(MetricPollContinue)
	case poll.OutcomeRejected:
		m.Inc(MetricPollRejected)
	case poll.OutcomeInvalid:
		m.Inc(MetricPollInvalid)
	case poll.OutcomeTransport:
		m.Inc(MetricPollTransportError)
	}
	m.Inc(MetricPollAttempt)
	m.Observe(MetricPollAttemptLatency, latency)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
			Attempts:   map[RouteOutcome]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
		Attempts:   make(map[RouteOutcome]uint64),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricPollAttemptLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	for i, route := range pollRoutes {
		for o := 0; o < poll.OutcomeCount; o++ {
			if v := atomic.LoadUint64(&m.attempts[i][o].value); v > 0 {
				s.Attempts[RouteOutcome{Route: route, Outcome: poll.Outcome(o).String()}] = v
			}
		}
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricPollAttemptLatency].buckets[i])
		}
		s.Histograms[MetricPollAttemptLatency] = buckets
	}

	return s
}

// bucketIndex maps d onto the bounds 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
