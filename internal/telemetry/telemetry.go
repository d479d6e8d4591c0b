// Package telemetry exposes the Prometheus collectors for the task cache and
// store paths.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "task_registry"

// Cache operation labels.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpDelete = "delete"
	OpDecode = "decode"
)

// Metrics holds the cache and store collectors. Every method is safe on a
// nil receiver so components can run without metrics.
type Metrics struct {
	CacheLookups  *prometheus.CounterVec
	CacheDegraded *prometheus.CounterVec
	CacheWrites   prometheus.Counter
	Invalidations prometheus.Counter
	StoreDuration *prometheus.HistogramVec
	StoreErrors   *prometheus.CounterVec
	BreakerState  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Task cache lookups by result (hit, miss)",
		}, []string{"result"}),
		CacheDegraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_degraded_total",
			Help:      "Cache calls that failed or timed out and were absorbed, by operation",
		}, []string{"op"}),
		CacheWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_populations_total",
			Help:      "Successful cache populations after a store read",
		}),
		Invalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Successful cache invalidations",
		}),
		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_duration_seconds",
			Help:      "Task store call latency by operation",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Task store calls that failed, by operation",
		}, []string{"op"}),
		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_breaker_state",
			Help:      "Cache circuit breaker state (0 closed, 1 open, 2 half-open)",
		}),
	}
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheLookups.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// Degraded counts an absorbed cache failure for op.
func (m *Metrics) Degraded(op string) {
	if m != nil {
		m.CacheDegraded.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) Populated() {
	if m != nil {
		m.CacheWrites.Inc()
	}
}

func (m *Metrics) Invalidated() {
	if m != nil {
		m.Invalidations.Inc()
	}
}

// ObserveStore records one store call. Not-found results are not errors.
func (m *Metrics) ObserveStore(op string, started time.Time, failed bool) {
	if m == nil {
		return
	}
	m.StoreDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	if failed {
		m.StoreErrors.WithLabelValues(op).Inc()
	}
}

// SetBreakerState records the numeric breaker state.
func (m *Metrics) SetBreakerState(state int) {
	if m != nil {
		m.BreakerState.Set(float64(state))
	}
}
