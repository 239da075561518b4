// Package metrics exposes Prometheus metrics for field resolution and
// flattening.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation kinds
const (
	KindRecord     = "record"
	KindCollection = "collection"
	KindMapping    = "mapping"
	KindSequence   = "sequence"
)

// Operation results
const (
	ResultSuccess      = "success"
	ResultError        = "error"
	ResultShortCircuit = "short_circuit"
)

// Metrics contains Prometheus metrics for redi-shape. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// New creates metrics registered with reg. A nil reg leaves the collectors
// unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "redi_shape",
			Subsystem: "meta",
			Name:      "cache_hits_total",
			Help:      "Total number of field metadata cache hits",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "redi_shape",
			Subsystem: "meta",
			Name:      "cache_misses_total",
			Help:      "Total number of field metadata cache misses",
		}),
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redi_shape",
				Subsystem: "flatten",
				Name:      "operations_total",
				Help:      "Total number of flatten operations",
			},
			[]string{"kind", "result"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "redi_shape",
				Subsystem: "flatten",
				Name:      "operation_duration_seconds",
				Help:      "Duration of top-level flatten operations in seconds",
				Buckets: []float64{
					.00001, .0001, .0005, .001,
					.005, .01, .05, .1, .5,
				},
			},
			[]string{"kind"},
		),
	}
}

// Init pre-initializes label combinations so they are exported with zero
// values before the first operation.
func (m *Metrics) Init() {
	if m == nil {
		return
	}
	for _, kind := range []string{KindRecord, KindCollection, KindMapping, KindSequence} {
		for _, result := range []string{ResultSuccess, ResultError, ResultShortCircuit} {
			m.operationsTotal.WithLabelValues(kind, result)
		}
		m.operationDuration.WithLabelValues(kind)
	}
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// RecordOperation counts a flatten operation of kind with its result
func (m *Metrics) RecordOperation(kind, result string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveDuration records how long a flatten operation of kind took
func (m *Metrics) ObserveDuration(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(kind).Observe(d.Seconds())
}
