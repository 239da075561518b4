package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Cache(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CacheMiss()
	m.CacheHit()
	m.CacheHit()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheMisses))
}

func TestMetrics_RecordOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordOperation(KindRecord, ResultSuccess)
	m.RecordOperation(KindRecord, ResultSuccess)
	m.RecordOperation(KindCollection, ResultError)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.operationsTotal.WithLabelValues(KindRecord, ResultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.operationsTotal.WithLabelValues(KindCollection, ResultError)))
}

func TestMetrics_ObserveDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveDuration(KindMapping, 3*time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "redi_shape_flatten_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_Init(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Init()
	m.Init()

	count, err := testutil.GatherAndCount(reg, "redi_shape_flatten_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 12, count)
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Init()
		m.CacheHit()
		m.CacheMiss()
		m.RecordOperation(KindRecord, ResultSuccess)
		m.ObserveDuration(KindRecord, time.Second)
	})
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
