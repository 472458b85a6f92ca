package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *CrossfilterMetrics {
	t.Helper()
	m, err := NewCrossfilterMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestCrossfilterMetricsOperations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		operation string
		status    string
		times     int
	}{
		{"filter success", "set_filter", StatusSuccess, 3},
		{"filter error", "set_filter", StatusError, 1},
		{"reset", "reset_filters", StatusSuccess, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := newTestMetrics(t)
			for range tt.times {
				m.RecordOperation(tt.operation, tt.status)
			}
			got := testutil.ToFloat64(m.operationsTotal.WithLabelValues(tt.operation, tt.status))
			assert.InDelta(t, float64(tt.times), got, 0)
		})
	}
}

func TestCrossfilterMetricsCacheLookups(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	m.RecordOperation(OpCacheGet, StatusMiss)
	m.RecordOperation(OpCacheGet, StatusHit)
	m.RecordOperation(OpCacheGet, StatusHit)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues(StatusHit)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues(StatusMiss)), 0)
	assert.Equal(t, 0, testutil.CollectAndCount(m.operationsTotal), "cache lookups are not operations")
}

func TestCrossfilterMetricsErrorsAndDurations(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	m.RecordError("set_filter", "configuration")
	m.RecordDuration(OpAggregate, 0.0005)
	m.RecordDuration(OpAggregate, 0.25)
	m.SetRecordsLoaded(1234)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("set_filter", "configuration")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationDuration))
	assert.InDelta(t, 1234.0, testutil.ToFloat64(m.recordsLoaded), 0)
}

func TestCrossfilterMetricsDoubleRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewCrossfilterMetrics(reg)
	require.NoError(t, err)

	_, err = NewCrossfilterMetrics(reg)
	require.Error(t, err)
}
