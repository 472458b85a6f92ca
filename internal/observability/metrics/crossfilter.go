package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CrossfilterMetrics contains Prometheus metrics for filter sessions,
// detail views and dataset loading.
type CrossfilterMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec

	cacheLookupsTotal *prometheus.CounterVec
	recordsLoaded     prometheus.Gauge

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewCrossfilterMetrics creates and registers new crossfilter metrics.
func NewCrossfilterMetrics(registry *prometheus.Registry) (*CrossfilterMetrics, error) {
	m := &CrossfilterMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CrossfilterMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossfilter_operations_total",
			Help: "Total number of session mutations and view operations",
		},
		[]string{"operation", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crossfilter_operation_duration_seconds",
			Help:    "Time taken to recompute aggregates and views",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount15), // 0.1ms to ~1.6s
		},
		[]string{"operation"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossfilter_errors_total",
			Help: "Total number of rejected operations by error type",
		},
		[]string{"operation", "error_type"},
	)

	m.cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossfilter_detail_cache_lookups_total",
			Help: "Detail rollup cache lookups by result",
		},
		[]string{"result"}, // result: hit, miss
	)

	m.recordsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crossfilter_records_loaded",
			Help: "Number of records in the most recently loaded dataset",
		},
	)

	m.collectors = []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.errorsTotal,
		m.cacheLookupsTotal,
		m.recordsLoaded,
	}
}

// Describe implements the prometheus.Collector interface.
func (m *CrossfilterMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *CrossfilterMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordOperation implements Recorder. Cache lookups are counted separately
// by their hit or miss status.
func (m *CrossfilterMetrics) RecordOperation(operation, status string) {
	if operation == OpCacheGet {
		m.cacheLookupsTotal.WithLabelValues(status).Inc()
		return
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *CrossfilterMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *CrossfilterMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// SetRecordsLoaded records the size of a loaded dataset.
func (m *CrossfilterMetrics) SetRecordsLoaded(n int) {
	m.recordsLoaded.Set(float64(n))
}

var _ Recorder = (*CrossfilterMetrics)(nil)
