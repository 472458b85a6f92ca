package crossfilter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/batamp/batamp-explorer/internal/logger"
	"github.com/batamp/batamp-explorer/internal/records"
)

// row builds a detection record for species, month and detections.
func row(species string, month int, detections float64) records.Record {
	return records.Record{
		Species:         species,
		DetID:           1,
		SiteID:          1,
		Month:           month,
		Year:            2019,
		Source:          "batamp",
		CountType:       "a",
		Detections:      detections,
		DetectionNights: min(detections, 1),
		DetectorNights:  1,
	}
}

// scenarioStore is the three row example used across tests.
func scenarioStore() *records.Store {
	return records.Load([]records.Record{
		row("mylu", 6, 5),
		row("mylu", 7, 0),
		row("epfu", 6, 2),
	})
}

func speciesMonthConfigs() []FilterConfig {
	return []FilterConfig{
		{Field: "species"},
		{Field: "month"},
	}
}

func newTestSession(t *testing.T, store *records.Store, configs []FilterConfig, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewSlogLogger(nil, logger.LogLevelError))}, opts...)
	s, err := NewSession(store, configs, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// requireSameResult checks the session against a full scan of its store.
func requireSameResult(t *testing.T, s *Session) {
	t.Helper()
	want, err := Aggregate(s.Store(), s.Configs(), s.State(), s.ValueField())
	require.NoError(t, err)
	require.Equal(t, want, s.Result(), "filters: %s, metric: %s", s.State(), s.ValueField())
}

// recorder captures session metrics.
type recorder struct {
	mu         sync.Mutex
	operations map[string]int
	errors     map[string]int
	durations  int
}

func newRecorder() *recorder {
	return &recorder{operations: make(map[string]int), errors: make(map[string]int)}
}

func (r *recorder) RecordOperation(operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[operation+"/"+status]++
}

func (r *recorder) RecordDuration(string, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations++
}

func (r *recorder) RecordError(operation, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[operation+"/"+errorType]++
}
