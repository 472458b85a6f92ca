package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batamp/batamp-explorer/internal/crossfilter"
	"github.com/batamp/batamp-explorer/internal/logger"
	"github.com/batamp/batamp-explorer/internal/records"
)

func filterSession(t *testing.T) *crossfilter.Session {
	t.Helper()
	store := records.Load([]records.Record{
		{Species: "mylu", Month: 6, Year: 2019, Lat: 40, Lon: -105, Detections: 4},
		{Species: "epfu", Month: 7, Year: 2020, Lat: 45, Lon: -110, Detections: 2},
		{Species: "laci", Month: 8, Year: 2021, Lat: 30, Lon: -90, Detections: 1},
	})
	s, err := crossfilter.NewSession(store, []crossfilter.FilterConfig{
		{Field: "species"},
		{Field: "month"},
		{Field: "year"},
		{Field: "lat", Internal: true},
		{Field: "lon", Internal: true},
	}, crossfilter.WithLogger(logger.NewSlogLogger(nil, logger.LogLevelError)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFilterFlagsApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		flags FilterFlags
		want  float64
	}{
		{"none", FilterFlags{}, 3},
		{"species list", FilterFlags{Filters: []string{"species=mylu, epfu"}}, 2},
		{"numeric values from text", FilterFlags{Filters: []string{"month=7"}}, 1},
		{"range", FilterFlags{Ranges: []string{"year=2019:2020"}}, 2},
		{"bounds", FilterFlags{Bounds: "-111,39,-100,46"}, 2},
		{"combined", FilterFlags{Filters: []string{"species=mylu,epfu"}, Bounds: "-106,39,-100,41"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := filterSession(t)
			require.NoError(t, tt.flags.Apply(s))
			assert.InDelta(t, tt.want, s.Result().FilteredTotal, 0)
		})
	}
}

func TestFilterFlagsErrors(t *testing.T) {
	t.Parallel()

	for _, flags := range []FilterFlags{
		{Filters: []string{"species"}},
		{Filters: []string{"wingspan=3"}},
		{Ranges: []string{"year=2019"}},
		{Ranges: []string{"year=a:b"}},
		{Bounds: "1,2,3"},
		{Bounds: "10,0,0,10"},
	} {
		require.Error(t, flags.Apply(filterSession(t)), "%+v", flags)
	}
}

func TestParseBounds(t *testing.T) {
	t.Parallel()

	b, err := ParseBounds(" -120, 30 ,-100,50")
	require.NoError(t, err)
	assert.Equal(t, crossfilter.Bounds{-120, 30, -100, 50}, b)
}
