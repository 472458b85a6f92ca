package crossfilter

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batamp/batamp-explorer/internal/records"
)

var testSpecies = []string{"mylu", "epfu", "laci", "lano", "myev"}

// randomStore generates n records with some missing values.
func randomStore(n int, seed uint64) *records.Store {
	rng := rand.New(rand.NewPCG(seed, seed))
	rows := make([]records.Record, n)
	for i := range rows {
		detections := float64(rng.IntN(20))
		nights := float64(rng.IntN(30))
		r := records.Record{
			Species:         testSpecies[rng.IntN(len(testSpecies))],
			DetID:           rng.IntN(25),
			SiteID:          rng.IntN(10),
			Month:           1 + rng.IntN(12),
			Year:            2015 + rng.IntN(5),
			Admin1Name:      []string{"Oregon", "Idaho", "Montana", ""}[rng.IntN(4)],
			Source:          []string{"batamp", "nabat"}[rng.IntN(2)],
			CountType:       []string{"a", "p"}[rng.IntN(2)],
			Detections:      detections,
			DetectionNights: min(detections, nights),
			DetectorNights:  nights,
			Lat:             30 + rng.Float64()*20,
			Lon:             -125 + rng.Float64()*25,
		}
		if rng.IntN(15) == 0 {
			r = r.WithNull(records.FieldYear)
		}
		rows[i] = r
	}
	return records.Load(rows)
}

func randomConfigs() []FilterConfig {
	return []FilterConfig{
		{Field: "species", Sort: true},
		{Field: "month", Values: []records.Value{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
		{Field: "year"},
		{Field: "admin1Name"},
		{Field: "source"},
		{Field: "countType", ValueField: "detectors"},
		{Field: "lat", Internal: true},
		{Field: "lon", Internal: true},
	}
}

func TestEngineMatchesFullScan(t *testing.T) {
	t.Parallel()

	valueFields := []string{"", "detections", "detectionNights", "detectors", "siteId", "species", DetectionRateField}

	for _, name := range valueFields {
		t.Run("metric="+name, func(t *testing.T) {
			t.Parallel()

			s := newTestSession(t, randomStore(500, 42), randomConfigs(), WithValueField(name))
			requireSameResult(t, s)

			rng := rand.New(rand.NewPCG(7, uint64(len(name))))
			for range 60 {
				applyRandomMutation(t, rng, s)
				requireSameResult(t, s)
			}
		})
	}
}

// applyRandomMutation performs one filter change drawn from rng.
func applyRandomMutation(t *testing.T, rng *rand.Rand, s *Session) {
	t.Helper()

	switch rng.IntN(8) {
	case 0:
		var values []records.Value
		for _, sp := range testSpecies {
			if rng.IntN(3) == 0 {
				values = append(values, sp)
			}
		}
		require.NoError(t, s.SetFilter("species", values...))
	case 1:
		lo := 1 + rng.IntN(12)
		require.NoError(t, s.SetRange("month", float64(lo), float64(lo+rng.IntN(4))))
	case 2:
		require.NoError(t, s.SetFilter("year", 2015+rng.IntN(6)))
	case 3:
		require.NoError(t, s.SetFilter("admin1Name", "Oregon", "Montana"))
	case 4:
		x := -125 + rng.Float64()*20
		y := 30 + rng.Float64()*15
		require.NoError(t, s.SetBounds(&Bounds{x, y, x + 10, y + 8}))
	case 5:
		require.NoError(t, s.ResetFilters(s.State().Fields()...))
	case 6:
		require.NoError(t, s.SetPredicate("countType", MatchFunc{
			Name: "activity",
			Fn:   func(v records.Value) bool { return v == "a" },
		}))
	case 7:
		fields := []string{"species", "month", "year", "source", "lat"}
		require.NoError(t, s.ResetFilters(fields[rng.IntN(len(fields))]))
	}
}

func TestEngineSelfExclusion(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, randomStore(300, 3), randomConfigs(), WithValueField("detections"))
	require.NoError(t, s.SetFilter("year", 2016, 2017))
	before := s.Result().Totals("species")

	for _, species := range testSpecies {
		require.NoError(t, s.SetFilter("species", species))
		assert.Equal(t, before, s.Result().Totals("species"), "species filter %s", species)
	}
}

func TestEngineReusesUnaffectedTotals(t *testing.T) {
	t.Parallel()

	store := randomStore(200, 5)
	dims := make([]*Dimension, 0)
	configs := randomConfigs()
	for _, cfg := range configs {
		d, err := NewDimension(store, cfg)
		require.NoError(t, err)
		dims = append(dims, d)
	}
	overrides := make([]ValueField, len(dims))
	e := newEngine(store, dims)

	_, recomputed := e.aggregate(ValueField{}, overrides, false)
	assert.Equal(t, 6, recomputed, "every public dimension on first run")

	_, recomputed = e.aggregate(ValueField{}, overrides, false)
	assert.Zero(t, recomputed)

	// only the species dimension's own totals survive a species change
	dims[0].SetFilter(NewValueSet("mylu"))
	_, recomputed = e.aggregate(ValueField{}, overrides, true)
	assert.Equal(t, 5, recomputed)

	_, recomputed = e.aggregate(MustValueField("detections"), overrides, true)
	assert.Equal(t, 6, recomputed, "a new metric invalidates every dimension")
}

func TestDimensionIndex(t *testing.T) {
	t.Parallel()

	rows := []records.Record{
		{Species: "mylu", Month: 7},
		{Species: "epfu", Month: 6},
		records.Record{Species: "laci"}.WithNull(records.FieldMonth),
		{Species: "mylu", Month: 12},
	}
	store := records.Load(rows)

	d, err := NewDimension(store, FilterConfig{Field: "month"})
	require.NoError(t, err)
	assert.Equal(t, []records.Value{6, 7, 12}, d.Keys())
	assert.Equal(t, int32(-1), d.rowKeys[2], "null month has no key")
	assert.Equal(t, []uint32{0, 1, 2, 3}, d.MatchingRows().ToArray())

	d.SetFilter(NewRange(6, 7))
	assert.Equal(t, []uint32{0, 1}, d.MatchingRows().ToArray())
	version := d.version

	d.SetFilter(NewRange(7, 6))
	assert.Equal(t, version, d.version, "same range is a no-op")

	d.SetFilter(MatchFunc{Name: "all", Fn: func(records.Value) bool { return true }})
	assert.Equal(t, []uint32{0, 1, 3}, d.MatchingRows().ToArray(), "nulls never match")

	d.SetFilter(nil)
	assert.Nil(t, d.Predicate())
}

func TestDimensionMixedKeysOrder(t *testing.T) {
	t.Parallel()

	d, err := NewDimension(records.Load([]records.Record{{}}), FilterConfig{
		Field:         "tags",
		IsMultiValued: true,
		ProjectMulti: func(records.Record) []records.Value {
			return []records.Value{"b", 10, "a", 2.5}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []records.Value{2.5, 10, "a", "b"}, d.Keys())
}

func BenchmarkSessionSetFilter(b *testing.B) {
	store := randomStore(100_000, 1)
	s, err := NewSession(store, randomConfigs(), WithValueField("detections"))
	require.NoError(b, err)
	defer s.Close()

	b.ResetTimer()
	for i := range b.N {
		if err := s.SetFilter("species", testSpecies[i%len(testSpecies)]); err != nil {
			b.Fatal(err)
		}
	}
}
