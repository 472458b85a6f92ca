package crossfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/batamp/batamp-explorer/internal/records"
)

func TestValueSet(t *testing.T) {
	t.Parallel()

	s := NewValueSet("mylu", nil, "epfu", "mylu")
	assert.Equal(t, []records.Value{"epfu", "mylu"}, s.Values())
	assert.True(t, s.Match("mylu"))
	assert.False(t, s.Match(nil))
	assert.Equal(t, "{epfu,mylu}", s.String())
	assert.True(t, NewValueSet().IsEmpty())
	assert.True(t, NewValueSet(nil).IsEmpty())
}

func TestRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    records.Value
		want bool
	}{
		{"lower edge", 4, true},
		{"upper edge", 8.0, true},
		{"inside", 5.5, true},
		{"below", 3, false},
		{"above", 8.01, false},
		{"string", "6", false},
		{"null", nil, false},
	}

	r := NewRange(8, 4)
	assert.Equal(t, Range{Min: 4, Max: 8}, r)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, r.Match(tt.v))
		})
	}
}

func TestFilterStateIsImmutable(t *testing.T) {
	t.Parallel()

	var empty FilterState
	a := empty.With("species", NewValueSet("mylu"))
	b := a.With("month", NewRange(6, 8))

	assert.Zero(t, empty.Len())
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, []string{"month", "species"}, b.Fields())
	assert.Equal(t, "month=[6,8] species={mylu}", b.String())

	c := b.Without("species", "unknown")
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []string{"month"}, c.Fields())

	assert.True(t, a.With("month", NewValueSet()).Equal(a), "empty predicate clears")
	assert.True(t, a.Equal(empty.With("species", NewValueSet("mylu", "mylu"))))
	assert.False(t, a.Equal(b))
}

func TestBounds(t *testing.T) {
	t.Parallel()

	b := Bounds{-125, 40, -115, 50}
	assert.True(t, b.Contains(-120, 45))
	assert.True(t, b.Contains(-125, 50), "edges are inside")
	assert.False(t, b.Contains(-100, 45))

	assert.True(t, b.Overlaps(Bounds{-116, 49, -100, 60}))
	assert.False(t, b.Overlaps(Bounds{-110, 30, -100, 35}))
}

func TestNormalizeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind valueKind
		in   records.Value
		want records.Value
	}{
		{"int from string", kindInt, "6", 6},
		{"int from whole float", kindInt, 6.0, 6},
		{"int keeps fraction", kindInt, 6.5, 6.5},
		{"int from int64", kindInt, int64(2019), 2019},
		{"float from int", kindFloat, 45, 45.0},
		{"float from string", kindFloat, "44.5", 44.5},
		{"string from int", kindString, 7, "7"},
		{"bad int string", kindInt, "june", "june"},
		{"unknown kind", kindUnknown, "x", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, normalizeValue(tt.kind, tt.in))
		})
	}
}

func TestResolveValueField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind ValueKind
		want string
	}{
		{"", Count, "count"},
		{"detections", Sum, "sum(detections)"},
		{"detectorNights", Sum, "sum(detectorNights)"},
		{"id", DistinctCount, "distinct(id)"},
		{"speciesDetected", DistinctCount, "distinct(speciesDetected)"},
		{DetectionRateField, Rate, "rate(detectionRate)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			vf, err := ResolveValueField(tt.name)
			assert.NoError(t, err)
			assert.Equal(t, tt.kind, vf.Kind)
			assert.Equal(t, tt.want, vf.String())
		})
	}

	_, err := ResolveValueField("wingspan")
	assert.ErrorIs(t, err, ErrUnknownValueField)
	assert.Panics(t, func() { MustValueField("wingspan") })
}

func TestDefaultFilterConfigs(t *testing.T) {
	t.Parallel()

	store := records.Load([]records.Record{
		{Species: "mylu", Month: 6, Year: 2019, Admin1Name: "Oregon"},
		{Species: "epfu", Month: 7, Year: 2007, Admin1Name: "Idaho"},
	})
	configs := DefaultFilterConfigs(store)

	byField := make(map[string]FilterConfig)
	for _, c := range configs {
		byField[c.Field] = c
	}

	species := byField["species"]
	// big brown bat sorts before little brown bat
	assert.Equal(t, []records.Value{"epfu", "mylu"}, species.Values)
	assert.True(t, species.HideEmpty)

	assert.Equal(t, []string{"'07", "'19"}, byField["year"].Labels)
	month := byField["month"]
	assert.Equal(t, "Jun", month.Label(6))
	countType := byField["countType"]
	assert.Equal(t, "Activity", countType.Label("a"))
	assert.True(t, byField["lat"].Internal)
	assert.True(t, byField["lon"].Internal)
}
