package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRendererQuantiles(t *testing.T) {
	t.Parallel()

	values := []float64{0, 1, 2, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}
	r := NewRenderer(values, ModeCount)

	require.Equal(t, MaxBins, r.Bins())
	// 14 distinct positive values, bin i starts at index floor(i*14/7)
	assert.Equal(t, []float64{1, 3, 5, 7, 9, 11, 13}, r.Thresholds)
	assert.Equal(t, Palette[:], r.Colors)
	assert.InDelta(t, 14.0, r.Max, 0)

	assert.Equal(t, 0, r.BinFor(1))
	assert.Equal(t, 0, r.BinFor(2))
	assert.Equal(t, 1, r.BinFor(3))
	assert.Equal(t, 6, r.BinFor(100))
	assert.Equal(t, -1, r.BinFor(0))
	assert.Equal(t, DefaultFill, r.ColorFor(0))
	assert.Equal(t, Palette[6], r.ColorFor(14))
}

func TestNewRendererSmallBinCounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		colors []string
	}{
		{"one", []float64{5, 5, 0}, []string{Palette[3]}},
		{"two", []float64{1, 9}, []string{Palette[1], Palette[5]}},
		{"three", []float64{1, 2, 3}, []string{Palette[0], Palette[3], Palette[6]}},
		{"four", []float64{1, 2, 3, 4}, []string{Palette[0], Palette[2], Palette[4], Palette[6]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewRenderer(tt.values, ModeCount)
			assert.Equal(t, tt.colors, r.Colors)
			assert.Len(t, r.Thresholds, len(tt.colors))
		})
	}
}

func TestNewRendererEmpty(t *testing.T) {
	t.Parallel()

	r := NewRenderer([]float64{0, 0, -1}, ModeCount)
	assert.Zero(t, r.Bins())
	assert.Equal(t, DefaultFill, r.ColorFor(5))
	assert.Equal(t, []LegendEntry{{Color: DefaultFill, Label: "0 detections"}}, r.Legend("detections"))
}

func TestNewRendererPercent(t *testing.T) {
	t.Parallel()

	values := []float64{0, 5, 12, 33, 50, 61, 80, 97}
	r := NewRenderer(values, ModePercent)

	// 7 distinct positive values up to 97 give steps of ceil(97/7) = 14
	assert.Equal(t, []float64{0, 14, 28, 42, 56, 70, 84}, r.Thresholds)
	assert.Equal(t, 0, r.BinFor(5))
	assert.Equal(t, 2, r.BinFor(33))
	assert.Equal(t, 6, r.BinFor(97))

	legend := r.Legend("% of nights with detections")
	require.Len(t, legend, 8)
	assert.Equal(t, LegendEntry{Color: Palette[6], Label: "84% - 97%"}, legend[0])
	assert.Equal(t, LegendEntry{Color: Palette[0], Label: "0% - <14%"}, legend[6])
}

func TestRendererLegend(t *testing.T) {
	t.Parallel()

	r := NewRenderer([]float64{1, 10, 1200}, ModeCount)
	assert.Equal(t, []LegendEntry{
		{Color: Palette[6], Label: "≥ 1,200"},
		{Color: Palette[3], Label: "10 - <1,200"},
		{Color: Palette[0], Label: "1 - <10"},
		{Color: DefaultFill, Label: "0 detections"},
	}, r.Legend("detections"))

	// a value on a bin edge is colored as the bin whose label starts with it
	assert.Equal(t, Palette[3], r.ColorFor(10))
	assert.Equal(t, Palette[6], r.ColorFor(1200))
	assert.Equal(t, Palette[0], r.ColorFor(9))

	single := NewRenderer([]float64{1}, ModeCount)
	assert.Equal(t, "1 detection", single.Legend("detections")[0].Label)
}
