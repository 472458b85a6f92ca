package views

import (
	"math"
	"slices"
)

// BinMode selects how values are split into bins.
type BinMode uint8

const (
	// ModeCount splits positive values into quantile bins.
	ModeCount BinMode = iota
	// ModePercent splits percentages into equal width bins.
	ModePercent
)

// MaxBins is the largest number of bins a Renderer uses.
const MaxBins = 7

// DefaultFill colors entities with no value.
const DefaultFill = "#AAAAAA"

// Palette runs from the lowest bin color to the highest.
var Palette = [MaxBins]string{
	"#fee391",
	"#fec44f",
	"#fe9929",
	"#ec7014",
	"#cc4c02",
	"#993404",
	"#662506",
}

// smallBinColors are palette indices for 1, 2 and 3 bins. Taking the first
// n palette entries would give a ramp too flat to read on a map.
var smallBinColors = [][]int{
	{3},
	{1, 5},
	{0, 3, 6},
}

// Renderer assigns values to bins and bins to colors. It is a pure
// function of the values it was built from.
type Renderer struct {
	Mode BinMode
	// Thresholds are the inclusive lower bounds of each bin, ascending.
	Thresholds []float64
	// Colors holds one color per bin.
	Colors []string
	// Max is the largest binned value.
	Max float64
}

// LegendEntry is one row of a map legend.
type LegendEntry struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

// NewRenderer bins values. Zero, negative and NaN values are ignored and
// drawn with DefaultFill.
//
// In ModeCount the bins are quantiles over the distinct positive values:
// with n distinct values and b bins, bin i starts at the distinct value
// with index floor(i*n/b), so every bin starts at a different value.
// In ModePercent the bins have equal width, rounded up to a whole percent,
// starting at 0.
func NewRenderer(values []float64, mode BinMode) Renderer {
	distinct := positiveDistinct(values)
	r := Renderer{Mode: mode}
	if len(distinct) == 0 {
		return r
	}

	r.Max = distinct[len(distinct)-1]
	bins := min(MaxBins, len(distinct))
	switch mode {
	case ModePercent:
		step := math.Ceil(r.Max / float64(bins))
		if step <= 0 {
			step = 1
		}
		for i := range bins {
			r.Thresholds = append(r.Thresholds, float64(i)*step)
		}
	default:
		n := len(distinct)
		for i := range bins {
			r.Thresholds = append(r.Thresholds, distinct[i*n/bins])
		}
	}

	r.Colors = binColors(bins)
	return r
}

func positiveDistinct(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func binColors(bins int) []string {
	colors := make([]string, bins)
	if bins <= len(smallBinColors) {
		for i, idx := range smallBinColors[bins-1] {
			colors[i] = Palette[idx]
		}
		return colors
	}
	// spread evenly across the palette, always using both ends
	for i := range bins {
		idx := int(math.Round(float64(i) * float64(MaxBins-1) / float64(bins-1)))
		colors[i] = Palette[idx]
	}
	return colors
}

// Bins returns the number of bins.
func (r Renderer) Bins() int { return len(r.Thresholds) }

// BinFor returns the bin index for v, or -1 when v gets the default fill.
func (r Renderer) BinFor(v float64) int {
	if !(v > 0) || len(r.Thresholds) == 0 {
		return -1
	}
	// values below the first threshold fall in the first bin
	i, found := slices.BinarySearch(r.Thresholds, v)
	if !found {
		i--
	}
	return max(i, 0)
}

// ColorFor returns the fill color for v.
func (r Renderer) ColorFor(v float64) string {
	bin := r.BinFor(v)
	if bin < 0 {
		return DefaultFill
	}
	return r.Colors[bin]
}

// Legend lists bins from highest to lowest, followed by the default fill
// entry for zero. label names the metric, e.g. "detections".
// Every bin but the highest excludes its upper bound, which starts the next
// bin, so those labels read "lo - <hi".
func (r Renderer) Legend(label string) []LegendEntry {
	entries := make([]LegendEntry, 0, len(r.Thresholds)+1)
	last := len(r.Thresholds) - 1

	for i := last; i >= 0; i-- {
		lo := r.Thresholds[i]
		var text string
		switch {
		case r.Mode == ModePercent && i == last:
			text = FormatNumber(lo) + "% - " + FormatNumber(r.Max) + "%"
		case r.Mode == ModePercent:
			text = FormatNumber(lo) + "% - <" + FormatNumber(r.Thresholds[i+1]) + "%"
		case last == 0:
			text = FormatNumber(lo) + " " + QuantityLabel(label, lo)
		case i == last:
			text = "≥ " + FormatNumber(lo)
		default:
			text = FormatNumber(lo) + " - <" + FormatNumber(r.Thresholds[i+1])
		}
		entries = append(entries, LegendEntry{Color: r.Colors[i], Label: text})
	}

	entries = append(entries, LegendEntry{Color: DefaultFill, Label: "0 " + label})
	return entries
}
