package crossfilter

import (
	"slices"
	"strings"

	"github.com/batamp/batamp-explorer/internal/records"
)

// Bucket is the total for one value of a dimension.
type Bucket struct {
	Value records.Value `json:"value"`
	Label string        `json:"label"`
	Total float64       `json:"total"`
}

// Result is an immutable aggregate snapshot. For every public dimension,
// each bucket total covers the rows passing every filter except that
// dimension's own.
type Result struct {
	ValueField        string              `json:"valueField"`
	Total             float64             `json:"total"`
	FilteredTotal     float64             `json:"filteredTotal"`
	HasVisibleFilters bool                `json:"hasVisibleFilters"`
	Dimensions        map[string][]Bucket `json:"dimensions"`
}

// Totals returns a value to total map for field, nil for an unknown field.
func (r Result) Totals(field string) map[records.Value]float64 {
	buckets, ok := r.Dimensions[field]
	if !ok {
		return nil
	}
	out := make(map[records.Value]float64, len(buckets))
	for _, b := range buckets {
		out[b.Value] = b.Total
	}
	return out
}

// Get returns the total for one value of field.
func (r Result) Get(field string, v records.Value) (float64, bool) {
	for _, b := range r.Dimensions[field] {
		if compareValues(b.Value, v) == 0 {
			return b.Total, true
		}
	}
	return 0, false
}

// SortBuckets orders buckets by total descending, breaking ties by label.
func SortBuckets(buckets []Bucket) {
	slices.SortStableFunc(buckets, func(a, b Bucket) int {
		switch {
		case a.Total > b.Total:
			return -1
		case a.Total < b.Total:
			return 1
		}
		return strings.Compare(a.Label, b.Label)
	})
}

// clampTotal keeps counts from going below zero.
func clampTotal(kind ValueKind, v float64) float64 {
	if kind == Count || kind == DistinctCount {
		return max(v, 0)
	}
	return v
}

// buildBuckets lays out totals for a dimension: configured values first in
// configured order, then any other values present in the data in value
// order. Configured values missing from the data report 0. Dimensions
// configured to sort are ordered by SortBuckets.
func buildBuckets(cfg *FilterConfig, kind valueKind, dataValues []records.Value, total func(records.Value) float64, vk ValueKind) []Bucket {
	buckets := make([]Bucket, 0, max(len(cfg.Values), len(dataValues)))
	seen := make(map[records.Value]struct{}, len(cfg.Values))

	for _, cv := range cfg.Values {
		v := normalizeValue(kind, cv)
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		buckets = append(buckets, Bucket{Value: v, Label: cfg.Label(v), Total: clampTotal(vk, total(v))})
	}

	for _, v := range dataValues {
		if _, ok := seen[v]; ok {
			continue
		}
		buckets = append(buckets, Bucket{Value: v, Label: cfg.Label(v), Total: clampTotal(vk, total(v))})
	}

	if cfg.Sort {
		SortBuckets(buckets)
	}
	return buckets
}
