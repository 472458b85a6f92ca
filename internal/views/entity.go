// Package views derives map and detail panel data from crossfilter sessions.
package views

import (
	"fmt"
	"slices"

	"github.com/batamp/batamp-explorer/internal/crossfilter"
	"github.com/batamp/batamp-explorer/internal/errors"
	"github.com/batamp/batamp-explorer/internal/records"
)

// EntityFields are the fields entity totals and map features are keyed by.
var EntityFields = append([]string{"siteId", "detId"}, records.H3Levels[:]...)

// IsEntityField reports whether field identifies a map entity.
func IsEntityField(field string) bool {
	return field == "id" || slices.Contains(EntityFields, field)
}

// EntityTotals returns the session metric for every entity under all active
// filters. With backfill, every entity present in the session's source data
// is reported, with 0 for those filtered out, so that a map can draw
// surveyed but filtered entities differently from unsurveyed ones.
func EntityTotals(s *crossfilter.Session, field string, backfill bool) (map[records.Value]float64, error) {
	if !IsEntityField(field) {
		return nil, errors.Newf("%s is not an entity field", field).
			Component("views").
			Category(errors.CategoryValidation).
			Field(field).
			Build()
	}

	totals, err := s.GroupTotals(field)
	if err != nil {
		return nil, fmt.Errorf("entity totals: %w", err)
	}

	if backfill {
		for _, id := range s.Source().Distinct(field) {
			if _, ok := totals[id]; !ok {
				totals[id] = 0
			}
		}
	}
	return totals, nil
}

// EntityValues returns the totals as a slice, for building a Renderer.
func EntityValues(totals map[records.Value]float64) []float64 {
	out := make([]float64, 0, len(totals))
	for _, v := range totals {
		out = append(out, v)
	}
	return out
}
