package crossfilter

import (
	"slices"

	"github.com/batamp/batamp-explorer/internal/records"
)

// Aggregate computes a Result by scanning every row. It keeps no index and
// no state between calls and serves as the reference the incremental
// engine is tested against.
//
// state must hold values of the same types as the projected data, as
// produced by Session.State.
func Aggregate(store *records.Store, configs []FilterConfig, state FilterState, vf ValueField) (Result, error) {
	if err := validateConfigs(configs); err != nil {
		return Result{}, err
	}

	type dimension struct {
		cfg     *FilterConfig
		project func(records.Record) []records.Value
		vf      ValueField
	}

	dims := make([]dimension, len(configs))
	visible := false
	for i := range configs {
		cfg := &configs[i]
		project, _ := cfg.projector()
		dims[i] = dimension{cfg: cfg, project: project, vf: vf}
		if cfg.ValueField != "" {
			dims[i].vf, _ = ResolveValueField(cfg.ValueField)
		}
		if !cfg.Internal && state.Has(cfg.Field) {
			visible = true
		}
	}

	// passes[i][row] is whether row passes dimension i's own filter
	n := store.Size()
	projected := make([][][]records.Value, len(dims))
	passes := make([][]bool, len(dims))
	for i, d := range dims {
		projected[i] = make([][]records.Value, n)
		passes[i] = make([]bool, n)
		pred := state.Get(d.cfg.Field)
		for row, r := range store.All() {
			values := d.project(r)
			projected[i][row] = values
			if pred == nil {
				passes[i][row] = true
				continue
			}
			for _, v := range values {
				if v != nil && pred.Match(v) {
					passes[i][row] = true
					break
				}
			}
		}
	}

	passesExcept := func(row, skip int) bool {
		for i := range dims {
			if i != skip && !passes[i][row] {
				return false
			}
		}
		return true
	}

	total := newScan(vf)
	filtered := newScan(vf)
	for row, r := range store.All() {
		total.add(r)
		if passesExcept(row, -1) {
			filtered.add(r)
		}
	}

	res := Result{
		ValueField:        vf.Name,
		Total:             clampTotal(vf.Kind, total.value()),
		FilteredTotal:     clampTotal(vf.Kind, filtered.value()),
		HasVisibleFilters: visible,
		Dimensions:        make(map[string][]Bucket),
	}

	for i, d := range dims {
		if d.cfg.Internal {
			continue
		}

		groups := make(map[records.Value]*scan)
		var keys []records.Value
		for row, r := range store.All() {
			for _, v := range uniqueValues(projected[i][row]) {
				g, ok := groups[v]
				if !ok {
					g = newScan(d.vf)
					groups[v] = g
					keys = append(keys, v)
				}
				if passesExcept(row, i) {
					g.add(r)
				}
			}
		}
		slices.SortFunc(keys, compareValues)

		kind := kindUnknown
		if len(keys) > 0 {
			kind = kindOf(keys[0])
		} else if len(d.cfg.Values) > 0 {
			kind = kindOf(d.cfg.Values[0])
		}

		res.Dimensions[d.cfg.Field] = buildBuckets(d.cfg, kind, keys, func(v records.Value) float64 {
			if g, ok := groups[v]; ok {
				return g.value()
			}
			return 0
		}, d.vf.Kind)
	}

	return res, nil
}

func uniqueValues(values []records.Value) []records.Value {
	out := make([]records.Value, 0, len(values))
	for _, v := range values {
		if v != nil && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// scan accumulates one aggregate over records without any precomputed columns.
type scan struct {
	vf    ValueField
	count int
	sum   float64
	denom float64
	ids   map[records.Value]struct{}
}

func newScan(vf ValueField) *scan {
	return &scan{vf: vf, ids: make(map[records.Value]struct{})}
}

func (s *scan) add(r records.Record) {
	switch s.vf.Kind {
	case Count:
		s.count++
	case Sum:
		v, _ := records.AsFloat(r.FieldByID(s.vf.field))
		s.sum += v
	case Rate:
		s.sum += r.Metric("detectionNights")
		s.denom += r.Metric("detectorNights")
	case DistinctCount:
		id := r.FieldByID(s.vf.field)
		if detections, _ := records.AsFloat(r.FieldByID(positiveMetric)); id != nil && detections > 0 {
			s.ids[id] = struct{}{}
		}
	}
}

func (s *scan) value() float64 {
	switch s.vf.Kind {
	case Count:
		return float64(s.count)
	case Sum:
		return s.sum
	case Rate:
		return rate(s.sum, s.denom)
	case DistinctCount:
		return float64(len(s.ids))
	}
	return 0
}
