package crossfilter

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/batamp/batamp-explorer/internal/records"
)

// engine computes Results incrementally. Per dimension totals depend only on
// the other dimensions' filters, so they are cached against the sum of the
// other dimensions' filter versions and reused when only the dimension's own
// filter changed.
type engine struct {
	store   *records.Store
	dims    []*Dimension
	columns map[string]*column
	cache   []dimCache
}

type dimCache struct {
	valid         bool
	othersVersion uint64
	column        *column
	totals        []float64
}

func newEngine(store *records.Store, dims []*Dimension) *engine {
	return &engine{
		store:   store,
		dims:    dims,
		columns: make(map[string]*column),
		cache:   make([]dimCache, len(dims)),
	}
}

// column returns the extracted inputs for vf, building them on first use.
func (e *engine) column(vf ValueField) *column {
	if c, ok := e.columns[vf.Name]; ok {
		return c
	}
	c := newColumn(e.store, vf)
	e.columns[vf.Name] = c
	return c
}

// masks intersects the active filters. filtered is the rows passing every
// filter; except(i) is the rows passing every filter but dimension i's.
// A nil bitmap means all rows.
type masks struct {
	filtered *roaring.Bitmap
	position map[int]int
	prefix   []*roaring.Bitmap
	suffix   []*roaring.Bitmap
}

func and(a, b *roaring.Bitmap) *roaring.Bitmap {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return roaring.And(a, b)
}

func (e *engine) masks() *masks {
	var active []*roaring.Bitmap
	m := &masks{position: make(map[int]int)}
	for i, d := range e.dims {
		if d.pass != nil {
			m.position[i] = len(active)
			active = append(active, d.pass)
		}
	}

	n := len(active)
	m.prefix = make([]*roaring.Bitmap, n+1)
	m.suffix = make([]*roaring.Bitmap, n+1)
	for i := range n {
		m.prefix[i+1] = and(m.prefix[i], active[i])
	}
	for i := n - 1; i >= 0; i-- {
		m.suffix[i] = and(active[i], m.suffix[i+1])
	}
	m.filtered = m.prefix[n]
	return m
}

func (m *masks) except(i int) *roaring.Bitmap {
	p, ok := m.position[i]
	if !ok {
		return m.filtered
	}
	return and(m.prefix[p], m.suffix[p+1])
}

// aggregate builds a Result for vf. It returns the number of dimensions
// whose totals had to be recomputed.
func (e *engine) aggregate(vf ValueField, overrides []ValueField, visible bool) (Result, int) {
	col := e.column(vf)
	m := e.masks()

	var versions uint64
	for _, d := range e.dims {
		versions += d.version
	}

	res := Result{
		ValueField:        vf.Name,
		Total:             clampTotal(vf.Kind, col.total),
		FilteredTotal:     clampTotal(vf.Kind, col.over(m.filtered)),
		HasVisibleFilters: visible,
		Dimensions:        make(map[string][]Bucket),
	}

	recomputed := 0
	for i, d := range e.dims {
		if d.Internal() {
			continue
		}

		dimCol := col
		if overrides[i].Name != "" {
			dimCol = e.column(overrides[i])
		}

		others := versions - d.version
		c := &e.cache[i]
		if !c.valid || c.othersVersion != others || c.column != dimCol {
			c.totals = dimCol.groupTotals(d, m.except(i))
			c.othersVersion = others
			c.column = dimCol
			c.valid = true
			recomputed++
		}

		totals := c.totals
		res.Dimensions[d.Field()] = buildBuckets(&d.cfg, d.kind, d.keys, func(v records.Value) float64 {
			if k, ok := d.index[v]; ok {
				return totals[k]
			}
			return 0
		}, dimCol.vf.Kind)
	}

	return res, recomputed
}

// filteredRows returns the rows passing every active filter.
func (e *engine) filteredRows() *roaring.Bitmap {
	mask := e.masks().filtered
	if mask == nil {
		all := roaring.New()
		all.AddRange(0, uint64(e.store.Size()))
		return all
	}
	return mask.Clone()
}
