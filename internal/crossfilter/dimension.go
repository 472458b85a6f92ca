package crossfilter

import (
	"slices"
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/batamp/batamp-explorer/internal/records"
)

// Dimension indexes one field of the store. Every distinct projected value
// gets a bitmap of the row ids that project it; null rows are kept apart
// and never selected by any predicate.
type Dimension struct {
	cfg  FilterConfig
	size int

	// keys is the sorted value dictionary; numeric keys come first
	keys     []records.Value
	index    map[records.Value]int
	bitmaps  []*roaring.Bitmap
	numeric  int
	kind     valueKind
	rowKeys  []int32   // single valued: key per row, -1 for null
	multiKey [][]int32 // multi valued: keys per row

	predicate Predicate
	pass      *roaring.Bitmap // nil when unfiltered
	version   uint64
}

// NewDimension projects every row of store once and builds the value index.
func NewDimension(store *records.Store, cfg FilterConfig) (*Dimension, error) {
	project, err := cfg.projector()
	if err != nil {
		return nil, err
	}

	d := &Dimension{
		cfg:   cfg,
		size:  store.Size(),
		index: make(map[records.Value]int),
	}

	projected := make([][]records.Value, d.size)
	for i, r := range store.All() {
		values := project(r)
		projected[i] = values
		for _, v := range values {
			if v == nil {
				continue
			}
			if _, ok := d.index[v]; !ok {
				d.index[v] = -1
				d.keys = append(d.keys, v)
			}
		}
	}

	slices.SortFunc(d.keys, compareValues)

	d.kind = kindUnknown
	if len(d.keys) > 0 {
		d.kind = kindOf(d.keys[0])
	} else if len(cfg.Values) > 0 {
		d.kind = kindOf(cfg.Values[0])
	}

	for k, v := range d.keys {
		d.index[v] = k
		if _, ok := records.AsFloat(v); ok {
			d.numeric = k + 1
		}
	}

	d.bitmaps = make([]*roaring.Bitmap, len(d.keys))
	for k := range d.bitmaps {
		d.bitmaps[k] = roaring.New()
	}

	if cfg.IsMultiValued {
		d.multiKey = make([][]int32, d.size)
	} else {
		d.rowKeys = make([]int32, d.size)
	}

	for i, values := range projected {
		row := uint32(i)
		if !cfg.IsMultiValued {
			d.rowKeys[i] = -1
			if len(values) > 0 && values[0] != nil {
				k := d.index[values[0]]
				d.rowKeys[i] = int32(k)
				d.bitmaps[k].Add(row)
			}
			continue
		}
		for _, v := range values {
			if v == nil {
				continue
			}
			k := d.index[v]
			if d.bitmaps[k].Contains(row) {
				continue
			}
			d.multiKey[i] = append(d.multiKey[i], int32(k))
			d.bitmaps[k].Add(row)
		}
	}

	for _, b := range d.bitmaps {
		b.RunOptimize()
	}

	return d, nil
}

// Field returns the dimension's field name.
func (d *Dimension) Field() string { return d.cfg.Field }

// Config returns the dimension configuration.
func (d *Dimension) Config() FilterConfig { return d.cfg }

// Internal reports whether the dimension is excluded from reported totals.
func (d *Dimension) Internal() bool { return d.cfg.Internal }

// Keys returns the distinct non-null values in sorted order.
func (d *Dimension) Keys() []records.Value { return slices.Clone(d.keys) }

// Predicate returns the installed predicate, nil when unfiltered.
func (d *Dimension) Predicate() Predicate { return d.predicate }

// Normalize coerces a filter value to the dimension's value type.
func (d *Dimension) Normalize(v records.Value) records.Value {
	return normalizeValue(d.kind, v)
}

// SetFilter installs p, or clears the filter when p is nil or empty.
// Installing the predicate already in place is a no-op.
func (d *Dimension) SetFilter(p Predicate) {
	if p != nil && p.IsEmpty() {
		p = nil
	}
	if samePredicate(d.predicate, p) {
		return
	}

	d.predicate = p
	d.version++
	if p == nil {
		d.pass = nil
		return
	}
	d.pass = d.resolve(p)
}

// resolve computes the rows accepted by p as the union of matching key bitmaps.
func (d *Dimension) resolve(p Predicate) *roaring.Bitmap {
	var selected []*roaring.Bitmap

	switch pred := p.(type) {
	case ValueSet:
		for _, v := range pred.values {
			if k, ok := d.index[v]; ok {
				selected = append(selected, d.bitmaps[k])
			}
		}
	case Range:
		numericKeys := d.keys[:d.numeric]
		lo := sort.Search(len(numericKeys), func(i int) bool {
			f, _ := records.AsFloat(numericKeys[i])
			return f >= pred.Min
		})
		for k := lo; k < len(numericKeys); k++ {
			f, _ := records.AsFloat(numericKeys[k])
			if f > pred.Max {
				break
			}
			selected = append(selected, d.bitmaps[k])
		}
	default:
		for k, v := range d.keys {
			if p.Match(v) {
				selected = append(selected, d.bitmaps[k])
			}
		}
	}

	if len(selected) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(selected...)
}

// MatchingRows returns the rows accepted by this dimension's own predicate.
// The caller owns the returned bitmap.
func (d *Dimension) MatchingRows() *roaring.Bitmap {
	if d.pass == nil {
		all := roaring.New()
		all.AddRange(0, uint64(d.size))
		return all
	}
	return d.pass.Clone()
}

// keysOf calls fn for every key projected by row.
func (d *Dimension) keysOf(row uint32, fn func(k int)) {
	if d.multiKey == nil {
		if k := d.rowKeys[row]; k >= 0 {
			fn(int(k))
		}
		return
	}
	for _, k := range d.multiKey[row] {
		fn(int(k))
	}
}
