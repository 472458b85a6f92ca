package crossfilter

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/batamp/batamp-explorer/internal/records"
)

// column holds the per-row inputs of one ValueField, extracted once from
// the store so aggregation reads flat slices instead of records.
type column struct {
	vf   ValueField
	size int

	values []float64 // Sum: field; Rate: detectionNights
	denom  []float64 // Rate: detectorNights

	ids      []uint32        // DistinctCount: dictionary code of the identity
	positive *roaring.Bitmap // DistinctCount: rows with an identity and detections

	total float64
}

func newColumn(store *records.Store, vf ValueField) *column {
	c := &column{vf: vf, size: store.Size()}

	switch vf.Kind {
	case Sum:
		c.values = make([]float64, c.size)
		for i, r := range store.All() {
			c.values[i], _ = records.AsFloat(r.FieldByID(vf.field))
		}
	case Rate:
		c.values = make([]float64, c.size)
		c.denom = make([]float64, c.size)
		for i, r := range store.All() {
			c.values[i] = r.Metric("detectionNights")
			c.denom[i] = r.Metric("detectorNights")
		}
	case DistinctCount:
		c.ids = make([]uint32, c.size)
		c.positive = roaring.New()
		codes := make(map[records.Value]uint32)
		for i, r := range store.All() {
			id := r.FieldByID(vf.field)
			if id == nil {
				continue
			}
			code, ok := codes[id]
			if !ok {
				code = uint32(len(codes))
				codes[id] = code
			}
			c.ids[i] = code
			if detections, _ := records.AsFloat(r.FieldByID(positiveMetric)); detections > 0 {
				c.positive.Add(uint32(i))
			}
		}
	}

	c.total = c.over(nil)
	return c
}

// accumulator collects one aggregate value.
type accumulator struct {
	count uint64
	sum   float64
	denom float64
	ids   *roaring.Bitmap
}

func (c *column) add(acc *accumulator, row uint32) {
	switch c.vf.Kind {
	case Count:
		acc.count++
	case Sum:
		acc.sum += c.values[row]
	case Rate:
		acc.sum += c.values[row]
		acc.denom += c.denom[row]
	case DistinctCount:
		if !c.positive.Contains(row) {
			return
		}
		if acc.ids == nil {
			acc.ids = roaring.New()
		}
		acc.ids.Add(c.ids[row])
	}
}

func (c *column) value(acc *accumulator) float64 {
	switch c.vf.Kind {
	case Count:
		return float64(acc.count)
	case Sum:
		return acc.sum
	case Rate:
		return rate(acc.sum, acc.denom)
	case DistinctCount:
		if acc.ids == nil {
			return 0
		}
		return float64(acc.ids.GetCardinality())
	}
	return 0
}

// rate is the percent of monitored nights with detections, guarding against
// zero monitored nights.
func rate(detectionNights, detectorNights float64) float64 {
	if detectorNights == 0 {
		detectorNights = 1
	}
	return 100 * detectionNights / detectorNights
}

// over aggregates the rows in mask, or every row when mask is nil.
func (c *column) over(mask *roaring.Bitmap) float64 {
	if c.vf.Kind == Count {
		if mask == nil {
			return float64(c.size)
		}
		return float64(mask.GetCardinality())
	}

	var acc accumulator
	c.each(mask, func(row uint32) { c.add(&acc, row) })
	return c.value(&acc)
}

// each visits rows in mask in store order, or all rows when mask is nil.
func (c *column) each(mask *roaring.Bitmap, fn func(row uint32)) {
	if mask == nil {
		for i := range c.size {
			fn(uint32(i))
		}
		return
	}
	it := mask.Iterator()
	for it.HasNext() {
		fn(it.Next())
	}
}

// groupTotals aggregates rows in mask by the keys of d. Counts are
// intersected directly; other metrics walk the masked rows once.
func (c *column) groupTotals(d *Dimension, mask *roaring.Bitmap) []float64 {
	totals := make([]float64, len(d.keys))

	if c.vf.Kind == Count {
		for k, b := range d.bitmaps {
			if mask == nil {
				totals[k] = float64(b.GetCardinality())
			} else {
				totals[k] = float64(b.AndCardinality(mask))
			}
		}
		return totals
	}

	accs := make([]accumulator, len(d.keys))
	c.each(mask, func(row uint32) {
		d.keysOf(row, func(k int) { c.add(&accs[k], row) })
	})
	for k := range accs {
		totals[k] = c.value(&accs[k])
	}
	return totals
}
