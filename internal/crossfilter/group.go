package crossfilter

import (
	"github.com/batamp/batamp-explorer/internal/records"
)

// GroupTotals aggregates the rows passing every active filter, internal
// ones included, by a record field such as siteId or h3l6. Rows where the
// field is missing are skipped. Only groups with at least one passing row
// are present.
func (s *Session) GroupTotals(field string) (map[records.Value]float64, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	id, ok := records.LookupField(field)
	if !ok {
		return nil, configError(ErrUnknownField, field)
	}

	col := s.engine.column(s.vf)
	accs := make(map[records.Value]*accumulator)
	col.each(s.engine.masks().filtered, func(row uint32) {
		v := s.store.At(int(row)).FieldByID(id)
		if v == nil {
			return
		}
		acc, ok := accs[v]
		if !ok {
			acc = &accumulator{}
			accs[v] = acc
		}
		col.add(acc, row)
	})

	out := make(map[records.Value]float64, len(accs))
	for v, acc := range accs {
		out[v] = clampTotal(s.vf.Kind, col.value(acc))
	}
	return out, nil
}
