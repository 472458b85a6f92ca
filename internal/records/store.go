package records

import (
	"iter"
	"slices"
)

// Store is an immutable, ordered sequence of records. Row ids are the
// insertion positions and are stable for the lifetime of the store.
type Store struct {
	rows []Record
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	transforms []func(*Record)
	keep       func(Record) bool
}

// WithTransform applies fn to every record while loading, e.g. to decode
// coded species ids. Transforms run in the order given.
func WithTransform(fn func(*Record)) LoadOption {
	return func(o *loadOptions) {
		o.transforms = append(o.transforms, fn)
	}
}

// WithKeep drops records for which keep returns false, after transforms run.
func WithKeep(keep func(Record) bool) LoadOption {
	return func(o *loadOptions) {
		o.keep = keep
	}
}

// Load builds a Store from rows. The slice is copied; later changes by the
// caller are not visible through the store.
func Load(rows []Record, opts ...LoadOption) *Store {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		for _, fn := range o.transforms {
			fn(&r)
		}
		if o.keep != nil && !o.keep(r) {
			continue
		}
		out = append(out, r)
	}

	return &Store{rows: slices.Clip(out)}
}

// Size returns the number of records.
func (s *Store) Size() int {
	if s == nil {
		return 0
	}
	return len(s.rows)
}

// At returns the record at row id i.
func (s *Store) At(i int) Record {
	return s.rows[i]
}

// All yields row ids and records in insertion order.
func (s *Store) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		if s == nil {
			return
		}
		for i, r := range s.rows {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Distinct returns the distinct non-null values of field in first-seen order.
func (s *Store) Distinct(field string) []Value {
	id, ok := LookupField(field)
	if !ok || s == nil {
		return nil
	}

	seen := make(map[Value]struct{})
	var out []Value
	for _, r := range s.rows {
		v := r.FieldByID(id)
		if v == nil {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
