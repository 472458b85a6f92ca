package crossfilter

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/batamp/batamp-explorer/internal/records"
)

// Predicate accepts or rejects a projected, non-null value. It must be a
// pure function of the value.
type Predicate interface {
	Match(v records.Value) bool
	// IsEmpty reports whether the predicate selects nothing explicitly,
	// which clears the filter rather than filtering everything out.
	IsEmpty() bool
	// String is a canonical form; equal predicates have equal strings.
	String() string
}

// ValueSet selects rows whose projected value is one of a set of values.
type ValueSet struct {
	set    map[records.Value]struct{}
	values []records.Value
}

// NewValueSet creates a set predicate. Duplicate and nil values are dropped.
func NewValueSet(values ...records.Value) ValueSet {
	s := ValueSet{set: make(map[records.Value]struct{}, len(values))}
	for _, v := range values {
		if v == nil {
			continue
		}
		if _, dup := s.set[v]; dup {
			continue
		}
		s.set[v] = struct{}{}
		s.values = append(s.values, v)
	}
	slices.SortFunc(s.values, compareValues)
	return s
}

// Match reports set membership.
func (s ValueSet) Match(v records.Value) bool {
	_, ok := s.set[v]
	return ok
}

// IsEmpty is true for a set with no values.
func (s ValueSet) IsEmpty() bool { return len(s.values) == 0 }

// Values returns the selected values in sorted order.
func (s ValueSet) Values() []records.Value { return slices.Clone(s.values) }

// Contains reports whether v is in the set.
func (s ValueSet) Contains(v records.Value) bool { return s.Match(v) }

func (s ValueSet) String() string {
	parts := make([]string, len(s.values))
	for i, v := range s.values {
		parts[i] = formatValue(v)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func (s ValueSet) normalized(kind valueKind) ValueSet {
	if kind == kindUnknown {
		return s
	}
	values := make([]records.Value, len(s.values))
	for i, v := range s.values {
		values[i] = normalizeValue(kind, v)
	}
	return NewValueSet(values...)
}

// Range selects numeric values in the closed interval [Min, Max].
type Range struct {
	Min, Max float64
}

// NewRange creates a range predicate, swapping bounds given in reverse.
func NewRange(lo, hi float64) Range {
	if lo > hi {
		lo, hi = hi, lo
	}
	return Range{Min: lo, Max: hi}
}

// Match reports whether v is numeric and inside the range.
func (r Range) Match(v records.Value) bool {
	f, ok := records.AsFloat(v)
	return ok && f >= r.Min && f <= r.Max
}

func (r Range) IsEmpty() bool { return false }

func (r Range) String() string {
	return fmt.Sprintf("[%s,%s]", formatValue(r.Min), formatValue(r.Max))
}

// MatchFunc adapts a function to a Predicate. Name must identify the
// function uniquely, since it is used for equality.
type MatchFunc struct {
	Name string
	Fn   func(records.Value) bool
}

func (f MatchFunc) Match(v records.Value) bool { return f.Fn(v) }
func (f MatchFunc) IsEmpty() bool              { return f.Fn == nil }
func (f MatchFunc) String() string             { return "func:" + f.Name }

// samePredicate reports whether two predicates select the same values.
func samePredicate(a, b Predicate) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// Bounds is a geographic rectangle [xmin, ymin, xmax, ymax] in degrees.
type Bounds [4]float64

// Contains reports whether the point lies inside the rectangle, edges included.
func (b Bounds) Contains(lon, lat float64) bool {
	return lon >= b[0] && lon <= b[2] && lat >= b[1] && lat <= b[3]
}

// Overlaps reports whether two rectangles intersect.
func (b Bounds) Overlaps(other Bounds) bool {
	return b[0] <= other[2] && b[2] >= other[0] && b[1] <= other[3] && b[3] >= other[1]
}

// FilterState maps fields to their active predicates. It is immutable:
// With and Without return new states.
type FilterState struct {
	filters map[string]Predicate
}

// Get returns the predicate for field, or nil when unfiltered.
func (s FilterState) Get(field string) Predicate {
	return s.filters[field]
}

// Has reports whether field has an active filter.
func (s FilterState) Has(field string) bool {
	_, ok := s.filters[field]
	return ok
}

// Len returns the number of active filters.
func (s FilterState) Len() int { return len(s.filters) }

// Fields returns the filtered fields in sorted order.
func (s FilterState) Fields() []string {
	return slices.Sorted(maps.Keys(s.filters))
}

// With returns a state with field set to p. A nil or empty predicate clears the field.
func (s FilterState) With(field string, p Predicate) FilterState {
	if p == nil || p.IsEmpty() {
		return s.Without(field)
	}
	next := make(map[string]Predicate, len(s.filters)+1)
	maps.Copy(next, s.filters)
	next[field] = p
	return FilterState{filters: next}
}

// Without returns a state with the given fields cleared.
func (s FilterState) Without(fields ...string) FilterState {
	next := make(map[string]Predicate, len(s.filters))
	maps.Copy(next, s.filters)
	for _, f := range fields {
		delete(next, f)
	}
	return FilterState{filters: next}
}

// Equal reports whether two states hold the same predicates.
func (s FilterState) Equal(other FilterState) bool {
	if len(s.filters) != len(other.filters) {
		return false
	}
	for f, p := range s.filters {
		if !samePredicate(p, other.filters[f]) {
			return false
		}
	}
	return true
}

func (s FilterState) String() string {
	fields := s.Fields()
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + "=" + s.filters[f].String()
	}
	return strings.Join(parts, " ")
}
