package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/batamp/batamp-explorer/internal/crossfilter"
	"github.com/batamp/batamp-explorer/internal/records"
)

// FilterFlags are the filter arguments shared by the commands.
type FilterFlags struct {
	// Filters are field=value[,value...] selections.
	Filters []string
	// Ranges are field=lo:hi numeric ranges.
	Ranges []string
	// Bounds is xmin,ymin,xmax,ymax.
	Bounds string
}

// Apply installs the flags on s in order: selections, ranges, then bounds.
func (f FilterFlags) Apply(s *crossfilter.Session) error {
	for _, expr := range f.Filters {
		field, list, ok := strings.Cut(expr, "=")
		if !ok {
			return fmt.Errorf("filter %q: expected field=value", expr)
		}
		var values []records.Value
		for v := range strings.SplitSeq(list, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if err := s.SetFilter(strings.TrimSpace(field), values...); err != nil {
			return err
		}
	}

	for _, expr := range f.Ranges {
		field, span, ok := strings.Cut(expr, "=")
		if !ok {
			return fmt.Errorf("range %q: expected field=lo:hi", expr)
		}
		loStr, hiStr, ok := strings.Cut(span, ":")
		if !ok {
			return fmt.Errorf("range %q: expected field=lo:hi", expr)
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(loStr), 64)
		if err != nil {
			return fmt.Errorf("range %q: %w", expr, err)
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(hiStr), 64)
		if err != nil {
			return fmt.Errorf("range %q: %w", expr, err)
		}
		if err := s.SetRange(strings.TrimSpace(field), lo, hi); err != nil {
			return err
		}
	}

	if f.Bounds != "" {
		b, err := ParseBounds(f.Bounds)
		if err != nil {
			return err
		}
		return s.SetBounds(&b)
	}
	return nil
}

// ParseBounds parses "xmin,ymin,xmax,ymax".
func ParseBounds(s string) (crossfilter.Bounds, error) {
	var b crossfilter.Bounds
	parts := strings.Split(s, ",")
	if len(parts) != len(b) {
		return b, fmt.Errorf("bounds %q: expected xmin,ymin,xmax,ymax", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return b, fmt.Errorf("bounds %q: %w", s, err)
		}
		b[i] = v
	}
	if b[0] > b[2] || b[1] > b[3] {
		return b, fmt.Errorf("bounds %q: min exceeds max", s)
	}
	return b, nil
}
