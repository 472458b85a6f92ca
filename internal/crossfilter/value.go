package crossfilter

import (
	"cmp"
	"fmt"
	"math"
	"strconv"

	"github.com/batamp/batamp-explorer/internal/records"
)

// valueKind is the dictionary type of a dimension.
type valueKind uint8

const (
	kindUnknown valueKind = iota
	kindInt
	kindFloat
	kindString
)

func kindOf(v records.Value) valueKind {
	switch v.(type) {
	case int, int64, int32:
		return kindInt
	case float64, float32:
		return kindFloat
	case string:
		return kindString
	}
	return kindUnknown
}

// normalizeValue coerces v to the dimension's value kind, so that month "6"
// from a command line flag or 6.0 from JSON matches the int 6 in the data.
// Values that cannot be coerced are returned unchanged and simply match nothing.
func normalizeValue(kind valueKind, v records.Value) records.Value {
	switch n := v.(type) {
	case int64:
		v = int(n)
	case int32:
		v = int(n)
	case float32:
		v = float64(n)
	}

	switch kind {
	case kindInt:
		switch n := v.(type) {
		case float64:
			if n == math.Trunc(n) {
				return int(n)
			}
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				return i
			}
		}
	case kindFloat:
		switch n := v.(type) {
		case int:
			return float64(n)
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f
			}
		}
	case kindString:
		switch n := v.(type) {
		case int:
			return strconv.Itoa(n)
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	return v
}

// compareValues orders numbers before strings, numbers numerically and
// strings lexically. nil sorts last.
func compareValues(a, b records.Value) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return 1
		default:
			return -1
		}
	}

	af, aNum := records.AsFloat(a)
	bf, bNum := records.AsFloat(b)
	switch {
	case aNum && bNum:
		return cmp.Compare(af, bf)
	case aNum:
		return -1
	case bNum:
		return 1
	}

	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func formatValue(v records.Value) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
