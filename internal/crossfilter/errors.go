package crossfilter

import (
	"github.com/batamp/batamp-explorer/internal/errors"
)

// Configuration errors. Mutations that fail with one of these leave the
// session unchanged.
var (
	ErrDimensionNotFound   = errors.NewStd("dimension not found")
	ErrBoundsNotConfigured = errors.NewStd("bounds filtering requires lat and lon dimensions")
	ErrUnknownValueField   = errors.NewStd("unknown value field")
	ErrInvalidConfig       = errors.NewStd("invalid filter configuration")
	ErrSessionClosed       = errors.NewStd("session closed")
	ErrUnknownField        = errors.NewStd("unknown record field")
)

// configError wraps a sentinel with field context as a configuration error.
func configError(sentinel error, field string) error {
	return errors.Newf("%w: %s", sentinel, field).
		Component("crossfilter").
		Category(errors.CategoryConfiguration).
		Field(field).
		Build()
}
