package conf

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/batamp/batamp-explorer/internal/crossfilter"
	"github.com/batamp/batamp-explorer/internal/errors"
	"github.com/batamp/batamp-explorer/internal/logger"
	"github.com/batamp/batamp-explorer/internal/records"
)

// LoadFilterConfigs reads a YAML list of filter definitions. An empty path
// returns the built-in list derived from store.
func LoadFilterConfigs(path string, store *records.Store) ([]crossfilter.FilterConfig, error) {
	if path == "" {
		return crossfilter.DefaultFilterConfigs(store), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var configs []crossfilter.FilterConfig
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}

	GetLogger().Debug("filter definitions loaded",
		logger.String("path", path),
		logger.Int("filters", len(configs)))
	return configs, nil
}

// ParsePreFilter parses a record restriction of the form field=value or
// field!=value, where value may list alternatives separated by commas.
// An empty expression returns nil.
func ParsePreFilter(expr string) (func(records.Record) bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	negate := false
	field, value, ok := strings.Cut(expr, "!=")
	if ok {
		negate = true
	} else if field, value, ok = strings.Cut(expr, "="); !ok {
		return nil, fmt.Errorf("expected field=value, got %q", expr)
	}

	field = strings.TrimSpace(field)
	id, known := records.LookupField(field)
	if !known {
		return nil, fmt.Errorf("unknown field %q", field)
	}
	wanted := strings.Split(value, ",")
	for i := range wanted {
		wanted[i] = strings.TrimSpace(wanted[i])
	}

	return func(r records.Record) bool {
		v := r.FieldByID(id)
		match := v != nil && slices.Contains(wanted, fmt.Sprint(v))
		return match != negate
	}, nil
}
