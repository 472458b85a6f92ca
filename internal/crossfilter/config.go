package crossfilter

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/batamp/batamp-explorer/internal/records"
)

// FilterConfig describes one filterable dimension.
type FilterConfig struct {
	Field         string          `yaml:"field" json:"field"`
	Title         string          `yaml:"title" json:"title"`
	IsOpen        bool            `yaml:"isOpen" json:"isOpen"`
	Values        []records.Value `yaml:"values" json:"values,omitempty"`
	Labels        []string        `yaml:"labels" json:"labels,omitempty"`
	IsMultiValued bool            `yaml:"isMultiValued" json:"isMultiValued"`
	// Internal dimensions constrain totals but are not reported.
	Internal bool `yaml:"internal" json:"internal"`
	// ValueField overrides the session metric for this dimension's totals.
	ValueField string `yaml:"valueField" json:"valueField,omitempty"`
	Vertical   bool   `yaml:"vertical" json:"vertical"`
	Sort       bool   `yaml:"sort" json:"sort"`
	HideEmpty  bool   `yaml:"hideEmpty" json:"hideEmpty"`
	Help       string `yaml:"help" json:"help,omitempty"`

	// Project replaces the default field lookup for single valued dimensions.
	Project func(records.Record) records.Value `yaml:"-" json:"-"`
	// ProjectMulti projects multi valued dimensions.
	ProjectMulti func(records.Record) []records.Value `yaml:"-" json:"-"`
}

// Label returns the display label for a value of this dimension.
func (c *FilterConfig) Label(v records.Value) string {
	for i, cv := range c.Values {
		if i < len(c.Labels) && compareValues(cv, v) == 0 {
			return c.Labels[i]
		}
	}
	if c.Field == "species" {
		if s, ok := v.(string); ok {
			return records.SpeciesLabel(s)
		}
	}
	return formatValue(v)
}

// projector returns a function yielding the projected values of a row,
// nil for the null sentinel.
func (c *FilterConfig) projector() (func(records.Record) []records.Value, error) {
	switch {
	case c.ProjectMulti != nil:
		if !c.IsMultiValued {
			return nil, fmt.Errorf("%w: %s has a multi valued projection but is not multi valued", ErrInvalidConfig, c.Field)
		}
		return c.ProjectMulti, nil
	case c.Project != nil:
		project := c.Project
		return func(r records.Record) []records.Value {
			if v := project(r); v != nil {
				return []records.Value{v}
			}
			return nil
		}, nil
	}

	if c.IsMultiValued {
		return nil, fmt.Errorf("%w: multi valued dimension %s needs a projection", ErrInvalidConfig, c.Field)
	}
	id, ok := records.LookupField(c.Field)
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %s", ErrInvalidConfig, c.Field)
	}
	return func(r records.Record) []records.Value {
		if v := r.FieldByID(id); v != nil {
			return []records.Value{v}
		}
		return nil
	}, nil
}

func validateConfigs(configs []FilterConfig) error {
	seen := make(map[string]struct{}, len(configs))
	for i := range configs {
		c := &configs[i]
		if c.Field == "" {
			return fmt.Errorf("%w: filter %d has no field", ErrInvalidConfig, i)
		}
		if _, dup := seen[c.Field]; dup {
			return fmt.Errorf("%w: duplicate field %s", ErrInvalidConfig, c.Field)
		}
		seen[c.Field] = struct{}{}
		if len(c.Labels) > 0 && len(c.Labels) != len(c.Values) {
			return fmt.Errorf("%w: %s has %d labels for %d values", ErrInvalidConfig, c.Field, len(c.Labels), len(c.Values))
		}
		if c.ValueField != "" {
			if _, err := ResolveValueField(c.ValueField); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, c.Field, err)
			}
		}
		if _, err := c.projector(); err != nil {
			return err
		}
	}
	return nil
}

var monthLabels = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// DefaultFilterConfigs builds the standard occurrence filters from the
// values present in store: species sorted by common name, months, years,
// states and provinces, data source and count type, plus internal lat/lon
// dimensions for bounds filtering.
func DefaultFilterConfigs(store *records.Store) []FilterConfig {
	species := distinctStrings(store, "species")
	slices.SortFunc(species, func(a, b string) int {
		return compareValues(records.Species[a].CommonName, records.Species[b].CommonName)
	})
	speciesLabels := make([]string, len(species))
	for i, s := range species {
		speciesLabels[i] = records.SpeciesLabel(s)
	}

	months := make([]records.Value, 12)
	for i := range months {
		months[i] = i + 1
	}

	years := store.Distinct("year")
	slices.SortFunc(years, compareValues)
	yearLabels := make([]string, len(years))
	for i, y := range years {
		s := strconv.Itoa(y.(int))
		yearLabels[i] = "'" + s[max(0, len(s)-2):]
	}

	admin1 := store.Distinct("admin1Name")
	slices.SortFunc(admin1, compareValues)

	return []FilterConfig{
		{
			Field:     "species",
			Title:     "Species detected",
			HideEmpty: true,
			Sort:      true,
			Values:    toValues(species),
			Labels:    speciesLabels,
		},
		{
			Field:    "month",
			Title:    "Seasonality",
			Vertical: true,
			Values:   months,
			Labels:   slices.Clone(monthLabels),
		},
		{
			Field:    "year",
			Title:    "Year",
			Vertical: true,
			Values:   years,
			Labels:   yearLabels,
		},
		{
			Field:     "admin1Name",
			Title:     "State / Province",
			Sort:      true,
			HideEmpty: true,
			Values:    admin1,
		},
		{
			Field:  "source",
			Title:  "Data source",
			Values: []records.Value{"batamp", "nabat"},
			Labels: []string{
				"Bat Acoustic Monitoring Portal (BatAMP)",
				"North American Bat Monitoring Program (NABat)",
			},
		},
		{
			Field:  "countType",
			Title:  "Monitoring type",
			Values: []records.Value{"p", "a"},
			Labels: []string{"Presence only", "Activity"},
			Help:   "Presence only detectors recorded one detection per night for each species.",
		},
		{Field: "lat", Internal: true},
		{Field: "lon", Internal: true},
	}
}

func distinctStrings(store *records.Store, field string) []string {
	var out []string
	for _, v := range store.Distinct(field) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toValues[T any](in []T) []records.Value {
	out := make([]records.Value, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
