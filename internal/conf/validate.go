package conf

import (
	"fmt"
	"strings"

	"github.com/batamp/batamp-explorer/internal/crossfilter"
)

// ValidationError collects every problem found in the settings.
type ValidationError struct {
	Errors []string
}

// Error returns the problems joined.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.add(validateDataSettings(&settings.Data))
	ve.add(validateCrossfilterSettings(&settings.Crossfilter))
	ve.add(validateViewsSettings(&settings.Views))
	ve.add(validateLoggingLevel("logging.default_level", settings.Logging.DefaultLevel))
	for module, level := range settings.Logging.ModuleLevels {
		ve.add(validateLoggingLevel("logging.module_levels."+module, level))
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.add(fmt.Errorf("sentry.dsn is required when sentry is enabled"))
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func (ve *ValidationError) add(err error) {
	if err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
}

func validateDataSettings(settings *DataSettings) error {
	switch settings.Format {
	case FormatFeather, FormatCSV:
		if settings.Detectors == "" || settings.Species == "" {
			return fmt.Errorf("data.detectors and data.species are required for format %s", settings.Format)
		}
	case FormatDatabase:
		if err := settings.Database.Validate(); err != nil {
			return fmt.Errorf("data.database: %w", err)
		}
	default:
		return fmt.Errorf("data.format must be %s, %s or %s, got %q",
			FormatFeather, FormatCSV, FormatDatabase, settings.Format)
	}
	return nil
}

func validateCrossfilterSettings(settings *CrossfilterSettings) error {
	var errs []string
	if _, err := crossfilter.ResolveValueField(settings.ValueField); err != nil {
		errs = append(errs, fmt.Sprintf("crossfilter.valuefield: %v", err))
	}
	if _, err := ParsePreFilter(settings.PreFilter); err != nil {
		errs = append(errs, fmt.Sprintf("crossfilter.prefilter: %v", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateViewsSettings(settings *ViewsSettings) error {
	if settings.DetailTTL <= 0 {
		return fmt.Errorf("views.detailttl must be positive, got %s", settings.DetailTTL)
	}
	if settings.DetailCleanup < 0 {
		return fmt.Errorf("views.detailcleanup must not be negative, got %s", settings.DetailCleanup)
	}
	if settings.BinMode != "count" && settings.BinMode != "percent" {
		return fmt.Errorf("views.binmode must be count or percent, got %q", settings.BinMode)
	}
	return nil
}

func validateLoggingLevel(key, level string) error {
	switch strings.ToLower(level) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("%s: unknown log level %q", key, level)
}
