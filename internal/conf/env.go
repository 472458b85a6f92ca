package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings.
type envBinding struct {
	ConfigKey string             // viper config key
	EnvVar    string             // environment variable name
	Validate  func(string) error // optional validation function
}

// getEnvBindings returns the environment variable bindings with validation.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "BATAMP_DEBUG", validateEnvBool},

		{"data.format", "BATAMP_DATA_FORMAT", validateEnvFormat},
		{"data.detectors", "BATAMP_DATA_DETECTORS", validateEnvPath},
		{"data.species", "BATAMP_DATA_SPECIES", validateEnvPath},
		{"data.database.type", "BATAMP_DB_TYPE", nil},
		{"data.database.sqlite.path", "BATAMP_DB_PATH", validateEnvPath},
		{"data.database.mysql.host", "BATAMP_MYSQL_HOST", nil},
		{"data.database.mysql.port", "BATAMP_MYSQL_PORT", validateEnvPort},
		{"data.database.mysql.username", "BATAMP_MYSQL_USERNAME", nil},
		{"data.database.mysql.password", "BATAMP_MYSQL_PASSWORD", nil},
		{"data.database.mysql.database", "BATAMP_MYSQL_DATABASE", nil},

		{"crossfilter.valuefield", "BATAMP_VALUE_FIELD", nil},
		{"crossfilter.prefilter", "BATAMP_PREFILTER", nil},

		{"views.detailttl", "BATAMP_DETAIL_TTL", validateEnvDuration},

		{"logging.default_level", "BATAMP_LOG_LEVEL", nil},
		{"sentry.enabled", "BATAMP_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "BATAMP_SENTRY_DSN", nil},
		{"metrics.textfile", "BATAMP_METRICS_TEXTFILE", validateEnvPath},
	}
}

// bindEnvVars binds the environment variables and validates those that are set.
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvFormat(value string) error {
	switch value {
	case FormatFeather, FormatCSV, FormatDatabase:
		return nil
	}
	return fmt.Errorf("format must be one of %s, %s or %s, got '%s'", FormatFeather, FormatCSV, FormatDatabase, value)
}

func validateEnvPath(value string) error {
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	return nil
}
