package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/batamp/batamp-explorer/internal/datastore"
	"github.com/batamp/batamp-explorer/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// EnvPrefix prefixes environment variable overrides, e.g. BATAMP_DATA_FORMAT.
const EnvPrefix = "BATAMP"

// Data formats.
const (
	FormatFeather  = "feather"
	FormatCSV      = "csv"
	FormatDatabase = "database"
)

// DataSettings locates the dataset.
type DataSettings struct {
	Format    string           `yaml:"format" mapstructure:"format"`
	Detectors string           `yaml:"detectors" mapstructure:"detectors"` // detectors table file
	Species   string           `yaml:"species" mapstructure:"species"`     // species detections table file
	Database  datastore.Config `yaml:"database" mapstructure:"database"`
}

// CrossfilterSettings configures sessions.
type CrossfilterSettings struct {
	ValueField  string `yaml:"valuefield" mapstructure:"valuefield"`   // initial metric, empty counts records
	FiltersFile string `yaml:"filtersfile" mapstructure:"filtersfile"` // filter list, empty uses the built-in list
	PreFilter   string `yaml:"prefilter" mapstructure:"prefilter"`     // field=value restriction applied before indexing
}

// ViewsSettings configures derived views.
type ViewsSettings struct {
	DetailTTL     time.Duration `yaml:"detailttl" mapstructure:"detailttl"`
	DetailCleanup time.Duration `yaml:"detailcleanup" mapstructure:"detailcleanup"`
	BinMode       string        `yaml:"binmode" mapstructure:"binmode"` // count or percent
}

// SentrySettings configures optional error telemetry.
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// MetricsSettings configures metrics export.
type MetricsSettings struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// Settings is the complete configuration.
type Settings struct {
	Debug       bool                 `yaml:"debug" mapstructure:"debug"`
	Data        DataSettings         `yaml:"data" mapstructure:"data"`
	Crossfilter CrossfilterSettings  `yaml:"crossfilter" mapstructure:"crossfilter"`
	Views       ViewsSettings        `yaml:"views" mapstructure:"views"`
	Logging     logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Sentry      SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
	Metrics     MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`

	// ConfigFile is the file the settings were read from, empty for defaults.
	ConfigFile string `yaml:"-" mapstructure:"-"`
}

// Load reads settings from configFile, or from the first config.yaml in the
// default search paths when configFile is empty. Environment variables
// override the file and defaults fill everything else.
func Load(configFile string) (*Settings, error) {
	return LoadWith(viper.New(), configFile)
}

// LoadWith reads settings through v. Flags bound to v take precedence.
func LoadWith(v *viper.Viper, configFile string) (*Settings, error) {
	if err := initViper(v, configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	settings.ConfigFile = v.ConfigFileUsed()

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

func initViper(v *viper.Viper, configFile string) error {
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		GetLogger().Warn("environment overrides ignored", logger.Error(err))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		return v.ReadInConfig()
	}

	v.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// defaults only
		return nil
	}
	return err
}

// WriteDefaultConfig writes the embedded default configuration to path.
// An existing file is left untouched.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(path, DefaultConfig(), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}
	GetLogger().Info("default config written", logger.String("path", path))
	return nil
}

// DefaultConfig returns the embedded default configuration file.
func DefaultConfig() []byte {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return data
}
