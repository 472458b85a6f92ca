package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batamp/batamp-explorer/internal/datastore"
	"github.com/batamp/batamp-explorer/internal/errors"
	"github.com/batamp/batamp-explorer/internal/records"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validSettings() *Settings {
	return &Settings{
		Data: DataSettings{
			Format:    FormatFeather,
			Detectors: "detectors.feather",
			Species:   "spp_detections.feather",
		},
		Views: ViewsSettings{DetailTTL: time.Minute, BinMode: "count"},
	}
}

func TestLoadEmbeddedDefaults(t *testing.T) {
	t.Parallel()

	settings, err := Load(writeConfig(t, string(DefaultConfig())))
	require.NoError(t, err)

	assert.Equal(t, FormatFeather, settings.Data.Format)
	assert.Equal(t, "data/detectors.feather", settings.Data.Detectors)
	assert.Equal(t, datastore.TypeSQLite, settings.Data.Database.Type)
	assert.Equal(t, 3306, settings.Data.Database.MySQL.Port)
	assert.Equal(t, 10*time.Minute, settings.Views.DetailTTL)
	assert.Equal(t, "count", settings.Views.BinMode)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.False(t, settings.Sentry.Enabled)
	assert.NotEmpty(t, settings.ConfigFile)
}

func TestLoadPartialFileUsesDefaults(t *testing.T) {
	t.Parallel()

	settings, err := Load(writeConfig(t, `
data:
  format: csv
  detectors: d.csv
  species: s.csv
crossfilter:
  valuefield: detectionRate
  prefilter: countType=a
views:
  detailttl: 90s
`))
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, settings.Data.Format)
	assert.Equal(t, "d.csv", settings.Data.Detectors)
	assert.Equal(t, "detectionRate", settings.Crossfilter.ValueField)
	assert.Equal(t, 90*time.Second, settings.Views.DetailTTL)
	assert.Equal(t, 15*time.Minute, settings.Views.DetailCleanup)
	assert.Equal(t, "data/batamp.db", settings.Data.Database.SQLite.Path)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BATAMP_DATA_FORMAT", "database")
	t.Setenv("BATAMP_DB_PATH", "/tmp/override.db")
	t.Setenv("BATAMP_VALUE_FIELD", "detections")

	settings, err := Load(writeConfig(t, "data:\n  format: feather\n"))
	require.NoError(t, err)

	assert.Equal(t, FormatDatabase, settings.Data.Format)
	assert.Equal(t, "/tmp/override.db", settings.Data.Database.SQLite.Path)
	assert.Equal(t, "detections", settings.Crossfilter.ValueField)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, `
data:
  format: parquet
crossfilter:
  valuefield: wingspan
views:
  binmode: log
`))
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"valid", func(*Settings) {}, ""},
		{"missing species path", func(s *Settings) { s.Data.Species = "" }, "data.species"},
		{"database without path", func(s *Settings) {
			s.Data.Format = FormatDatabase
			s.Data.Database = datastore.Config{Type: datastore.TypeSQLite}
		}, "data.database"},
		{"unknown value field", func(s *Settings) { s.Crossfilter.ValueField = "wingspan" }, "crossfilter.valuefield"},
		{"bad prefilter", func(s *Settings) { s.Crossfilter.PreFilter = "countType" }, "crossfilter.prefilter"},
		{"zero ttl", func(s *Settings) { s.Views.DetailTTL = 0 }, "views.detailttl"},
		{"bad log level", func(s *Settings) { s.Logging.DefaultLevel = "loud" }, "logging.default_level"},
		{"bad module level", func(s *Settings) {
			s.Logging.ModuleLevels = map[string]string{"crossfilter": "chatty"}
		}, "logging.module_levels.crossfilter"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			s.Logging.DefaultLevel = "info"
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParsePreFilter(t *testing.T) {
	t.Parallel()

	active := records.Record{CountType: "a", Year: 2019}
	presence := records.Record{CountType: "p", Year: 2020}
	missing := records.Record{}

	tests := []struct {
		expr string
		want [3]bool
	}{
		{"countType=a", [3]bool{true, false, false}},
		{"countType = a, p", [3]bool{true, true, false}},
		{"countType!=a", [3]bool{false, true, true}},
		{"year=2020", [3]bool{false, true, false}},
	}
	for _, tt := range tests {
		keep, err := ParsePreFilter(tt.expr)
		require.NoError(t, err, tt.expr)
		got := [3]bool{keep(active), keep(presence), keep(missing)}
		assert.Equal(t, tt.want, got, tt.expr)
	}

	keep, err := ParsePreFilter("  ")
	require.NoError(t, err)
	assert.Nil(t, keep)

	_, err = ParsePreFilter("wingspan=3")
	require.Error(t, err)
	_, err = ParsePreFilter("countType")
	require.Error(t, err)
}

func TestLoadFilterConfigs(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
- field: species
  title: Species detected
  sort: true
- field: month
  title: Seasonality
  values: [1, 2, 3]
  labels: [Jan, Feb, Mar]
- field: lat
  internal: true
`)
	configs, err := LoadFilterConfigs(path, nil)
	require.NoError(t, err)
	require.Len(t, configs, 3)
	assert.Equal(t, "Species detected", configs[0].Title)
	assert.True(t, configs[0].Sort)
	assert.Equal(t, []records.Value{1, 2, 3}, configs[1].Values)
	assert.Equal(t, []string{"Jan", "Feb", "Mar"}, configs[1].Labels)
	assert.True(t, configs[2].Internal)

	store := records.Load([]records.Record{{Species: "mylu", Month: 6, Year: 2019}})
	defaults, err := LoadFilterConfigs("", store)
	require.NoError(t, err)
	assert.NotEmpty(t, defaults)

	_, err = LoadFilterConfigs(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	_, err = LoadFilterConfigs(writeConfig(t, "field: [unclosed"), nil)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestWriteDefaultConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), data)

	require.Error(t, WriteDefaultConfig(path))
}
