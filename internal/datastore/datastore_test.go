package datastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batamp/batamp-explorer/internal/errors"
	"github.com/batamp/batamp-explorer/internal/loader"
	"github.com/batamp/batamp-explorer/internal/logger"
	"github.com/batamp/batamp-explorer/internal/records"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := Config{Type: TypeSQLite, SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "batamp.db")}}
	s, err := Open(cfg, WithLogger(logger.NewSlogLogger(nil, logger.LogLevelError)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testTables() loader.Tables {
	return loader.Tables{
		Detectors: []loader.Detector{
			{
				ID: 1, Source: "batamp", CountType: "a", SiteID: 10, SiteName: "North Ridge",
				Lat: 40.5, Lon: -105.1, Admin1Name: "Colorado", Country: "United States",
				H3:    [5]string{"84", "85", "86", "87", "88"},
			},
			{
				ID: 2, CountType: "p", SiteID: 20, Lat: 45, Lon: -110, Admin1Name: "Montana",
				Nulls: []records.FieldID{
					records.FieldSource, records.FieldSiteName, records.FieldCountry,
					records.FieldH3L4, records.FieldH3L5, records.FieldH3L6, records.FieldH3L7, records.FieldH3L8,
				},
			},
		},
		Counts: []loader.SpeciesCount{
			{DetID: 1, Species: "mylu", Month: 6, Year: 2019, Detections: 12, DetectionNights: 3, DetectorNights: 5},
			{DetID: 2, Species: "epfu", Month: 7, Year: 2020, DetectorNights: 4},
			{DetID: 1, Month: 8, Year: 2019, Detections: 1, DetectionNights: 1,
				Nulls: []records.FieldID{records.FieldSpecies, records.FieldDetectorNights}},
		},
	}
}

func TestImportAndReadTables(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	want := testTables()
	require.NoError(t, s.Import(ctx, want))

	got, err := s.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, got.Detectors, 2)
	require.Len(t, got.Counts, 3)

	assert.Equal(t, want.Detectors[0].SiteName, got.Detectors[0].SiteName)
	assert.Equal(t, want.Detectors[0].H3, got.Detectors[0].H3)
	assert.Empty(t, got.Detectors[0].Nulls)
	assert.ElementsMatch(t, want.Detectors[1].Nulls, got.Detectors[1].Nulls)
	assert.Equal(t, "mylu", got.Counts[0].Species)
	assert.ElementsMatch(t, want.Counts[2].Nulls, got.Counts[2].Nulls)
}

func TestLoadRecordsMatchesFiles(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Import(ctx, testTables()))

	fromDB, err := s.LoadRecords(ctx)
	require.NoError(t, err)
	direct, _ := loader.Build(testTables())

	require.Equal(t, direct.Size(), fromDB.Size())
	for i := range direct.Size() {
		for _, name := range records.FieldNames() {
			assert.Equal(t, direct.At(i).Field(name), fromDB.At(i).Field(name), "row %d field %s", i, name)
		}
	}
}

func TestImportReplaces(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Import(ctx, testTables()))

	smaller := testTables()
	smaller.Counts = smaller.Counts[:1]
	require.NoError(t, s.Import(ctx, smaller))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Detectors: 2, SpeciesCounts: 1}, st)
}

func TestImportEmpty(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	require.NoError(t, s.Import(context.Background(), loader.Tables{}))

	store, err := s.LoadRecords(context.Background())
	require.NoError(t, err)
	assert.Zero(t, store.Size())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite", Config{Type: TypeSQLite, SQLite: SQLiteConfig{Path: "a.db"}}, false},
		{"sqlite without path", Config{Type: TypeSQLite}, true},
		{"mysql", Config{Type: TypeMySQL, MySQL: MySQLConfig{Host: "db", Database: "batamp"}}, false},
		{"mysql without host", Config{Type: TypeMySQL, MySQL: MySQLConfig{Database: "batamp"}}, true},
		{"mysql bad port", Config{Type: TypeMySQL, MySQL: MySQLConfig{Host: "db", Database: "batamp", Port: 70000}}, true},
		{"unknown type", Config{Type: "postgres"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	cfg := MySQLConfig{Host: "db.local", Username: "bat", Password: "secret", Database: "batamp"}
	assert.Equal(t, "bat:secret@tcp(db.local:3306)/batamp?charset=utf8mb4&parseTime=True&loc=Local", cfg.DSN())

	cfg.Port = 3307
	assert.Contains(t, cfg.DSN(), "tcp(db.local:3307)")
}
