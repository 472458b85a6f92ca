// Package datastore persists the detector and species detection tables in
// a SQL database so the explorer can start without the source files.
package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/batamp/batamp-explorer/internal/errors"
	"github.com/batamp/batamp-explorer/internal/loader"
	"github.com/batamp/batamp-explorer/internal/logger"
	"github.com/batamp/batamp-explorer/internal/observability/metrics"
	"github.com/batamp/batamp-explorer/internal/records"
)

// DefaultSlowQueryThreshold is the duration after which a statement is logged as slow.
const DefaultSlowQueryThreshold = 1 * time.Second

// batchSize bounds the rows per INSERT statement; SQLite allows 32766
// bound variables and a species count row binds eight.
const batchSize = 1000

// Operation names used for logging and metrics.
const (
	OpImport = "db_import"
	OpRead   = "db_read"
)

// Store is an open database holding the two tables.
type Store struct {
	db       *gorm.DB
	dbType   string
	log      logger.Logger
	recorder metrics.Recorder
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithMetrics records import and read timings.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(s *Store) { s.recorder = recorder }
}

// Open connects to the database described by cfg and migrates the schema.
func Open(cfg Config, opts ...Option) (*Store, error) {
	s := &Store{dbType: cfg.Type, log: GetLogger(), recorder: metrics.NoOpRecorder{}}
	for _, opt := range opts {
		opt(s)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(s.log, DefaultSlowQueryThreshold),
	}

	var err error
	switch cfg.Type {
	case TypeSQLite:
		s.db, err = openSQLite(cfg.SQLite, gormConfig)
	case TypeMySQL:
		s.db, err = openMySQL(cfg.MySQL, gormConfig)
	}
	if err != nil {
		return nil, dbError(err, "open", "db_type", cfg.Type)
	}

	if err := s.db.AutoMigrate(&Detector{}, &SpeciesCount{}); err != nil {
		_ = s.Close()
		return nil, dbError(err, "migrate", "db_type", cfg.Type)
	}

	s.log.Debug("database opened", logger.String("db_type", cfg.Type))
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close")
	}
	return sqlDB.Close()
}

// Import replaces the stored tables with t in a single transaction.
func (s *Store) Import(ctx context.Context, t loader.Tables) error {
	start := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&SpeciesCount{}).Error; err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Detector{}).Error; err != nil {
			return err
		}

		detectors := make([]Detector, len(t.Detectors))
		for i := range t.Detectors {
			detectors[i] = newDetector(&t.Detectors[i])
		}
		if len(detectors) > 0 {
			if err := tx.CreateInBatches(detectors, batchSize).Error; err != nil {
				return err
			}
		}

		counts := make([]SpeciesCount, len(t.Counts))
		for i := range t.Counts {
			counts[i] = newSpeciesCount(&t.Counts[i])
		}
		if len(counts) > 0 {
			if err := tx.CreateInBatches(counts, batchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.recorder.RecordOperation(OpImport, metrics.StatusError)
		s.recorder.RecordError(OpImport, string(errors.CategoryDatabase))
		return dbError(err, "import",
			"detectors", len(t.Detectors),
			"species_counts", len(t.Counts))
	}

	s.recorder.RecordOperation(OpImport, metrics.StatusSuccess)
	s.recorder.RecordDuration(OpImport, time.Since(start).Seconds())
	s.log.Info("tables imported",
		logger.String("db_type", s.dbType),
		logger.Int("detectors", len(t.Detectors)),
		logger.Int("species_counts", len(t.Counts)),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// Tables reads both tables back in insertion order.
func (s *Store) Tables(ctx context.Context) (loader.Tables, error) {
	start := time.Now()
	db := s.db.WithContext(ctx)

	var detectors []Detector
	if err := db.Order("id").Find(&detectors).Error; err != nil {
		s.recorder.RecordOperation(OpRead, metrics.StatusError)
		return loader.Tables{}, dbError(err, "read", "table", "detectors")
	}

	var t loader.Tables
	t.Detectors = make([]loader.Detector, len(detectors))
	for i := range detectors {
		t.Detectors[i] = detectors[i].toLoader()
	}

	var batch []SpeciesCount
	err := db.Order("id").FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
		for i := range batch {
			t.Counts = append(t.Counts, batch[i].toLoader())
		}
		return ctx.Err()
	}).Error
	if err != nil {
		s.recorder.RecordOperation(OpRead, metrics.StatusError)
		return loader.Tables{}, dbError(err, "read", "table", "species_counts")
	}

	s.recorder.RecordOperation(OpRead, metrics.StatusSuccess)
	s.recorder.RecordDuration(OpRead, time.Since(start).Seconds())
	return t, nil
}

// LoadRecords reads and joins the stored tables into a record store.
func (s *Store) LoadRecords(ctx context.Context, opts ...records.LoadOption) (*records.Store, error) {
	t, err := s.Tables(ctx)
	if err != nil {
		return nil, err
	}
	store, dropped := loader.Build(t, opts...)
	s.log.Info("dataset loaded from database",
		logger.String("db_type", s.dbType),
		logger.Int("records", store.Size()),
		logger.Int("unmatched", dropped))
	return store, nil
}

// Stats reports the stored row counts.
type Stats struct {
	Detectors     int64
	SpeciesCounts int64
}

// Stats counts the rows of both tables.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&Detector{}).Count(&st.Detectors).Error; err != nil {
		return Stats{}, dbError(err, "count", "table", "detectors")
	}
	if err := db.Model(&SpeciesCount{}).Count(&st.SpeciesCounts).Error; err != nil {
		return Stats{}, dbError(err, "count", "table", "species_counts")
	}
	return st, nil
}
