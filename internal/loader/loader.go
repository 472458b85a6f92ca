// Package loader reads the detector and species detection tables and joins
// them into a record store.
package loader

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/batamp/batamp-explorer/internal/errors"
	"github.com/batamp/batamp-explorer/internal/logger"
	"github.com/batamp/batamp-explorer/internal/observability/metrics"
	"github.com/batamp/batamp-explorer/internal/records"
)

// Format is an on-disk table format.
type Format string

const (
	FormatFeather Format = "feather"
	FormatCSV     Format = "csv"
)

// Detector is one row of the detectors table.
type Detector struct {
	ID         int
	Source     string
	CountType  string
	SiteID     int
	SiteName   string
	Lat        float64
	Lon        float64
	Admin1Name string
	Country    string
	H3         [len(records.H3Levels)]string

	// Nulls lists the record fields missing from this row.
	Nulls []records.FieldID
}

// SpeciesCount is one row of the species detections table: the detections
// of one species by one detector in one month.
type SpeciesCount struct {
	DetID int
	// Species is the species code or its numeric id, decoded on load.
	Species         string
	Month           int
	Year            int
	Detections      float64
	DetectionNights float64
	DetectorNights  float64

	Nulls []records.FieldID
}

// Tables holds both source tables.
type Tables struct {
	Detectors []Detector
	Counts    []SpeciesCount
}

// Source locates the two tables.
type Source struct {
	DetectorsPath string
	SpeciesPath   string
	// Format is detected from the file extension when empty.
	Format Format
}

// Loader reads tables and builds stores.
type Loader struct {
	log      logger.Logger
	recorder metrics.Recorder
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithMetrics records load timings.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(l *Loader) { l.recorder = recorder }
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{log: GetLogger(), recorder: metrics.NoOpRecorder{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".feather", ".arrow", ".ipc":
		return FormatFeather, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", errors.Newf("unsupported table format: %s", path).
		Component("loader").
		Category(errors.CategoryValidation).
		Context("path", path).
		Build()
}

// ReadTables reads both tables of src.
func (l *Loader) ReadTables(ctx context.Context, src Source) (Tables, error) {
	format := src.Format
	if format == "" {
		var err error
		if format, err = FormatOf(src.DetectorsPath); err != nil {
			return Tables{}, err
		}
	}

	var (
		t   Tables
		err error
	)
	switch format {
	case FormatFeather:
		if t.Detectors, err = ReadFeatherDetectors(ctx, src.DetectorsPath); err != nil {
			return Tables{}, err
		}
		if t.Counts, err = ReadFeatherSpecies(ctx, src.SpeciesPath); err != nil {
			return Tables{}, err
		}
	case FormatCSV:
		if t.Detectors, err = ReadCSVDetectors(ctx, src.DetectorsPath); err != nil {
			return Tables{}, err
		}
		if t.Counts, err = ReadCSVSpecies(ctx, src.SpeciesPath); err != nil {
			return Tables{}, err
		}
	default:
		return Tables{}, errors.Newf("unsupported table format: %s", format).
			Component("loader").
			Category(errors.CategoryValidation).
			Build()
	}
	return t, nil
}

// Load reads src and returns the joined store with species ids decoded.
func (l *Loader) Load(ctx context.Context, src Source, opts ...records.LoadOption) (*records.Store, error) {
	start := time.Now()

	t, err := l.ReadTables(ctx, src)
	if err != nil {
		l.recorder.RecordOperation(metrics.OpLoad, metrics.StatusError)
		l.log.Error("failed to read tables",
			logger.String("detectors", src.DetectorsPath),
			logger.String("species", src.SpeciesPath),
			logger.Error(err))
		return nil, err
	}

	store, dropped := Build(t, opts...)

	l.recorder.RecordOperation(metrics.OpLoad, metrics.StatusSuccess)
	l.recorder.RecordDuration(metrics.OpLoad, time.Since(start).Seconds())
	l.log.Info("dataset loaded",
		logger.Int("detectors", len(t.Detectors)),
		logger.Int("species_counts", len(t.Counts)),
		logger.Int("records", store.Size()),
		logger.Int("unmatched", dropped),
		logger.Duration("elapsed", time.Since(start)))

	return store, nil
}

// Build joins t and loads the result with species ids decoded. It also
// returns the number of counts that had no detector.
func Build(t Tables, opts ...records.LoadOption) (*records.Store, int) {
	rows, dropped := Join(t)
	opts = append([]records.LoadOption{records.WithTransform(records.DecodeSpecies)}, opts...)
	return records.Load(rows, opts...), dropped
}

// Join matches species counts to their detectors on detId. Counts without a
// detector are dropped and counted.
func Join(t Tables) (rows []records.Record, dropped int) {
	byID := make(map[int]*Detector, len(t.Detectors))
	for i := range t.Detectors {
		byID[t.Detectors[i].ID] = &t.Detectors[i]
	}

	rows = make([]records.Record, 0, len(t.Counts))
	for _, c := range t.Counts {
		d, ok := byID[c.DetID]
		if !ok {
			dropped++
			continue
		}
		r := records.Record{
			Species:         c.Species,
			DetID:           c.DetID,
			SiteID:          d.SiteID,
			SiteName:        d.SiteName,
			Month:           c.Month,
			Year:            c.Year,
			Admin1Name:      d.Admin1Name,
			Country:         d.Country,
			Source:          d.Source,
			CountType:       d.CountType,
			Detections:      c.Detections,
			DetectionNights: c.DetectionNights,
			DetectorNights:  c.DetectorNights,
			Lat:             d.Lat,
			Lon:             d.Lon,
			H3:              d.H3,
		}
		r = r.WithNull(d.Nulls...).WithNull(c.Nulls...)
		rows = append(rows, r)
	}
	return rows, dropped
}

// parseError reports a malformed table as a file parsing error.
func parseError(err error, path, format string) error {
	return errors.New(err).
		Component("loader").
		Category(errors.CategoryFileParsing).
		Context("path", path).
		Context("format", format).
		Build()
}
