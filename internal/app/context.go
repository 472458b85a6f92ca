// Package app holds the runtime state shared by the explorer's commands:
// settings, the central logger, telemetry and the metrics registry.
package app

import (
	"context"
	"time"

	"github.com/batamp/batamp-explorer/internal/buildinfo"
	"github.com/batamp/batamp-explorer/internal/conf"
	"github.com/batamp/batamp-explorer/internal/crossfilter"
	"github.com/batamp/batamp-explorer/internal/datastore"
	"github.com/batamp/batamp-explorer/internal/errors"
	"github.com/batamp/batamp-explorer/internal/loader"
	"github.com/batamp/batamp-explorer/internal/logger"
	"github.com/batamp/batamp-explorer/internal/observability"
	"github.com/batamp/batamp-explorer/internal/observability/metrics"
	"github.com/batamp/batamp-explorer/internal/records"
	"github.com/batamp/batamp-explorer/internal/views"
)

const sentryFlushTimeout = 2 * time.Second

// Context holds the application state. Commands receive it before flags are
// parsed; Init fills it once settings are loaded.
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Metrics  *observability.Metrics

	central *logger.CentralLogger
	log     logger.Logger
	closed  bool
}

// NewContext creates an uninitialized context.
func NewContext(build *buildinfo.Context) *Context {
	return &Context{Build: build, Settings: &conf.Settings{}}
}

// Init installs settings and starts logging, telemetry and metrics.
func (c *Context) Init(settings *conf.Settings) error {
	c.Settings = settings

	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}
	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	logger.SetGlobal(central)
	c.central = central
	c.log = central.Module("app")

	if settings.Sentry.Enabled {
		if err := errors.InitSentry(settings.Sentry.DSN, settings.Sentry.Environment, c.Build.GetVersion()); err != nil {
			c.log.Warn("telemetry disabled", logger.Error(err))
		}
	}

	if c.Metrics, err = observability.NewMetrics(); err != nil {
		return err
	}

	c.log.Debug("initialized",
		logger.String("version", c.Build.GetVersion()),
		logger.String("config", settings.ConfigFile),
		logger.String("format", settings.Data.Format))
	return nil
}

// Recorder returns the crossfilter metrics, or a no-op before Init.
func (c *Context) Recorder() metrics.Recorder {
	if c.Metrics == nil {
		return metrics.NoOpRecorder{}
	}
	return c.Metrics.Crossfilter
}

// Logger returns the application logger.
func (c *Context) Logger() logger.Logger {
	if c.log == nil {
		return logger.Global().Module("app")
	}
	return c.log
}

// LoadStore loads the configured dataset.
func (c *Context) LoadStore(ctx context.Context) (*records.Store, error) {
	data := c.Settings.Data

	var (
		store *records.Store
		err   error
	)
	switch data.Format {
	case conf.FormatDatabase:
		var db *datastore.Store
		db, err = datastore.Open(data.Database, datastore.WithMetrics(c.Recorder()))
		if err != nil {
			return nil, err
		}
		defer func() { _ = db.Close() }()
		store, err = db.LoadRecords(ctx)
	default:
		store, err = loader.New(loader.WithMetrics(c.Recorder())).Load(ctx, c.source())
	}
	if err != nil {
		return nil, err
	}

	if c.Metrics != nil {
		c.Metrics.Crossfilter.SetRecordsLoaded(store.Size())
	}
	return store, nil
}

// ReadTables reads the configured table files without joining them.
func (c *Context) ReadTables(ctx context.Context) (loader.Tables, error) {
	return loader.New(loader.WithMetrics(c.Recorder())).ReadTables(ctx, c.source())
}

func (c *Context) source() loader.Source {
	data := c.Settings.Data
	src := loader.Source{
		DetectorsPath: conf.ExpandPath(data.Detectors),
		SpeciesPath:   conf.ExpandPath(data.Species),
	}
	if data.Format != conf.FormatDatabase {
		src.Format = loader.Format(data.Format)
	}
	return src
}

// NewSession builds a session over store using the configured filter list,
// metric and pre-filter. opts are applied last.
func (c *Context) NewSession(store *records.Store, opts ...crossfilter.Option) (*crossfilter.Session, error) {
	cfg := c.Settings.Crossfilter

	configs, err := conf.LoadFilterConfigs(conf.ExpandPath(cfg.FiltersFile), store)
	if err != nil {
		return nil, err
	}
	keep, err := conf.ParsePreFilter(cfg.PreFilter)
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("prefilter", cfg.PreFilter).
			Build()
	}

	base := []crossfilter.Option{
		crossfilter.WithValueField(cfg.ValueField),
		crossfilter.WithMetrics(c.Recorder()),
	}
	if keep != nil {
		base = append(base, crossfilter.WithPreFilter(keep))
	}
	return crossfilter.NewSession(store, configs, append(base, opts...)...)
}

// NewDetailService creates a detail service tied to the session's lifetime.
func (c *Context) NewDetailService(s *crossfilter.Session) *views.DetailService {
	return views.NewSessionDetailService(s,
		views.WithCacheTTL(c.Settings.Views.DetailTTL, c.Settings.Views.DetailCleanup),
		views.WithDetailMetrics(c.Recorder()))
}

// BinMode returns the configured map bin mode.
func (c *Context) BinMode() views.BinMode {
	if c.Settings.Views.BinMode == "percent" {
		return views.ModePercent
	}
	return views.ModeCount
}

// Close writes the metrics textfile, flushes telemetry and closes log files.
// It is safe to call before or after a failed Init, and more than once.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.Metrics != nil && c.Settings.Metrics.Textfile != "" {
		if err := c.Metrics.WriteTextfile(conf.ExpandPath(c.Settings.Metrics.Textfile)); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Settings.Sentry.Enabled {
		errors.FlushSentry(sentryFlushTimeout)
	}
	if err := c.central.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
