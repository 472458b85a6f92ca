package crossfilter

import (
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"

	"github.com/batamp/batamp-explorer/internal/errors"
	"github.com/batamp/batamp-explorer/internal/logger"
	"github.com/batamp/batamp-explorer/internal/observability/metrics"
	"github.com/batamp/batamp-explorer/internal/records"
)

// Operation names used for logging and metrics.
const (
	OpSetFilter     = "set_filter"
	OpSetRange      = "set_range"
	OpSetBounds     = "set_bounds"
	OpResetFilters  = "reset_filters"
	OpSetValueField = "set_value_field"
	OpAggregate     = "aggregate"
)

// Session owns the dimensions of one store and the filter state applied to
// them. Every mutation recomputes the Result before returning.
//
// A Session has a single owner and is not safe for concurrent use.
// Independent sessions over the same store do not share state.
type Session struct {
	id    string
	store *records.Store
	// source is the store before any pre-filter
	source  *records.Store
	dims    []*Dimension
	byField map[string]int
	// overrides[i] is dimension i's own value field, zero when it follows the session
	overrides []ValueField
	engine    *engine

	state  FilterState
	vf     ValueField
	result Result

	log      logger.Logger
	recorder metrics.Recorder
	closers  []func() error
	closed   bool
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	valueField string
	log        logger.Logger
	recorder   metrics.Recorder
	preFilter  func(records.Record) bool
}

// WithValueField sets the initial metric; the default counts rows.
func WithValueField(name string) Option {
	return func(o *sessionOptions) { o.valueField = name }
}

// WithLogger sets the session logger.
func WithLogger(log logger.Logger) Option {
	return func(o *sessionOptions) { o.log = log }
}

// WithMetrics records mutations and aggregation timings.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(o *sessionOptions) { o.recorder = recorder }
}

// WithPreFilter restricts the session to records accepted by keep before
// any dimension is built. Totals never include the excluded records.
func WithPreFilter(keep func(records.Record) bool) Option {
	return func(o *sessionOptions) { o.preFilter = keep }
}

// NewSession indexes store by every configured dimension and computes the
// unfiltered Result.
func NewSession(store *records.Store, configs []FilterConfig, opts ...Option) (*Session, error) {
	o := sessionOptions{recorder: metrics.NoOpRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}

	if err := validateConfigs(configs); err != nil {
		return nil, errors.New(err).
			Component("crossfilter").
			Category(errors.CategoryConfiguration).
			Build()
	}

	vf, err := ResolveValueField(o.valueField)
	if err != nil {
		return nil, configError(err, o.valueField)
	}

	source := store
	if o.preFilter != nil {
		rows := make([]records.Record, 0, store.Size())
		for _, r := range store.All() {
			rows = append(rows, r)
		}
		store = records.Load(rows, records.WithKeep(o.preFilter))
	}

	s := &Session{
		id:        uuid.NewString(),
		store:     store,
		source:    source,
		byField:   make(map[string]int, len(configs)),
		overrides: make([]ValueField, len(configs)),
		vf:        vf,
		recorder:  o.recorder,
	}

	log := o.log
	if log == nil {
		log = GetLogger()
	}
	s.log = log.With(logger.String("session_id", s.id))

	for i, cfg := range configs {
		d, err := NewDimension(store, cfg)
		if err != nil {
			return nil, configError(err, cfg.Field)
		}
		s.dims = append(s.dims, d)
		s.byField[cfg.Field] = i
		if cfg.ValueField != "" {
			s.overrides[i], _ = ResolveValueField(cfg.ValueField)
		}
	}

	s.engine = newEngine(store, s.dims)
	s.recompute(OpAggregate)

	s.log.Debug("session created",
		logger.Int("records", store.Size()),
		logger.Int("dimensions", len(s.dims)),
		logger.String("value_field", vf.String()))

	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Store returns the records the session indexes, after any pre-filter.
func (s *Session) Store() *records.Store { return s.store }

// Source returns the store the session was created from, including records
// excluded by a pre-filter.
func (s *Session) Source() *records.Store { return s.source }

// Result returns the aggregate computed by the last mutation.
func (s *Session) Result() Result { return s.result }

// Totals returns the value to total map of a registered dimension from the
// current Result. An unregistered field fails with ErrDimensionNotFound and
// is logged and counted like any other configuration error. Internal
// dimensions are registered but report no buckets.
func (s *Session) Totals(field string) (map[records.Value]float64, error) {
	d, err := s.lookup(OpAggregate, field)
	if err != nil {
		return nil, err
	}
	if d.Internal() {
		return map[records.Value]float64{}, nil
	}
	return s.result.Totals(field), nil
}

// State returns the current filter state.
func (s *Session) State() FilterState { return s.state }

// ValueField returns the current metric.
func (s *Session) ValueField() ValueField { return s.vf }

// HasVisibleFilters reports whether a non-internal dimension is filtered.
func (s *Session) HasVisibleFilters() bool { return s.result.HasVisibleFilters }

// Dimension returns the dimension for field.
func (s *Session) Dimension(field string) (*Dimension, bool) {
	i, ok := s.byField[field]
	if !ok {
		return nil, false
	}
	return s.dims[i], true
}

// Configs returns the dimension configurations in registration order.
func (s *Session) Configs() []FilterConfig {
	out := make([]FilterConfig, len(s.dims))
	for i, d := range s.dims {
		out[i] = d.cfg
	}
	return out
}

// FilteredRows returns the ids of rows passing every active filter.
func (s *Session) FilteredRows() *roaring.Bitmap {
	return s.engine.filteredRows()
}

// SetFilter replaces the filter on field with the given values. No values
// clears the filter.
func (s *Session) SetFilter(field string, values ...records.Value) error {
	d, err := s.lookup(OpSetFilter, field)
	if err != nil {
		return err
	}

	normalized := make([]records.Value, len(values))
	for i, v := range values {
		normalized[i] = d.Normalize(v)
	}
	return s.apply(OpSetFilter, s.state.With(field, NewValueSet(normalized...)))
}

// SetRange filters field to numeric values within [lo, hi].
func (s *Session) SetRange(field string, lo, hi float64) error {
	if _, err := s.lookup(OpSetRange, field); err != nil {
		return err
	}
	return s.apply(OpSetRange, s.state.With(field, NewRange(lo, hi)))
}

// SetPredicate installs an arbitrary predicate on field; nil clears it.
func (s *Session) SetPredicate(field string, p Predicate) error {
	if _, err := s.lookup(OpSetFilter, field); err != nil {
		return err
	}
	return s.apply(OpSetFilter, s.state.With(field, p))
}

// SetBounds filters the lat and lon dimensions to a rectangle. nil clears both.
func (s *Session) SetBounds(b *Bounds) error {
	if s.closed {
		return ErrSessionClosed
	}
	_, hasLat := s.byField["lat"]
	_, hasLon := s.byField["lon"]
	if !hasLat || !hasLon {
		err := configError(ErrBoundsNotConfigured, "lat,lon")
		s.warnConfig(OpSetBounds, "filter requested on spatial dimensions that do not exist", err)
		return err
	}

	if b == nil {
		return s.apply(OpSetBounds, s.state.Without("lat", "lon"))
	}
	next := s.state.
		With("lon", NewRange(b[0], b[2])).
		With("lat", NewRange(b[1], b[3]))
	return s.apply(OpSetBounds, next)
}

// ResetFilters clears the named fields in one step. If any field is unknown
// nothing is cleared.
func (s *Session) ResetFilters(fields ...string) error {
	if s.closed {
		return ErrSessionClosed
	}
	for _, f := range fields {
		if _, err := s.lookup(OpResetFilters, f); err != nil {
			return err
		}
	}
	return s.apply(OpResetFilters, s.state.Without(fields...))
}

// ResetAll clears every filter.
func (s *Session) ResetAll() error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.apply(OpResetFilters, FilterState{})
}

// SetValueField switches the metric without touching any filter.
func (s *Session) SetValueField(name string) error {
	if s.closed {
		return ErrSessionClosed
	}
	vf, err := ResolveValueField(name)
	if err != nil {
		err = configError(err, name)
		s.warnConfig(OpSetValueField, "unknown value field", err)
		return err
	}
	s.vf = vf
	s.recompute(OpSetValueField)
	return nil
}

// Close releases the session's indexes and runs registered close hooks.
// Further mutations fail with ErrSessionClosed.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	s.dims = nil
	s.engine = nil
	s.byField = nil

	s.log.Debug("session closed")
	return errors.Join(errs...)
}

// OnClose registers fn to run when the session is closed, for views that
// hold resources tied to the session's lifetime.
func (s *Session) OnClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Session) lookup(op, field string) (*Dimension, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	i, ok := s.byField[field]
	if !ok {
		err := configError(ErrDimensionNotFound, field)
		msg := "filter requested on dimension that does not exist"
		if op == OpAggregate {
			msg = "aggregate requested on dimension that does not exist"
		}
		s.warnConfig(op, msg, err)
		return nil, err
	}
	return s.dims[i], nil
}

func (s *Session) warnConfig(op, msg string, err error) {
	s.log.Warn(msg,
		logger.String("operation", op),
		logger.Error(err))
	s.recorder.RecordOperation(op, "error")
	s.recorder.RecordError(op, string(errors.CategoryConfiguration))
}

// apply installs next as the filter state and recomputes the result.
func (s *Session) apply(op string, next FilterState) error {
	for _, d := range s.dims {
		d.SetFilter(next.Get(d.Field()))
	}
	s.state = next
	s.recompute(op)
	return nil
}

func (s *Session) recompute(op string) {
	start := time.Now()

	visible := false
	for _, f := range s.state.Fields() {
		if i, ok := s.byField[f]; ok && !s.dims[i].Internal() {
			visible = true
			break
		}
	}

	result, recomputed := s.engine.aggregate(s.vf, s.overrides, visible)
	s.result = result

	elapsed := time.Since(start)
	s.recorder.RecordOperation(op, "success")
	s.recorder.RecordDuration(OpAggregate, elapsed.Seconds())

	s.log.Debug("aggregate recomputed",
		logger.String("operation", op),
		logger.String("filters", s.state.String()),
		logger.Int("dimensions_recomputed", recomputed),
		logger.Float64("filtered_total", result.FilteredTotal),
		logger.Duration("elapsed", elapsed))
}
