package views

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/batamp/batamp-explorer/internal/crossfilter"
	"github.com/batamp/batamp-explorer/internal/errors"
	"github.com/batamp/batamp-explorer/internal/logger"
	"github.com/batamp/batamp-explorer/internal/observability/metrics"
	"github.com/batamp/batamp-explorer/internal/records"
)

// Detail panel messages.
const (
	FiltersNotAppliedNotice = "Note: your filters are NOT applied to the following data."
	PresenceOnlyWarning     = "Note: this detector monitored nightly occurrence instead of nightly activity; only one detection was recorded per night for each species."
	NoDetectionsWarning     = "No species were detected on any night."
)

const (
	DefaultDetailTTL     = 10 * time.Minute
	DefaultDetailCleanup = 15 * time.Minute
)

// SpeciesTotal is one species row of a detail panel.
type SpeciesTotal struct {
	Species        string  `json:"species"`
	Label          string  `json:"label"`
	Total          float64 `json:"total"`
	Detections     float64 `json:"detections"`
	DetectorNights float64 `json:"detectorNights"`
}

// SpeciesMonths holds a species' monthly totals, January first.
type SpeciesMonths struct {
	Species string      `json:"species"`
	Months  [12]float64 `json:"months"`
}

// YearTotal is the total for one year.
type YearTotal struct {
	Year  int     `json:"year"`
	Total float64 `json:"total"`
}

// DetectorTotal is the total for one detector of the entity.
type DetectorTotal struct {
	DetID          int     `json:"detId"`
	SiteName       string  `json:"siteName,omitempty"`
	CountType      string  `json:"countType,omitempty"`
	Total          float64 `json:"total"`
	DetectorNights float64 `json:"detectorNights"`
}

// Detail is the unfiltered history of one entity. Slices are shared
// between callers and must not be modified.
type Detail struct {
	EntityField    string          `json:"entityField"`
	ID             records.Value   `json:"id"`
	ValueField     string          `json:"valueField"`
	MetricLabel    string          `json:"metricLabel"`
	Total          float64         `json:"total"`
	Detections     float64         `json:"detections"`
	DetectorNights float64         `json:"detectorNights"`
	Detectors      int             `json:"detectors"`
	BySpecies      []SpeciesTotal  `json:"bySpecies"`
	BySpeciesMonth []SpeciesMonths `json:"bySpeciesMonth"`
	ByYear         []YearTotal     `json:"byYear"`
	ByDetector     []DetectorTotal `json:"byDetector"`
	FiltersApplied bool            `json:"filtersApplied"`
	Notices        []string        `json:"notices,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`

	rows int
}

// SpeciesWarning returns a warning when species was never detected by the
// entity, or "" when it was.
func (d *Detail) SpeciesWarning(species string) string {
	for _, s := range d.BySpecies {
		if s.Species == species && s.Detections > 0 {
			return ""
		}
	}
	name := species
	if info, ok := records.Species[species]; ok {
		name = info.CommonName
	}
	return name + " was not detected on any night."
}

// DetailService computes detail panel rollups from the unfiltered store.
// Rollups are cached per entity and metric. It is safe for concurrent use.
type DetailService struct {
	store    *records.Store
	cache    *cache.Cache
	group    singleflight.Group
	recorder metrics.Recorder
	log      logger.Logger
}

// DetailOption configures a DetailService.
type DetailOption func(*DetailService, *detailConfig)

type detailConfig struct {
	ttl     time.Duration
	cleanup time.Duration
}

// WithCacheTTL sets how long rollups are cached and how often expired ones
// are purged. A zero cleanup interval disables the purge goroutine.
func WithCacheTTL(ttl, cleanup time.Duration) DetailOption {
	return func(_ *DetailService, c *detailConfig) {
		c.ttl = ttl
		c.cleanup = cleanup
	}
}

// WithDetailMetrics records cache lookups and rollup timings.
func WithDetailMetrics(recorder metrics.Recorder) DetailOption {
	return func(ds *DetailService, _ *detailConfig) { ds.recorder = recorder }
}

// WithDetailLogger sets the service logger.
func WithDetailLogger(log logger.Logger) DetailOption {
	return func(ds *DetailService, _ *detailConfig) { ds.log = log }
}

// NewDetailService creates a detail service over store, which should be the
// session's source store so that details ignore every filter.
func NewDetailService(store *records.Store, opts ...DetailOption) *DetailService {
	ds := &DetailService{
		store:    store,
		recorder: metrics.NoOpRecorder{},
		log:      GetLogger(),
	}
	cfg := detailConfig{ttl: DefaultDetailTTL, cleanup: DefaultDetailCleanup}
	for _, opt := range opts {
		opt(ds, &cfg)
	}
	ds.cache = cache.New(cfg.ttl, cfg.cleanup)
	return ds
}

// NewSessionDetailService creates a detail service over the session's source
// store. The cache is flushed when the session is closed.
func NewSessionDetailService(s *crossfilter.Session, opts ...DetailOption) *DetailService {
	ds := NewDetailService(s.Source(), opts...)
	s.OnClose(func() error {
		ds.Close()
		return nil
	})
	return ds
}

// ForSession returns the detail for one entity using the session's metric.
// The session's filters are not applied; when any are visible the detail
// carries FiltersNotAppliedNotice.
func (ds *DetailService) ForSession(s *crossfilter.Session, field string, id records.Value) (*Detail, error) {
	return ds.Detail(field, id, s.ValueField(), s.HasVisibleFilters())
}

// Detail returns the rollups for the entity field=id.
func (ds *DetailService) Detail(field string, id records.Value, vf crossfilter.ValueField, filtersVisible bool) (*Detail, error) {
	base, err := ds.detail(field, id, vf)
	if err != nil {
		return nil, err
	}

	d := *base
	if filtersVisible {
		d.Notices = []string{FiltersNotAppliedNotice}
	}
	return &d, nil
}

// Prefetch computes and caches details for ids concurrently.
func (ds *DetailService) Prefetch(ctx context.Context, field string, ids []records.Value, vf crossfilter.ValueField) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := ds.detail(field, id, vf)
			return err
		})
	}
	return g.Wait()
}

// Close drops every cached rollup.
func (ds *DetailService) Close() {
	ds.cache.Flush()
}

func (ds *DetailService) detail(field string, id records.Value, vf crossfilter.ValueField) (*Detail, error) {
	fieldID, ok := records.LookupField(field)
	if !ok || !IsEntityField(field) {
		return nil, errors.Newf("%s is not an entity field", field).
			Component("views").
			Category(errors.CategoryValidation).
			Field(field).
			Build()
	}
	id = coerceID(fieldID, id)
	display := DisplayValueField(vf)

	key := fmt.Sprintf("%s|%v|%s", fieldID, id, display.Name)
	if cached, found := ds.cache.Get(key); found {
		ds.recorder.RecordOperation(metrics.OpCacheGet, metrics.StatusHit)
		return cached.(*Detail), nil
	}
	ds.recorder.RecordOperation(metrics.OpCacheGet, metrics.StatusMiss)

	v, err, _ := ds.group.Do(key, func() (any, error) {
		start := time.Now()
		d := ds.rollup(fieldID, id, display)
		if d.rows == 0 {
			ds.recorder.RecordOperation(metrics.OpDetail, metrics.StatusError)
			ds.recorder.RecordError(metrics.OpDetail, string(errors.CategoryNotFound))
			return nil, errors.Newf("no records for %s=%v", field, id).
				Component("views").
				Category(errors.CategoryNotFound).
				Field(field).
				Build()
		}
		ds.cache.SetDefault(key, d)
		ds.recorder.RecordOperation(metrics.OpDetail, metrics.StatusSuccess)
		ds.recorder.RecordDuration(metrics.OpDetail, time.Since(start).Seconds())
		ds.log.Debug("detail computed",
			logger.String("field", field),
			logger.Any("id", id),
			logger.String("value_field", display.Name),
			logger.Int("records", d.rows),
			logger.Duration("elapsed", time.Since(start)))
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Detail), nil
}

// DisplayValueField maps the session metric to the one detail panels show.
// Distinct counts are meaningless within one entity, so they show the
// number of nights with detections instead.
func DisplayValueField(vf crossfilter.ValueField) crossfilter.ValueField {
	if vf.Kind == crossfilter.DistinctCount {
		return crossfilter.MustValueField("detectionNights")
	}
	return vf
}

// coerceID converts ids given as text or JSON numbers to the field's type.
func coerceID(field records.FieldID, id records.Value) records.Value {
	switch field {
	case records.FieldDetID, records.FieldSiteID:
		switch v := id.(type) {
		case float64:
			return int(v)
		case int64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	default:
		if n, ok := id.(int); ok {
			return strconv.Itoa(n)
		}
	}
	return id
}

// tally accumulates one metric for a group of rows.
type tally struct {
	count           int
	sum             float64
	detectionNights float64
	detectorNights  float64
	detections      float64
}

func (t *tally) add(r records.Record, vf crossfilter.ValueField) {
	t.count++
	t.detectionNights += r.DetectionNights
	t.detectorNights += r.DetectorNights
	t.detections += r.Detections
	if vf.Kind == crossfilter.Sum {
		t.sum += r.Metric(vf.Name)
	}
}

func (t *tally) value(vf crossfilter.ValueField) float64 {
	switch vf.Kind {
	case crossfilter.Sum:
		return t.sum
	case crossfilter.Rate:
		nights := t.detectorNights
		if nights == 0 {
			nights = 1
		}
		return 100 * t.detectionNights / nights
	}
	return float64(t.count)
}

func (ds *DetailService) rollup(field records.FieldID, id records.Value, vf crossfilter.ValueField) *Detail {
	var (
		total       tally
		species     = make(map[string]*tally)
		months      = make(map[string]*[12]tally)
		years       = make(map[int]*tally)
		detectors   = make(map[int]*tally)
		detMeta     = make(map[int]records.Record)
		presentOnly bool
	)

	for _, r := range ds.store.All() {
		if r.FieldByID(field) != id {
			continue
		}
		total.add(r, vf)
		if r.CountType == "p" {
			presentOnly = true
		}

		if sp := r.Species; sp != "" {
			if species[sp] == nil {
				species[sp] = &tally{}
				months[sp] = &[12]tally{}
			}
			species[sp].add(r, vf)
			if r.Month >= 1 && r.Month <= 12 && !r.IsNull(records.FieldMonth) {
				months[sp][r.Month-1].add(r, vf)
			}
		}
		if !r.IsNull(records.FieldYear) {
			if years[r.Year] == nil {
				years[r.Year] = &tally{}
			}
			years[r.Year].add(r, vf)
		}
		if detectors[r.DetID] == nil {
			detectors[r.DetID] = &tally{}
			detMeta[r.DetID] = r
		}
		detectors[r.DetID].add(r, vf)
	}

	d := &Detail{
		EntityField:    field.String(),
		ID:             id,
		ValueField:     vf.Name,
		MetricLabel:    vf.Label(),
		Total:          total.value(vf),
		Detections:     total.detections,
		DetectorNights: total.detectorNights,
		Detectors:      len(detectors),
		FiltersApplied: false,
		rows:           total.count,
	}

	for sp, t := range species {
		d.BySpecies = append(d.BySpecies, SpeciesTotal{
			Species:        sp,
			Label:          records.SpeciesLabel(sp),
			Total:          t.value(vf),
			Detections:     t.detections,
			DetectorNights: t.detectorNights,
		})
	}
	slices.SortFunc(d.BySpecies, func(a, b SpeciesTotal) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	for _, s := range d.BySpecies {
		sm := SpeciesMonths{Species: s.Species}
		for m := range months[s.Species] {
			sm.Months[m] = months[s.Species][m].value(vf)
		}
		d.BySpeciesMonth = append(d.BySpeciesMonth, sm)
	}

	for y, t := range years {
		d.ByYear = append(d.ByYear, YearTotal{Year: y, Total: t.value(vf)})
	}
	slices.SortFunc(d.ByYear, func(a, b YearTotal) int { return cmp.Compare(a.Year, b.Year) })

	for detID, t := range detectors {
		meta := detMeta[detID]
		d.ByDetector = append(d.ByDetector, DetectorTotal{
			DetID:          detID,
			SiteName:       meta.SiteName,
			CountType:      meta.CountType,
			Total:          t.value(vf),
			DetectorNights: t.detectorNights,
		})
	}
	slices.SortFunc(d.ByDetector, func(a, b DetectorTotal) int { return cmp.Compare(a.DetID, b.DetID) })

	if presentOnly && vf.Name == "detections" {
		d.Warnings = append(d.Warnings, PresenceOnlyWarning)
	}
	if total.count > 0 && total.detections == 0 {
		d.Warnings = append(d.Warnings, NoDetectionsWarning)
	}
	return d
}
