package loader

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/batamp/batamp-explorer/internal/errors"
	"github.com/batamp/batamp-explorer/internal/records"
)

// Feather files are Arrow IPC files (feather v2). Only the columns named
// here are read; anything else in the file is ignored.
var (
	detectorColumns = []string{"id", "source", "countType", "siteId", "lat", "lon", "admin1Name"}
	speciesColumns  = []string{"detId", "species", "month", "year", "detections", "detectionNights", "detectorNights"}
)

// featherTable is an open Arrow IPC file.
type featherTable struct {
	path string
	file *os.File
	r    *ipc.FileReader
}

func openFeather(path string, required []string) (*featherTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("loader").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		_ = f.Close()
		return nil, parseError(err, path, string(FormatFeather))
	}

	t := &featherTable{path: path, file: f, r: r}
	for _, name := range required {
		if len(r.Schema().FieldIndices(name)) == 0 {
			_ = t.Close()
			return nil, parseError(fmt.Errorf("missing column %q", name), path, string(FormatFeather))
		}
	}
	return t, nil
}

func (t *featherTable) Close() error {
	t.r.Close()
	return t.file.Close()
}

// each calls fn for every row of every record batch.
func (t *featherTable) each(ctx context.Context, fn func(b batch, i int) error) error {
	for n := 0; n < t.r.NumRecords(); n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := t.r.Record(n)
		if err != nil {
			return parseError(err, t.path, string(FormatFeather))
		}
		b := batch{rec: rec}
		for i := 0; i < int(rec.NumRows()); i++ {
			if err := fn(b, i); err != nil {
				return parseError(err, t.path, string(FormatFeather))
			}
		}
	}
	return nil
}

// batch reads typed cells from one record batch.
type batch struct {
	rec arrow.Record
}

func (b batch) column(name string) arrow.Array {
	idx := b.rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	return b.rec.Column(idx[0])
}

func (b batch) str(name string, i int) (string, bool) {
	return stringAt(b.column(name), i)
}

func (b batch) float(name string, i int) (float64, bool) {
	return floatAt(b.column(name), i)
}

func (b batch) integer(name string, i int) (int, bool) {
	f, ok := b.float(name, i)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func stringAt(arr arrow.Array, i int) (string, bool) {
	if arr == nil || arr.IsNull(i) {
		return "", false
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i), true
	case *array.LargeString:
		return a.Value(i), true
	case *array.Dictionary:
		return stringAt(a.Dictionary(), a.GetValueIndex(i))
	}
	if f, ok := floatAt(arr, i); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

func floatAt(arr arrow.Array, i int) (float64, bool) {
	if arr == nil || arr.IsNull(i) {
		return 0, false
	}
	switch a := arr.(type) {
	case *array.Float64:
		v := a.Value(i)
		return v, !math.IsNaN(v)
	case *array.Float32:
		v := float64(a.Value(i))
		return v, !math.IsNaN(v)
	case *array.Int8:
		return float64(a.Value(i)), true
	case *array.Int16:
		return float64(a.Value(i)), true
	case *array.Int32:
		return float64(a.Value(i)), true
	case *array.Int64:
		return float64(a.Value(i)), true
	case *array.Uint8:
		return float64(a.Value(i)), true
	case *array.Uint16:
		return float64(a.Value(i)), true
	case *array.Uint32:
		return float64(a.Value(i)), true
	case *array.Uint64:
		return float64(a.Value(i)), true
	case *array.Dictionary:
		return floatAt(a.Dictionary(), a.GetValueIndex(i))
	case *array.String:
		f, err := strconv.ParseFloat(a.Value(i), 64)
		return f, err == nil
	}
	return 0, false
}

// ReadFeatherDetectors reads the detectors table from an Arrow IPC file.
func ReadFeatherDetectors(ctx context.Context, path string) ([]Detector, error) {
	t, err := openFeather(path, detectorColumns)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()

	var out []Detector
	err = t.each(ctx, func(b batch, i int) error {
		var d Detector
		var ok bool
		if d.ID, ok = b.integer("id", i); !ok {
			return fmt.Errorf("row %d: missing detector id", len(out))
		}
		if d.Source, ok = b.str("source", i); !ok {
			d.Nulls = append(d.Nulls, records.FieldSource)
		}
		if d.CountType, ok = b.str("countType", i); !ok {
			d.Nulls = append(d.Nulls, records.FieldCountType)
		}
		if d.SiteID, ok = b.integer("siteId", i); !ok {
			d.Nulls = append(d.Nulls, records.FieldSiteID)
		}
		if d.SiteName, ok = b.str("siteName", i); !ok {
			d.Nulls = append(d.Nulls, records.FieldSiteName)
		}
		if d.Lat, ok = b.float("lat", i); !ok {
			d.Nulls = append(d.Nulls, records.FieldLat)
		}
		if d.Lon, ok = b.float("lon", i); !ok {
			d.Nulls = append(d.Nulls, records.FieldLon)
		}
		if d.Admin1Name, ok = b.str("admin1Name", i); !ok {
			d.Nulls = append(d.Nulls, records.FieldAdmin1Name)
		}
		if d.Country, ok = b.str("country", i); !ok {
			d.Nulls = append(d.Nulls, records.FieldCountry)
		}
		for l, level := range records.H3Levels {
			if d.H3[l], ok = b.str(level, i); !ok {
				d.Nulls = append(d.Nulls, records.FieldH3L4+records.FieldID(l))
			}
		}
		out = append(out, d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadFeatherSpecies reads the species detections table from an Arrow IPC
// file. Integer species columns hold coded ids and are decoded here.
func ReadFeatherSpecies(ctx context.Context, path string) ([]SpeciesCount, error) {
	t, err := openFeather(path, speciesColumns)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()

	var out []SpeciesCount
	err = t.each(ctx, func(b batch, i int) error {
		var c SpeciesCount
		var ok bool
		if c.DetID, ok = b.integer("detId", i); !ok {
			return fmt.Errorf("row %d: missing detId", len(out))
		}
		c.Species, ok = speciesAt(b.column("species"), i)
		if !ok {
			c.Nulls = append(c.Nulls, records.FieldSpecies)
		}
		if c.Month, ok = b.integer("month", i); !ok {
			c.Nulls = append(c.Nulls, records.FieldMonth)
		}
		if c.Year, ok = b.integer("year", i); !ok {
			c.Nulls = append(c.Nulls, records.FieldYear)
		}
		if c.Detections, ok = b.float("detections", i); !ok {
			c.Nulls = append(c.Nulls, records.FieldDetections)
		}
		if c.DetectionNights, ok = b.float("detectionNights", i); !ok {
			c.Nulls = append(c.Nulls, records.FieldDetectionNights)
		}
		if c.DetectorNights, ok = b.float("detectorNights", i); !ok {
			c.Nulls = append(c.Nulls, records.FieldDetectorNights)
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// speciesAt returns a species code, decoding numeric ids.
func speciesAt(arr arrow.Array, i int) (string, bool) {
	if arr == nil || arr.IsNull(i) {
		return "", false
	}
	switch arr.(type) {
	case *array.String, *array.LargeString:
		return stringAt(arr, i)
	case *array.Dictionary:
		if s, ok := stringAt(arr, i); ok {
			if code, ok := records.DecodeSpeciesID(s); ok {
				return code, true
			}
			return s, true
		}
		return "", false
	}
	f, ok := floatAt(arr, i)
	if !ok {
		return "", false
	}
	return records.DecodeSpeciesNumber(int(f))
}
