package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/batamp/batamp-explorer/internal/errors"
	"github.com/batamp/batamp-explorer/internal/records"
)

// csvRow is one CSV record indexed by header name.
type csvRow struct {
	header map[string]int
	cells  []string
}

func (r csvRow) str(name string) (string, bool) {
	i, ok := r.header[name]
	if !ok || i >= len(r.cells) {
		return "", false
	}
	v := strings.TrimSpace(r.cells[i])
	if v == "" || strings.EqualFold(v, "NA") || strings.EqualFold(v, "null") {
		return "", false
	}
	return v, true
}

func (r csvRow) float(name string) (float64, bool) {
	s, ok := r.str(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func (r csvRow) integer(name string) (int, bool) {
	f, ok := r.float(name)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// readCSV streams the rows of a headed CSV file to fn.
func readCSV(ctx context.Context, path string, required []string, fn func(csvRow) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.New(err).
			Component("loader").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	names, err := cr.Read()
	if err != nil {
		return parseError(fmt.Errorf("reading header: %w", err), path, string(FormatCSV))
	}
	header := make(map[string]int, len(names))
	for i, n := range names {
		header[strings.TrimSpace(strings.TrimPrefix(n, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := header[name]; !ok {
			return parseError(fmt.Errorf("missing column %q", name), path, string(FormatCSV))
		}
	}

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		cells, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return parseError(err, path, string(FormatCSV))
		}
		if err := fn(csvRow{header: header, cells: cells}); err != nil {
			return parseError(fmt.Errorf("line %d: %w", line, err), path, string(FormatCSV))
		}
	}
}

// ReadCSVDetectors reads the detectors table from a CSV file.
func ReadCSVDetectors(ctx context.Context, path string) ([]Detector, error) {
	var out []Detector
	err := readCSV(ctx, path, detectorColumns, func(r csvRow) error {
		var d Detector
		var ok bool
		if d.ID, ok = r.integer("id"); !ok {
			return fmt.Errorf("missing detector id")
		}
		if d.Source, ok = r.str("source"); !ok {
			d.Nulls = append(d.Nulls, records.FieldSource)
		}
		if d.CountType, ok = r.str("countType"); !ok {
			d.Nulls = append(d.Nulls, records.FieldCountType)
		}
		if d.SiteID, ok = r.integer("siteId"); !ok {
			d.Nulls = append(d.Nulls, records.FieldSiteID)
		}
		if d.SiteName, ok = r.str("siteName"); !ok {
			d.Nulls = append(d.Nulls, records.FieldSiteName)
		}
		if d.Lat, ok = r.float("lat"); !ok {
			d.Nulls = append(d.Nulls, records.FieldLat)
		}
		if d.Lon, ok = r.float("lon"); !ok {
			d.Nulls = append(d.Nulls, records.FieldLon)
		}
		if d.Admin1Name, ok = r.str("admin1Name"); !ok {
			d.Nulls = append(d.Nulls, records.FieldAdmin1Name)
		}
		if d.Country, ok = r.str("country"); !ok {
			d.Nulls = append(d.Nulls, records.FieldCountry)
		}
		for l, level := range records.H3Levels {
			if d.H3[l], ok = r.str(level); !ok {
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

// ReadCSVSpecies reads the species detections table from a CSV file.
// Species cells may hold codes or coded ids; ids are decoded on load.
func ReadCSVSpecies(ctx context.Context, path string) ([]SpeciesCount, error) {
	var out []SpeciesCount
	err := readCSV(ctx, path, speciesColumns, func(r csvRow) error {
		var c SpeciesCount
		var ok bool
		if c.DetID, ok = r.integer("detId"); !ok {
			return fmt.Errorf("missing detId")
		}
		if c.Species, ok = r.str("species"); !ok {
			c.Nulls = append(c.Nulls, records.FieldSpecies)
		}
		if c.Month, ok = r.integer("month"); !ok {
			c.Nulls = append(c.Nulls, records.FieldMonth)
		}
		if c.Year, ok = r.integer("year"); !ok {
			c.Nulls = append(c.Nulls, records.FieldYear)
		}
		if c.Detections, ok = r.float("detections"); !ok {
			c.Nulls = append(c.Nulls, records.FieldDetections)
		}
		if c.DetectionNights, ok = r.float("detectionNights"); !ok {
			c.Nulls = append(c.Nulls, records.FieldDetectionNights)
		}
		if c.DetectorNights, ok = r.float("detectorNights"); !ok {
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
