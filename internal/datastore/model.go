package datastore

import (
	"github.com/batamp/batamp-explorer/internal/loader"
	"github.com/batamp/batamp-explorer/internal/records"
)

// Detector is the detectors table. Nullable columns are pointers.
type Detector struct {
	ID         int `gorm:"primaryKey;autoIncrement:false"`
	Source     *string
	CountType  *string `gorm:"index:idx_detectors_count_type"`
	SiteID     *int    `gorm:"index:idx_detectors_site"`
	SiteName   *string
	Lat        *float64
	Lon        *float64
	Admin1Name *string `gorm:"index:idx_detectors_admin1"`
	Country    *string
	H3L4       *string `gorm:"column:h3l4"`
	H3L5       *string `gorm:"column:h3l5"`
	H3L6       *string `gorm:"column:h3l6"`
	H3L7       *string `gorm:"column:h3l7"`
	H3L8       *string `gorm:"column:h3l8"`
}

// SpeciesCount is the species detections table.
type SpeciesCount struct {
	ID              uint    `gorm:"primaryKey"`
	DetID           int     `gorm:"index:idx_species_counts_det;not null"`
	Species         *string `gorm:"index:idx_species_counts_species;type:varchar(8)"`
	Month           *int
	Year            *int `gorm:"index:idx_species_counts_year"`
	Detections      *float64
	DetectionNights *float64
	DetectorNights  *float64
}

func ptr[T any](v T, null bool) *T {
	if null {
		return nil
	}
	return &v
}

func val[T any](p *T, f records.FieldID, nulls *[]records.FieldID) T {
	if p == nil {
		*nulls = append(*nulls, f)
		var zero T
		return zero
	}
	return *p
}

func newDetector(d *loader.Detector) Detector {
	null := make(map[records.FieldID]bool, len(d.Nulls))
	for _, f := range d.Nulls {
		null[f] = true
	}
	row := Detector{
		ID:         d.ID,
		Source:     ptr(d.Source, null[records.FieldSource]),
		CountType:  ptr(d.CountType, null[records.FieldCountType]),
		SiteID:     ptr(d.SiteID, null[records.FieldSiteID]),
		SiteName:   ptr(d.SiteName, null[records.FieldSiteName]),
		Lat:        ptr(d.Lat, null[records.FieldLat]),
		Lon:        ptr(d.Lon, null[records.FieldLon]),
		Admin1Name: ptr(d.Admin1Name, null[records.FieldAdmin1Name]),
		Country:    ptr(d.Country, null[records.FieldCountry]),
	}
	h3 := [...]**string{&row.H3L4, &row.H3L5, &row.H3L6, &row.H3L7, &row.H3L8}
	for l, dst := range h3 {
		*dst = ptr(d.H3[l], null[records.FieldH3L4+records.FieldID(l)])
	}
	return row
}

func (row *Detector) toLoader() loader.Detector {
	var d loader.Detector
	d.ID = row.ID
	d.Source = val(row.Source, records.FieldSource, &d.Nulls)
	d.CountType = val(row.CountType, records.FieldCountType, &d.Nulls)
	d.SiteID = val(row.SiteID, records.FieldSiteID, &d.Nulls)
	d.SiteName = val(row.SiteName, records.FieldSiteName, &d.Nulls)
	d.Lat = val(row.Lat, records.FieldLat, &d.Nulls)
	d.Lon = val(row.Lon, records.FieldLon, &d.Nulls)
	d.Admin1Name = val(row.Admin1Name, records.FieldAdmin1Name, &d.Nulls)
	d.Country = val(row.Country, records.FieldCountry, &d.Nulls)
	for l, src := range [...]*string{row.H3L4, row.H3L5, row.H3L6, row.H3L7, row.H3L8} {
		d.H3[l] = val(src, records.FieldH3L4+records.FieldID(l), &d.Nulls)
	}
	return d
}

func newSpeciesCount(c *loader.SpeciesCount) SpeciesCount {
	null := make(map[records.FieldID]bool, len(c.Nulls))
	for _, f := range c.Nulls {
		null[f] = true
	}
	return SpeciesCount{
		DetID:           c.DetID,
		Species:         ptr(c.Species, null[records.FieldSpecies]),
		Month:           ptr(c.Month, null[records.FieldMonth]),
		Year:            ptr(c.Year, null[records.FieldYear]),
		Detections:      ptr(c.Detections, null[records.FieldDetections]),
		DetectionNights: ptr(c.DetectionNights, null[records.FieldDetectionNights]),
		DetectorNights:  ptr(c.DetectorNights, null[records.FieldDetectorNights]),
	}
}

func (row *SpeciesCount) toLoader() loader.SpeciesCount {
	var c loader.SpeciesCount
	c.DetID = row.DetID
	c.Species = val(row.Species, records.FieldSpecies, &c.Nulls)
	c.Month = val(row.Month, records.FieldMonth, &c.Nulls)
	c.Year = val(row.Year, records.FieldYear, &c.Nulls)
	c.Detections = val(row.Detections, records.FieldDetections, &c.Nulls)
	c.DetectionNights = val(row.DetectionNights, records.FieldDetectionNights, &c.Nulls)
	c.DetectorNights = val(row.DetectorNights, records.FieldDetectorNights, &c.Nulls)
	return c
}
