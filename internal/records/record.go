// Package records holds the immutable row store the crossfilter engine indexes.
package records

import (
	"strconv"
)

// Value is a projected field value: string, int, float64, or nil when the
// field is missing for a record.
type Value = any

// FieldID identifies a record field.
type FieldID uint8

const (
	FieldSpecies FieldID = iota
	FieldDetID
	FieldSiteID
	FieldSiteName
	FieldMonth
	FieldYear
	FieldAdmin1Name
	FieldCountry
	FieldSource
	FieldCountType
	FieldDetections
	FieldDetectionNights
	FieldDetectorNights
	FieldLat
	FieldLon
	FieldH3L4
	FieldH3L5
	FieldH3L6
	FieldH3L7
	FieldH3L8
	fieldCount
)

// H3Levels lists the hex resolutions carried on each record.
var H3Levels = [...]string{"h3l4", "h3l5", "h3l6", "h3l7", "h3l8"}

var fieldNames = [fieldCount]string{
	FieldSpecies:         "species",
	FieldDetID:           "detId",
	FieldSiteID:          "siteId",
	FieldSiteName:        "siteName",
	FieldMonth:           "month",
	FieldYear:            "year",
	FieldAdmin1Name:      "admin1Name",
	FieldCountry:         "country",
	FieldSource:          "source",
	FieldCountType:       "countType",
	FieldDetections:      "detections",
	FieldDetectionNights: "detectionNights",
	FieldDetectorNights:  "detectorNights",
	FieldLat:             "lat",
	FieldLon:             "lon",
	FieldH3L4:            "h3l4",
	FieldH3L5:            "h3l5",
	FieldH3L6:            "h3l6",
	FieldH3L7:            "h3l7",
	FieldH3L8:            "h3l8",
}

var fieldsByName = func() map[string]FieldID {
	m := make(map[string]FieldID, fieldCount+1)
	for id, name := range fieldNames {
		m[name] = FieldID(id)
	}
	// detector tables call the detector id "id"
	m["id"] = FieldDetID
	return m
}()

// String returns the field name.
func (f FieldID) String() string {
	if f >= fieldCount {
		return "FieldID(" + strconv.Itoa(int(f)) + ")"
	}
	return fieldNames[f]
}

// LookupField resolves a field name, including the "id" alias for detId.
func LookupField(name string) (FieldID, bool) {
	id, ok := fieldsByName[name]
	return id, ok
}

// FieldNames returns all known field names in declaration order.
func FieldNames() []string {
	names := make([]string, fieldCount)
	copy(names, fieldNames[:])
	return names
}

// Record is one species detection aggregate for a detector, month and year,
// joined with the detector's location and metadata.
type Record struct {
	Species         string
	DetID           int
	SiteID          int
	SiteName        string
	Month           int
	Year            int
	Admin1Name      string
	Country         string
	Source          string
	CountType       string
	Detections      float64
	DetectionNights float64
	DetectorNights  float64
	Lat             float64
	Lon             float64
	H3              [len(H3Levels)]string

	nulls uint32
}

// WithNull returns a copy of r with the given fields marked missing.
// Loaders use it for empty cells and null column slots.
func (r Record) WithNull(fields ...FieldID) Record {
	for _, f := range fields {
		r.nulls |= 1 << f
	}
	return r
}

// IsNull reports whether the field is missing.
func (r Record) IsNull(f FieldID) bool {
	return r.nulls&(1<<f) != 0
}

// Field projects a field by name. Unknown names and missing values yield nil.
func (r Record) Field(name string) Value {
	id, ok := LookupField(name)
	if !ok {
		return nil
	}
	return r.FieldByID(id)
}

// FieldByID projects a field. Missing values, including empty strings, yield nil.
func (r Record) FieldByID(f FieldID) Value {
	if r.IsNull(f) {
		return nil
	}

	switch f {
	case FieldSpecies:
		return nonEmpty(r.Species)
	case FieldDetID:
		return r.DetID
	case FieldSiteID:
		return r.SiteID
	case FieldSiteName:
		return nonEmpty(r.SiteName)
	case FieldMonth:
		return r.Month
	case FieldYear:
		return r.Year
	case FieldAdmin1Name:
		return nonEmpty(r.Admin1Name)
	case FieldCountry:
		return nonEmpty(r.Country)
	case FieldSource:
		return nonEmpty(r.Source)
	case FieldCountType:
		return nonEmpty(r.CountType)
	case FieldDetections:
		return r.Detections
	case FieldDetectionNights:
		return r.DetectionNights
	case FieldDetectorNights:
		return r.DetectorNights
	case FieldLat:
		return r.Lat
	case FieldLon:
		return r.Lon
	case FieldH3L4, FieldH3L5, FieldH3L6, FieldH3L7, FieldH3L8:
		return nonEmpty(r.H3[f-FieldH3L4])
	}
	return nil
}

// Metric returns a numeric field as float64. Missing and non-numeric
// fields are 0, so sums never abort on a malformed record.
func (r Record) Metric(name string) float64 {
	v, ok := AsFloat(r.Field(name))
	if !ok {
		return 0
	}
	return v
}

// AsFloat converts a numeric Value to float64.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func nonEmpty(s string) Value {
	if s == "" {
		return nil
	}
	return s
}
