package crossfilter

import (
	"fmt"

	"github.com/batamp/batamp-explorer/internal/records"
)

// ValueKind selects how rows are aggregated.
type ValueKind uint8

const (
	// Count counts matching rows.
	Count ValueKind = iota
	// Sum adds a numeric field over matching rows.
	Sum
	// DistinctCount counts distinct identifiers among matching rows with detections.
	DistinctCount
	// Rate is the percent of monitored nights with detections.
	Rate
)

func (k ValueKind) String() string {
	switch k {
	case Count:
		return "count"
	case Sum:
		return "sum"
	case DistinctCount:
		return "distinct"
	case Rate:
		return "rate"
	}
	return fmt.Sprintf("ValueKind(%d)", uint8(k))
}

// DetectionRateField is the derived detection rate metric.
const DetectionRateField = "detectionRate"

// positiveMetric gates distinct identity counts.
const positiveMetric = records.FieldDetections

// ValueField is the resolved aggregation metric. Resolve it once with
// ResolveValueField; aggregation never dispatches on the name per row.
type ValueField struct {
	Kind  ValueKind
	Name  string
	field records.FieldID
}

// distinctAliases maps metric names to the identity field they count.
var distinctAliases = map[string]records.FieldID{
	"id":              records.FieldDetID,
	"detId":           records.FieldDetID,
	"detectors":       records.FieldDetID,
	"siteId":          records.FieldSiteID,
	"species":         records.FieldSpecies,
	"speciesDetected": records.FieldSpecies,
}

// ResolveValueField maps a metric name to its aggregation. An empty name
// counts rows.
func ResolveValueField(name string) (ValueField, error) {
	if name == "" {
		return ValueField{Kind: Count}, nil
	}
	if name == DetectionRateField {
		return ValueField{Kind: Rate, Name: name}, nil
	}
	if id, ok := distinctAliases[name]; ok {
		return ValueField{Kind: DistinctCount, Name: name, field: id}, nil
	}
	id, ok := records.LookupField(name)
	if !ok {
		return ValueField{}, fmt.Errorf("value field %q: %w", name, ErrUnknownValueField)
	}
	return ValueField{Kind: Sum, Name: name, field: id}, nil
}

// MustValueField resolves name and panics on an unknown metric.
// Intended for package level defaults and tests.
func MustValueField(name string) ValueField {
	vf, err := ResolveValueField(name)
	if err != nil {
		panic(err)
	}
	return vf
}

func (vf ValueField) String() string {
	if vf.Kind == Count {
		return "count"
	}
	return vf.Kind.String() + "(" + vf.Name + ")"
}

// Label returns the plural display label for the metric.
func (vf ValueField) Label() string {
	if label, ok := MetricLabels[vf.Name]; ok {
		return label
	}
	if vf.Kind == Count {
		return "records"
	}
	return vf.Name
}

// MetricLabels are display labels for value fields.
var MetricLabels = map[string]string{
	"detections":       "detections",
	"sppDetections":    "species detections",
	"detectionNights":  "nights detected",
	"detectorNights":   "nights monitored",
	DetectionRateField: "% of nights with detections",
	"id":               "detectors",
	"detId":            "detectors",
	"detectors":        "detectors",
	"siteId":           "sites",
	"species":          "species detected",
	"speciesDetected":  "species detected",
}
