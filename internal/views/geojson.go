package views

import (
	"slices"

	geojson "github.com/paulmach/go.geojson"

	"github.com/batamp/batamp-explorer/internal/crossfilter"
	"github.com/batamp/batamp-explorer/internal/records"
)

// GeoJSON returns a point feature for every entity with a positive total
// under the session's filters. Each point sits at the mean location of the
// entity's records and carries its total, the bin color from renderer and,
// for detector and site entities, the site name.
func GeoJSON(s *crossfilter.Session, field string, renderer Renderer) (*geojson.FeatureCollection, error) {
	totals, err := EntityTotals(s, field, false)
	if err != nil {
		return nil, err
	}
	fieldID, _ := records.LookupField(field)

	type location struct {
		lat, lon float64
		n        int
		siteName string
	}
	locations := make(map[records.Value]*location, len(totals))
	for _, r := range s.Source().All() {
		id := r.FieldByID(fieldID)
		if id == nil || totals[id] <= 0 || r.IsNull(records.FieldLat) || r.IsNull(records.FieldLon) {
			continue
		}
		loc, ok := locations[id]
		if !ok {
			loc = &location{siteName: r.SiteName}
			locations[id] = loc
		}
		loc.lat += r.Lat
		loc.lon += r.Lon
		loc.n++
	}

	ids := make([]records.Value, 0, len(locations))
	for id := range locations {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareIDs)

	fc := geojson.NewFeatureCollection()
	for _, id := range ids {
		loc := locations[id]
		n := float64(loc.n)
		f := geojson.NewPointFeature([]float64{loc.lon / n, loc.lat / n})
		f.ID = id
		f.SetProperty("id", id)
		f.SetProperty("total", totals[id])
		f.SetProperty("color", renderer.ColorFor(totals[id]))
		if loc.siteName != "" && (fieldID == records.FieldDetID || fieldID == records.FieldSiteID) {
			f.SetProperty("siteName", loc.siteName)
		}
		fc.AddFeature(f)
	}
	if bbox := boundingBox(fc); bbox != nil {
		fc.BoundingBox = bbox
	}
	return fc, nil
}

// compareIDs orders ints numerically and everything else as text.
func compareIDs(a, b records.Value) int {
	ai, aInt := a.(int)
	bi, bInt := b.(int)
	switch {
	case aInt && bInt:
		return ai - bi
	case aInt:
		return -1
	case bInt:
		return 1
	}
	as, _ := a.(string)
	bs, _ := b.(string)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

// boundingBox returns [xmin, ymin, xmax, ymax] over the point features.
func boundingBox(fc *geojson.FeatureCollection) []float64 {
	if len(fc.Features) == 0 {
		return nil
	}
	first := fc.Features[0].Geometry.Point
	bbox := []float64{first[0], first[1], first[0], first[1]}
	for _, f := range fc.Features[1:] {
		p := f.Geometry.Point
		bbox[0] = min(bbox[0], p[0])
		bbox[1] = min(bbox[1], p[1])
		bbox[2] = max(bbox[2], p[0])
		bbox[3] = max(bbox[3], p[1])
	}
	return bbox
}
