package heatmap

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// FeatureCollection builds a GeoJSON point layer with one feature per delivery.
func FeatureCollection(pts []Point) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(pts))}
	for _, p := range pts {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       p.TrackingNumber,
			Geometry: geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}),
			Properties: map[string]interface{}{
				"tracking_number": p.TrackingNumber,
				"slug":            p.Slug,
				"delivered_time":  p.DeliveredTime,
				"geocode_query":   p.Query,
			},
		})
	}
	return fc
}

// WriteGeoJSON writes pts as a GeoJSON FeatureCollection to path.
func WriteGeoJSON(path string, pts []Point) error {
	data, err := json.Marshal(FeatureCollection(pts))
	if err != nil {
		return eris.Wrap(err, "heatmap: encode geojson")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "heatmap: create directory for %s", path)
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "heatmap: write %s", path)
}
