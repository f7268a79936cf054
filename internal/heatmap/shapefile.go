package heatmap

import (
	"os"
	"path/filepath"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
)

// dBase field names are limited to 10 characters.
var shapeFields = []shp.Field{
	shp.StringField("TRACKING", 64),
	shp.StringField("SLUG", 32),
	shp.StringField("DELIVERED", 32),
	shp.StringField("QUERY", 128),
	shp.FloatField("LAT", 12, 6),
	shp.FloatField("LON", 12, 6),
}

// WriteShapefile writes pts as an ESRI point shapefile. path names the .shp
// file; the .shx and .dbf siblings are written next to it.
func WriteShapefile(path string, pts []Point) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "heatmap: create directory for %s", path)
	}
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "heatmap: create shapefile %s", path)
	}
	defer w.Close()

	w.SetFields(shapeFields)
	for _, p := range pts {
		n := int(w.Write(&shp.Point{X: p.Lon, Y: p.Lat}))
		w.WriteAttribute(n, 0, truncate(p.TrackingNumber, 64))
		w.WriteAttribute(n, 1, truncate(p.Slug, 32))
		w.WriteAttribute(n, 2, truncate(p.DeliveredTime, 32))
		w.WriteAttribute(n, 3, truncate(p.Query, 128))
		w.WriteAttribute(n, 4, p.Lat)
		w.WriteAttribute(n, 5, p.Lon)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
