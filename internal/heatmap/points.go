// Package heatmap renders geocoded deliveries: a Leaflet density map plus
// GeoJSON and shapefile point layers for GIS tools.
package heatmap

import (
	"math"

	"github.com/sells-group/delivery-heatmap/internal/model"
)

// Point is one delivery location with the identifiers GIS layers carry.
type Point struct {
	Lat            float64
	Lon            float64
	TrackingNumber string
	Slug           string
	DeliveredTime  string
	Query          string
}

// Points keeps only records with a usable coordinate. Records without one
// are dropped, never passed on as zero or NaN positions.
func Points(recs []model.GeocodedRecord) []Point {
	out := make([]Point, 0, len(recs))
	for _, r := range recs {
		if !r.HasCoordinate() || !valid(r.Coordinate.Lat, r.Coordinate.Lon) {
			continue
		}
		out = append(out, Point{
			Lat:            r.Coordinate.Lat,
			Lon:            r.Coordinate.Lon,
			TrackingNumber: r.TrackingNumber,
			Slug:           r.Slug,
			DeliveredTime:  r.DeliveredTime,
			Query:          r.GeocodeQuery,
		})
	}
	return out
}

func valid(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
