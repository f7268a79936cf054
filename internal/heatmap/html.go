package heatmap

import (
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Options controls the rendered map.
type Options struct {
	Title     string
	CenterLat float64
	CenterLon float64
	Zoom      int
	Radius    int
	Blur      int
	MaxZoom   int
	TileURL   string
}

// DefaultOptions frames the Netherlands on a light CartoDB basemap.
func DefaultOptions() Options {
	return Options{
		Title:     "Delivery heatmap",
		CenterLat: 52.2,
		CenterLon: 5.3,
		Zoom:      7,
		Radius:    10,
		Blur:      14,
		MaxZoom:   10,
		TileURL:   "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
	}
}

var page = template.Must(template.New("heatmap").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<script src="https://unpkg.com/leaflet.heat@0.2.0/dist/leaflet-heat.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map("map").setView([{{.CenterLat}}, {{.CenterLon}}], {{.Zoom}});
L.tileLayer({{.TileURL}}, {
  attribution: "&copy; OpenStreetMap contributors &copy; CARTO",
  subdomains: "abcd",
  maxZoom: 20
}).addTo(map);
L.heatLayer({{.Points}}, {radius: {{.Radius}}, blur: {{.Blur}}, maxZoom: {{.MaxZoom}}}).addTo(map);
</script>
</body>
</html>
`))

type pageData struct {
	Options
	Points [][2]float64
}

// Render writes a self-contained Leaflet heatmap page for pts.
func Render(w io.Writer, pts []Point, opts Options) error {
	data := pageData{Options: opts, Points: make([][2]float64, 0, len(pts))}
	for _, p := range pts {
		data.Points = append(data.Points, [2]float64{p.Lat, p.Lon})
	}
	return eris.Wrap(page.Execute(w, data), "heatmap: render page")
}

// WriteHTML renders the heatmap page to path.
func WriteHTML(path string, pts []Point, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "heatmap: create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "heatmap: create %s", path)
	}
	if err := Render(f, pts, opts); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "heatmap: close %s", path)
}
