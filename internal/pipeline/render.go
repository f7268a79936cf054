package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/delivery-heatmap/internal/export"
	"github.com/sells-group/delivery-heatmap/internal/heatmap"
)

// HeatmapOptions maps configuration onto render options.
func (p *Pipeline) HeatmapOptions() heatmap.Options {
	hc := p.cfg.Heatmap
	opts := heatmap.DefaultOptions()
	opts.CenterLat = hc.CenterLat
	opts.CenterLon = hc.CenterLon
	if hc.Zoom > 0 {
		opts.Zoom = hc.Zoom
	}
	if hc.Radius > 0 {
		opts.Radius = hc.Radius
	}
	if hc.Blur > 0 {
		opts.Blur = hc.Blur
	}
	if hc.MaxZoom > 0 {
		opts.MaxZoom = hc.MaxZoom
	}
	if hc.TileURL != "" {
		opts.TileURL = hc.TileURL
	}
	return opts
}

// Render draws the heatmap and point layers from the geocoded table and
// returns the number of points used.
func (p *Pipeline) Render(_ context.Context) (int, error) {
	recs, err := export.ReadGeocoded(p.cfg.Paths.Geocoded)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: load geocoded table")
	}
	pts := heatmap.Points(recs)

	if err := heatmap.WriteHTML(p.cfg.Paths.Heatmap, pts, p.HeatmapOptions()); err != nil {
		return 0, err
	}
	if p.cfg.Paths.GeoJSON != "" {
		if err := heatmap.WriteGeoJSON(p.cfg.Paths.GeoJSON, pts); err != nil {
			return 0, err
		}
	}
	if p.cfg.Paths.Shapefile != "" {
		if err := heatmap.WriteShapefile(p.cfg.Paths.Shapefile, pts); err != nil {
			return 0, err
		}
	}

	p.log().Info("heatmap written",
		zap.String("path", p.cfg.Paths.Heatmap),
		zap.Int("points", len(pts)),
		zap.Int("skipped_without_coordinate", len(recs)-len(pts)),
	)
	return len(pts), nil
}
