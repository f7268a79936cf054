package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/delivery-heatmap/internal/collect"
	"github.com/sells-group/delivery-heatmap/internal/config"
	"github.com/sells-group/delivery-heatmap/internal/export"
	"github.com/sells-group/delivery-heatmap/internal/heatmap"
	"github.com/sells-group/delivery-heatmap/internal/model"
	"github.com/sells-group/delivery-heatmap/internal/resilience"
	"github.com/sells-group/delivery-heatmap/internal/store"
	"github.com/sells-group/delivery-heatmap/pkg/aftership"
	"github.com/sells-group/delivery-heatmap/pkg/geocode"
)

var fixedNow = time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)

// windowLister returns one page per window start; cursors are never set.
type windowLister struct {
	pages map[int64][]model.TrackingRecord
	fail  map[int64]error
	calls int
}

func (w *windowLister) ListTrackings(_ context.Context, p aftership.ListParams) (*aftership.Page, error) {
	w.calls++
	if err, ok := w.fail[p.CreatedAtMin.Unix()]; ok {
		return nil, err
	}
	return &aftership.Page{Trackings: w.pages[p.CreatedAtMin.Unix()]}, nil
}

type stubProvider struct {
	coords map[string][2]float64
	fail   map[string]error
	calls  []string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Geocode(_ context.Context, query string) (*geocode.Result, error) {
	s.calls = append(s.calls, query)
	if err, ok := s.fail[query]; ok {
		return nil, err
	}
	c, ok := s.coords[query]
	if !ok {
		return &geocode.Result{Source: "stub"}, nil
	}
	return &geocode.Result{Latitude: c[0], Longitude: c[1], Matched: true, Source: "stub"}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Collect: config.CollectConfig{
			Destination: "NLD",
			Tag:         "Delivered",
			TargetCount: 10,
			MaxWindows:  3,
			WindowHours: 24,
		},
		Geocode: config.GeocodeConfig{
			Provider:         "nominatim",
			CountryQualifier: "Netherlands",
		},
		Cache: config.CacheConfig{
			Driver: store.DriverSQLite,
			Path:   filepath.Join(dir, "cache", "geocache.sqlite"),
		},
		Paths: config.PathsConfig{
			Raw:        filepath.Join(dir, "out", "raw.json"),
			Normalized: filepath.Join(dir, "out", "points.csv"),
			Geocoded:   filepath.Join(dir, "out", "geocoded.csv"),
			Heatmap:    filepath.Join(dir, "out", "heatmap.html"),
			GeoJSON:    filepath.Join(dir, "out", "points.geojson"),
			Manifest:   filepath.Join(dir, "out", "manifest.yaml"),
		},
		Heatmap: config.HeatmapConfig{CenterLat: 52.2, CenterLon: 5.3, Zoom: 7},
	}
}

func newTestPipeline(cfg *config.Config, l aftership.Lister, p geocode.Provider) *Pipeline {
	return New(cfg,
		WithLister(l),
		WithProvider(p),
		WithClock(func() time.Time { return fixedNow }),
		WithCollectorOptions(collect.WithPageDelay(0), collect.WithWindowDelay(0)),
		WithResolverOptions(geocode.WithThrottle(0)),
	)
}

func day(offset int) int64 {
	return time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -offset).Unix()
}

func delivered(tn, country, postal, city string) model.TrackingRecord {
	return model.TrackingRecord{
		Slug:                  "postnl-3s",
		TrackingNumber:        tn,
		Tag:                   model.TagDelivered,
		DestinationCountry:    country,
		DestinationPostalCode: postal,
		DestinationCity:       city,
		Checkpoints: []model.Checkpoint{
			{Tag: "InTransit", CheckpointTime: "2024-05-08T08:00:00Z"},
			{Tag: "Delivered", CheckpointTime: "2024-05-09T12:00:00Z"},
		},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	lister := &windowLister{pages: map[int64][]model.TrackingRecord{
		day(0): {
			delivered("1", "NLD", "1011AB", "Amsterdam"),
			delivered("2", "DEU", "10115", "Berlin"),
		},
		day(1): {
			delivered("1", "NLD", "1011AB", "Amsterdam"),
			delivered("3", "NLD", "3511AA", "Utrecht"),
			delivered("4", "", "9999ZZ", "Nowhere"),
		},
	}}
	provider := &stubProvider{coords: map[string][2]float64{
		"1011AB, Amsterdam, Netherlands": {52.37, 4.89},
		"3511AA, Utrecht, Netherlands":   {52.09, 5.12},
	}}

	p := newTestPipeline(cfg, lister, provider)
	sum, err := p.Run(context.Background(), CollectOptions{})
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusComplete, sum.Manifest.Status)
	assert.Equal(t, 4, sum.Manifest.Records)
	assert.Equal(t, 1, sum.Manifest.Duplicates)
	assert.Equal(t, 3, sum.Manifest.Windows)
	assert.Equal(t, p.RunID(), sum.Manifest.RunID)

	assert.Equal(t, 3, sum.Extract.Kept)
	assert.Equal(t, 1, sum.Extract.Dropped)

	assert.Equal(t, 3, sum.Geocode.Records)
	assert.Equal(t, 2, sum.Geocode.Matched)
	assert.Equal(t, 1, sum.Geocode.NoMatch)
	assert.Equal(t, 2, sum.Points)

	m, err := export.ReadManifest(cfg.Paths.Manifest)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, m.Status)

	geo, err := export.ReadGeocoded(cfg.Paths.Geocoded)
	require.NoError(t, err)
	require.Len(t, geo, 3)
	assert.Equal(t, "2024-05-09T12:00:00Z", geo[0].DeliveredTime)
	require.NotNil(t, geo[0].Coordinate)
	assert.InDelta(t, 52.37, geo[0].Coordinate.Lat, 1e-9)
	assert.Nil(t, geo[2].Coordinate)

	html, err := os.ReadFile(cfg.Paths.Heatmap)
	require.NoError(t, err)
	assert.Contains(t, string(html), "L.heatLayer")

	raw, err := os.ReadFile(cfg.Paths.GeoJSON)
	require.NoError(t, err)
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(raw, &fc))
	assert.Len(t, fc.Features, 2)
}

func TestGeocode_SecondRunUsesCache(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, export.WriteNormalized(cfg.Paths.Normalized, []model.NormalizedRecord{
		{TrackingNumber: "1", DestinationPostalCode: "1011AB", DestinationCity: "Amsterdam"},
		{TrackingNumber: "2", DestinationPostalCode: "1011AB", DestinationCity: "Amsterdam"},
	}))
	provider := &stubProvider{coords: map[string][2]float64{
		"1011AB, Amsterdam, Netherlands": {52.37, 4.89},
	}}

	st, err := newTestPipeline(cfg, nil, provider).Geocode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Calls)
	assert.Equal(t, 1, st.CacheHits)

	st, err = newTestPipeline(cfg, nil, provider).Geocode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, st.Calls)
	assert.Equal(t, 2, st.CacheHits)
	assert.Len(t, provider.calls, 1)
}

func TestGeocode_ProviderFailureKeepsMatchesCached(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, export.WriteNormalized(cfg.Paths.Normalized, []model.NormalizedRecord{
		{TrackingNumber: "1", DestinationPostalCode: "1011AB", DestinationCity: "Amsterdam"},
		{TrackingNumber: "2", DestinationPostalCode: "3511AA", DestinationCity: "Utrecht"},
	}))
	provider := &stubProvider{
		coords: map[string][2]float64{"1011AB, Amsterdam, Netherlands": {52.37, 4.89}},
		fail: map[string]error{
			"3511AA, Utrecht, Netherlands": resilience.NewTransportError("nominatim", "search", 503, errors.New("unavailable")),
		},
	}

	_, err := newTestPipeline(cfg, nil, provider).Geocode(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")

	_, statErr := os.Stat(cfg.Paths.Geocoded)
	assert.True(t, os.IsNotExist(statErr))

	cache, err := store.Open(context.Background(), store.Options{Path: cfg.Cache.Path})
	require.NoError(t, err)
	defer cache.Close() //nolint:errcheck
	e, err := cache.Get(context.Background(), "1011AB, Amsterdam, Netherlands")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "stub", e.Provider)
}

func TestGeocode_CacheOpenError(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, export.WriteNormalized(cfg.Paths.Normalized, nil))

	p := New(cfg, WithLister(&windowLister{}), WithProvider(&stubProvider{}),
		WithCacheOpener(func(context.Context) (store.Cache, error) {
			return nil, errors.New("boom")
		}))
	_, err := p.Geocode(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open geocode cache")
}

func TestCollect_FailureWithoutSavePartialWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	lister := &windowLister{
		pages: map[int64][]model.TrackingRecord{day(0): {delivered("1", "NLD", "1011AB", "Amsterdam")}},
		fail:  map[int64]error{day(1): resilience.NewTransportError("aftership", "list trackings", 500, errors.New("oops"))},
	}

	m, err := newTestPipeline(cfg, lister, &stubProvider{}).Collect(context.Background(), CollectOptions{})
	require.Error(t, err)
	assert.Equal(t, model.RunStatusPartial, m.Status)
	assert.Equal(t, 1, m.Records)

	_, statErr := os.Stat(cfg.Paths.Raw)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(cfg.Paths.Manifest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCollect_FailureWithSavePartialMarksManifest(t *testing.T) {
	cfg := testConfig(t)
	lister := &windowLister{
		pages: map[int64][]model.TrackingRecord{day(0): {delivered("1", "NLD", "1011AB", "Amsterdam")}},
		fail:  map[int64]error{day(1): resilience.NewTransportError("aftership", "list trackings", 500, errors.New("oops"))},
	}

	_, err := newTestPipeline(cfg, lister, &stubProvider{}).Collect(context.Background(), CollectOptions{SavePartial: true})
	require.Error(t, err)

	recs, err := export.ReadRaw(cfg.Paths.Raw)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	m, err := export.ReadManifest(cfg.Paths.Manifest)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPartial, m.Status)
	assert.True(t, strings.Contains(m.Error, "status 500"))
}

func TestCollect_Overrides(t *testing.T) {
	cfg := testConfig(t)
	lister := &windowLister{pages: map[int64][]model.TrackingRecord{
		day(0): {delivered("1", "NLD", "", ""), delivered("2", "NLD", "", ""), delivered("3", "NLD", "", "")},
	}}
	empty := ""

	m, err := newTestPipeline(cfg, lister, &stubProvider{}).Collect(context.Background(),
		CollectOptions{TargetCount: 2, MaxWindows: 1, Tag: &empty})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Records)
	assert.Equal(t, 1, m.Windows)
	assert.Empty(t, m.Tag)
}

func TestExtract_MissingRawDump(t *testing.T) {
	cfg := testConfig(t)
	_, err := newTestPipeline(cfg, &windowLister{}, &stubProvider{}).Extract(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load raw dump")
}

func TestRender_OptionalLayers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.GeoJSON = ""
	cfg.Paths.Shapefile = filepath.Join(filepath.Dir(cfg.Paths.Heatmap), "points.shp")
	require.NoError(t, export.WriteGeocoded(cfg.Paths.Geocoded, []model.GeocodedRecord{
		{NormalizedRecord: model.NormalizedRecord{TrackingNumber: "1"}, Coordinate: &model.Coordinate{Lat: 52.37, Lon: 4.89}},
		{NormalizedRecord: model.NormalizedRecord{TrackingNumber: "2"}},
	}))

	n, err := newTestPipeline(cfg, &windowLister{}, &stubProvider{}).Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, cfg.Paths.Heatmap)
	assert.FileExists(t, cfg.Paths.Shapefile)
}

func TestHeatmapOptions_FallsBackToDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Heatmap = config.HeatmapConfig{CenterLat: 51.9, CenterLon: 4.5, Radius: 20}

	opts := newTestPipeline(cfg, &windowLister{}, &stubProvider{}).HeatmapOptions()
	def := heatmap.DefaultOptions()
	assert.InDelta(t, 51.9, opts.CenterLat, 1e-9)
	assert.Equal(t, 20, opts.Radius)
	assert.Equal(t, def.Zoom, opts.Zoom)
	assert.Equal(t, def.TileURL, opts.TileURL)
}

func TestNewProvider(t *testing.T) {
	assert.Equal(t, "nominatim", NewProvider(config.GeocodeConfig{Provider: "nominatim"}).Name())
	assert.Equal(t, "google", NewProvider(config.GeocodeConfig{Provider: "google", GoogleAPIKey: "k"}).Name())
}
