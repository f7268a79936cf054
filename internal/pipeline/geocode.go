package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/delivery-heatmap/internal/export"
	"github.com/sells-group/delivery-heatmap/pkg/geocode"
)

// Geocode resolves the normalized table through the cache and provider and
// writes the geocoded table. The cache is closed on every exit path. When
// the provider fails, no geocoded table is written; matches made before the
// failure are already cached, so a rerun picks up from there.
func (p *Pipeline) Geocode(ctx context.Context) (stats geocode.Stats, err error) {
	recs, err := export.ReadNormalized(p.cfg.Paths.Normalized)
	if err != nil {
		return stats, eris.Wrap(err, "pipeline: load normalized table")
	}

	cache, err := p.openCache(ctx)
	if err != nil {
		return stats, eris.Wrap(err, "pipeline: open geocode cache")
	}
	defer func() {
		if cerr := cache.Close(); cerr != nil {
			p.log().Error("close geocode cache", zap.Error(cerr))
			if err == nil {
				err = eris.Wrap(cerr, "pipeline: close geocode cache")
			}
		}
	}()

	opts := append([]geocode.ResolverOption{
		geocode.WithThrottle(millis(p.cfg.Geocode.ThrottleMs)),
		geocode.WithCountryQualifier(p.cfg.Geocode.CountryQualifier),
	}, p.resolve...)
	resolver := geocode.NewResolver(cache, p.provider, opts...)

	log := p.log().With(zap.String("step", "geocode"), zap.String("provider", p.provider.Name()))
	log.Info("geocoding", zap.Int("records", len(recs)))

	out, stats, err := resolver.ResolveAll(ctx, recs)
	if err != nil {
		log.Error("geocoding stopped",
			zap.Int("resolved", stats.Records),
			zap.Int("remaining", len(recs)-stats.Records),
			zap.Error(err),
		)
		return stats, err
	}

	if err := export.WriteGeocoded(p.cfg.Paths.Geocoded, out); err != nil {
		return stats, eris.Wrap(err, "pipeline: write geocoded table")
	}
	if p.cfg.Paths.XLSX != "" {
		if err := export.WriteGeocodedXLSX(p.cfg.Paths.XLSX, out); err != nil {
			return stats, eris.Wrap(err, "pipeline: write geocoded workbook")
		}
	}

	log.Info("geocoding complete",
		zap.String("path", p.cfg.Paths.Geocoded),
		zap.Int("records", stats.Records),
		zap.Int("cache_hits", stats.CacheHits),
		zap.Int("calls", stats.Calls),
		zap.Int("matched", stats.Matched),
		zap.Int("no_match", stats.NoMatch),
	)
	return stats, nil
}
