package geocode

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/delivery-heatmap/internal/model"
)

// DefaultThrottle spaces provider calls to honour Nominatim's one request
// per second policy.
const DefaultThrottle = 1100 * time.Millisecond

// Cache is the persistence the Resolver writes through to.
type Cache interface {
	Get(ctx context.Context, query string) (*model.CacheEntry, error)
	Put(ctx context.Context, query string, lat, lon float64, provider string) error
}

// Stats counts how a batch was resolved.
type Stats struct {
	Records   int
	CacheHits int
	Calls     int // provider requests made
	Matched   int // provider matches written to the cache
	NoMatch   int // provider answered without a match; not cached
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithThrottle sets the minimum spacing between provider calls.
func WithThrottle(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithCountryQualifier overrides the country appended to every query.
func WithCountryQualifier(country string) ResolverOption {
	return func(r *Resolver) {
		r.country = country
	}
}

// Resolver turns normalized records into coordinates, consulting the cache
// before the provider. It is not safe for concurrent use; batches are
// resolved one query at a time.
type Resolver struct {
	cache    Cache
	provider Provider
	limiter  *rate.Limiter
	country  string
}

// NewResolver creates a Resolver over cache and provider.
func NewResolver(cache Cache, provider Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cache:    cache,
		provider: provider,
		limiter:  rate.NewLimiter(rate.Every(DefaultThrottle), 1),
		country:  DefaultCountryQualifier,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Query returns the geocode query for rec.
func (r *Resolver) Query(rec model.NormalizedRecord) string {
	return BuildQuery(rec.DestinationPostalCode, rec.DestinationCity, rec.DestinationState, r.country)
}

// Resolve returns the coordinate for rec, or nil when the provider has no match.
func (r *Resolver) Resolve(ctx context.Context, rec model.NormalizedRecord) (*model.Coordinate, error) {
	c, _, err := r.resolveQuery(ctx, r.Query(rec), nil)
	return c, err
}

// resolveQuery looks query up in the cache and falls back to one throttled
// provider call. A match is written through before it is returned; a
// no-match is not cached.
func (r *Resolver) resolveQuery(ctx context.Context, query string, st *Stats) (*model.Coordinate, bool, error) {
	if st == nil {
		st = &Stats{}
	}

	entry, err := r.cache.Get(ctx, query)
	if err != nil {
		return nil, false, eris.Wrap(err, "geocode: cache lookup")
	}
	if entry != nil {
		st.CacheHits++
		c := entry.Coordinate()
		return &c, true, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, false, eris.Wrap(err, "geocode: throttle")
	}
	st.Calls++
	res, err := r.provider.Geocode(ctx, query)
	if err != nil {
		return nil, false, eris.Wrapf(err, "geocode: %s %q", r.provider.Name(), query)
	}
	if res == nil || !res.Matched {
		st.NoMatch++
		return nil, false, nil
	}

	if err := r.cache.Put(ctx, query, res.Latitude, res.Longitude, r.provider.Name()); err != nil {
		return nil, false, eris.Wrap(err, "geocode: cache write")
	}
	st.Matched++
	return &model.Coordinate{Lat: res.Latitude, Lon: res.Longitude}, false, nil
}

// ResolveAll resolves recs strictly in order. A provider or cache failure
// stops the batch: the records resolved so far are returned with the error,
// and every match already written stays cached, so a rerun resumes where
// this one stopped.
func (r *Resolver) ResolveAll(ctx context.Context, recs []model.NormalizedRecord) ([]model.GeocodedRecord, Stats, error) {
	out := make([]model.GeocodedRecord, 0, len(recs))
	var st Stats

	for i, rec := range recs {
		query := r.Query(rec)
		c, hit, err := r.resolveQuery(ctx, query, &st)
		if err != nil {
			return out, st, eris.Wrapf(err, "geocode: record %d", i)
		}
		st.Records++
		out = append(out, model.GeocodedRecord{
			NormalizedRecord: rec,
			GeocodeQuery:     query,
			Coordinate:       c,
		})

		zap.L().Debug("geocoded",
			zap.String("query", query),
			zap.Bool("cache_hit", hit),
			zap.Bool("matched", c != nil),
		)
		if (i+1)%100 == 0 {
			zap.L().Info("geocode progress",
				zap.Int("done", i+1),
				zap.Int("total", len(recs)),
				zap.Int("cache_hits", st.CacheHits),
				zap.Int("calls", st.Calls),
			)
		}
	}
	return out, st, nil
}
