// Package pipeline wires the collection, normalization, geocoding and
// rendering steps together around the configured file artifacts.
package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/delivery-heatmap/internal/collect"
	"github.com/sells-group/delivery-heatmap/internal/config"
	"github.com/sells-group/delivery-heatmap/internal/store"
	"github.com/sells-group/delivery-heatmap/pkg/aftership"
	"github.com/sells-group/delivery-heatmap/pkg/geocode"
)

// Pipeline runs the batch steps. Every step reads its input from and writes
// its output to the paths in cfg, so each can be rerun on its own.
type Pipeline struct {
	cfg       *config.Config
	runID     string
	lister    aftership.Lister
	provider  geocode.Provider
	openCache func(ctx context.Context) (store.Cache, error)
	now       func() time.Time
	collect   []collect.Option
	resolve   []geocode.ResolverOption
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLister replaces the AfterShip client built from configuration.
func WithLister(l aftership.Lister) Option {
	return func(p *Pipeline) {
		p.lister = l
	}
}

// WithProvider replaces the geocoding provider built from configuration.
func WithProvider(gp geocode.Provider) Option {
	return func(p *Pipeline) {
		p.provider = gp
	}
}

// WithCacheOpener replaces how the geocode cache is opened.
func WithCacheOpener(open func(ctx context.Context) (store.Cache, error)) Option {
	return func(p *Pipeline) {
		p.openCache = open
	}
}

// WithClock overrides the time source used for manifests and windows.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithCollectorOptions appends options passed to the collector.
func WithCollectorOptions(opts ...collect.Option) Option {
	return func(p *Pipeline) {
		p.collect = append(p.collect, opts...)
	}
}

// WithResolverOptions appends options passed to the geocode resolver.
func WithResolverOptions(opts ...geocode.ResolverOption) Option {
	return func(p *Pipeline) {
		p.resolve = append(p.resolve, opts...)
	}
}

// New creates a Pipeline for cfg with a fresh run ID.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:   cfg,
		runID: uuid.NewString(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.lister == nil {
		opts := []aftership.Option{
			aftership.WithPageSize(cfg.AfterShip.PageSize),
			aftership.WithHTTPClient(&http.Client{Timeout: seconds(cfg.AfterShip.TimeoutSecs)}),
		}
		if cfg.AfterShip.BaseURL != "" {
			opts = append(opts, aftership.WithBaseURL(cfg.AfterShip.BaseURL))
		}
		p.lister = aftership.NewClient(cfg.AfterShip.APIKey, opts...)
	}
	if p.provider == nil {
		p.provider = NewProvider(cfg.Geocode)
	}
	if p.openCache == nil {
		p.openCache = func(ctx context.Context) (store.Cache, error) {
			return store.Open(ctx, store.Options{
				Driver:      cfg.Cache.Driver,
				Path:        cfg.Cache.Path,
				DatabaseURL: cfg.Cache.DatabaseURL,
			})
		}
	}
	return p
}

// RunID identifies this pipeline invocation in logs and manifests.
func (p *Pipeline) RunID() string {
	return p.runID
}

func (p *Pipeline) log() *zap.Logger {
	return zap.L().With(zap.String("run_id", p.runID))
}

// NewProvider builds the geocoding provider named in cfg.
func NewProvider(cfg config.GeocodeConfig) geocode.Provider {
	var opts []geocode.Option
	if cfg.BaseURL != "" {
		opts = append(opts, geocode.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, geocode.WithHTTPClient(&http.Client{Timeout: seconds(cfg.TimeoutSecs)}))

	if cfg.Provider == "google" {
		return geocode.NewGoogle(cfg.GoogleAPIKey, cfg.CountryCodes, opts...)
	}
	return geocode.NewNominatim(geocode.NominatimConfig{
		UserAgent:    cfg.UserAgent,
		Email:        cfg.Email,
		CountryCodes: cfg.CountryCodes,
	}, opts...)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 30 * time.Second
	}
	return time.Duration(n) * time.Second
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
