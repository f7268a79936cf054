// Package geocode resolves delivery addresses to coordinates through an
// external provider, writing every fresh match through to a persistent cache.
package geocode

import (
	"context"
	"net/http"
	"time"
)

// Provider is a single external geocoding backend. Geocode returns at most
// one best match; a query with no match yields Matched=false and a nil error.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Result holds the geocoding output for a query.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "nominatim" or "google"
	Quality   string // provider-specific precision hint
	Matched   bool
}

// Option configures a provider's HTTP transport.
type Option func(*httpOptions)

type httpOptions struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL sets a custom base URL (for testing or self-hosted instances).
func WithBaseURL(u string) Option {
	return func(o *httpOptions) {
		o.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *httpOptions) {
		o.httpClient = hc
	}
}

func applyOptions(defaultBaseURL string, opts []Option) httpOptions {
	o := httpOptions{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
