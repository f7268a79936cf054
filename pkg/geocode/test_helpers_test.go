package geocode

import (
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// redirectTransport sends every request to target, keeping path and query.
// It lets a provider built with its production base URL talk to httptest.
type redirectTransport struct {
	target *url.URL
}

func (t redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	r.URL.Path = t.target.Path + r.URL.Path
	r.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func newRedirectClient(target string) *http.Client {
	u, err := url.Parse(target)
	if err != nil {
		panic(err)
	}
	return &http.Client{Transport: redirectTransport{target: u}}
}
