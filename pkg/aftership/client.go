// Package aftership provides a client for the AfterShip v4 trackings listing API.
package aftership

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/delivery-heatmap/internal/model"
	"github.com/sells-group/delivery-heatmap/internal/resilience"
)

const (
	defaultBaseURL = "https://api.aftership.com/v4"

	// MaxPageSize is the largest page the listing endpoint accepts.
	MaxPageSize = 200

	serviceName = "aftership"
)

// Lister lists tracking records page by page.
type Lister interface {
	ListTrackings(ctx context.Context, params ListParams) (*Page, error)
}

// ListParams selects one page of trackings. Zero values are omitted from the request.
type ListParams struct {
	Destination  string    // ISO 3166-1 alpha-3 destination filter, e.g. "NLD"
	Tag          string    // status tag filter, e.g. "Delivered"
	CreatedAtMin time.Time // inclusive lower bound, sent as epoch seconds
	CreatedAtMax time.Time // upper bound, sent as epoch seconds
	Cursor       string
}

// Page is one page of the listing response.
type Page struct {
	Trackings []model.TrackingRecord
	Cursor    string // empty on the final page
}

type listResponse struct {
	Meta struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"meta"`
	Data struct {
		Trackings []model.TrackingRecord `json:"trackings"`
		Cursor    string                 `json:"cursor"`
	} `json:"data"`
}

// Option configures the AfterShip client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithPageSize sets the page size, clamped to [1, MaxPageSize].
func WithPageSize(n int) Option {
	return func(c *Client) {
		c.pageSize = clampPageSize(n)
	}
}

// Client calls the AfterShip trackings endpoint.
type Client struct {
	apiKey   string
	baseURL  string
	pageSize int
	http     *http.Client
}

var _ Lister = (*Client)(nil)

// NewClient creates an AfterShip client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		pageSize: MaxPageSize,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTrackings fetches one page. Any non-2xx response or network failure is
// returned as a *resilience.TransportError describing the request.
func (c *Client) ListTrackings(ctx context.Context, params ListParams) (*Page, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageSize))
	if params.Destination != "" {
		q.Set("destination", params.Destination)
	}
	if params.Tag != "" {
		q.Set("tag", params.Tag)
	}
	if !params.CreatedAtMin.IsZero() {
		q.Set("created_at_min", strconv.FormatInt(params.CreatedAtMin.Unix(), 10))
	}
	if !params.CreatedAtMax.IsZero() {
		q.Set("created_at_max", strconv.FormatInt(params.CreatedAtMax.Unix(), 10))
	}
	if params.Cursor != "" {
		q.Set("cursor", params.Cursor)
	}

	reqURL := c.baseURL + "/trackings?" + q.Encode()
	op := describe(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "aftership: create request")
	}
	req.Header.Set("as-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransportError(serviceName, op, 0, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransportError(serviceName, op, resp.StatusCode, eris.Wrap(err, "read body"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resilience.NewTransportError(serviceName, op, resp.StatusCode, eris.New(truncate(string(body), 256)))
	}

	var lr listResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, eris.Wrapf(err, "aftership: parse response (%s)", op)
	}

	return &Page{Trackings: lr.Data.Trackings, Cursor: lr.Data.Cursor}, nil
}

func describe(p ListParams) string {
	s := "GET /trackings"
	if !p.CreatedAtMin.IsZero() || !p.CreatedAtMax.IsZero() {
		s += fmt.Sprintf(" window=[%s,%s)", p.CreatedAtMin.UTC().Format(time.RFC3339), p.CreatedAtMax.UTC().Format(time.RFC3339))
	}
	if p.Cursor != "" {
		s += " cursor=" + truncate(p.Cursor, 16)
	}
	return s
}

func clampPageSize(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
