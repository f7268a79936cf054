package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/delivery-heatmap/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"`
		} `json:"geometry"`
	} `json:"results"`
}

// googleQualities maps location_type onto Result.Quality.
var googleQualities = map[string]string{
	"ROOFTOP":            "rooftop",
	"RANGE_INTERPOLATED": "range",
	"GEOMETRIC_CENTER":   "centroid",
}

func googleQuality(locType string) string {
	if q, ok := googleQualities[strings.ToUpper(locType)]; ok {
		return q
	}
	return "approximate"
}

// googleStatusCode maps an API status onto the HTTP code it behaves like.
func googleStatusCode(status string) int {
	switch status {
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return http.StatusTooManyRequests
	case "REQUEST_DENIED":
		return http.StatusForbidden
	case "INVALID_REQUEST":
		return http.StatusBadRequest
	case "UNKNOWN_ERROR":
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// Google is the alternative provider, used when a Maps API key is configured.
type Google struct {
	opts   httpOptions
	apiKey string
	region string
}

var _ Provider = (*Google)(nil)

// NewGoogle creates a Google provider. region is an optional ccTLD bias such as "nl".
func NewGoogle(apiKey, region string, opts ...Option) *Google {
	return &Google{
		opts:   applyOptions(googleGeocodeURL, opts),
		apiKey: apiKey,
		region: region,
	}
}

// Name implements Provider.
func (g *Google) Name() string { return "google" }

// Geocode implements Provider. ZERO_RESULTS is a no match. Every other
// non-OK API status is a *resilience.TransportError, so a spent quota stops
// the batch instead of blanking coordinates.
func (g *Google) Geocode(ctx context.Context, query string) (*Result, error) {
	if g.apiKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}

	u, err := url.Parse(g.opts.baseURL)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google base url")
	}
	q := u.Query()
	q.Set("address", query)
	q.Set("key", g.apiKey)
	if g.region != "" {
		q.Set("region", g.region)
	}
	u.RawQuery = q.Encode()

	op := "GET geocode address=" + strconv.Quote(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google build request")
	}

	resp, err := g.opts.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransportError("google", op, 0, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resilience.NewTransportError("google", op, resp.StatusCode,
			eris.Errorf("unexpected status %s", resp.Status))
	}

	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "geocode: google decode response")
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &Result{Source: "google"}, nil
	default:
		return nil, resilience.NewTransportError("google", op, googleStatusCode(body.Status),
			eris.Errorf("api status %s: %s", body.Status, body.ErrorMessage))
	}
	if len(body.Results) == 0 {
		return &Result{Source: "google"}, nil
	}

	geo := body.Results[0].Geometry
	return &Result{
		Latitude:  geo.Location.Lat,
		Longitude: geo.Location.Lng,
		Source:    "google",
		Quality:   googleQuality(geo.LocationType),
		Matched:   true,
	}, nil
}
