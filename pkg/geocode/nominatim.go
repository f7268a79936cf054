package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/delivery-heatmap/internal/resilience"
)

const (
	nominatimBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent identifies the client to Nominatim, whose usage policy
	// requires a descriptive, contactable agent string.
	DefaultUserAgent = "delivery-heatmap/1.0 (+https://github.com/sells-group/delivery-heatmap)"
)

// Nominatim geocodes free-text queries against an OpenStreetMap Nominatim instance.
type Nominatim struct {
	opts         httpOptions
	userAgent    string
	email        string
	countryCodes string
}

var _ Provider = (*Nominatim)(nil)

// NominatimConfig carries the identification Nominatim's usage policy asks for.
type NominatimConfig struct {
	UserAgent    string // defaults to DefaultUserAgent
	Email        string // optional contact address sent as &email=
	CountryCodes string // optional ISO 3166-1 alpha-2 list, e.g. "nl"
}

// NewNominatim creates a Nominatim provider.
func NewNominatim(cfg NominatimConfig, opts ...Option) *Nominatim {
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Nominatim{
		opts:         applyOptions(nominatimBaseURL, opts),
		userAgent:    ua,
		email:        cfg.Email,
		countryCodes: cfg.CountryCodes,
	}
}

// Name implements Provider.
func (n *Nominatim) Name() string { return "nominatim" }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	AddressType string `json:"addresstype"`
}

// Geocode implements Provider.
func (n *Nominatim) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	if n.countryCodes != "" {
		params.Set("countrycodes", n.countryCodes)
	}
	if n.email != "" {
		params.Set("email", n.email)
	}

	op := "GET /search q=" + strconv.Quote(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.opts.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.opts.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransportError("nominatim", op, 0, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransportError("nominatim", op, resp.StatusCode, eris.Wrap(err, "read body"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewTransportError("nominatim", op, resp.StatusCode, eris.New(string(body)))
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}
	if len(places) == 0 {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: nominatim parse lat %q", places[0].Lat)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: nominatim parse lon %q", places[0].Lon)
	}

	return &Result{
		Latitude:  lat,
		Longitude: lon,
		Source:    "nominatim",
		Quality:   places[0].AddressType,
		Matched:   true,
	}, nil
}
