package model

import "time"

// NormalizedRecord is the flat, address-bearing view of one delivered shipment.
type NormalizedRecord struct {
	OrderID                string `json:"order_id"`
	TrackingNumber         string `json:"tracking_number"`
	Slug                   string `json:"slug"`
	DeliveredTime          string `json:"delivered_time"` // raw timestamp; empty when unknown
	DestinationRawLocation string `json:"destination_raw_location"`
	DestinationPostalCode  string `json:"destination_postal_code"`
	DestinationCity        string `json:"destination_city"`
	DestinationState       string `json:"destination_state"`
}

// Coordinate is a resolved WGS84 position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeocodedRecord is a NormalizedRecord together with the query used to
// geocode it and the resulting position, if any.
type GeocodedRecord struct {
	NormalizedRecord
	GeocodeQuery string      `json:"geocode_query"`
	Coordinate   *Coordinate `json:"coordinate,omitempty"`
}

// HasCoordinate reports whether both latitude and longitude are known.
func (g GeocodedRecord) HasCoordinate() bool {
	return g.Coordinate != nil
}

// CacheEntry is one persisted geocode result.
type CacheEntry struct {
	Query     string    `json:"query"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// Coordinate returns the entry's position.
func (e CacheEntry) Coordinate() Coordinate {
	return Coordinate{Lat: e.Lat, Lon: e.Lon}
}
