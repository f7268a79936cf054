package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// TagDelivered is the AfterShip status tag for a completed delivery.
const TagDelivered = "Delivered"

// Checkpoint is one status event in a shipment's tracking history.
type Checkpoint struct {
	Tag            string `json:"tag,omitempty"`
	Subtag         string `json:"subtag,omitempty"`
	CheckpointTime string `json:"checkpoint_time,omitempty"`
	Message        string `json:"message,omitempty"`
	Location       string `json:"location,omitempty"`

	// Extra holds fields the API returned that are not modelled above.
	Extra map[string]json.RawMessage `json:"-"`
}

var checkpointFields = []string{"tag", "subtag", "checkpoint_time", "message", "location"}

// TrackingRecord is a raw shipment record as returned by the tracking API.
// It is never mutated after it has been fetched.
type TrackingRecord struct {
	OrderID                string       `json:"order_id,omitempty"`
	TrackingNumber         string       `json:"tracking_number,omitempty"`
	Title                  string       `json:"title,omitempty"`
	Slug                   string       `json:"slug,omitempty"`
	DestinationCountry     string       `json:"destination_country_region,omitempty"`
	DestinationPostalCode  string       `json:"destination_postal_code,omitempty"`
	DestinationCity        string       `json:"destination_city,omitempty"`
	DestinationState       string       `json:"destination_state,omitempty"`
	DestinationRawLocation string       `json:"destination_raw_location,omitempty"`
	ShipmentDeliveryDate   string       `json:"shipment_delivery_date,omitempty"`
	CreatedAt              string       `json:"created_at,omitempty"`
	Tag                    string       `json:"tag,omitempty"`
	Checkpoints            []Checkpoint `json:"checkpoints,omitempty"`

	// Extra holds every field the API returned that is not modelled above,
	// so a raw dump round-trips without loss.
	Extra map[string]json.RawMessage `json:"-"`
}

var trackingFields = []string{
	"order_id", "tracking_number", "title", "slug",
	"destination_country_region", "destination_postal_code", "destination_city",
	"destination_state", "destination_raw_location", "shipment_delivery_date",
	"created_at", "tag", "checkpoints",
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (t *TrackingRecord) UnmarshalJSON(data []byte) error {
	type plain TrackingRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return eris.Wrap(err, "model: decode tracking")
	}
	extra, err := splitExtra(data, trackingFields)
	if err != nil {
		return eris.Wrap(err, "model: decode tracking extras")
	}
	*t = TrackingRecord(p)
	t.Extra = extra
	return nil
}

// MarshalJSON encodes the known fields merged with Extra.
func (t TrackingRecord) MarshalJSON() ([]byte, error) {
	type plain TrackingRecord
	return mergeExtra(plain(t), t.Extra)
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (c *Checkpoint) UnmarshalJSON(data []byte) error {
	type plain Checkpoint
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return eris.Wrap(err, "model: decode checkpoint")
	}
	extra, err := splitExtra(data, checkpointFields)
	if err != nil {
		return eris.Wrap(err, "model: decode checkpoint extras")
	}
	*c = Checkpoint(p)
	c.Extra = extra
	return nil
}

// MarshalJSON encodes the known fields merged with Extra.
func (c Checkpoint) MarshalJSON() ([]byte, error) {
	type plain Checkpoint
	return mergeExtra(plain(c), c.Extra)
}

// splitExtra returns the top-level members of data whose names are not in known.
// Nil is returned when there are none.
func splitExtra(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// mergeExtra encodes v and adds the extra members that v does not already set.
func mergeExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	base, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}
	merged := make(map[string]json.RawMessage, len(extra)+8)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = raw
		}
	}
	return json.Marshal(merged)
}
