// Package normalize turns raw tracking records into flat, address-bearing
// records for one destination country.
package normalize

import (
	"strings"

	"github.com/sells-group/delivery-heatmap/internal/model"
)

// Stats counts the outcome of NormalizeAll.
type Stats struct {
	Kept             int
	Dropped          int // destination country present and different
	MissingDelivered int // kept records without a delivered time
}

// Normalize maps rec onto a NormalizedRecord. It reports false when the
// record names a destination country other than targetCountry; a blank
// destination passes. Address fields are copied through untouched.
func Normalize(rec model.TrackingRecord, targetCountry string) (model.NormalizedRecord, bool) {
	dest := strings.TrimSpace(rec.DestinationCountry)
	if dest != "" && !strings.EqualFold(dest, strings.TrimSpace(targetCountry)) {
		return model.NormalizedRecord{}, false
	}

	tn := rec.TrackingNumber
	if strings.TrimSpace(tn) == "" {
		tn = rec.Title
	}

	return model.NormalizedRecord{
		OrderID:                rec.OrderID,
		TrackingNumber:         tn,
		Slug:                   rec.Slug,
		DeliveredTime:          DeliveredTime(rec),
		DestinationRawLocation: rec.DestinationRawLocation,
		DestinationPostalCode:  rec.DestinationPostalCode,
		DestinationCity:        rec.DestinationCity,
		DestinationState:       rec.DestinationState,
	}, true
}

// NormalizeAll normalizes recs in order, dropping destination mismatches.
func NormalizeAll(recs []model.TrackingRecord, targetCountry string) ([]model.NormalizedRecord, Stats) {
	out := make([]model.NormalizedRecord, 0, len(recs))
	var st Stats
	for _, rec := range recs {
		n, ok := Normalize(rec, targetCountry)
		if !ok {
			st.Dropped++
			continue
		}
		if n.DeliveredTime == "" {
			st.MissingDelivered++
		}
		out = append(out, n)
		st.Kept++
	}
	return out, st
}
