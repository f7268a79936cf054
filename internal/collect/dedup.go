package collect

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/delivery-heatmap/internal/model"
)

// keySeparator joins the slug with the tracking number or title.
const keySeparator = "::"

// KeyOf returns the identity of a raw record, used to drop the same shipment
// when overlapping windows or pages return it again. It is pure and total.
//
// Precedence: slug+tracking number, then slug+title, then a canonical
// fingerprint of all weak identity fields so identity-less records do not
// collapse onto one empty key.
func KeyOf(rec model.TrackingRecord) string {
	slug := strings.TrimSpace(rec.Slug)
	tn := strings.TrimSpace(rec.TrackingNumber)
	title := strings.TrimSpace(rec.Title)

	switch {
	case slug != "" && tn != "":
		return slug + keySeparator + tn
	case slug != "" && title != "":
		return slug + keySeparator + title
	}

	// encoding/json writes map keys in sorted order; a string map cannot fail to encode.
	fp, _ := json.Marshal(map[string]string{
		"slug":            slug,
		"tracking_number": tn,
		"title":           title,
		"order_id":        strings.TrimSpace(rec.OrderID),
		"created_at":      strings.TrimSpace(rec.CreatedAt),
	})
	return string(fp)
}

// keySet is the set of dedup keys observed during one collection run.
type keySet map[string]struct{}

// add records key and reports whether it was new.
func (s keySet) add(key string) bool {
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}
