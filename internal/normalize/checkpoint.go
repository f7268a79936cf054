package normalize

import (
	"strings"
	"time"

	"github.com/sells-group/delivery-heatmap/internal/model"
)

// timeLayouts are tried in order when parsing a checkpoint_time. Values
// without a zone are taken as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime returns the instant described by s, or ok=false when s is
// empty or matches none of the known layouts.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isDeliveredCheckpoint(cp model.Checkpoint) bool {
	return cp.Tag == model.TagDelivered || strings.HasPrefix(cp.Subtag, model.TagDelivered)
}

// SelectDelivered picks the checkpoint that marks the delivery of rec.
//
// Candidates are the checkpoints tagged Delivered or subtagged Delivered*.
// When there are none but the record itself is tagged Delivered, the last
// checkpoint in feed order stands in. Among the candidates the latest
// parsable checkpoint_time wins; unparsable or missing times rank below every
// parsable one, and ties go to the later checkpoint in feed order.
func SelectDelivered(rec model.TrackingRecord) (*model.Checkpoint, bool) {
	var candidates []model.Checkpoint
	for _, cp := range rec.Checkpoints {
		if isDeliveredCheckpoint(cp) {
			candidates = append(candidates, cp)
		}
	}
	if len(candidates) == 0 && rec.Tag == model.TagDelivered && len(rec.Checkpoints) > 0 {
		candidates = rec.Checkpoints[len(rec.Checkpoints)-1:]
	}
	if len(candidates) == 0 {
		return nil, false
	}

	best := -1
	var bestTime time.Time
	bestParsed := false
	for i, cp := range candidates {
		t, ok := parseTime(cp.CheckpointTime)
		switch {
		case best < 0:
		case ok && !bestParsed:
		case ok && bestParsed && !t.Before(bestTime):
		case !ok && !bestParsed:
		default:
			continue
		}
		best, bestTime, bestParsed = i, t, ok
	}

	cp := candidates[best]
	return &cp, true
}

// DeliveredTime resolves the delivery timestamp of rec as a raw string: the
// selected checkpoint's checkpoint_time, else the record's
// shipment_delivery_date, else "".
func DeliveredTime(rec model.TrackingRecord) string {
	if cp, ok := SelectDelivered(rec); ok {
		if ts := strings.TrimSpace(cp.CheckpointTime); ts != "" {
			return ts
		}
	}
	return strings.TrimSpace(rec.ShipmentDeliveryDate)
}
