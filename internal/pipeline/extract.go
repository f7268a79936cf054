package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/delivery-heatmap/internal/export"
	"github.com/sells-group/delivery-heatmap/internal/model"
	"github.com/sells-group/delivery-heatmap/internal/normalize"
)

// Extract normalizes the raw dump into the normalized table.
func (p *Pipeline) Extract(_ context.Context) (normalize.Stats, error) {
	if m, err := export.ReadManifest(p.cfg.Paths.Manifest); err == nil && m.Status == model.RunStatusPartial {
		p.log().Warn("raw dump comes from a partial collection run",
			zap.String("collect_run_id", m.RunID),
			zap.String("error", m.Error),
		)
	}

	recs, err := export.ReadRaw(p.cfg.Paths.Raw)
	if err != nil {
		return normalize.Stats{}, eris.Wrap(err, "pipeline: load raw dump")
	}

	out, st := normalize.NormalizeAll(recs, p.cfg.Collect.Destination)
	if err := export.WriteNormalized(p.cfg.Paths.Normalized, out); err != nil {
		return st, eris.Wrap(err, "pipeline: write normalized table")
	}

	p.log().Info("extraction complete",
		zap.String("path", p.cfg.Paths.Normalized),
		zap.Int("input", len(recs)),
		zap.Int("kept", st.Kept),
		zap.Int("dropped_destination", st.Dropped),
		zap.Int("missing_delivered_time", st.MissingDelivered),
	)
	return st, nil
}
