package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/delivery-heatmap/internal/collect"
	"github.com/sells-group/delivery-heatmap/internal/export"
	"github.com/sells-group/delivery-heatmap/internal/model"
)

// CollectOptions overrides the configured collection bounds for one run.
// Zero values fall back to configuration.
type CollectOptions struct {
	TargetCount int
	MaxWindows  int
	Tag         *string // nil keeps the configured tag; "" disables the filter

	// SavePartial writes whatever was gathered when the run fails, marked
	// partial in the manifest. Without it a failed run writes no dump.
	SavePartial bool
}

// Collect fetches raw tracking records and writes the raw dump and manifest.
func (p *Pipeline) Collect(ctx context.Context, opts CollectOptions) (*model.Manifest, error) {
	cc := p.cfg.Collect
	copts := collect.Options{
		TargetCount: orDefault(opts.TargetCount, cc.TargetCount),
		MaxWindows:  orDefault(opts.MaxWindows, cc.MaxWindows),
		WindowSize:  cc.WindowSize(),
		Destination: cc.Destination,
		Tag:         cc.Tag,
	}
	if opts.Tag != nil {
		copts.Tag = *opts.Tag
	}

	log := p.log().With(zap.String("step", "collect"))
	log.Info("collecting trackings",
		zap.String("destination", copts.Destination),
		zap.String("tag", copts.Tag),
		zap.Int("target", copts.TargetCount),
		zap.Int("max_windows", copts.MaxWindows),
		zap.Duration("window", copts.WindowSize),
	)

	collectorOpts := append([]collect.Option{
		collect.WithPageDelay(millis(cc.PageDelayMs)),
		collect.WithWindowDelay(millis(cc.WindowDelayMs)),
		collect.WithClock(p.now),
	}, p.collect...)
	collector := collect.New(p.lister, collectorOpts...)

	m := &model.Manifest{
		RunID:       p.runID,
		Destination: copts.Destination,
		Tag:         copts.Tag,
		TargetCount: copts.TargetCount,
		MaxWindows:  copts.MaxWindows,
		WindowSize:  copts.WindowSize,
		StartedAt:   p.now().UTC(),
	}

	res, runErr := collector.Collect(ctx, copts)
	m.FinishedAt = p.now().UTC()
	if res != nil {
		m.Windows = res.Windows
		m.Pages = res.Pages
		m.Records = len(res.Records)
		m.Duplicates = res.Duplicates
	}

	if runErr != nil {
		m.Status = model.RunStatusPartial
		m.Error = runErr.Error()
		if !opts.SavePartial || res == nil {
			log.Error("collection failed, nothing written", zap.Int("records", m.Records), zap.Error(runErr))
			return m, runErr
		}
		if err := p.writeCollectOutput(res.Records, m); err != nil {
			log.Error("write partial output", zap.Error(err))
		} else {
			log.Warn("collection failed, partial dump written",
				zap.String("path", p.cfg.Paths.Raw),
				zap.Int("records", m.Records),
			)
		}
		return m, runErr
	}

	m.Status = model.RunStatusComplete
	if err := p.writeCollectOutput(res.Records, m); err != nil {
		return m, err
	}
	log.Info("collection complete",
		zap.String("path", p.cfg.Paths.Raw),
		zap.Int("records", m.Records),
		zap.Int("windows", m.Windows),
		zap.Int("duplicates", m.Duplicates),
	)
	return m, nil
}

func (p *Pipeline) writeCollectOutput(recs []model.TrackingRecord, m *model.Manifest) error {
	if err := export.WriteRaw(p.cfg.Paths.Raw, recs); err != nil {
		return eris.Wrap(err, "pipeline: write raw dump")
	}
	if p.cfg.Paths.Manifest == "" {
		return nil
	}
	return eris.Wrap(export.WriteManifest(p.cfg.Paths.Manifest, m), "pipeline: write manifest")
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
