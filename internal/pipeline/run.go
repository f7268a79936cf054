package pipeline

import (
	"context"

	"github.com/sells-group/delivery-heatmap/internal/model"
	"github.com/sells-group/delivery-heatmap/internal/normalize"
	"github.com/sells-group/delivery-heatmap/pkg/geocode"
)

// Summary reports what a full run did.
type Summary struct {
	Manifest *model.Manifest
	Extract  normalize.Stats
	Geocode  geocode.Stats
	Points   int
}

// Run executes collect, extract, geocode and render in order and stops at
// the first failing step.
func (p *Pipeline) Run(ctx context.Context, opts CollectOptions) (*Summary, error) {
	s := &Summary{}

	m, err := p.Collect(ctx, opts)
	s.Manifest = m
	if err != nil {
		return s, err
	}

	if s.Extract, err = p.Extract(ctx); err != nil {
		return s, err
	}
	if s.Geocode, err = p.Geocode(ctx); err != nil {
		return s, err
	}
	if s.Points, err = p.Render(ctx); err != nil {
		return s, err
	}
	return s, nil
}
