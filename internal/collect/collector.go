// Package collect walks the tracking API backwards in fixed time windows and
// accumulates deduplicated raw tracking records.
package collect

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/delivery-heatmap/internal/model"
	"github.com/sells-group/delivery-heatmap/pkg/aftership"
)

// Options bounds one collection run.
type Options struct {
	TargetCount int           // stop after the window in which this many unique records were reached
	MaxWindows  int           // hard cap on windows walked
	WindowSize  time.Duration // window length; windows are aligned to multiples of it in UTC
	Destination string        // destination country filter sent to the API
	Tag         string        // optional status tag filter
}

// Result is the outcome of a collection run. When Collect returns an error,
// Result still holds what was accumulated before the failure and Complete is false.
type Result struct {
	Records           []model.TrackingRecord
	Windows           int   // windows fully walked
	Pages             int   // successful page requests
	Duplicates        int   // records dropped because their key was already seen
	UniqueAfterWindow []int // cumulative unique record count after each completed window
	Complete          bool
}

// Option configures a Collector.
type Option func(*Collector)

// WithPageDelay sets the minimum spacing between consecutive page requests.
func WithPageDelay(d time.Duration) Option {
	return func(c *Collector) {
		c.limiter = newLimiter(d)
	}
}

// WithWindowDelay sets the pause inserted between consecutive windows.
func WithWindowDelay(d time.Duration) Option {
	return func(c *Collector) {
		c.windowDelay = d
	}
}

// WithClock overrides the time source used to anchor the first window.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// Collector pages through the tracking API one window at a time. It is
// strictly sequential: one window, one page in flight.
type Collector struct {
	api         aftership.Lister
	limiter     *rate.Limiter
	windowDelay time.Duration
	now         func() time.Time
}

// New creates a Collector over api.
func New(api aftership.Lister, opts ...Option) *Collector {
	c := &Collector{
		api:         api,
		limiter:     newLimiter(400 * time.Millisecond),
		windowDelay: 400 * time.Millisecond,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Collect walks backwards from the window containing now, at most
// opts.MaxWindows windows, until opts.TargetCount unique records have been
// gathered. Any failed page request aborts the run.
func (c *Collector) Collect(ctx context.Context, opts Options) (*Result, error) {
	if opts.TargetCount <= 0 {
		return nil, eris.New("collect: target count must be positive")
	}
	if opts.MaxWindows <= 0 {
		return nil, eris.New("collect: max windows must be positive")
	}
	if opts.WindowSize <= 0 {
		return nil, eris.New("collect: window size must be positive")
	}

	log := zap.L().With(zap.String("component", "collect"))

	anchor := c.now().UTC().Truncate(opts.WindowSize)
	seen := keySet{}
	res := &Result{}

	for w := 0; w < opts.MaxWindows; w++ {
		if w > 0 {
			if err := sleep(ctx, c.windowDelay); err != nil {
				return res, eris.Wrap(err, "collect: wait between windows")
			}
		}

		start := anchor.Add(-time.Duration(w) * opts.WindowSize)
		end := start.Add(opts.WindowSize)

		before := len(res.Records)
		if err := c.collectWindow(ctx, opts, start, end, seen, res); err != nil {
			return res, eris.Wrapf(err, "collect: window %d [%s, %s)", w,
				start.Format(time.RFC3339), end.Format(time.RFC3339))
		}
		res.Windows++
		res.UniqueAfterWindow = append(res.UniqueAfterWindow, len(res.Records))

		log.Info("window complete",
			zap.Int("window", w),
			zap.Time("start", start),
			zap.Int("new", len(res.Records)-before),
			zap.Int("total", len(res.Records)),
			zap.Int("duplicates", res.Duplicates),
		)

		if len(res.Records) >= opts.TargetCount {
			break
		}
	}

	if len(res.Records) > opts.TargetCount {
		res.Records = res.Records[:opts.TargetCount]
	}
	res.Complete = true
	return res, nil
}

// collectWindow fetches every page of one window with a fresh cursor.
func (c *Collector) collectWindow(ctx context.Context, opts Options, start, end time.Time, seen keySet, res *Result) error {
	cursor := ""
	for page := 1; ; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "page throttle")
		}

		p, err := c.api.ListTrackings(ctx, aftership.ListParams{
			Destination:  opts.Destination,
			Tag:          opts.Tag,
			CreatedAtMin: start,
			CreatedAtMax: end,
			Cursor:       cursor,
		})
		if err != nil {
			return eris.Wrapf(err, "page %d", page)
		}
		res.Pages++

		zap.L().Debug("page fetched",
			zap.Time("window_start", start),
			zap.Int("page", page),
			zap.Int("records", len(p.Trackings)),
			zap.Bool("has_cursor", p.Cursor != ""),
		)

		if len(p.Trackings) == 0 {
			return nil
		}
		for _, rec := range p.Trackings {
			if seen.add(KeyOf(rec)) {
				res.Records = append(res.Records, rec)
			} else {
				res.Duplicates++
			}
		}

		if p.Cursor == "" {
			return nil
		}
		if p.Cursor == cursor {
			zap.L().Warn("cursor did not advance, ending window",
				zap.Time("window_start", start),
				zap.Int("page", page),
			)
			return nil
		}
		cursor = p.Cursor
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
