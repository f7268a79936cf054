// Package store persists geocode results across pipeline runs.
package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/delivery-heatmap/internal/model"
)

// Cache maps a geocode query to its resolved coordinate. A present entry is
// authoritative: callers never ask the provider again for that exact query.
// Implementations are used by one pipeline run at a time and commit every
// write immediately.
type Cache interface {
	// Get returns the entry for query, or nil when there is none.
	Get(ctx context.Context, query string) (*model.CacheEntry, error)
	// Put inserts or overwrites the entry for query.
	Put(ctx context.Context, query string, lat, lon float64, provider string) error
	Count(ctx context.Context) (int, error)
	ProviderCounts(ctx context.Context) (map[string]int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Supported cache drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and locates a cache backend.
type Options struct {
	Driver      string // "sqlite" (default) or "postgres"
	Path        string // SQLite file path
	DatabaseURL string // Postgres connection string
}

// Open connects to the configured backend and applies its schema. The
// caller owns the returned Cache and must Close it.
func Open(ctx context.Context, opts Options) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch opts.Driver {
	case "", DriverSQLite:
		if opts.Path == "" {
			return nil, eris.New("store: sqlite cache path is required")
		}
		if dir := filepath.Dir(opts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrapf(err, "store: create cache dir %s", dir)
			}
		}
		c, err = NewSQLite(opts.Path)
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, eris.New("store: postgres database url is required")
		}
		c, err = NewPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown cache driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := c.Migrate(ctx); err != nil {
		c.Close() //nolint:errcheck
		return nil, err
	}
	return c, nil
}
