package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/delivery-heatmap/internal/model"
)

// Pool is the subset of pgxpool.Pool the cache needs. pgxmock pools satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCache implements Cache using pgxpool, for teams that share one
// geocode cache across machines.
type PostgresCache struct {
	pool    Pool
	closeFn func()
	now     func() time.Time
}

var _ Cache = (*PostgresCache)(nil)

// NewPostgres creates a PostgresCache with a small connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresCache, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	// One run writes sequentially; a couple of connections is plenty.
	pgxCfg.MaxConns = 2
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresCache{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS geocache (
	query      TEXT PRIMARY KEY,
	lat        DOUBLE PRECISION NOT NULL,
	lon        DOUBLE PRECISION NOT NULL,
	provider   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresCache) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresCache) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresCache) Get(ctx context.Context, query string) (*model.CacheEntry, error) {
	var e model.CacheEntry
	err := s.pool.QueryRow(ctx,
		`SELECT query, lat, lon, provider, created_at FROM geocache WHERE query = $1`,
		query,
	).Scan(&e.Query, &e.Lat, &e.Lon, &e.Provider, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get %q", query)
	}
	return &e, nil
}

func (s *PostgresCache) Put(ctx context.Context, query string, lat, lon float64, provider string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO geocache (query, lat, lon, provider, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (query) DO UPDATE SET lat = $2, lon = $3, provider = $4, created_at = $5`,
		query, lat, lon, provider, s.now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put %q", query)
}

func (s *PostgresCache) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM geocache`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count")
}

func (s *PostgresCache) ProviderCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT provider, COUNT(*) FROM geocache GROUP BY provider`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: provider counts")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			provider string
			n        int
		)
		if err := rows.Scan(&provider, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan provider count")
		}
		out[provider] = n
	}
	return out, eris.Wrap(rows.Err(), "postgres: provider counts")
}
