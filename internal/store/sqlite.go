package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/delivery-heatmap/internal/model"
)

// SQLiteCache implements Cache on a single SQLite file using modernc.org/sqlite.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

var _ Cache = (*SQLiteCache)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteCache{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocache (
	query      TEXT PRIMARY KEY,
	lat        REAL NOT NULL,
	lon        REAL NOT NULL,
	provider   TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

func (s *SQLiteCache) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

func (s *SQLiteCache) Get(ctx context.Context, query string) (*model.CacheEntry, error) {
	var (
		e       model.CacheEntry
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT query, lat, lon, provider, created_at FROM geocache WHERE query = ?`,
		query,
	).Scan(&e.Query, &e.Lat, &e.Lon, &e.Provider, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get %q", query)
	}
	e.CreatedAt = time.Unix(created, 0).UTC()
	return &e, nil
}

func (s *SQLiteCache) Put(ctx context.Context, query string, lat, lon float64, provider string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geocache (query, lat, lon, provider, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(query) DO UPDATE SET lat = excluded.lat, lon = excluded.lon,
		 provider = excluded.provider, created_at = excluded.created_at`,
		query, lat, lon, provider, s.now().Unix(),
	)
	return eris.Wrapf(err, "sqlite: put %q", query)
}

func (s *SQLiteCache) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM geocache`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count")
}

func (s *SQLiteCache) ProviderCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT provider, COUNT(*) FROM geocache GROUP BY provider`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: provider counts")
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string]int)
	for rows.Next() {
		var (
			provider string
			n        int
		)
		if err := rows.Scan(&provider, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provider count")
		}
		out[provider] = n
	}
	return out, eris.Wrap(rows.Err(), "sqlite: provider counts")
}
