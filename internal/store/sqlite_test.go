package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "geocache.db")
	c, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() }) //nolint:errcheck
	require.NoError(t, c.Migrate(context.Background()))
	return c
}

func TestSQLite_PutAndGet(t *testing.T) {
	c := newTestSQLiteCache(t)
	c.now = func() time.Time { return time.Unix(1714557600, 0) }
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "1011AB, Amsterdam, Netherlands", 52.3731, 4.8925, "nominatim"))

	e, err := c.Get(ctx, "1011AB, Amsterdam, Netherlands")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, 52.3731, e.Lat)
	assert.Equal(t, 4.8925, e.Lon)
	assert.Equal(t, "nominatim", e.Provider)
	assert.Equal(t, time.Unix(1714557600, 0).UTC(), e.CreatedAt)
}

func TestSQLite_GetMissing(t *testing.T) {
	c := newTestSQLiteCache(t)

	e, err := c.Get(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestSQLite_ExactKeyLookup(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "Utrecht, Netherlands", 52.09, 5.12, "nominatim"))

	e, err := c.Get(ctx, "utrecht, netherlands")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestSQLite_PutOverwrites(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "q", 1, 2, "nominatim"))
	require.NoError(t, c.Put(ctx, "q", 3, 4, "google"))

	e, err := c.Get(ctx, "q")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, 3.0, e.Lat)
	assert.Equal(t, 4.0, e.Lon)
	assert.Equal(t, "google", e.Provider)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "geocache.db")
	ctx := context.Background()

	c, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, c.Migrate(ctx))
	require.NoError(t, c.Put(ctx, "Noord-Holland, Netherlands", 52.52, 4.79, "nominatim"))
	require.NoError(t, c.Close())

	reopened, err := NewSQLite(dbPath)
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck
	require.NoError(t, reopened.Migrate(ctx))

	e, err := reopened.Get(ctx, "Noord-Holland, Netherlands")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, 52.52, e.Lat)
	assert.Equal(t, 4.79, e.Lon)
}

func TestSQLite_ProviderCounts(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "a", 1, 1, "nominatim"))
	require.NoError(t, c.Put(ctx, "b", 1, 1, "nominatim"))
	require.NoError(t, c.Put(ctx, "c", 1, 1, "google"))

	counts, err := c.ProviderCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"nominatim": 2, "google": 1}, counts)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	c := newTestSQLiteCache(t)
	assert.NoError(t, c.Migrate(context.Background()))
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, Options{Path: filepath.Join(t.TempDir(), "cache.db")})
	require.NoError(t, err)
	defer c.Close() //nolint:errcheck

	require.NoError(t, c.Put(ctx, "q", 1, 2, "nominatim"))
	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Options{Driver: DriverSQLite})
	assert.ErrorContains(t, err, "path is required")

	_, err = Open(ctx, Options{Driver: DriverPostgres})
	assert.ErrorContains(t, err, "database url is required")

	_, err = Open(ctx, Options{Driver: "redis"})
	assert.ErrorContains(t, err, "unknown cache driver")
}
