package cache

import (
	"context"
	"log/slog"

	"tourgen/pkg/db"
)

// Cacher defines the caching interface used by the HTTP request layer.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// SQLiteCache implements Cacher on the http_cache table.
type SQLiteCache struct {
	db *db.DB
}

// NewSQLiteCache creates a new cache.
func NewSQLiteCache(d *db.DB) *SQLiteCache {
	return &SQLiteCache{db: d}
}

// GetCache returns the cached value for key. Read errors degrade to a miss;
// the caller falls through to the network.
func (c *SQLiteCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	err := c.db.QueryRowContext(ctx, "SELECT value FROM http_cache WHERE key = ?", key).Scan(&val)
	if err != nil {
		return nil, false
	}
	return val, true
}

// SetCache stores val under key, replacing any previous entry.
func (c *SQLiteCache) SetCache(ctx context.Context, key string, val []byte) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO http_cache (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = CURRENT_TIMESTAMP",
		key, val)
	if err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
	}
	return err
}

// NopCache is a Cacher that never hits. Used where caching is undesirable.
type NopCache struct{}

func (NopCache) GetCache(ctx context.Context, key string) ([]byte, bool) { return nil, false }
func (NopCache) SetCache(ctx context.Context, key string, val []byte) error {
	return nil
}
