// Package infocache is a lazy, on-disk cache for the metadata lookups
// internal/biliclient performs repeatedly for the same episode — the
// normal/bangumi/cheese info responses, keyed by a namespace plus one id
// (player info and tags are not cached here) — so that the NFO, JSON,
// and cover sibling stages (which all need the same info for one episode)
// don't each re-issue the same HTTP round trip, and so a re-run shortly
// after a prior one doesn't hit the platform at all. Grounded on greg's
// internal/database/database.go: same gorm.Open(glebarez/sqlite) +
// logger.Silent + AutoMigrate shape, repurposed from a permanent library
// index to a TTL-bounded response cache.
package infocache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// entry is the single table this cache needs: one row per cache key,
// holding the JSON-encoded response and the instant it stops being valid.
type entry struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	ExpiresAt int64
}

// Cache wraps a *gorm.DB pointed at one sqlite file.
type Cache struct {
	db *gorm.DB
}

// Open creates (or opens) the sqlite-backed cache at path, enabling WAL mode
// the way database.go does for the same reason: concurrent sibling-stage
// reads shouldn't block each other behind a single writer lock.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create infocache directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open infocache db: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate infocache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying sqlite connection.
func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Key builds a stable cache key from a namespace (the API method name) and
// its integer argument, e.g. Key("normal_info", aid).
func Key(namespace string, id int64) string {
	return fmt.Sprintf("%s:%d", namespace, id)
}

// get returns the cached value for key if present and unexpired.
func (c *Cache) get(key string) ([]byte, bool) {
	var e entry
	if err := c.db.First(&e, "key = ?", key).Error; err != nil {
		return nil, false
	}
	if time.Now().Unix() > e.ExpiresAt {
		return nil, false
	}
	return e.Value, true
}

// put upserts key's value with the given ttl.
func (c *Cache) put(key string, value []byte, ttl time.Duration) error {
	e := entry{Key: key, Value: value, ExpiresAt: time.Now().Add(ttl).Unix()}
	return c.db.Save(&e).Error
}

// GetOrFetch returns the cached value for key, calling fetch and caching its
// result on a miss or expiry. Go methods can't carry their own type
// parameters, so this is a free function over *Cache rather than a method —
// the idiomatic shape for a generic cache lookup in this Go version.
func GetOrFetch[T any](c *Cache, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	var zero T

	if raw, ok := c.get(key); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		// Corrupt cache entry: fall through and refetch.
	}

	v, err := fetch()
	if err != nil {
		return zero, err
	}

	raw, err := json.Marshal(v)
	if err == nil {
		_ = c.put(key, raw, ttl)
	}
	return v, nil
}
