package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/monitoring"
)

// Store is a byte-oriented key/value backend with per-entry TTL
type Store interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Stats(ctx context.Context) map[string]interface{}
	Close() error
}

// Cache applies a default TTL over a Store and counts hits and misses.
// Backend errors degrade to misses so a Redis outage never fails a request.
type Cache struct {
	store   Store
	ttl     time.Duration
	metrics *monitoring.Metrics
	logger  *monitoring.Logger
}

// NewCache creates a cache over store
func NewCache(store Store, ttl time.Duration, metrics *monitoring.Metrics, logger *monitoring.Logger) *Cache {
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	if logger == nil {
		logger = monitoring.NewLogger()
	}
	return &Cache{store: store, ttl: ttl, metrics: metrics, logger: logger}
}

// Key creates a consistent key from the input
func Key(parts ...string) string {
	h := md5.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TTL returns the default entry lifetime
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get retrieves an item from the cache
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Cache read failed", "backend", c.store.Name(), "key_hash", monitoring.ShortKey(key), "error", err)
		found = false
	}

	if found {
		c.metrics.IncrementCacheHit()
	} else {
		c.metrics.IncrementCacheMiss()
	}
	c.logger.CacheLogger("get", key, found, len(data))
	return data, found
}

// Set stores an item with the default TTL
func (c *Cache) Set(ctx context.Context, key string, data []byte) {
	c.SetWithTTL(ctx, key, data, c.ttl)
}

// SetWithTTL stores an item with an explicit TTL
func (c *Cache) SetWithTTL(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("Cache write failed", "backend", c.store.Name(), "key_hash", monitoring.ShortKey(key), "error", err)
		return
	}
	c.logger.CacheLogger("set", key, false, len(data))
}

// GetJSON decodes a cached JSON value into v
func (c *Cache) GetJSON(ctx context.Context, key string, v any) bool {
	data, found := c.Get(ctx, key)
	if !found {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.logger.Warn("Discarding undecodable cache entry", "key_hash", monitoring.ShortKey(key), "error", err)
		_ = c.store.Delete(ctx, key)
		return false
	}
	return true
}

// SetJSON encodes v and stores it with the default TTL
func (c *Cache) SetJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", "key_hash", monitoring.ShortKey(key), "error", err)
		return
	}
	c.Set(ctx, key, data)
}

// Delete removes an item from the cache
func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("Cache delete failed", "backend", c.store.Name(), "error", err)
	}
}

// InvalidatePrefix removes every entry whose key starts with prefix
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) int {
	removed, err := c.store.DeletePrefix(ctx, prefix)
	if err != nil {
		c.logger.Warn("Cache invalidation failed", "backend", c.store.Name(), "prefix", prefix, "error", err)
	}
	c.logger.CacheLogger("invalidate", prefix, false, removed)
	return removed
}

// Stats returns cache statistics
func (c *Cache) Stats(ctx context.Context) map[string]interface{} {
	stats := c.store.Stats(ctx)
	stats["ttl_seconds"] = c.ttl.Seconds()
	return stats
}

// Close releases the backing store
func (c *Cache) Close() error {
	return c.store.Close()
}
