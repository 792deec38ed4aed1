package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache holds portal results keyed by query
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
	Clear()
	Stats() CacheStats
}

type CacheStats struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Size       int       `json:"size"`
	MaxSize    int       `json:"max_size"`
	Evictions  int64     `json:"evictions"`
	LastAccess time.Time `json:"last_access"`
}

// BoundedCache is a TTL cache that evicts the entry closest to expiry once
// maxSize entries are held
type BoundedCache struct {
	cache   *cache.Cache
	mu      sync.Mutex
	stats   CacheStats
	maxSize int
	now     func() time.Time
}

func NewCache(maxSize int, ttl time.Duration) *BoundedCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &BoundedCache{
		cache:   cache.New(ttl, ttl*2),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (c *BoundedCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.LastAccess = c.now()

	if data, found := c.cache.Get(key); found {
		c.stats.Hits++
		return data, true
	}

	c.stats.Misses++
	return nil, false
}

func (c *BoundedCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cache.Get(key); !exists && c.cache.ItemCount() >= c.maxSize {
		c.removeOldest()
	}

	c.cache.Set(key, value, cache.DefaultExpiration)
}

func (c *BoundedCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Delete(key)
}

func (c *BoundedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
	c.stats = CacheStats{}
}

func (c *BoundedCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.cache.ItemCount()
	stats.MaxSize = c.maxSize
	return stats
}

// every entry shares one TTL, so the earliest expiry is the oldest insert
func (c *BoundedCache) removeOldest() {
	var (
		oldestKey string
		oldestExp int64
	)
	for key, item := range c.cache.Items() {
		if oldestKey == "" || item.Expiration < oldestExp {
			oldestKey = key
			oldestExp = item.Expiration
		}
	}

	if oldestKey != "" {
		c.cache.Delete(oldestKey)
		c.stats.Evictions++
	}
}

// GetAs fetches key and asserts its type; a value of another type is a miss
func GetAs[T any](c Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// GenerateCacheKey joins the operation name and its normalised parameters,
// e.g. "case:dlhc:134:12345:2024"
func GenerateCacheKey(kind string, parts ...string) string {
	key := make([]string, 0, len(parts)+1)
	key = append(key, kind)
	for _, p := range parts {
		key = append(key, strings.ToLower(strings.TrimSpace(p)))
	}
	return strings.Join(key, ":")
}
