package runtime

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a detection result stays fresh.
const DefaultCacheTTL = 60 * time.Second

type cacheEntry struct {
	result    DetectionResult
	expiresAt time.Time
}

// Cache holds the last detection result per kind. Expiry is checked when
// an entry is read; nothing is evicted in the background.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[Kind]cacheEntry
}

// NewCache creates a cache whose entries live for ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[Kind]cacheEntry),
	}
}

// TTL returns the entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the result for kind while now is strictly before its expiry.
func (c *Cache) Get(kind Kind) (DetectionResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[kind]
	if !ok || !c.now().Before(e.expiresAt) {
		return DetectionResult{}, false
	}
	return e.result.Clone(), true
}

// Set stores result for kind, replacing any previous entry.
func (c *Cache) Set(kind Kind, result DetectionResult) {
	entry := cacheEntry{result: result.Clone()}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry.expiresAt = c.now().Add(c.ttl)
	c.entries[kind] = entry
}

// Clear drops the entry for kind.
func (c *Cache) Clear(kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, kind)
}

// ClearAll drops every entry.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
