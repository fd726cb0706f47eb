package embedding

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Cache is a bounded embedding cache keyed by a digest of the text. Eviction is
// strict insertion order (FIFO): a Get does not refresh an entry's position.
// Entries older than the TTL are treated as absent. A disabled cache always
// misses and ignores Put.
type Cache struct {
	enabled  bool
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List
	now      func() time.Time
	mu       sync.Mutex
}

type cacheEntry struct {
	key        string
	vector     []float32
	insertedAt time.Time
}

// NewCache creates a cache holding at most capacity entries for up to ttl each.
// A ttl of zero means entries never expire. When enabled is false the cache is
// inert: Get always misses and Put is a no-op.
func NewCache(enabled bool, capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		enabled:  enabled,
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// cacheKey derives a stable digest key from the text content.
func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached vector for text, or false if absent, expired, or the
// cache is disabled. Expired entries are removed on access.
func (c *Cache) Get(text string) ([]float32, bool) {
	if !c.enabled {
		return nil, false
	}
	key := cacheKey(text)
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.ttl > 0 && c.now().Sub(entry.insertedAt) > c.ttl {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}
	return entry.vector, true
}

// Put stores the vector for text, evicting the single oldest-inserted entry if
// the cache is at capacity. Re-putting an existing key refreshes its vector and
// timestamp without changing its insertion position.
func (c *Cache) Put(text string, vector []float32) {
	if !c.enabled {
		return
	}
	key := cacheKey(text)
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.vector = vector
		entry.insertedAt = c.now()
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	elem := c.order.PushFront(&cacheEntry{key: key, vector: vector, insertedAt: c.now()})
	c.entries[key] = elem
}

// Len returns the number of physically present entries, including expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
