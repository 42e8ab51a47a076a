// Package cache provides the in-process bounded TTL cache composed by the
// document store client.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"skillcourt-backend/application/ports"
)

// slot is one arena entry. Slots are reused in insertion order, which gives
// deterministic oldest-first eviction without an ordered map.
type slot struct {
	key        string
	value      interface{}
	insertedAt time.Time
	ttl        time.Duration
	occupied   bool
}

// BoundedCache is a fixed-capacity key→record cache. Expiry is lazy: checked
// on read, with the expired entry evicted and counted as a miss. When the
// arena is full, Set evicts the least-recently-inserted entry.
type BoundedCache struct {
	mu     sync.Mutex
	slots  []slot
	index  map[string]int
	next   int
	ttl    time.Duration
	hits   int64
	misses int64
	clock  func() time.Time
}

// NewBoundedCache creates a cache holding at most maxSize entries, each
// expiring defaultTTL after insertion.
func NewBoundedCache(maxSize int, defaultTTL time.Duration) *BoundedCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &BoundedCache{
		slots: make([]slot, maxSize),
		index: make(map[string]int, maxSize),
		ttl:   defaultTTL,
		clock: time.Now,
	}
}

// DocumentKey builds the cache key for a point read
func DocumentKey(collection, id string) string {
	return fmt.Sprintf("%s#%s", collection, id)
}

// QueryKey builds the cache key for a query result
func QueryKey(collection, queryHash string) string {
	return fmt.Sprintf("%s?%s", collection, queryHash)
}

// Get returns the cached record for key. An entry past its TTL is evicted and
// reported as a miss.
func (c *BoundedCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[key]
	if !ok {
		c.misses++
		return nil, false
	}

	s := &c.slots[i]
	if c.clock().Sub(s.insertedAt) > s.ttl {
		c.evict(i)
		c.misses++
		return nil, false
	}

	c.hits++
	return s.value, true
}

// Set inserts or replaces the entry for key with the default TTL
func (c *BoundedCache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL inserts or replaces the entry for key with an explicit TTL
func (c *BoundedCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[key]; ok {
		c.slots[i] = slot{key: key, value: value, insertedAt: c.clock(), ttl: ttl, occupied: true}
		return
	}

	// The next slot cursor walks the arena in insertion order. A slot freed
	// by Invalidate is reused first; only a full arena displaces a live
	// entry, and then the one under the cursor is the oldest.
	i := c.next
	if c.slots[i].occupied {
		for probe := 1; probe < len(c.slots); probe++ {
			if j := (i + probe) % len(c.slots); !c.slots[j].occupied {
				i = j
				break
			}
		}
	}
	if c.slots[i].occupied {
		c.evict(i)
	}
	c.slots[i] = slot{key: key, value: value, insertedAt: c.clock(), ttl: ttl, occupied: true}
	c.index[key] = i
	if i == c.next {
		c.next = (c.next + 1) % len(c.slots)
	}
}

// Invalidate removes the entry for key, if present
func (c *BoundedCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[key]; ok {
		c.evict(i)
	}
}

// InvalidatePrefix removes every entry whose key starts with prefix. The
// arena is scanned linearly; capacities here are small enough that this is
// not a concern.
func (c *BoundedCache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		if c.slots[i].occupied && strings.HasPrefix(c.slots[i].key, prefix) {
			c.evict(i)
		}
	}
}

// Clear removes every entry. Hit/miss counters are retained.
func (c *BoundedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		c.slots[i] = slot{}
	}
	c.index = make(map[string]int, len(c.slots))
	c.next = 0
}

// Stats returns a point-in-time snapshot
func (c *BoundedCache) Stats() ports.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := ports.CacheStats{
		Size:    len(c.index),
		MaxSize: len(c.slots),
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// evict clears slot i; caller holds the lock
func (c *BoundedCache) evict(i int) {
	delete(c.index, c.slots[i].key)
	c.slots[i] = slot{}
}
