package indicators

import (
	"sync"
	"time"

	"github.com/rustyeddy/riskengine/market"
)

// DefaultTTL is how long a cached indicator set stays fresh.
const DefaultTTL = 30 * time.Second

// Key identifies one cached indicator set.
type Key struct {
	Symbol    string
	Timeframe string
}

func (k Key) String() string { return k.Symbol + "/" + k.Timeframe }

// Cache stores indicator sets. Implementations must be safe for concurrent
// use.
type Cache interface {
	Get(k Key) (market.Indicators, bool)
	Set(k Key, v market.Indicators)
	Delete(k Key)
}

type entry struct {
	val     market.Indicators
	expires time.Time
}

// TTLCache is an in-memory Cache whose entries expire after a fixed TTL.
// Expired entries are dropped on read and by Purge.
type TTLCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[Key]entry
}

// NewTTLCache returns a cache with the given TTL (DefaultTTL if <= 0).
// A nil clock means time.Now.
func NewTTLCache(ttl time.Duration, now func() time.Time) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TTLCache{ttl: ttl, now: now, entries: make(map[Key]entry)}
}

func (c *TTLCache) TTL() time.Duration { return c.ttl }

func (c *TTLCache) Get(k Key) (market.Indicators, bool) {
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok {
		return market.Indicators{}, false
	}
	if !c.now().Before(e.expires) {
		c.mu.Lock()
		// re-check, a Set may have raced us
		if cur, ok := c.entries[k]; ok && !c.now().Before(cur.expires) {
			delete(c.entries, k)
		}
		c.mu.Unlock()
		return market.Indicators{}, false
	}
	return e.val, true
}

func (c *TTLCache) Set(k Key, v market.Indicators) {
	c.mu.Lock()
	c.entries[k] = entry{val: v, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *TTLCache) Delete(k Key) {
	c.mu.Lock()
	delete(c.entries, k)
	c.mu.Unlock()
}

// Purge removes expired entries and returns how many were removed.
func (c *TTLCache) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
