// Package cache provides the in-memory, time-bounded response cache.
//
// Entries are only evicted lazily when a lookup finds them expired. The key
// space is one entry per endpoint and query configuration, so growth is not
// bounded; callers that generate unbounded keys must not use this cache.
package cache

import (
	"net/url"
	"sync"
	"time"
)

// DefaultTTL is the expiry window used when none is configured
const DefaultTTL = 60 * time.Second

// Observer is notified of every lookup outcome
type Observer func(hit bool)

type entry struct {
	payload  interface{}
	storedAt time.Time
}

// ResponseCache stores the latest payload per key for a fixed TTL
type ResponseCache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	ttl      time.Duration
	enabled  bool
	now      func() time.Time
	observer Observer
}

// New creates a cache. When enabled is false Get always misses and Set
// does nothing.
func New(ttl time.Duration, enabled bool) *ResponseCache {
	return &ResponseCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		enabled: enabled,
		now:     time.Now,
	}
}

// WithClock replaces the time source and returns the cache
func (c *ResponseCache) WithClock(now func() time.Time) *ResponseCache {
	c.now = now
	return c
}

// WithObserver registers a hit/miss callback and returns the cache
func (c *ResponseCache) WithObserver(o Observer) *ResponseCache {
	c.observer = o
	return c
}

// Get returns the payload stored under key if it is younger than the TTL.
// Expired entries are removed.
func (c *ResponseCache) Get(key string) (interface{}, bool) {
	if !c.enabled {
		c.observe(false)
		return nil, false
	}

	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.observe(false)
		return nil, false
	}

	if now.Sub(e.storedAt) >= c.ttl {
		c.mu.Lock()
		// another writer may have refreshed the entry meanwhile
		if cur, ok := c.entries[key]; ok && cur.storedAt.Equal(e.storedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		c.observe(false)
		return nil, false
	}

	c.observe(true)
	return e.payload, true
}

// Set stores payload under key, replacing any previous entry
func (c *ResponseCache) Set(key string, payload interface{}) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	c.entries[key] = entry{payload: payload, storedAt: c.now()}
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Enabled reports whether the cache stores anything
func (c *ResponseCache) Enabled() bool {
	return c.enabled
}

// TTL returns the expiry window
func (c *ResponseCache) TTL() time.Duration {
	return c.ttl
}

func (c *ResponseCache) observe(hit bool) {
	if c.observer != nil {
		c.observer(hit)
	}
}

// Key derives a cache key from an endpoint name and its query parameters.
// Parameters are sorted by name, so insertion order does not matter.
func Key(endpoint string, params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	if len(values) == 0 {
		return endpoint
	}
	return endpoint + "?" + values.Encode()
}
