package resource

import (
	"net/url"
	"sync"
	"time"
)

// Kind separates list results from single-entity results in the cache.
type Kind int

const (
	KindList Kind = iota
	KindDetail
)

// Key identifies a cached query. Params is the canonical query string for
// lists and the entity id for details.
type Key struct {
	Kind     Kind
	Resource string
	Params   string
}

// ListKey builds the key of a list query. url.Values.Encode sorts by key,
// so equal parameter sets give equal keys.
func ListKey(resource string, params url.Values) Key {
	return Key{Kind: KindList, Resource: resource, Params: params.Encode()}
}

// DetailKey builds the key of a single-entity query.
func DetailKey(resource, id string) Key {
	return Key{Kind: KindDetail, Resource: resource, Params: id}
}

// Entry is a cached query result.
type Entry struct {
	Data      any
	FetchedAt time.Time
}

// Cache stores query results by key. Last write wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	now     func() time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[Key]Entry),
		now:     time.Now,
	}
}

// Get returns the entry for key.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Set stores data under key, stamped with the current time.
func (c *Cache) Set(key Key, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Data: data, FetchedAt: c.now()}
}

// Invalidate removes one key.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateResource removes every list and detail entry of resource.
func (c *Cache) InvalidateResource(resource string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if k.Resource == resource {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Clear removes everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]Entry)
}

// Len is the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stale reports whether key is missing or older than maxAge.
// maxAge <= 0 means entries never go stale.
func (c *Cache) Stale(key Key, maxAge time.Duration) bool {
	e, ok := c.Get(key)
	if !ok {
		return true
	}
	if maxAge <= 0 {
		return false
	}
	return c.now().Sub(e.FetchedAt) > maxAge
}
