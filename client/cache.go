package client

import "sync"

// MemoryCache is a QueryCache keyed by query name.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]any
}

var _ QueryCache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: map[string]any{}}
}

func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *MemoryCache) Set(key string, value any) {
	c.mu.Lock()
	c.items[key] = value
	c.mu.Unlock()
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear drops every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.items = map[string]any{}
	c.mu.Unlock()
}
