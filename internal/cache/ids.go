package cache

import "sync"

// IDCache maps body names to their database IDs for the current session
type IDCache struct {
	mu  sync.RWMutex
	ids map[string]uint
}

// NewIDCache creates a new IDCache
func NewIDCache() *IDCache {
	return &IDCache{
		ids: make(map[string]uint),
	}
}

// Get retrieves an ID by name
func (c *IDCache) Get(name string) (uint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[name]
	return id, ok
}

// Set stores an ID by name
func (c *IDCache) Set(name string, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[name] = id
}

// Delete removes a name
func (c *IDCache) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, name)
}

// Reset clears the cache
func (c *IDCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]uint)
}
