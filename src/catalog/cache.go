// Package catalog holds the most recently fetched tool list for a session.
package catalog

import (
	"sync"
	"time"

	"github.com/toolgate/gateway-client/src/tools"
)

// Cache stores one catalog snapshot. Set replaces it wholesale; there is no
// expiry and no per-tool update.
type Cache struct {
	mu        sync.RWMutex
	tools     []tools.Tool
	populated bool
	updatedAt time.Time
	now       func() time.Time
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{now: time.Now}
}

// Set replaces the cached catalog with a copy of list.
func (c *Cache) Set(list []tools.Tool) {
	snapshot := make([]tools.Tool, len(list))
	copy(snapshot, list)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools = snapshot
	c.populated = true
	c.updatedAt = c.now()
}

// Get returns a copy of the cached catalog, or an empty slice if nothing
// has been stored yet.
func (c *Cache) Get() []tools.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]tools.Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Lookup finds a tool by exact name.
func (c *Cache) Lookup(name string) (tools.Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.tools {
		if t.Name == name {
			return t, true
		}
	}
	return tools.Tool{}, false
}

// Names lists tool names in catalog order.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tools))
	for _, t := range c.tools {
		names = append(names, t.Name)
	}
	return names
}

// Len reports the number of cached tools.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

// Populated reports whether Set has been called since creation or the last
// Clear. A populated cache may still be empty.
func (c *Cache) Populated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.populated
}

// UpdatedAt returns when the catalog was last replaced.
func (c *Cache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// Clear drops the cached catalog.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools = nil
	c.populated = false
	c.updatedAt = time.Time{}
}
