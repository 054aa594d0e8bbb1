package parser

import (
	"container/list"
	"sync"

	"redundancy-analyzer/src/model"
)

// Cache memoizes parsed modules per file path for the duration of one run.
// With MaxEntries > 0 the least recently used path is evicted first.
type Cache struct {
	mu         sync.RWMutex
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List
	hits       int
	misses     int
}

type cacheEntry struct {
	path    string
	modules []model.CodeModule
}

// NewCache creates a run-scoped cache, maxEntries <= 0 means unbounded
func NewCache(maxEntries int) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Get returns the cached modules of path
func (c *Cache) Get(path string) ([]model.CodeModule, bool) {
	if c.maxEntries <= 0 {
		c.mu.RLock()
		el, ok := c.entries[path]
		c.mu.RUnlock()
		c.count(ok)
		if !ok {
			return nil, false
		}
		return el.Value.(*cacheEntry).modules, true
	}

	// recency update needs the write lock
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[path]
	if ok {
		c.order.MoveToFront(el)
		c.hits++
		return el.Value.(*cacheEntry).modules, true
	}
	c.misses++
	return nil, false
}

func (c *Cache) count(hit bool) {
	c.mu.Lock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
}

// Put stores modules for path. When another goroutine stored the same path
// first, its modules win and are returned.
func (c *Cache) Put(path string, modules []model.CodeModule) []model.CodeModule {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if el, ok := c.entries[path]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).modules
	}

	c.entries[path] = c.order.PushFront(&cacheEntry{path: path, modules: modules})
	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).path)
	}
	return modules
}

// Len returns the number of cached paths
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counters
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Reset drops every entry, called when a run ends
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.hits, c.misses = 0, 0
}
