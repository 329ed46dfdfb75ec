package main

import (
	"sync"
	"time"
)

type cachedPage struct {
	content   string
	fetchedAt time.Time
}

// PageCache provides thread-safe caching for fetched page content, keyed by URL
type PageCache struct {
	mu    sync.RWMutex
	pages map[string]cachedPage
	ttl   time.Duration
}

// NewPageCache creates a new page cache with the specified TTL
func NewPageCache(ttl time.Duration) *PageCache {
	return &PageCache{
		pages: make(map[string]cachedPage),
		ttl:   ttl,
	}
}

// Get retrieves the content for a URL if present and not expired
// Returns the content and a boolean indicating if the cache hit was successful
func (c *PageCache) Get(url string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	page, ok := c.pages[url]
	if !ok {
		return "", false
	}

	// Check if entry has expired
	if time.Since(page.fetchedAt) > c.ttl {
		return "", false
	}

	return page.content, true
}

// Set stores the content for a URL
func (c *PageCache) Set(url string, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pages[url] = cachedPage{
		content:   content,
		fetchedAt: time.Now(),
	}
}

// Clear removes all entries from the cache
func (c *PageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pages = make(map[string]cachedPage)
}

// GetSize returns the number of entries in the cache, expired or not
func (c *PageCache) GetSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.pages)
}
