package pipeline

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"intellitube/llm"
)

// ContentCache holds loaded content for the lifetime of one chat, keyed by
// canonical source key. It also serializes loads: at most one load runs
// per key at a time, and concurrent requests for an in-flight key observe
// that load's result instead of double-loading.
type ContentCache struct {
	mu      sync.RWMutex
	entries map[string]*llm.LoadedContent
	flight  singleflight.Group
}

func NewContentCache() *ContentCache {
	return &ContentCache{entries: make(map[string]*llm.LoadedContent)}
}

// Get returns the cached content for key, or nil.
func (c *ContentCache) Get(key string) *llm.LoadedContent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

// Put stores content under key.
func (c *ContentCache) Put(key string, content *llm.LoadedContent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = content
}

// Len returns the number of cached sources.
func (c *ContentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// AttachSummary records a summary on the cached entry for key, if any.
func (c *ContentCache) AttachSummary(key, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		entry.Summary = summary
	}
}

// LoadOnce returns the cached content for key, or runs load exactly once
// across concurrent callers and caches its result.
func (c *ContentCache) LoadOnce(key string, load func() (*llm.LoadedContent, error)) (*llm.LoadedContent, error) {
	if content := c.Get(key); content != nil {
		return content, nil
	}

	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		if content := c.Get(key); content != nil {
			return content, nil
		}
		content, err := load()
		if err != nil {
			return nil, err
		}
		c.Put(key, content)
		return content, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*llm.LoadedContent), nil
}
