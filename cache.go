package main

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// encodeCacheMaxEntries is the underlying LRU's entry cap.
const encodeCacheMaxEntries = 4096

// encodeCacheKey identifies one distinct encoded frame: same options, same
// source pixels.
type encodeCacheKey struct {
	options StreamOptions
	hash    uint64
}

// encodeCache is a cross-peer cache of encoded JPEG bytes, bounded by
// aggregate payload size rather than entry count. golang-lru's Cache is
// entry-count bounded; this wraps it with a running byte total and evicts
// oldest entries until back under maxEncodeCacheBytes.
type encodeCache struct {
	mu      sync.Mutex
	entries *lru.Cache
	size    int
	max     int
}

func newEncodeCache(max int) *encodeCache {
	// A generous entry cap — the byte budget is the real bound; the entry
	// cap just keeps the underlying map from growing unbounded if many
	// tiny frames are cached.
	c, err := lru.New(encodeCacheMaxEntries)
	if err != nil {
		panic(err) // only returns an error for a non-positive size
	}
	return &encodeCache{entries: c, max: max}
}

// get returns the cached bytes for key, if present.
func (c *encodeCache) get(key encodeCacheKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// put stores bytes for key, evicting the least-recently-used entries until
// the aggregate size is back under the cap.
func (c *encodeCache) put(key encodeCacheKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, existed := c.entries.Peek(key); existed {
		return
	}
	// Make room under the entry cap here rather than letting Add evict
	// silently, so the byte total stays in step with what the LRU holds.
	if c.entries.Len() >= encodeCacheMaxEntries {
		if _, v, ok := c.entries.RemoveOldest(); ok {
			c.size -= len(v.([]byte))
		}
	}
	c.entries.Add(key, data)
	c.size += len(data)

	for c.size > c.max {
		_, v, ok := c.entries.RemoveOldest()
		if !ok {
			break
		}
		c.size -= len(v.([]byte))
	}
}

func (c *encodeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// stats returns the current entry count and aggregate byte size.
func (c *encodeCache) stats() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len(), c.size
}
