package match

import "sync"

// resultCache memoizes resolved matches by comparison string. Entries from an
// older snapshot version are discarded wholesale on first access after a
// swap, so a refresh fully invalidates the cache.
type resultCache struct {
	mu      sync.Mutex
	max     int
	version int64
	entries map[string]Result
}

func newResultCache(max int) *resultCache {
	if max <= 0 {
		max = 1024
	}
	return &resultCache{max: max, entries: make(map[string]Result)}
}

func (c *resultCache) get(comparison string, version int64) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		c.entries = make(map[string]Result)
		c.version = version
		return Result{}, false
	}
	r, ok := c.entries[comparison]
	return r, ok
}

func (c *resultCache) put(comparison string, version int64, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		c.entries = make(map[string]Result)
		c.version = version
	}
	if len(c.entries) >= c.max {
		// Cheap wholesale eviction; the cache is a latency aid only.
		c.entries = make(map[string]Result)
	}
	c.entries[comparison] = r
}
