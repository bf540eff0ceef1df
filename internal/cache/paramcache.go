package cache

import "sync"

// ParamCache is the in-memory L1 of the learned-parameter cache. It is
// shared by all workers; Get and Put are safe without external locking.
// Concurrent Puts for the same key race benignly: every written value
// was validated against a real image, so last write wins.
type ParamCache struct {
	mu      sync.RWMutex
	entries map[SimilarityKey]LearnedParams
}

// NewParamCache returns an empty cache.
func NewParamCache() *ParamCache {
	return &ParamCache{entries: make(map[SimilarityKey]LearnedParams)}
}

// Get returns the learned parameters for key, if any.
func (c *ParamCache) Get(key SimilarityKey) (LearnedParams, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	params, ok := c.entries[key]
	return params, ok
}

// Put records learned parameters for key, replacing any previous value.
func (c *ParamCache) Put(key SimilarityKey, params LearnedParams) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = params
}

// Len returns the number of cached entries.
func (c *ParamCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the current entries. The driver takes a
// snapshot before flushing so workers that are still running during a
// timeout shutdown cannot mutate the map mid-flush.
func (c *ParamCache) Snapshot() map[SimilarityKey]LearnedParams {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[SimilarityKey]LearnedParams, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
