package disambiguation

import (
	"sync"
	"sync/atomic"
)

// pairKey identifies an unordered pair of knowledge-base ids.
type pairKey struct {
	lo, hi int64
}

func newPairKey(id1, id2 int64) pairKey {
	if id2 < id1 {
		id1, id2 = id2, id1
	}
	return pairKey{lo: id1, hi: id2}
}

// similarityKey identifies a candidate under one mention. The same article may be
// a candidate of several mentions with different contexts.
type similarityKey struct {
	mention int
	id      int64
}

// scoreCache memoizes pure score functions for the duration of one run.
// Concurrent writers computing the same key store identical values, so the
// first stored value is kept and returned to later writers.
type scoreCache[K comparable] struct {
	mu     sync.RWMutex
	values map[K]float64
	hits   atomic.Int64
	misses atomic.Int64
}

func newScoreCache[K comparable]() *scoreCache[K] {
	return &scoreCache[K]{values: make(map[K]float64)}
}

func (c *scoreCache[K]) get(key K) (float64, bool) {
	c.mu.RLock()
	v, ok := c.values[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// putIfAbsent stores value unless the key is already present and returns the stored value.
func (c *scoreCache[K]) putIfAbsent(key K, value float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.values[key]; ok {
		return existing
	}
	c.values[key] = value
	return value
}

func (c *scoreCache[K]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// stats returns the hit and miss counters.
func (c *scoreCache[K]) stats() (hits, misses int) {
	return int(c.hits.Load()), int(c.misses.Load())
}
