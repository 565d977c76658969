/*
Package cache implements the engine's bounded, recency-ordered page/extent
cache. It is a thin generic wrapper around
github.com/hashicorp/golang-lru/v2 (chosen over a hand-rolled
container/list LRU, see DESIGN.md) that adds an "evict dirty, writeback
before drop" behavior and a Clear that intentionally skips writeback.

The same generic Cache type backs both the page cache (V = *storage.Page)
and the extent cache (V = *storage.Extent); both entry types satisfy
Entry by exposing IsDirty.
*/
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mdedb/mde/metrics"
)

// Entry is satisfied by anything a Cache can hold: it must be able to
// report whether it carries unflushed modifications.
type Entry interface {
	IsDirty() bool
}

// Writeback is invoked synchronously when a dirty entry is evicted, before
// the entry is dropped from the cache. A non-nil error is discarded; the
// entry is evicted regardless (the cache owns membership unconditionally
// once capacity is exceeded).
type Writeback[K comparable, V Entry] func(key K, value V) error

// Cache is a capacity-bounded, least-recently-used keyed cache.
type Cache[K comparable, V Entry] struct {
	mu         sync.RWMutex
	capacity   int
	inner      *lru.Cache[K, V]
	writeback  Writeback[K, V]
	evictCount int64
}

// New creates a cache bounded to capacity entries. writeback may be nil,
// in which case dirty entries are simply dropped on eviction (used by
// tests and by callers that persist through some other path).
func New[K comparable, V Entry](capacity int, writeback Writeback[K, V]) (*Cache[K, V], error) {
	c := &Cache[K, V]{capacity: capacity, writeback: writeback}
	inner, err := lru.NewWithEvict[K, V](capacity, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.inner = inner
	return c, nil
}

func (c *Cache[K, V]) onEvict(key K, value V) {
	c.evictCount++
	metrics.CacheEvictionsTotal.Inc()
	if value.IsDirty() && c.writeback != nil {
		_ = c.writeback(key, value)
	}
}

// Get returns the entry for key, moving it to the head of the recency
// list on a hit.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()
	return inner.Get(key)
}

// Peek is like Get but does not affect recency order.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()
	return inner.Peek(key)
}

// Put inserts or updates the entry for key, evicting the least recently
// used entry first if the cache is at capacity.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()
	inner.Add(key, value)
}

// Remove drops key. The underlying LRU reports a removal through the same
// callback as an eviction, so a dirty entry is handed to writeback first.
func (c *Cache[K, V]) Remove(key K) {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()
	inner.Remove(key)
}

// Len reports the current number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()
	return inner.Len()
}

// DirtyIter returns the keys of every currently cached dirty entry, so the
// store can flush them eagerly).
func (c *Cache[K, V]) DirtyIter() []K {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()

	keys := inner.Keys()
	dirty := make([]K, 0, len(keys))
	for _, k := range keys {
		if v, ok := inner.Peek(k); ok && v.IsDirty() {
			dirty = append(dirty, k)
		}
	}
	return dirty
}

// Clear drops every entry without invoking writeback. It replaces the
// underlying LRU rather than calling Purge, since Purge would invoke the
// eviction callback for every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh, err := lru.NewWithEvict[K, V](c.capacity, c.onEvict)
	if err != nil {
		// Capacity was already validated in New; this cannot fail in
		// practice, but fall back to purging rather than panicking.
		c.inner.Purge()
		return
	}
	c.inner = fresh
}
