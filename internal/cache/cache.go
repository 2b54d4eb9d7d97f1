// Package cache provides a small thread-safe LRU cache used for compiled
// shader programs, keyed by their generated source.
package cache

import "sync"

// Cache is a thread-safe LRU cache with a fixed capacity.
//
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*entry[V]
	capacity int
	tick     int64
	hits     uint64
	misses   uint64
}

type entry[V any] struct {
	value V
	atime int64
}

// Stats contains cache statistics.
type Stats struct {
	Len      int
	Capacity int
	Hits     uint64
	Misses   uint64
}

// New creates a cache holding at most capacity entries.
// A capacity of 0 means unlimited.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:  make(map[K]*entry[V]),
		capacity: capacity,
	}
}

// Get retrieves a value and marks it as recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.tick++
	e.atime = c.tick
	return e.value, true
}

// Set stores a value, evicting the least recently used entry when full.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

// GetOrCreate returns the cached value or stores the result of create.
// create runs under the lock, so concurrent callers never create the same
// key twice. Errors are returned and not cached.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.hits++
		c.tick++
		e.atime = c.tick
		return e.value, nil
	}
	c.misses++
	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.set(key, v)
	return v, nil
}

// Caller must hold c.mu.
func (c *Cache[K, V]) set(key K, value V) {
	c.tick++
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.atime = c.tick
		return
	}
	if c.capacity > 0 && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[key] = &entry[V]{value: value, atime: c.tick}
}

// Caller must hold c.mu.
func (c *Cache[K, V]) evictOldest() {
	var oldest K
	first := true
	var atime int64
	for k, e := range c.entries {
		if first || e.atime < atime {
			oldest, atime, first = k, e.atime, false
		}
	}
	if !first {
		delete(c.entries, oldest)
	}
}

// Delete removes an entry. Returns true if it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		return true
	}
	return false
}

// Clear removes all entries and resets the statistics.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*entry[V])
	c.tick, c.hits, c.misses = 0, 0, 0
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Len: len(c.entries), Capacity: c.capacity, Hits: c.hits, Misses: c.misses}
}
