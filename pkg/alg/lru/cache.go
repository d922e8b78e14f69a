// Package lru provides a generic thread-safe LRU cache bounded by entry
// count, total byte size, or both.
package lru

import (
	"sync"
	"sync/atomic"
)

type entry[K comparable, V any] struct {
	key   K
	value V
	size  int64
	prev  *entry[K, V]
	next  *entry[K, V]
}

// Cache is a thread-safe generic LRU cache.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	head    *entry[K, V] // Most recently used.
	tail    *entry[K, V] // Least recently used.

	maxEntries int
	maxSize    int64
	curSize    int64
	sizeFunc   func(V) int64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithMaxEntries caps the number of entries.
func WithMaxEntries[K comparable, V any](n int) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.maxEntries = n
	}
}

// WithMaxBytes caps the summed size of all values, as reported by sizeFunc.
func WithMaxBytes[K comparable, V any](maxBytes int64, sizeFunc func(V) int64) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.maxSize = maxBytes
		c.sizeFunc = sizeFunc
	}
}

// New creates a cache. At least one capacity limit must be given; otherwise
// New panics.
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{entries: make(map[K]*entry[K, V])}

	for _, opt := range opts {
		opt(c)
	}

	if c.maxEntries <= 0 && c.maxSize <= 0 {
		panic("lru: at least one capacity limit (WithMaxEntries or WithMaxBytes) is required")
	}

	return c
}

// Get returns the value stored under key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.hits.Add(1)
	c.moveToFront(ent)

	return ent.value, true
}

// Put stores value under key, evicting least recently used entries until it
// fits. A value larger than the whole byte budget is not stored.
func (c *Cache[K, V]) Put(key K, value V) {
	size := c.valueSize(value)
	if c.maxSize > 0 && size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.curSize += size - ent.size
		ent.value = value
		ent.size = size
		c.moveToFront(ent)
		c.evictOverflow()

		return
	}

	ent := &entry[K, V]{key: key, value: value, size: size}
	c.entries[key] = ent
	c.curSize += size
	c.addToFront(ent)
	c.evictOverflow()
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Clear removes every entry. Counters are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[K, V])
	c.head, c.tail = nil, nil
	c.curSize = 0
}

func (c *Cache[K, V]) valueSize(value V) int64 {
	if c.sizeFunc == nil {
		return 0
	}

	return c.sizeFunc(value)
}

// evictOverflow drops tail entries while a limit is exceeded. The head entry
// always survives.
func (c *Cache[K, V]) evictOverflow() {
	for c.tail != nil && c.tail != c.head && c.overflowing() {
		victim := c.tail
		c.removeFromList(victim)
		delete(c.entries, victim.key)
		c.curSize -= victim.size
		c.evictions.Add(1)
	}
}

func (c *Cache[K, V]) overflowing() bool {
	return (c.maxEntries > 0 && len(c.entries) > c.maxEntries) ||
		(c.maxSize > 0 && c.curSize > c.maxSize)
}

func (c *Cache[K, V]) moveToFront(ent *entry[K, V]) {
	if c.head == ent {
		return
	}

	c.removeFromList(ent)
	c.addToFront(ent)
}

func (c *Cache[K, V]) addToFront(ent *entry[K, V]) {
	ent.prev = nil
	ent.next = c.head

	if c.head != nil {
		c.head.prev = ent
	}

	c.head = ent

	if c.tail == nil {
		c.tail = ent
	}
}

func (c *Cache[K, V]) removeFromList(ent *entry[K, V]) {
	if ent.prev != nil {
		ent.prev.next = ent.next
	} else {
		c.head = ent.next
	}

	if ent.next != nil {
		ent.next.prev = ent.prev
	} else {
		c.tail = ent.prev
	}

	ent.prev, ent.next = nil, nil
}
