// Package cache provides an in-memory LRU cache with TTL expiry.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// LRU caches up to a fixed number of values, evicting the least recently
// used one when full. Entries older than the TTL are treated as missing.
type LRU[V any] struct {
	entries    map[string]*entry[V]
	mutex      sync.Mutex
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	// LRU implementation
	head *entry[V]
	tail *entry[V]
	// Statistics tracking (atomic for thread safety)
	hits      int64
	misses    int64
	evictions int64
}

type entry[V any] struct {
	key       string
	value     V
	createdAt time.Time
	prev      *entry[V]
	next      *entry[V]
}

// Stats is a snapshot of cache statistics.
type Stats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits as a fraction of lookups, 0 when there were none.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// NewLRU creates a cache holding at most maxEntries values. A ttl of zero
// disables expiry.
func NewLRU[V any](maxEntries int, ttl time.Duration) *LRU[V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c := &LRU[V]{
		entries:    make(map[string]*entry[V]),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}

	// Dummy head and tail
	c.head = &entry[V]{}
	c.tail = &entry[V]{}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value stored under key and marks it recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return zero, false
	}

	if c.expired(e) {
		c.remove(e)
		atomic.AddInt64(&c.misses, 1)
		return zero, false
	}

	c.moveToFront(e)
	atomic.AddInt64(&c.hits, 1)
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *LRU[V]) Set(key string, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.createdAt = c.now()
		c.moveToFront(e)
		return
	}

	for len(c.entries) >= c.maxEntries && c.tail.prev != c.head {
		c.remove(c.tail.prev)
		atomic.AddInt64(&c.evictions, 1)
	}

	e := &entry[V]{key: key, value: value, createdAt: c.now()}
	c.entries[key] = e
	c.addToFront(e)
}

// Len returns the number of stored entries, expired ones included.
func (c *LRU[V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

// Clear removes every entry and resets the statistics.
func (c *LRU[V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*entry[V])
	c.head.next = c.tail
	c.tail.prev = c.head

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.evictions, 0)
}

// Stats returns a snapshot of the cache statistics.
func (c *LRU[V]) Stats() Stats {
	return Stats{
		Entries:   c.Len(),
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
	}
}

func (c *LRU[V]) expired(e *entry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.createdAt) > c.ttl
}

// LRU doubly-linked list operations
func (c *LRU[V]) addToFront(e *entry[V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU[V]) unlink(e *entry[V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *LRU[V]) moveToFront(e *entry[V]) {
	c.unlink(e)
	c.addToFront(e)
}

func (c *LRU[V]) remove(e *entry[V]) {
	c.unlink(e)
	delete(c.entries, e.key)
}
