// Package cache provides a thread-safe cache with per-entry expiration.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// TTLCache is a thread-safe cache where each entry expires ttl after it
// was stored. When maxSize is positive the cache holds at most maxSize
// entries and evicts the oldest one to make room.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	data    map[K]*list.Element
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	hits   uint64
	misses uint64
}

type entry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

// Stats reports cache usage.
type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// New creates an empty TTLCache. A non-positive maxSize means unbounded.
func New[K comparable, V any](ttl time.Duration, maxSize int) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		data:    make(map[K]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns the value for key if it is present and not expired.
// Expired entries are removed.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.data[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.expiredLocked(e) {
		c.removeLocked(el)
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key and restarts that entry's TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.data[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.storedAt = c.now()
		c.order.MoveToBack(el)
		return
	}

	c.pruneLocked()
	if c.maxSize > 0 {
		for c.order.Len() >= c.maxSize {
			c.removeLocked(c.order.Front())
		}
	}
	el := c.order.PushBack(&entry[K, V]{key: key, value: value, storedAt: c.now()})
	c.data[key] = el
}

// Delete removes key from the cache.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.data[key]; ok {
		c.removeLocked(el)
	}
}

// Invalidate clears all cached data.
func (c *TTLCache[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[K]*list.Element)
	c.order.Init()
}

// Len returns the number of unexpired entries.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()
	return len(c.data)
}

// Stats returns a snapshot of the cache counters.
func (c *TTLCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()
	return Stats{Entries: len(c.data), Hits: c.hits, Misses: c.misses}
}

func (c *TTLCache[K, V]) expiredLocked(e *entry[K, V]) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl
}

// pruneLocked drops expired entries. Entries are ordered by storedAt, so
// it stops at the first live one.
func (c *TTLCache[K, V]) pruneLocked() {
	for el := c.order.Front(); el != nil; el = c.order.Front() {
		if !c.expiredLocked(el.Value.(*entry[K, V])) {
			return
		}
		c.removeLocked(el)
	}
}

func (c *TTLCache[K, V]) removeLocked(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.data, e.key)
}
