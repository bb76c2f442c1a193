// Package cache provides the bounded caches used by the archive reader.
package cache

import (
	"container/list"
	"sync"
)

// LRU is a thread-safe least-recently-used cache bounded by total cost.
// Each value's cost comes from the cost function (1 per entry when nil).
// An entry costlier than the whole budget is not stored.
type LRU[K comparable, V any] struct {
	budget int
	used   int
	cost   func(V) int

	mu    sync.Mutex
	items map[K]*list.Element
	order *list.List // front is most recent
}

type entry[K comparable, V any] struct {
	key   K
	value V
	cost  int
}

// NewLRU creates a cache holding at most budget cost units. A non-positive
// budget is treated as 1.
func NewLRU[K comparable, V any](budget int, cost func(V) int) *LRU[K, V] {
	if budget <= 0 {
		budget = 1
	}
	if cost == nil {
		cost = func(V) int { return 1 }
	}
	return &LRU[K, V]{
		budget: budget,
		cost:   cost,
		items:  make(map[K]*list.Element),
		order:  list.New(),
	}
}

// Get returns the value for key and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Set stores value under key, evicting least recently used entries until it
// fits.
func (c *LRU[K, V]) Set(key K, value V) {
	w := c.cost(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	if w > c.budget {
		return
	}
	for c.used+w > c.budget {
		c.removeElement(c.order.Back())
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, cost: w})
	c.used += w
}

// Remove deletes key if present.
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Used returns the total cost of the stored entries.
func (c *LRU[K, V]) Used() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Clear removes every entry.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element)
	c.order.Init()
	c.used = 0
}

func (c *LRU[K, V]) removeElement(elem *list.Element) {
	e := elem.Value.(*entry[K, V])
	c.order.Remove(elem)
	delete(c.items, e.key)
	c.used -= e.cost
}
