// Package cache holds the client's local view of server collections
// (owned listings, own requests). Every mutating operation returns a
// function that undoes it, which is how optimistic updates roll back.
package cache

import "sync"

// Item is a value together with its local pending flag.
type Item[T any] struct {
	Value   T
	Pending bool
}

// Collection is an ordered, keyed set of values safe for concurrent use.
type Collection[T any] struct {
	mu    sync.RWMutex
	key   func(T) string
	items []Item[T]
}

// New returns an empty collection keyed by key.
func New[T any](key func(T) string) *Collection[T] {
	return &Collection[T]{key: key}
}

// Load replaces the contents with values, dropping pending flags.
func (c *Collection[T]) Load(values []T) {
	items := make([]Item[T], len(values))
	for i, v := range values {
		items[i] = Item[T]{Value: v}
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

// Snapshot returns a copy of the items in order.
func (c *Collection[T]) Snapshot() []Item[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item[T], len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the value stored under key.
func (c *Collection[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(key); i >= 0 {
		return c.items[i].Value, true
	}
	var zero T
	return zero, false
}

// Add appends v as a pending item.
func (c *Collection[T]) Add(v T) (rollback func()) {
	k := c.key(v)
	c.mu.Lock()
	c.items = append(c.items, Item[T]{Value: v, Pending: true})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if i := c.indexOf(k); i >= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
		}
	}
}

// Replace swaps the item under key for v in place and clears its pending
// flag. v may carry a different key, e.g. a server id replacing a
// temporary one. ok is false when key is absent.
func (c *Collection[T]) Replace(key string, v T) (rollback func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(key)
	if i < 0 {
		return func() {}, false
	}
	prev := c.items[i]
	newKey := c.key(v)
	c.items[i] = Item[T]{Value: v}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if j := c.indexOf(newKey); j >= 0 {
			c.items[j] = prev
		}
	}, true
}

// Remove deletes the item under key. restore puts it back at its former
// position.
func (c *Collection[T]) Remove(key string) (restore func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(key)
	if i < 0 {
		return func() {}, false
	}
	removed := c.items[i]
	c.items = append(c.items[:i], c.items[i+1:]...)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.indexOf(key) >= 0 {
			return
		}
		pos := min(i, len(c.items))
		c.items = append(c.items, Item[T]{})
		copy(c.items[pos+1:], c.items[pos:])
		c.items[pos] = removed
	}, true
}

// MarkPending sets the pending flag of the item under key.
func (c *Collection[T]) MarkPending(key string, pending bool) (rollback func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(key)
	if i < 0 {
		return func() {}, false
	}
	prev := c.items[i].Pending
	c.items[i].Pending = pending

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if j := c.indexOf(key); j >= 0 {
			c.items[j].Pending = prev
		}
	}, true
}

// Update applies fn to the value under key in place.
func (c *Collection[T]) Update(key string, fn func(*T)) (rollback func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(key)
	if i < 0 {
		return func() {}, false
	}
	prev := c.items[i]
	fn(&c.items[i].Value)
	newKey := c.key(c.items[i].Value)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if j := c.indexOf(newKey); j >= 0 {
			c.items[j] = prev
		}
	}, true
}

func (c *Collection[T]) indexOf(key string) int {
	for i, it := range c.items {
		if c.key(it.Value) == key {
			return i
		}
	}
	return -1
}
