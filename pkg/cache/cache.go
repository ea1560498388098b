package cache

import (
	"sync"
	"time"
)

// Value caches a single item for a fixed TTL.
type Value[T any] struct {
	TTL time.Duration

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	lock     sync.Mutex
	value    T
	storedAt time.Time
	expires  time.Time
	ok       bool
}

// New returns a Value whose entries expire ttl after they are stored.
func New[T any](ttl time.Duration) *Value[T] {
	return &Value[T]{TTL: ttl}
}

func (c *Value[T]) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// Load returns the cached item if one has been stored and has not expired.
func (c *Value[T]) Load() (T, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.ok || !c.now().Before(c.expires) {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Peek returns the most recently stored item regardless of its age.
func (c *Value[T]) Peek() (T, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.value, c.ok
}

// Store replaces the cached item. The entry expires after c.TTL.
func (c *Value[T]) Store(v T) {
	now := c.now()
	c.StoreUntil(v, now.Add(c.TTL))
}

// StoreUntil replaces the cached item with an entry that expires at the earlier of expiry and
// c.TTL from now.
func (c *Value[T]) StoreUntil(v T, expiry time.Time) {
	c.lock.Lock()
	defer c.lock.Unlock()

	now := c.now()
	if limit := now.Add(c.TTL); expiry.IsZero() || expiry.After(limit) {
		expiry = limit
	}
	c.value = v
	c.storedAt = now
	c.expires = expiry
	c.ok = true
}

// Age returns how long ago the current item was stored, or false if nothing has been stored.
func (c *Value[T]) Age() (time.Duration, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.ok {
		return 0, false
	}
	return c.now().Sub(c.storedAt), true
}

// Clear discards the cached item.
func (c *Value[T]) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()

	var zero T
	c.value = zero
	c.ok = false
}
