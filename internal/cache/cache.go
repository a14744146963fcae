// Package cache provides a generic TTL cache with sliding expiry.
package cache

import (
	"sync"
	"time"
)

type item[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a thread-safe map whose entries expire ttl after their last
// Set or Touch. Expired entries are reaped by a background sweep and handed
// to the eviction hook, if any.
type Cache[T any] struct {
	items   map[string]item[T]
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	onEvict func(key string, value T)

	stop     chan struct{}
	stopOnce sync.Once
}

type Option[T any] func(*Cache[T])

// WithEvictHook registers f to run for every entry removed by expiry,
// Delete or Close. It runs without the cache lock held.
func WithEvictHook[T any](f func(key string, value T)) Option[T] {
	return func(c *Cache[T]) { c.onEvict = f }
}

func withNow[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) { c.now = now }
}

func New[T any](ttl time.Duration, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		items: make(map[string]item[T]),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.cleanup()
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || c.now().After(it.expiresAt) {
		var zero T
		return zero, false
	}
	return it.value, true
}

func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item[T]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Touch extends the expiry of a live entry and reports whether it existed.
func (c *Cache[T]) Touch(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || c.now().After(it.expiresAt) {
		var zero T
		return zero, false
	}
	it.expiresAt = c.now().Add(c.ttl)
	c.items[key] = it
	return it.value, true
}

// Delete removes key and runs the eviction hook for it.
func (c *Cache[T]) Delete(key string) bool {
	c.mu.Lock()
	it, ok := c.items[key]
	delete(c.items, key)
	c.mu.Unlock()

	if ok && c.onEvict != nil {
		c.onEvict(key, it.value)
	}
	return ok
}

// Size returns the number of entries, expired ones included.
func (c *Cache[T]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the sweep and evicts every remaining entry.
func (c *Cache[T]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })

	c.mu.Lock()
	items := c.items
	c.items = make(map[string]item[T])
	c.mu.Unlock()

	if c.onEvict == nil {
		return
	}
	for k, it := range items {
		c.onEvict(k, it.value)
	}
}

func (c *Cache[T]) cleanup() {
	interval := c.ttl / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[T]) removeExpired() int {
	c.mu.Lock()
	now := c.now()
	expired := make(map[string]T)
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			expired[k] = it.value
			delete(c.items, k)
		}
	}
	c.mu.Unlock()

	if c.onEvict != nil {
		for k, v := range expired {
			c.onEvict(k, v)
		}
	}
	return len(expired)
}
