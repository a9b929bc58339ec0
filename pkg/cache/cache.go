// Package cache provides a concurrency-safe, string-keyed store of
// time-limited entries. Expiry is consumer-driven: an expired entry is
// returned to the caller flagged as expired rather than silently dropped,
// so callers can fall back to stale data when a network refresh fails.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry wraps a cached value with its expiry instant.
type Entry[T any] struct {
	Value     T
	CachedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry's expiry instant has passed. Entries
// with a zero ExpiresAt never expire.
func (e *Entry[T]) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

type config struct {
	maxSize int
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*config)

// WithMaxSize bounds the cache to n entries; the least-recently-added
// entry is evicted when the bound is exceeded.
func WithMaxSize(n int) Option {
	return func(c *config) { c.maxSize = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// Cache is a generic concurrent store of expiring entries. Stored entries
// are immutable: replacement is add-overwrite, never in-place mutation.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]*Entry[T]
	bounded *lru.Cache[string, *Entry[T]]
	now     func() time.Time
}

// New creates a Cache. Without WithMaxSize the cache is unbounded.
func New[T any](opts ...Option) *Cache[T] {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Cache[T]{now: cfg.now}
	if cfg.maxSize > 0 {
		bounded, err := lru.New[string, *Entry[T]](cfg.maxSize)
		if err != nil {
			// lru.New only fails on a non-positive size
			panic(err)
		}
		c.bounded = bounded
	} else {
		c.entries = make(map[string]*Entry[T])
	}
	return c
}

// Get returns the entry stored under key, expired or not. Callers decide
// whether an expired entry is still usable via Entry.Expired.
func (c *Cache[T]) Get(key string) (*Entry[T], bool) {
	if key == "" {
		return nil, false
	}
	if c.bounded != nil {
		return c.bounded.Get(key)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Add stores value under key with the given time to live. A zero ttl stores
// a never-expiring entry. Re-adding a key overwrites, last write wins.
func (c *Cache[T]) Add(key string, value T, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	c.AddUntil(key, value, expiresAt)
}

// AddUntil stores value under key with an absolute expiry instant.
func (c *Cache[T]) AddUntil(key string, value T, expiresAt time.Time) {
	if key == "" {
		return
	}
	entry := &Entry[T]{
		Value:     value,
		CachedAt:  c.now(),
		ExpiresAt: expiresAt,
	}
	if c.bounded != nil {
		c.bounded.Add(key, entry)
		return
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Remove deletes the entry stored under key, if any.
func (c *Cache[T]) Remove(key string) {
	if c.bounded != nil {
		c.bounded.Remove(key)
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *Cache[T]) Clear() {
	if c.bounded != nil {
		c.bounded.Purge()
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]*Entry[T])
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired entries included.
func (c *Cache[T]) Len() int {
	if c.bounded != nil {
		return c.bounded.Len()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
