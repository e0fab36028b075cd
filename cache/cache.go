package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// ErrInvalidCapacity is returned for a cache bound below one entry.
var ErrInvalidCapacity = errors.New("cache capacity must be at least 1")

// Observer receives cache events. *metrics.Metrics satisfies it.
type Observer interface {
	CacheHit(cache string)
	CacheMiss(cache string)
	CacheEvicted(cache, cause string)
}

// Stats is a point-in-time view of a cache. Counters may lag concurrent
// operations slightly.
type Stats struct {
	Name      string
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Expired   uint64
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

type config struct {
	ttl      time.Duration
	now      func() time.Time
	observer Observer
}

// Option configures a Cache.
type Option func(*config) error

// WithTTL sets the maximum age of an entry. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) error {
		if ttl < 0 {
			return errors.New("cache ttl cannot be negative")
		}
		c.ttl = ttl
		return nil
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		if now != nil {
			c.now = now
		}
		return nil
	}
}

// WithObserver reports hits, misses and evictions to o.
func WithObserver(o Observer) Option {
	return func(c *config) error {
		c.observer = o
		return nil
	}
}

// Cache is a bounded, time-limited, least-recently-used map safe for
// concurrent use. Reads refresh recency, so Get takes the same lock as Put.
type Cache[K comparable, V any] struct {
	name     string
	capacity int
	ttl      time.Duration
	now      func() time.Time
	observer Observer

	mu  sync.Mutex
	lru *simplelru.LRU[K, entry[V]]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	expired   atomic.Uint64
}

// New creates a cache holding at most capacity entries.
func New[K comparable, V any](name string, capacity int, opts ...Option) (*Cache[K, V], error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	cfg := &config{now: time.Now}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	lru, err := simplelru.NewLRU[K, entry[V]](capacity, nil)
	if err != nil {
		return nil, err
	}

	return &Cache[K, V]{
		name:     name,
		capacity: capacity,
		ttl:      cfg.ttl,
		now:      cfg.now,
		observer: cfg.observer,
		lru:      lru,
	}, nil
}

// Name returns the cache name used in stats and metrics.
func (c *Cache[K, V]) Name() string {
	return c.name
}

// Get returns the value for key. An expired entry is removed and reported
// as a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		c.recordMiss()
		return zero, false
	}
	if c.isExpired(e) {
		c.lru.Remove(key)
		c.expired.Add(1)
		if c.observer != nil {
			c.observer.CacheEvicted(c.name, "expired")
		}
		c.recordMiss()
		return zero, false
	}

	c.hits.Add(1)
	if c.observer != nil {
		c.observer.CacheHit(c.name)
	}
	return e.value, true
}

// Put stores value under key, evicting the least recently used entry when full.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if evicted := c.lru.Add(key, entry[V]{value: value, storedAt: c.now()}); evicted {
		c.evictions.Add(1)
		if c.observer != nil {
			c.observer.CacheEvicted(c.name, "capacity")
		}
	}
}

// Remove deletes key. Returns true if it was present.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(key)
}

// Clear drops every entry. Counters are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// PurgeExpired removes every expired entry and returns how many were dropped.
func (c *Cache[K, V]) PurgeExpired() int {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if ok && c.isExpired(e) {
			c.lru.Remove(key)
			removed++
		}
	}
	c.expired.Add(uint64(removed))
	return removed
}

// Len returns the number of entries, including expired ones not yet purged.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns the current counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Name:      c.name,
		Size:      c.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Expired:   c.expired.Load(),
	}
}

func (c *Cache[K, V]) isExpired(e entry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl
}

func (c *Cache[K, V]) recordMiss() {
	c.misses.Add(1)
	if c.observer != nil {
		c.observer.CacheMiss(c.name)
	}
}
