package cache

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

const defaultCapacity = 512
const defaultCleanupInterval = time.Minute

// LRUOption is a functional option for building LRUTTL cache
type LRUOption[K comparable, V any] func(*LRUWithTTL[K, V])

// EvictFunc is called with the key of every entry dropped by capacity or expiry.
type EvictFunc[K comparable] func(key K)

// ttlEntry stored in list.Element
type ttlEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// LRU cache with TTL based cleanup
type LRUWithTTL[K comparable, V any] struct {
	capacity int
	mu       sync.RWMutex
	ll       *list.List
	items    map[K]*list.Element
	onEvict  EvictFunc[K]

	// 0 means entries written by Set never expire
	defaultTTL      time.Duration
	cleanupInterval time.Duration

	cleanupStop    chan struct{}
	cleanupRunning bool
	cleanupOnStart bool
}

// WithCapacity sets the capacity of the cache.
func WithCapacity[K comparable, V any](capacity int) LRUOption[K, V] {
	return func(c *LRUWithTTL[K, V]) {
		c.capacity = capacity
	}
}

// WithDefaultTTL sets a default TTL (SECONDS) used by Set(). 0 disables expiry.
func WithDefaultTTL[K comparable, V any](ttlSeconds int) LRUOption[K, V] {
	return func(c *LRUWithTTL[K, V]) {
		if ttlSeconds >= 0 {
			c.defaultTTL = time.Duration(ttlSeconds) * time.Second
		} else {
			panic("default TTL must be >= 0")
		}
	}
}

// WithCleanupInterval configures automatic cleanup interval (SECONDS). intervalSeconds > 0 for TTL based cleanup
func WithCleanupInterval[K comparable, V any](intervalSeconds int) LRUOption[K, V] {
	return func(c *LRUWithTTL[K, V]) {
		if intervalSeconds > 0 {
			c.cleanupInterval = time.Duration(intervalSeconds) * time.Second
		} else {
			panic("cleanup interval must be > 0")
		}
	}
}

// WithCleanupStart configures whether to start the cleanup cronjob on cache creation.
func WithCleanupStart[K comparable, V any](start bool) LRUOption[K, V] {
	return func(c *LRUWithTTL[K, V]) {
		c.cleanupOnStart = start
	}
}

// WithOnEvict registers a callback for evicted and expired keys.
// It runs with the cache lock held and must not call back into the cache.
func WithOnEvict[K comparable, V any](fn EvictFunc[K]) LRUOption[K, V] {
	return func(c *LRUWithTTL[K, V]) {
		c.onEvict = fn
	}
}

// NewLRUTTL creates an LRU cache with TTL based cleanup.
// Capacity must be > 0. Provide options to configure TTL and cleanup interval.
func NewLRUTTL[K comparable, V any](opts ...LRUOption[K, V]) (*LRUWithTTL[K, V], error) {
	c := &LRUWithTTL[K, V]{
		capacity:        defaultCapacity,
		ll:              list.New(),
		cleanupInterval: defaultCleanupInterval,
		cleanupStop:     make(chan struct{}),
	}

	for _, o := range opts {
		o(c)
	}
	if c.capacity <= 0 {
		return nil, errors.New("capacity must be > 0")
	}
	c.items = make(map[K]*list.Element, c.capacity)

	if c.cleanupOnStart {
		c.StartCleanupDaemon()
	}
	return c, nil
}
