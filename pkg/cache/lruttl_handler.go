package cache

import (
	"container/list"
	"time"
)

// Len returns number of stored items, expired ones included until they are touched or cleaned.
// Uses read lock since it only reads the map length
func (c *LRUWithTTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns value if present and not expired
// Marks the element as most-recent
func (c *LRUWithTTL[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	element, ok := c.items[key]
	if !ok {
		return zero, false
	}
	entry := element.Value.(*ttlEntry[K, V])

	if isExpired(entry) {
		c.removeElement(element)
		return zero, false
	}

	c.ll.MoveToFront(element)
	return entry.value, true
}

// Set stores value using the default TTL. A zero default TTL means no expiry.
func (c *LRUWithTTL[K, V]) Set(key K, value V) {
	var expiresAt time.Time
	if c.defaultTTL > 0 {
		expiresAt = time.Now().Add(c.defaultTTL)
	}
	c.setWithTTLInternal(key, value, expiresAt)
}

// Actual setting
func (c *LRUWithTTL[K, V]) setWithTTLInternal(key K, value V, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// update if it's existing
	if element, ok := c.items[key]; ok {
		entry := element.Value.(*ttlEntry[K, V])
		entry.value = value
		entry.expiresAt = expiresAt
		c.ll.MoveToFront(element)
		return
	}

	// if its full, evict to create space
	if len(c.items) >= c.capacity {
		if tail := c.ll.Back(); tail != nil {
			c.removeElement(tail)
		}
	}

	entry := &ttlEntry[K, V]{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	}
	element := c.ll.PushFront(entry)
	c.items[key] = element
}

// removeElement drops an element and reports it to onEvict. Caller holds the lock.
func (c *LRUWithTTL[K, V]) removeElement(element *list.Element) {
	entry := element.Value.(*ttlEntry[K, V])
	c.ll.Remove(element)
	delete(c.items, entry.key)
	if c.onEvict != nil {
		c.onEvict(entry.key)
	}
}

// isExpired checks whether an entry is expired. (expirytime - currenttime)
func isExpired[K comparable, V any](entry *ttlEntry[K, V]) bool {
	if entry.expiresAt.IsZero() {
		return false // zero time means no expiry
	}
	return time.Since(entry.expiresAt) > 0
}

// CRONJOB

// Close stops cleanup cronjob if running.
func (c *LRUWithTTL[K, V]) Close() {
	c.StopCleanupDaemon()
}

// StartCleanupDaemon starts a background goroutine that periodically evicts expired items.
func (c *LRUWithTTL[K, V]) StartCleanupDaemon() {
	if c.cleanupInterval <= 0 {
		panic("cleanup interval must be > 0")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleanupRunning {
		return
	}
	c.cleanupRunning = true
	stop := c.cleanupStop

	go func() {
		ticker := time.NewTicker(c.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.cleanupExpired()
			case <-stop:
				return
			}
		}
	}()
}

// cleanupExpired iterates through the linked list and removes expired entries and also deletes the entry from the map.
func (c *LRUWithTTL[K, V]) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.ll.Front()
	for current != nil {
		next := current.Next()
		if isExpired(current.Value.(*ttlEntry[K, V])) {
			c.removeElement(current)
		}
		current = next
	}
}

func (c *LRUWithTTL[K, V]) StopCleanupDaemon() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cleanupRunning {
		close(c.cleanupStop)
		c.cleanupStop = make(chan struct{})
		c.cleanupRunning = false
	}
}
