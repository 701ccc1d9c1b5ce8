package cache

type Cache[K comparable, V any] interface {
	// Get returns the value for key and true if present (and not expired).
	Get(key K) (V, bool)

	// Set stores the value for key using the cache's default TTL (if any).
	Set(key K, value V)

	// Len returns the number of items currently stored.
	Len() int

	// Close stops the cleanup cronjob. The cache stays usable afterwards.
	Close()
}
