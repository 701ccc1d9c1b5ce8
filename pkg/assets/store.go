package assets

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ashpect/mxembed/pkg/cache"
)

// MaxAge is the client cache lifetime advertised for static assets.
const MaxAge = time.Hour

// CachedAsset is an upstream static asset kept in memory.
type CachedAsset struct {
	Body        []byte
	ContentType string
	// FetchedAt is informational, expiry is owned by the underlying cache.
	FetchedAt time.Time
}

// Store is the path keyed asset cache consulted before proxying.
type Store struct {
	entries cache.Cache[string, CachedAsset]
	now     func() time.Time
}

type StoreOption func(*Store)

// WithClock overrides time.Now for FetchedAt and Expires.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(entries cache.Cache[string, CachedAsset], opts ...StoreOption) *Store {
	s := &Store{
		entries: entries,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewLRUStore builds a Store on a bounded LRU. ttlSeconds 0 keeps entries until evicted.
func NewLRUStore(capacity, ttlSeconds int, opts ...StoreOption) (*Store, error) {
	entries, err := cache.NewLRUTTL(
		cache.WithCapacity[string, CachedAsset](capacity),
		cache.WithDefaultTTL[string, CachedAsset](ttlSeconds),
		cache.WithOnEvict[string, CachedAsset](CountEviction),
		cache.WithCleanupStart[string, CachedAsset](ttlSeconds > 0),
	)
	if err != nil {
		return nil, fmt.Errorf("asset cache: %w", err)
	}
	return NewStore(entries, opts...), nil
}

// Lookup returns the asset stored under path.
func (s *Store) Lookup(path string) (CachedAsset, bool) {
	asset, ok := s.entries.Get(path)
	if ok {
		cacheLookups.WithLabelValues("hit").Inc()
	} else {
		cacheLookups.WithLabelValues("miss").Inc()
	}
	return asset, ok
}

// Store overwrites whatever is kept under path.
func (s *Store) Store(path string, body []byte, contentType string) CachedAsset {
	asset := CachedAsset{
		Body:        body,
		ContentType: contentType,
		FetchedAt:   s.now(),
	}
	s.entries.Set(path, asset)
	cacheEntries.Set(float64(s.entries.Len()))
	return asset
}

// Len is the number of cached paths.
func (s *Store) Len() int {
	return s.entries.Len()
}

// SetCacheHeaders marks a response as publicly cacheable for MaxAge.
func (s *Store) SetCacheHeaders(h http.Header) {
	h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(MaxAge.Seconds())))
	h.Set("Expires", s.now().Add(MaxAge).UTC().Format(http.TimeFormat))
}

// Close stops background expiry of the underlying cache.
func (s *Store) Close() {
	s.entries.Close()
}

// Serve writes a cache hit.
func (s *Store) Serve(w http.ResponseWriter, asset CachedAsset) {
	s.SetCacheHeaders(w.Header())
	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(asset.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(asset.Body)
}
