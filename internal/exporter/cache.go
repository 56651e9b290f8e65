// Package exporter provides caching functionality for snapshot documents.
package exporter

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const snapshotCacheKey = "snapshot_document"

// SnapshotCache provides TTL-based caching of the raw snapshot document.
// It wraps patrickmn/go-cache to bound the load put on the info service
// under dense scraping.
//
// The info service regenerates its snapshot on its own schedule (typically
// once a minute), so fetching more often than that yields identical
// documents. Only the immutable fetched bytes are cached; every collection
// pass still rebuilds its registry and filter state from scratch.
//
// A TTL of zero disables the cache entirely: Get always misses and Set only
// records the fetch time.
//
// Thread-safety: all methods are safe for concurrent use.
type SnapshotCache struct {
	cache         *cache.Cache
	ttl           time.Duration
	lastFetchMu   sync.RWMutex
	lastFetchTime time.Time
}

// NewSnapshotCache creates a new cache with the specified TTL.
// Cleanup interval is set to 2x TTL. A non-positive TTL disables caching.
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	sc := &SnapshotCache{ttl: ttl}
	if ttl > 0 {
		sc.cache = cache.New(ttl, ttl*2)
	}
	return sc
}

// Enabled reports whether snapshot caching is active.
func (sc *SnapshotCache) Enabled() bool {
	return sc.cache != nil
}

// Get returns the cached snapshot document if available.
// Returns nil, false on cache miss or when caching is disabled.
func (sc *SnapshotCache) Get() ([]byte, bool) {
	if sc.cache == nil {
		return nil, false
	}
	if cached, found := sc.cache.Get(snapshotCacheKey); found {
		return cached.([]byte), true
	}
	return nil, false
}

// Set stores the snapshot document with the default TTL and records the
// fetch time.
func (sc *SnapshotCache) Set(doc []byte) {
	if sc.cache != nil {
		sc.cache.Set(snapshotCacheKey, doc, cache.DefaultExpiration)
	}
	sc.lastFetchMu.Lock()
	sc.lastFetchTime = time.Now()
	sc.lastFetchMu.Unlock()
}

// GetLastFetchTime returns the timestamp of the last successful fetch.
func (sc *SnapshotCache) GetLastFetchTime() time.Time {
	sc.lastFetchMu.RLock()
	defer sc.lastFetchMu.RUnlock()
	return sc.lastFetchTime
}

// TTL returns the configured cache TTL.
func (sc *SnapshotCache) TTL() time.Duration {
	return sc.ttl
}

// Flush clears the cached document.
// Use on config reload when the info service address changes.
func (sc *SnapshotCache) Flush() {
	if sc.cache != nil {
		sc.cache.Flush()
	}
}
