package exporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSnapshotCacheZeroTTLDisabled(t *testing.T) {
	cache := NewSnapshotCache(0)
	assert.False(t, cache.Enabled())
	assert.Equal(t, time.Duration(0), cache.TTL())
}

func TestNewSnapshotCacheNegativeTTLDisabled(t *testing.T) {
	cache := NewSnapshotCache(-1 * time.Minute)
	assert.False(t, cache.Enabled())
}

func TestNewSnapshotCachePositiveTTLEnabled(t *testing.T) {
	cache := NewSnapshotCache(30 * time.Second)
	assert.True(t, cache.Enabled())
	assert.Equal(t, 30*time.Second, cache.TTL())
}

func TestSnapshotCacheGetSet(t *testing.T) {
	cache := NewSnapshotCache(5 * time.Minute)

	// Initially empty
	doc, found := cache.Get()
	assert.False(t, found)
	assert.Nil(t, doc)

	cache.Set([]byte("<dCache/>"))

	doc, found = cache.Get()
	assert.True(t, found)
	assert.Equal(t, []byte("<dCache/>"), doc)
}

func TestSnapshotCacheDisabledAlwaysMisses(t *testing.T) {
	cache := NewSnapshotCache(0)

	cache.Set([]byte("<dCache/>"))

	doc, found := cache.Get()
	assert.False(t, found)
	assert.Nil(t, doc)
}

func TestSnapshotCacheExpires(t *testing.T) {
	cache := NewSnapshotCache(50 * time.Millisecond)
	cache.Set([]byte("<dCache/>"))

	_, found := cache.Get()
	assert.True(t, found)

	time.Sleep(100 * time.Millisecond)

	_, found = cache.Get()
	assert.False(t, found, "entry should expire after TTL")
}

func TestSnapshotCacheLastFetchTime(t *testing.T) {
	cache := NewSnapshotCache(0)
	assert.True(t, cache.GetLastFetchTime().IsZero())

	before := time.Now()
	cache.Set([]byte("<dCache/>"))
	after := time.Now()

	// Recorded even when caching is disabled.
	got := cache.GetLastFetchTime()
	assert.False(t, got.IsZero())
	assert.True(t, !got.Before(before) && !got.After(after))
}

func TestSnapshotCacheFlush(t *testing.T) {
	cache := NewSnapshotCache(5 * time.Minute)
	cache.Set([]byte("<dCache/>"))

	cache.Flush()

	_, found := cache.Get()
	assert.False(t, found)
}

func TestSnapshotCacheFlushDisabledNoPanic(t *testing.T) {
	cache := NewSnapshotCache(0)
	assert.NotPanics(t, cache.Flush)
}
