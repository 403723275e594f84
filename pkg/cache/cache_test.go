package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/c360/datalink/errors"
)

// newTestCache creates a cache with the given capacity and TTL for tests.
func newTestCache(t *testing.T, maxSize int, ttl, cleanup time.Duration, options ...Option[string]) Cache[string] {
	t.Helper()
	cfg := Config{Enabled: true, MaxSize: maxSize, TTL: ttl, CleanupInterval: cleanup}
	c, err := New[string](context.Background(), cfg, options...)
	if err != nil {
		t.Fatalf("Unexpected error creating cache: %v", err)
	}
	return c
}

// testBasicOperations tests basic cache operations.
func testBasicOperations(t *testing.T, cache Cache[string]) {
	// Test Get on empty cache
	if value, exists := cache.Get("key1"); exists {
		t.Errorf("Expected cache miss, got value: %s", value)
	}

	// Test Set and Get
	isNew, err := cache.Set("key1", "value1")
	if err != nil {
		t.Fatalf("Unexpected error setting key: %v", err)
	}
	if !isNew {
		t.Error("Expected new entry creation")
	}

	if value, exists := cache.Get("key1"); !exists || value != "value1" {
		t.Errorf("Expected 'value1', got value: %s, exists: %t", value, exists)
	}

	// Test Update
	isNew, err = cache.Set("key1", "value1_updated")
	if err != nil {
		t.Fatalf("Unexpected error updating key: %v", err)
	}
	if isNew {
		t.Error("Expected existing entry update")
	}

	if value, exists := cache.Get("key1"); !exists || value != "value1_updated" {
		t.Errorf("Expected 'value1_updated', got value: %s, exists: %t", value, exists)
	}

	// Test Delete
	deleted, err := cache.Delete("key1")
	if err != nil {
		t.Fatalf("Unexpected error deleting key: %v", err)
	}
	if !deleted {
		t.Error("Expected successful deletion")
	}

	deleted, err = cache.Delete("key1")
	if err != nil {
		t.Fatalf("Unexpected error deleting non-existent key: %v", err)
	}
	if deleted {
		t.Error("Expected deletion failure for non-existent key")
	}

	if value, exists := cache.Get("key1"); exists {
		t.Errorf("Expected cache miss after deletion, got value: %s", value)
	}
}

// testSizeOperations tests cache size tracking.
func testSizeOperations(t *testing.T, cache Cache[string]) {
	if cache.Size() != 0 {
		t.Errorf("Expected size 0, got %d", cache.Size())
	}

	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")

	if cache.Size() != 2 {
		t.Errorf("Expected size 2, got %d", cache.Size())
	}

	_, _ = cache.Delete("key1")

	if cache.Size() != 1 {
		t.Errorf("Expected size 1, got %d", cache.Size())
	}
}

// testKeysOperation tests cache key listing.
func testKeysOperation(t *testing.T, cache Cache[string]) {
	if len(cache.Keys()) != 0 {
		t.Errorf("Expected no keys, got %v", cache.Keys())
	}

	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")

	keys := cache.Keys()
	if len(keys) != 2 {
		t.Errorf("Expected 2 keys, got %d", len(keys))
	}

	keyMap := make(map[string]bool)
	for _, key := range keys {
		keyMap[key] = true
	}

	if !keyMap["key1"] || !keyMap["key2"] {
		t.Errorf("Expected keys 'key1' and 'key2', got %v", keys)
	}
}

// testClearOperation tests cache clearing.
func testClearOperation(t *testing.T, cache Cache[string]) {
	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")

	_ = cache.Clear()

	if cache.Size() != 0 {
		t.Errorf("Expected size 0 after clear, got %d", cache.Size())
	}

	if value, exists := cache.Get("key1"); exists {
		t.Errorf("Expected cache miss after clear, got value: %s", value)
	}
}

// TestCache runs the common operation suite against the tagged store.
func TestCache(t *testing.T) {
	suite := []struct {
		name string
		run  func(*testing.T, Cache[string])
	}{
		{"BasicOperations", testBasicOperations},
		{"Size", testSizeOperations},
		{"Keys", testKeysOperation},
		{"Clear", testClearOperation},
	}

	for _, tc := range suite {
		t.Run(tc.name, func(t *testing.T) {
			cache := newTestCache(t, 100, 1*time.Minute, 30*time.Second)
			defer cache.Close()
			tc.run(t, cache)
		})
	}
}

// TestLRUEviction tests capacity-based eviction of live entries.
func TestLRUEviction(t *testing.T) {
	cache := newTestCache(t, 3, 1*time.Minute, 30*time.Second)
	defer cache.Close()

	// Fill cache to capacity
	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")
	_, _ = cache.Set("key3", "value3")

	if cache.Size() != 3 {
		t.Errorf("Expected size 3, got %d", cache.Size())
	}

	// Access key1 to make it most recently used
	cache.Get("key1")

	// Add key4, which should evict key2 (least recently used)
	_, _ = cache.Set("key4", "value4")

	if cache.Size() != 3 {
		t.Errorf("Expected size 3 after eviction, got %d", cache.Size())
	}

	// key2 should be evicted
	if _, exists := cache.Get("key2"); exists {
		t.Error("Expected key2 to be evicted")
	}

	// key1, key3, key4 should still exist
	if _, exists := cache.Get("key1"); !exists {
		t.Error("Expected key1 to exist")
	}
	if _, exists := cache.Get("key3"); !exists {
		t.Error("Expected key3 to exist")
	}
	if _, exists := cache.Get("key4"); !exists {
		t.Error("Expected key4 to exist")
	}

	// A live entry removed for capacity counts as an eviction, not an expiration
	if cache.Stats().Evictions() != 1 {
		t.Errorf("Expected 1 eviction, got %d", cache.Stats().Evictions())
	}
	if cache.Stats().Expirations() != 0 {
		t.Errorf("Expected 0 expirations, got %d", cache.Stats().Expirations())
	}
}

// TestLRUOrder tests that Keys reflects recency of access.
func TestLRUOrder(t *testing.T) {
	cache := newTestCache(t, 3, 1*time.Minute, 30*time.Second)
	defer cache.Close()

	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")
	_, _ = cache.Set("key3", "value3")

	// Access in specific order
	cache.Get("key2")
	cache.Get("key1")
	cache.Get("key3")

	keys := cache.Keys()
	expected := []string{"key3", "key1", "key2"}

	for i, key := range keys {
		if key != expected[i] {
			t.Errorf("Expected key order %v, got %v", expected, keys)
			break
		}
	}
}

// TestExpiredEvictedFirst tests that eviction removes an expired entry
// before touching any live entry, regardless of recency.
func TestExpiredEvictedFirst(t *testing.T) {
	cache := newTestCache(t, 3, 1*time.Minute, 1*time.Minute)
	defer cache.Close()

	// key1 expires almost immediately; then make it most recently used
	// so plain LRU would spare it.
	_, _ = cache.SetWithOptions("key1", "value1", EntryOptions{TTL: 10 * time.Millisecond})
	_, _ = cache.Set("key2", "value2")
	_, _ = cache.Set("key3", "value3")

	time.Sleep(20 * time.Millisecond)

	// key4 pushes the cache over capacity. key1 is expired and must be the
	// one to go, even though key2 is the least recently used live entry.
	_, _ = cache.Set("key4", "value4")

	if cache.Size() != 3 {
		t.Errorf("Expected size 3 after eviction, got %d", cache.Size())
	}

	if _, exists := cache.Get("key2"); !exists {
		t.Error("Expected live key2 to survive while expired key1 existed")
	}
	if _, exists := cache.Get("key3"); !exists {
		t.Error("Expected key3 to exist")
	}
	if _, exists := cache.Get("key4"); !exists {
		t.Error("Expected key4 to exist")
	}

	// Removing the expired entry counts as an expiration, not an eviction
	if cache.Stats().Expirations() != 1 {
		t.Errorf("Expected 1 expiration, got %d", cache.Stats().Expirations())
	}
	if cache.Stats().Evictions() != 0 {
		t.Errorf("Expected 0 evictions, got %d", cache.Stats().Evictions())
	}
}

// TestTTLExpiration tests that expired entries are never returned.
func TestTTLExpiration(t *testing.T) {
	cache := newTestCache(t, 100, 100*time.Millisecond, 1*time.Minute)
	defer cache.Close()

	_, _ = cache.Set("key1", "value1")

	// Should exist immediately
	if value, exists := cache.Get("key1"); !exists || value != "value1" {
		t.Error("Expected key1 to exist immediately after set")
	}

	// Wait for expiration. The sweeper has not run yet, so this exercises
	// the expiry check inside Get.
	time.Sleep(150 * time.Millisecond)

	if _, exists := cache.Get("key1"); exists {
		t.Error("Expected key1 to be expired")
	}
}

// TestPerEntryTTL tests that SetWithOptions overrides the default TTL.
func TestPerEntryTTL(t *testing.T) {
	cache := newTestCache(t, 100, 1*time.Minute, 1*time.Minute)
	defer cache.Close()

	_, _ = cache.SetWithOptions("short", "value", EntryOptions{TTL: 50 * time.Millisecond})
	_, _ = cache.Set("long", "value")

	time.Sleep(100 * time.Millisecond)

	if _, exists := cache.Get("short"); exists {
		t.Error("Expected short-lived entry to be expired")
	}
	if _, exists := cache.Get("long"); !exists {
		t.Error("Expected default-TTL entry to still exist")
	}
}

// TestBackgroundCleanup tests the periodic expiry sweep.
func TestBackgroundCleanup(t *testing.T) {
	cache := newTestCache(t, 100, 50*time.Millisecond, 25*time.Millisecond)
	defer cache.Close()

	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")

	if cache.Size() != 2 {
		t.Errorf("Expected size 2, got %d", cache.Size())
	}

	// Wait for background cleanup
	time.Sleep(150 * time.Millisecond)

	// Items should be cleaned up
	if cache.Size() != 0 {
		t.Errorf("Expected size 0 after cleanup, got %d", cache.Size())
	}
}

// TestUpdateResetsEntry tests that Set on an existing key replaces the
// TTL deadline and tags along with the value.
func TestUpdateResetsEntry(t *testing.T) {
	cache := newTestCache(t, 100, 1*time.Minute, 1*time.Minute)
	defer cache.Close()

	_, _ = cache.SetWithOptions("key1", "old", EntryOptions{
		TTL:  50 * time.Millisecond,
		Tags: []string{"old-tag"},
	})
	_, _ = cache.SetWithOptions("key1", "new", EntryOptions{
		TTL:  1 * time.Minute,
		Tags: []string{"new-tag"},
	})

	// Old TTL no longer applies
	time.Sleep(100 * time.Millisecond)
	if value, exists := cache.Get("key1"); !exists || value != "new" {
		t.Errorf("Expected updated entry to survive old TTL, got %q, exists: %t", value, exists)
	}

	// Old tag no longer reaches the entry
	removed, err := cache.InvalidateTag("old-tag")
	if err != nil {
		t.Fatalf("Unexpected error invalidating tag: %v", err)
	}
	if removed != 0 {
		t.Errorf("Expected 0 removals via stale tag, got %d", removed)
	}

	removed, err = cache.InvalidateTag("new-tag")
	if err != nil {
		t.Fatalf("Unexpected error invalidating tag: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removal via current tag, got %d", removed)
	}
}

// TestInvalidateTag tests tag-based invalidation.
func TestInvalidateTag(t *testing.T) {
	t.Run("RemovesAllTagged", func(t *testing.T) {
		cache := newTestCache(t, 100, 1*time.Minute, 1*time.Minute)
		defer cache.Close()

		_, _ = cache.SetWithOptions("a", "1", EntryOptions{Tags: []string{"agent:x"}})
		_, _ = cache.SetWithOptions("b", "2", EntryOptions{Tags: []string{"agent:x", "dataset:q3"}})
		_, _ = cache.SetWithOptions("c", "3", EntryOptions{Tags: []string{"dataset:q3"}})
		_, _ = cache.Set("d", "4")

		removed, err := cache.InvalidateTag("agent:x")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if removed != 2 {
			t.Errorf("Expected 2 removals, got %d", removed)
		}

		if _, exists := cache.Get("a"); exists {
			t.Error("Expected tagged entry a to be removed")
		}
		if _, exists := cache.Get("b"); exists {
			t.Error("Expected tagged entry b to be removed")
		}
		if _, exists := cache.Get("c"); !exists {
			t.Error("Expected untagged-for-agent entry c to survive")
		}
		if _, exists := cache.Get("d"); !exists {
			t.Error("Expected untagged entry d to survive")
		}
	})

	t.Run("UnknownTag", func(t *testing.T) {
		cache := newTestCache(t, 100, 1*time.Minute, 1*time.Minute)
		defer cache.Close()

		_, _ = cache.Set("a", "1")

		removed, err := cache.InvalidateTag("never-used")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if removed != 0 {
			t.Errorf("Expected 0 removals for unknown tag, got %d", removed)
		}
	})

	t.Run("EmptyTag", func(t *testing.T) {
		cache := newTestCache(t, 100, 1*time.Minute, 1*time.Minute)
		defer cache.Close()

		if _, err := cache.InvalidateTag(""); err == nil {
			t.Error("Expected error for empty tag")
		}
	})

	t.Run("DeleteUnregistersTags", func(t *testing.T) {
		cache := newTestCache(t, 100, 1*time.Minute, 1*time.Minute)
		defer cache.Close()

		_, _ = cache.SetWithOptions("a", "1", EntryOptions{Tags: []string{"t"}})
		_, _ = cache.Delete("a")

		removed, err := cache.InvalidateTag("t")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if removed != 0 {
			t.Errorf("Expected 0 removals after delete, got %d", removed)
		}
	})
}

// runConcurrentOperations performs concurrent cache operations for testing.
func runConcurrentOperations(t *testing.T, cache Cache[string], numGoroutines, numOperations int) {
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	// Concurrent reads and writes
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()

			for j := 0; j < numOperations; j++ {
				key := fmt.Sprintf("key%d-%d", id, j)
				value := fmt.Sprintf("value%d-%d", id, j)

				_, _ = cache.SetWithOptions(key, value, EntryOptions{
					Tags: []string{fmt.Sprintf("worker:%d", id)},
				})

				if retrievedValue, exists := cache.Get(key); exists && retrievedValue != value {
					t.Errorf("Expected %s, got %s", value, retrievedValue)
				}

				if j%10 == 0 {
					_, _ = cache.Delete(key)
				}
				if j%25 == 0 {
					_, _ = cache.InvalidateTag(fmt.Sprintf("worker:%d", id))
				}
			}
		}(i)
	}

	wg.Wait()
}

// TestConcurrency tests thread safety of cache operations.
func TestConcurrency(t *testing.T) {
	cache := newTestCache(t, 100, 1*time.Second, 500*time.Millisecond)
	defer cache.Close()

	const numGoroutines = 10
	const numOperations = 100

	runConcurrentOperations(t, cache, numGoroutines, numOperations)
}

// TestEvictCallback tests the eviction callback functionality.
func TestEvictCallback(t *testing.T) {
	t.Run("CapacityEviction", func(t *testing.T) {
		var evictedKeys []string
		var mu sync.Mutex

		cache := newTestCache(t, 2, 1*time.Minute, 1*time.Minute,
			WithEvictionCallback[string](func(key string, _ string) {
				mu.Lock()
				evictedKeys = append(evictedKeys, key)
				mu.Unlock()
			}))
		defer cache.Close()

		_, _ = cache.Set("key1", "value1")
		_, _ = cache.Set("key2", "value2")
		_, _ = cache.Set("key3", "value3") // Should evict key1

		mu.Lock()
		if len(evictedKeys) != 1 || evictedKeys[0] != "key1" {
			t.Errorf("Expected evicted keys [key1], got %v", evictedKeys)
		}
		mu.Unlock()
	})

	t.Run("ExpirySweep", func(t *testing.T) {
		var evictedKeys []string
		var mu sync.Mutex

		cache := newTestCache(t, 100, 50*time.Millisecond, 25*time.Millisecond,
			WithEvictionCallback[string](func(key string, _ string) {
				mu.Lock()
				evictedKeys = append(evictedKeys, key)
				mu.Unlock()
			}))
		defer cache.Close()

		_, _ = cache.Set("key1", "value1")

		// Wait for expiration and cleanup
		time.Sleep(150 * time.Millisecond)

		mu.Lock()
		if len(evictedKeys) != 1 || evictedKeys[0] != "key1" {
			t.Errorf("Expected evicted keys [key1], got %v", evictedKeys)
		}
		mu.Unlock()
	})

	t.Run("TagInvalidation", func(t *testing.T) {
		var evictedKeys []string
		var mu sync.Mutex

		cache := newTestCache(t, 100, 1*time.Minute, 1*time.Minute,
			WithEvictionCallback[string](func(key string, _ string) {
				mu.Lock()
				evictedKeys = append(evictedKeys, key)
				mu.Unlock()
			}))
		defer cache.Close()

		_, _ = cache.SetWithOptions("key1", "value1", EntryOptions{Tags: []string{"t"}})
		_, _ = cache.InvalidateTag("t")

		mu.Lock()
		if len(evictedKeys) != 1 || evictedKeys[0] != "key1" {
			t.Errorf("Expected evicted keys [key1], got %v", evictedKeys)
		}
		mu.Unlock()
	})

	t.Run("CallbackMayReenterCache", func(t *testing.T) {
		var cache Cache[string]
		var lookups int

		cache = newTestCache(t, 2, 1*time.Minute, 1*time.Minute,
			WithEvictionCallback[string](func(key string, _ string) {
				// Callbacks run outside the cache lock, so touching the
				// same cache from one must not deadlock.
				_, _ = cache.Get(key)
				lookups++
			}))
		defer cache.Close()

		_, _ = cache.Set("key1", "value1")
		_, _ = cache.Set("key2", "value2")
		_, _ = cache.Set("key3", "value3")

		if lookups != 1 {
			t.Errorf("Expected 1 callback invocation, got %d", lookups)
		}
	})
}

// TestStatistics tests the statistics functionality.
func TestStatistics(t *testing.T) {
	// Note: Stats are always enabled
	cache := newTestCache(t, 10, 1*time.Minute, 1*time.Minute)
	defer cache.Close()

	stats := cache.Stats()
	if stats == nil {
		t.Fatal("Expected stats to be enabled")
	}

	// Test basic operations
	_, _ = cache.Set("key1", "value1")
	_, _ = cache.SetWithOptions("key2", "value2", EntryOptions{Tags: []string{"t"}})
	cache.Get("key1") // hit
	cache.Get("key3") // miss
	_, _ = cache.Delete("key1")
	_, _ = cache.InvalidateTag("t")

	if stats.Sets() != 2 {
		t.Errorf("Expected 2 sets, got %d", stats.Sets())
	}

	if stats.Hits() != 1 {
		t.Errorf("Expected 1 hit, got %d", stats.Hits())
	}

	if stats.Misses() != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses())
	}

	if stats.Deletes() != 1 {
		t.Errorf("Expected 1 delete, got %d", stats.Deletes())
	}

	if stats.Invalidations() != 1 {
		t.Errorf("Expected 1 invalidation, got %d", stats.Invalidations())
	}

	if stats.HitRatio() != 0.5 {
		t.Errorf("Expected hit ratio 0.5, got %f", stats.HitRatio())
	}

	if stats.CurrentSize() != 0 {
		t.Errorf("Expected current size 0, got %d", stats.CurrentSize())
	}
}

// TestClosedCache tests behavior after Close.
func TestClosedCache(t *testing.T) {
	cache := newTestCache(t, 10, 1*time.Minute, 1*time.Minute)

	_, _ = cache.Set("key1", "value1")

	if err := cache.Close(); err != nil {
		t.Fatalf("Unexpected error closing cache: %v", err)
	}

	// Reads degrade to misses
	if _, exists := cache.Get("key1"); exists {
		t.Error("Expected miss from closed cache")
	}

	// Mutations fail with ErrCacheUnavailable
	if _, err := cache.Set("key2", "value2"); !stderrors.Is(err, errors.ErrCacheUnavailable) {
		t.Errorf("Expected ErrCacheUnavailable from Set, got %v", err)
	}
	if _, err := cache.Delete("key1"); !stderrors.Is(err, errors.ErrCacheUnavailable) {
		t.Errorf("Expected ErrCacheUnavailable from Delete, got %v", err)
	}
	if _, err := cache.InvalidateTag("t"); !stderrors.Is(err, errors.ErrCacheUnavailable) {
		t.Errorf("Expected ErrCacheUnavailable from InvalidateTag, got %v", err)
	}
	if err := cache.Clear(); !stderrors.Is(err, errors.ErrCacheUnavailable) {
		t.Errorf("Expected ErrCacheUnavailable from Clear, got %v", err)
	}

	// Close is idempotent
	if err := cache.Close(); err != nil {
		t.Errorf("Unexpected error on second close: %v", err)
	}
}

// TestKeyValidation tests that empty keys are rejected.
func TestKeyValidation(t *testing.T) {
	cache := newTestCache(t, 10, 1*time.Minute, 1*time.Minute)
	defer cache.Close()

	if _, err := cache.Set("", "value"); err == nil {
		t.Error("Expected error for empty key on Set")
	}
	if _, err := cache.Delete(""); err == nil {
		t.Error("Expected error for empty key on Delete")
	}
}

// TestOptionOverrides tests that WithMaxSize and WithDefaultTTL win over
// the corresponding Config fields.
func TestOptionOverrides(t *testing.T) {
	cache := newTestCache(t, 100, 1*time.Hour, 1*time.Hour,
		WithMaxSize[string](1),
		WithDefaultTTL[string](30*time.Millisecond),
	)
	defer cache.Close()

	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")

	if size := cache.Size(); size != 1 {
		t.Errorf("Expected size 1 after eviction at overridden capacity, got %d", size)
	}

	// The overridden TTL applies, not the one-hour Config TTL.
	time.Sleep(60 * time.Millisecond)
	if _, exists := cache.Get("key2"); exists {
		t.Error("Expected entry to expire under the overridden TTL")
	}
}
