// Package cache provides a thread-safe result cache with TTL expiry, LRU
// eviction, tag-based invalidation, built-in statistics tracking, and
// optional Prometheus metrics integration.
//
// # Overview
//
// The cache stores computed results under string keys. Entries leave the
// cache in three ways:
//   - Expiry: each entry carries a time-to-live; expired entries are never
//     returned, even before the background sweeper removes them
//   - Capacity: when the entry count exceeds the configured maximum, one
//     entry is evicted; expired entries are preferred, otherwise the least
//     recently used entry goes
//   - Invalidation: entries may carry tags, and InvalidateTag removes every
//     entry carrying a given tag in one call
//
// The package also provides Flight, which coalesces concurrent computations
// for the same key so that a burst of identical requests performs the work
// once.
//
// # Quick Start
//
// Create a cache from configuration:
//
//	c, err := cache.New[*Result](ctx, cache.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	c.Set("key", result)
//	value, ok := c.Get("key")
//
// Store with a per-entry TTL and tags:
//
//	c.SetWithOptions("report:42", report, cache.EntryOptions{
//		TTL:  10 * time.Minute,
//		Tags: []string{"agent:reporter", "dataset:q3"},
//	})
//
//	// Later, drop everything the reporter produced
//	removed, err := c.InvalidateTag("agent:reporter")
//
// Coalesce concurrent lookups:
//
//	flight := cache.NewFlight[*Result]()
//	value, shared, err := flight.Do(ctx, key, func(ctx context.Context) (*Result, error) {
//		return computeExpensive(ctx, key)
//	})
//
// # Entry Lifecycle
//
// Get checks expiry before returning: an entry past its deadline counts as
// a miss and is removed on the spot. A background goroutine additionally
// sweeps expired entries every CleanupInterval so that idle entries do not
// linger until their next lookup.
//
// When an insert pushes the cache over MaxSize, eviction scans from the
// least recently used end for an expired entry first. Only when every
// entry is still live does the least recently used one get evicted. This
// keeps live entries resident as long as stale ones can make room.
//
// Set on an existing key updates the entry in place, replacing its value,
// TTL deadline, and tags, and marks it most recently used.
//
// # Tag Invalidation
//
// Tags group entries that share a reason to become stale, such as all
// results produced by one agent or derived from one dataset. A tag index
// maps each tag to its member keys, so InvalidateTag removes all members
// without scanning the whole cache. An entry may carry any number of tags;
// removing an entry unregisters it from every tag it carries.
//
// # Single Flight
//
// Flight.Do runs the supplied function for a key, and callers that arrive
// while a computation for that key is in progress wait for its result
// instead of recomputing. The in-flight marker is released on every exit
// path, including panics inside the function, so a failed computation never
// wedges the key. The computation runs detached from the leader's context:
// a caller whose context expires gets ctx.Err() back, but the computation
// finishes and serves the remaining waiters.
//
// # Observability Architecture
//
// The cache implements a dual-tracking pattern:
//
// Statistics (Always On):
//   - Tracks all operations using atomic counters
//   - Zero configuration required
//   - Available via cache.Stats()
//   - Provides computed metrics (hit ratio, requests/sec)
//   - No external dependencies
//
// Prometheus Metrics (Optional):
//   - Enabled via WithMetrics() option
//   - Exports to Prometheus for time-series monitoring
//   - Includes component labels for instance identification
//   - Standard metric types (Counter, Gauge)
//
// Statistics serve programmatic access, debugging, and tests; metrics serve
// dashboards and alerting. Both are updated on every operation when metrics
// are enabled.
//
// # Disabled Caching
//
// When Config.Enabled is false, New returns a no-op cache: Get always
// misses, Set and InvalidateTag succeed without storing anything, and
// Stats returns nil. Callers write the same code whether caching is on
// or off.
//
// # Functional Options Pattern
//
// The package uses functional options for composable configuration:
//
//	c, err := cache.New[V](ctx, cfg,
//		cache.WithMetrics[V](registry, "dispatch_cache"),
//		cache.WithEvictionCallback[V](func(key string, value V) {
//			log.Printf("evicted: %s", key)
//		}),
//	)
//
// # Thread Safety
//
// All cache operations are thread-safe for concurrent use:
//   - Reads take a read lock; writes are serialized with a mutex
//   - Statistics use atomic operations (lock-free)
//   - The expiry sweep runs in a background goroutine
//   - Eviction callbacks are called outside locks to prevent deadlocks
//
// # Performance Characteristics
//
//   - Get: O(1) map lookup + list move + expiry check
//   - Set: O(1) map insert + tag registration; eviction scan is O(n) worst
//     case but stops at the first expired entry
//   - Delete: O(1) map delete + list remove + tag unregistration
//   - InvalidateTag: O(m) where m is the number of entries carrying the tag
//   - Sweep: O(n) periodic scan (background)
//
// # Context and Cleanup
//
// The cache runs a background sweep goroutine. Pass a context that will be
// canceled when the cache should stop, or call Close:
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	c, _ := cache.New[V](ctx, cfg)
//	defer c.Close()
//
// After Close, Get returns misses and mutating operations return an error
// wrapping ErrCacheUnavailable.
package cache
