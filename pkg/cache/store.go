package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c360/datalink/errors"
)

// storeEntry represents an entry in the tagged store.
type storeEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	tags      []string
}

// isExpired checks if the entry has expired.
func (e *storeEntry[V]) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// evicted captures a removed entry so its callback can run after the lock
// is released. Callbacks that re-enter the cache would otherwise deadlock.
type evicted[V any] struct {
	key   string
	value V
}

// store combines TTL expiry, LRU eviction, and tag indexing.
// Items leave the cache when they expire, when capacity pressure evicts
// them (expired entries first, then least recently used), or when a tag
// they carry is invalidated.
type store[V any] struct {
	mu              sync.RWMutex
	maxSize         int
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	items           map[string]*list.Element       // key -> list element
	order           *list.List                     // doubly-linked list for LRU ordering
	byTag           map[string]map[string]struct{} // tag -> set of keys
	closed          bool
	stats           *Statistics      // ALWAYS initialized
	metrics         *cacheMetrics    // Optional, if metrics enabled
	evictFn         EvictCallback[V] // Optional callback

	// Background cleanup coordination
	shutdown chan struct{}
	done     chan struct{}
}

// newStore creates the tagged TTL+LRU store.
// Returns an error if metrics registration fails when requested.
func newStore[V any](
	ctx context.Context, maxSize int, ttl, cleanupInterval time.Duration, opts *cacheOptions[V],
) (*store[V], error) {
	// Stats are ALWAYS initialized - observability is not optional
	stats := NewStatistics()

	var metrics *cacheMetrics
	// Optionally expose stats as Prometheus metrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "newStore", "metrics registration")
		}
	}

	c := &store[V]{
		maxSize:         maxSize,
		defaultTTL:      ttl,
		cleanupInterval: cleanupInterval,
		items:           make(map[string]*list.Element),
		order:           list.New(),
		byTag:           make(map[string]map[string]struct{}),
		stats:           stats,   // ALWAYS present
		metrics:         metrics, // Optional
		evictFn:         opts.evictCallback,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
	}

	// Start background sweep goroutine for TTL with caller's context
	go c.cleanup(ctx)

	return c, nil
}

// Get retrieves a value by key, checking for expiration and updating LRU order.
func (c *store[V]) Get(key string) (V, bool) {
	var pending []evicted[V]
	defer c.notifyEvicted(&pending)

	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists || c.closed {
		var zero V
		// ALWAYS track in stats (observability is not optional)
		c.stats.Miss()
		// ALSO track in metrics if enabled
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		return zero, false
	}

	entry := element.Value.(*storeEntry[V])

	// Expired entries are never returned, even before the sweeper runs
	if entry.isExpired() {
		pending = append(pending, c.removeElement(element))
		// ALWAYS track expiration and miss in stats
		c.stats.Expiration()
		c.stats.Miss()
		c.stats.UpdateSize(int64(len(c.items)))
		// ALSO track in metrics if enabled
		if c.metrics != nil {
			c.metrics.recordExpiration()
			c.metrics.recordMiss()
			c.metrics.updateSize(len(c.items))
		}

		var zero V
		return zero, false
	}

	// Move to front (most recently used)
	c.order.MoveToFront(element)

	// ALWAYS track hit in stats
	c.stats.Hit()
	// ALSO track in metrics if enabled
	if c.metrics != nil {
		c.metrics.recordHit()
	}

	return entry.value, true
}

// Set stores a value with the default TTL and no tags.
func (c *store[V]) Set(key string, value V) (bool, error) {
	return c.SetWithOptions(key, value, EntryOptions{})
}

// SetWithOptions stores a value applying a per-entry TTL override and tags,
// updating LRU order and the tag index.
func (c *store[V]) SetWithOptions(key string, value V, opts EntryOptions) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	expiresAt := time.Now().Add(ttl)

	var pending []evicted[V]
	defer c.notifyEvicted(&pending)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, errors.WrapTransient(errors.ErrCacheUnavailable, "cache", "SetWithOptions", "cache closed")
	}

	// Check if key already exists
	if element, exists := c.items[key]; exists {
		// Update existing entry in place
		entry := element.Value.(*storeEntry[V])
		c.untagEntry(entry)
		entry.value = value
		entry.expiresAt = expiresAt
		entry.tags = opts.Tags
		c.tagEntry(entry)
		c.order.MoveToFront(element)

		// ALWAYS track in stats
		c.stats.Set()
		// ALSO track in metrics if enabled
		if c.metrics != nil {
			c.metrics.recordSet()
		}
		return false, nil // existing entry was updated
	}

	// Create new entry
	entry := &storeEntry[V]{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
		tags:      opts.Tags,
	}
	element := c.order.PushFront(entry)
	c.items[key] = element
	c.tagEntry(entry)

	// Evict if over capacity: expired entries go before live ones
	if len(c.items) > c.maxSize {
		if removed, ok := c.evictOne(); ok {
			pending = append(pending, removed)
		}
	}

	// ALWAYS track in stats
	c.stats.Set()
	c.stats.UpdateSize(int64(len(c.items)))
	// ALSO track in metrics if enabled
	if c.metrics != nil {
		c.metrics.recordSet()
		c.metrics.updateSize(len(c.items))
	}

	return true, nil // new entry was created
}

// Delete removes an entry by key.
func (c *store[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	var pending []evicted[V]
	defer c.notifyEvicted(&pending)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, errors.WrapTransient(errors.ErrCacheUnavailable, "cache", "Delete", "cache closed")
	}

	element, exists := c.items[key]
	if !exists {
		return false, nil
	}

	pending = append(pending, c.removeElement(element))

	// ALWAYS track in stats
	c.stats.Delete()
	c.stats.UpdateSize(int64(len(c.items)))
	// ALSO track in metrics if enabled
	if c.metrics != nil {
		c.metrics.recordDelete()
		c.metrics.updateSize(len(c.items))
	}

	return true, nil
}

// Clear removes all entries from the cache.
func (c *store[V]) Clear() error {
	var pending []evicted[V]
	defer c.notifyEvicted(&pending)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.WrapTransient(errors.ErrCacheUnavailable, "cache", "Clear", "cache closed")
	}

	if c.evictFn != nil {
		for element := c.order.Back(); element != nil; element = element.Prev() {
			entry := element.Value.(*storeEntry[V])
			pending = append(pending, evicted[V]{key: entry.key, value: entry.value})
		}
	}

	c.items = make(map[string]*list.Element)
	c.byTag = make(map[string]map[string]struct{})
	c.order.Init()

	// ALWAYS track size update in stats
	c.stats.UpdateSize(0)
	// ALSO track in metrics if enabled
	if c.metrics != nil {
		c.metrics.updateSize(0)
	}

	return nil
}

// InvalidateTag removes every entry carrying the given tag and returns the
// number of entries removed.
func (c *store[V]) InvalidateTag(tag string) (int, error) {
	if tag == "" {
		return 0, errors.WrapInvalid(errors.ErrInvalidData, "cache", "InvalidateTag", "tag cannot be empty")
	}

	var pending []evicted[V]
	defer c.notifyEvicted(&pending)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, errors.WrapTransient(errors.ErrCacheUnavailable, "cache", "InvalidateTag", "cache closed")
	}

	keys, exists := c.byTag[tag]
	if !exists {
		return 0, nil
	}

	removed := 0
	for key := range keys {
		element, ok := c.items[key]
		if !ok {
			continue
		}
		pending = append(pending, c.removeElement(element))
		removed++
	}

	if removed > 0 {
		// ALWAYS track in stats
		for i := 0; i < removed; i++ {
			c.stats.Invalidation()
		}
		c.stats.UpdateSize(int64(len(c.items)))
		// ALSO track in metrics if enabled
		if c.metrics != nil {
			for i := 0; i < removed; i++ {
				c.metrics.recordInvalidation()
			}
			c.metrics.updateSize(len(c.items))
		}
	}

	return removed, nil
}

// Size returns the current number of entries in the cache.
func (c *store[V]) Size() int {
	c.mu.RLock()
	size := len(c.items)
	c.mu.RUnlock()
	return size
}

// Keys returns a slice of all live keys currently in the cache.
// Keys are returned in LRU order (most recently used first).
func (c *store[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	now := time.Now()

	for element := c.order.Front(); element != nil; element = element.Next() {
		entry := element.Value.(*storeEntry[V])
		if now.Before(entry.expiresAt) {
			keys = append(keys, entry.key)
		}
	}
	return keys
}

// Stats returns cache statistics.
func (c *store[V]) Stats() *Statistics {
	return c.stats
}

// Close shuts down the cache and stops the background sweep goroutine.
// Further writes fail with ErrCacheUnavailable; reads miss.
func (c *store[V]) Close() error {
	c.mu.Lock()
	alreadyClosed := c.closed
	c.closed = true
	c.mu.Unlock()

	if !alreadyClosed {
		close(c.shutdown)
	}

	// Wait for sweep goroutine to finish with timeout
	select {
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for cleanup goroutine to finish")
	}
}

// evictOne removes one entry to relieve capacity pressure. Expired entries
// are preferred; if none is expired the least recently used entry goes.
// Must be called with mutex held.
func (c *store[V]) evictOne() (evicted[V], bool) {
	// Scan from the LRU end for an expired entry first
	for element := c.order.Back(); element != nil; element = element.Prev() {
		entry := element.Value.(*storeEntry[V])
		if entry.isExpired() {
			removed := c.removeElement(element)
			// ALWAYS track in stats, ALSO in metrics if enabled
			c.stats.Expiration()
			if c.metrics != nil {
				c.metrics.recordExpiration()
			}
			return removed, true
		}
	}

	// No expired entries: evict the least recently used
	element := c.order.Back()
	if element == nil {
		return evicted[V]{}, false
	}
	removed := c.removeElement(element)
	// ALWAYS track in stats, ALSO in metrics if enabled
	c.stats.Eviction()
	if c.metrics != nil {
		c.metrics.recordEviction()
	}
	return removed, true
}

// removeElement removes an element from the list, map, and tag index,
// returning the entry for callback delivery. Must be called with mutex held.
func (c *store[V]) removeElement(element *list.Element) evicted[V] {
	entry := element.Value.(*storeEntry[V])
	delete(c.items, entry.key)
	c.order.Remove(element)
	c.untagEntry(entry)
	return evicted[V]{key: entry.key, value: entry.value}
}

// tagEntry registers the entry's key under each of its tags.
// Must be called with mutex held.
func (c *store[V]) tagEntry(entry *storeEntry[V]) {
	for _, tag := range entry.tags {
		keys, exists := c.byTag[tag]
		if !exists {
			keys = make(map[string]struct{})
			c.byTag[tag] = keys
		}
		keys[entry.key] = struct{}{}
	}
}

// untagEntry removes the entry's key from the tag index, dropping empty
// tag sets. Must be called with mutex held.
func (c *store[V]) untagEntry(entry *storeEntry[V]) {
	for _, tag := range entry.tags {
		keys, exists := c.byTag[tag]
		if !exists {
			continue
		}
		delete(keys, entry.key)
		if len(keys) == 0 {
			delete(c.byTag, tag)
		}
	}
}

// notifyEvicted delivers eviction callbacks after the lock is released.
func (c *store[V]) notifyEvicted(pending *[]evicted[V]) {
	if c.evictFn == nil {
		return
	}
	for _, e := range *pending {
		c.evictFn(e.key, e.value)
	}
}

// cleanup runs in a background goroutine and periodically removes expired entries.
func (c *store[V]) cleanup(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

// removeExpired removes all expired entries from the cache.
func (c *store[V]) removeExpired() {
	now := time.Now()
	var expiredEntries []evicted[V]

	c.mu.Lock()

	// Walk through the list and find expired elements
	for element := c.order.Front(); element != nil; {
		next := element.Next()
		entry := element.Value.(*storeEntry[V])

		if now.After(entry.expiresAt) {
			expiredEntries = append(expiredEntries, c.removeElement(element))
		}

		element = next
	}

	size := len(c.items)

	// Update statistics while holding the lock
	if len(expiredEntries) > 0 {
		// ALWAYS track expirations in stats
		for range expiredEntries {
			c.stats.Expiration()
		}
		c.stats.UpdateSize(int64(size))
		// ALSO track in metrics if enabled
		if c.metrics != nil {
			for range expiredEntries {
				c.metrics.recordExpiration()
			}
			c.metrics.updateSize(size)
		}
	}

	c.mu.Unlock()

	// Call eviction callbacks outside the lock
	if c.evictFn != nil {
		for _, e := range expiredEntries {
			c.evictFn(e.key, e.value)
		}
	}
}
