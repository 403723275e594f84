// Package cache provides a generic, thread-safe response cache with TTL
// expiry, LRU eviction, and tag-based invalidation.
//
// Entries never outlive their TTL: an expired entry is treated as absent even
// if the background sweeper has not removed it yet. When the cache reaches
// capacity, expired entries are evicted before live ones; among live entries
// the least recently used goes first. Entries may carry tags, and
// InvalidateTag removes every entry sharing a tag in one call.
//
// The cache is thread-safe with built-in statistics (always enabled for
// observability) and optional Prometheus metrics integration via functional
// options. Flight provides per-key coalescing so concurrent misses for the
// same key trigger a single upstream computation.
package cache

import (
	"time"

	"github.com/c360/datalink/errors"
)

// Cache represents a generic cache interface.
// The cache is parameterized by value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found and
	// not expired, zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the default TTL and no tags. Returns true if a
	// new entry was created, false if an existing entry was updated.
	Set(key string, value V) (bool, error)

	// SetWithOptions stores a value with a per-entry TTL override and tags.
	// A zero TTL in opts means the cache default.
	SetWithOptions(key string, value V, opts EntryOptions) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed and was deleted.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// InvalidateTag removes every entry carrying the given tag.
	// Returns the number of entries removed.
	InvalidateTag(tag string) (int, error)

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns a slice of all live (unexpired) keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics if enabled, nil otherwise.
	Stats() *Statistics

	// Close shuts down the cache and releases any resources (e.g., background goroutines).
	Close() error
}

// EntryOptions carries per-entry storage options.
type EntryOptions struct {
	// TTL overrides the cache default time-to-live. Zero means use the default.
	TTL time.Duration

	// Tags associate the entry with invalidation groups.
	Tags []string
}

// EvictCallback is called when an entry is removed from the cache by
// expiry, LRU pressure, invalidation, explicit delete, or Clear.
// It receives the key and value of the removed entry.
type EvictCallback[V any] func(key string, value V)

// validateKey validates a cache key for basic requirements.
// Returns a classified error if the key is invalid.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
