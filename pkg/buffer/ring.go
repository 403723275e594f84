// Package buffer provides a thread-safe bounded window over recent items.
package buffer

import "sync"

// Ring is a fixed-capacity window keeping the most recent writes. When the
// ring is full, each write evicts the oldest item.
type Ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	dropped  uint64
}

// NewRing creates a ring holding at most capacity items. Capacity below one
// is raised to one.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends item, evicting the oldest when the ring is full.
func (r *Ring[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.head] = item
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
		return
	}
	r.dropped++
}

// Snapshot returns the buffered items oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, r.size)
	start := r.head - r.size
	if start < 0 {
		start += r.capacity
	}
	for i := 0; i < r.size; i++ {
		out = append(out, r.items[(start+i)%r.capacity])
	}
	return out
}

// Last returns up to n of the most recent items, oldest first. n below one
// or beyond the buffered count returns everything.
func (r *Ring[T]) Last(n int) []T {
	all := r.Snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Len returns the number of buffered items.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return r.capacity
}

// Dropped returns how many items eviction has discarded.
func (r *Ring[T]) Dropped() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dropped
}
