package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360/datalink/errors"
)

// flightCall tracks one in-progress computation. Waiters block on done and
// then read val/err.
type flightCall[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Flight coalesces concurrent computations for the same key. The first
// caller for a key becomes the leader and runs the function; callers that
// arrive while the computation is in progress wait for the leader's result
// instead of recomputing. The in-flight marker is released on every exit
// path, including panics inside the function, so a failed computation never
// wedges the key.
type Flight[V any] struct {
	mu    sync.Mutex
	calls map[string]*flightCall[V]
}

// NewFlight creates an empty Flight.
func NewFlight[V any]() *Flight[V] {
	return &Flight[V]{
		calls: make(map[string]*flightCall[V]),
	}
}

// Do executes fn for key, coalescing concurrent callers. The returned shared
// flag reports whether the value came from another caller's computation.
//
// The computation runs detached from the leader's context: if the leader's
// ctx expires, the leader returns ctx.Err() but the computation continues
// so that other waiters (and the in-flight marker) are not stranded.
func (f *Flight[V]) Do(ctx context.Context, key string, fn func(context.Context) (V, error)) (V, bool, error) {
	f.mu.Lock()
	if call, inFlight := f.calls[key]; inFlight {
		f.mu.Unlock()
		return f.wait(ctx, call, true)
	}

	call := &flightCall[V]{done: make(chan struct{})}
	f.calls[key] = call
	f.mu.Unlock()

	// Detach the computation from the leader's context. The marker must be
	// released even if the leader abandons the call.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				call.err = errors.WrapFatal(
					fmt.Errorf("panic: %v", r), "cache", "Flight.Do", "computation panicked")
			}
			f.mu.Lock()
			delete(f.calls, key)
			f.mu.Unlock()
			close(call.done)
		}()
		call.val, call.err = fn(runCtx)
	}()

	return f.wait(ctx, call, false)
}

// InFlight reports whether a computation for key is currently running.
func (f *Flight[V]) InFlight(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, inFlight := f.calls[key]
	return inFlight
}

// wait blocks until the call completes or ctx expires.
func (f *Flight[V]) wait(ctx context.Context, call *flightCall[V], shared bool) (V, bool, error) {
	select {
	case <-call.done:
		return call.val, shared, call.err
	case <-ctx.Done():
		var zero V
		return zero, shared, ctx.Err()
	}
}
