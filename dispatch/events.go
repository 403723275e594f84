package dispatch

import (
	"time"
)

// DispatchEvent describes one completed dispatch, successful or not. Events
// feed usage tracking and audit trails without coupling those consumers to
// the dispatch path.
type DispatchEvent struct {
	RequestID string        `json:"request_id"`
	Agent     string        `json:"agent"`
	Outcome   string        `json:"outcome"`
	Shared    bool          `json:"shared,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
	Error     string        `json:"error,omitempty"`
}

// Observer consumes dispatch events. Observe is called synchronously on the
// dispatch path and must hand the event off quickly; dropping an event under
// load is preferable to blocking a dispatch.
type Observer interface {
	Observe(event DispatchEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event DispatchEvent)

// Observe implements Observer.
func (f ObserverFunc) Observe(event DispatchEvent) {
	f(event)
}
