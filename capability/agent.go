package capability

import (
	"context"
	"time"
)

// Agent executes one capability. Implementations own no shared mutable state
// visible outside a single invocation; the dispatcher may call Execute from
// many goroutines.
type Agent interface {
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}

// AgentFunc adapts a plain function to the Agent interface.
type AgentFunc func(ctx context.Context, params map[string]any) (*Result, error)

// Execute calls the wrapped function.
func (f AgentFunc) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	return f(ctx, params)
}

// Result is what an agent invocation produces. The caching fields are
// advisory: the dispatcher stores Data only when Cacheable is set, with
// TTLHint as the entry lifetime when no caller override applies.
type Result struct {
	// Data is the payload produced by the agent.
	Data any `json:"data"`

	// Cacheable marks the result safe to serve to later identical intents.
	Cacheable bool `json:"cacheable"`

	// TTLHint is the agent's suggested entry lifetime. Zero means the
	// configured default applies.
	TTLHint time.Duration `json:"ttl_hint,omitempty"`

	// InvalidationTags are attached to the cache entry so later writes can
	// invalidate it by tag.
	InvalidationTags []string `json:"invalidation_tags,omitempty"`

	// Invalidates names tags whose entries this operation made stale. The
	// dispatcher invalidates them after a successful execution.
	Invalidates []string `json:"invalidates,omitempty"`

	// Metadata carries agent-defined annotations (row counts, upstream
	// latency). Never interpreted by the dispatcher.
	Metadata map[string]string `json:"metadata,omitempty"`
}
