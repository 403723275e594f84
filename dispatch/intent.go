package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Intent is a resolved request for a single capability: which agent to run
// and with what parameters. Intents arrive from API handlers, the CLI, or an
// IntentResolver sitting in front of this package.
type Intent struct {
	// AgentName names the capability to dispatch to.
	AgentName string `json:"agent_name"`

	// Parameters are the raw invocation arguments, validated against the
	// capability's declared parameter schema before the agent runs.
	Parameters map[string]any `json:"parameters,omitempty"`

	// CacheOptions tune caching for this intent only.
	CacheOptions CacheOptions `json:"cache_options,omitempty"`
}

// CacheOptions carries per-intent caching directives.
type CacheOptions struct {
	// SkipCache opts this intent out of caching entirely: no cache read, no
	// cache write, and no coalescing with concurrent identical dispatches.
	SkipCache bool `json:"skip_cache,omitempty"`

	// TTLOverride replaces both the agent's TTL hint and the configured
	// default for the entry this dispatch stores. Zero means no override.
	TTLOverride time.Duration `json:"ttl_override,omitempty"`
}

// UnmarshalJSON accepts ttl_override as either a duration string ("10m")
// or integer nanoseconds, so hand-written intent files stay readable.
func (o *CacheOptions) UnmarshalJSON(data []byte) error {
	type Alias CacheOptions
	aux := &struct {
		TTLOverride json.RawMessage `json:"ttl_override,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(o),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(aux.TTLOverride) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.TTLOverride, &s); err == nil {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration for ttl_override: %w", err)
		}
		o.TTLOverride = d
		return nil
	}

	var nsec int64
	if err := json.Unmarshal(aux.TTLOverride, &nsec); err != nil {
		return fmt.Errorf("ttl_override must be a duration string or integer nanoseconds")
	}
	o.TTLOverride = time.Duration(nsec)
	return nil
}

// IntentResolver turns free-form request text into a dispatchable Intent.
// Implementations live outside this module (an NLU service, a rule engine);
// the interface exists so they can be swapped in without touching dispatch.
type IntentResolver interface {
	Resolve(ctx context.Context, text string) (*Intent, error)
}
