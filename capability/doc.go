// Package capability manages the catalog of agent capabilities available to
// the dispatch layer.
//
// # Overview
//
// A capability is a named operation an agent can perform, described by a
// Descriptor: the capability name, a human-readable description, and an
// ordered list of typed parameters. The Registry maps capability names to
// descriptors and the Agent implementations that serve them. Dispatch
// resolves intents against this registry before validating parameters and
// invoking the agent.
//
// # Descriptors
//
// Parameter types come from a closed vocabulary: string, int, float, bool,
// object, array, and any. Names are limited to alphanumerics, dash,
// underscore, and dot, with a 256 character cap.
//
//	desc := capability.Descriptor{
//	    Name:        "weather",
//	    Description: "Current conditions for a city",
//	    Parameters: []capability.ParameterSpec{
//	        {Name: "city", Type: capability.TypeString, Required: true},
//	        {Name: "units", Type: capability.TypeString},
//	    },
//	}
//
// # Registration Semantics
//
// Register validates the descriptor and stores it with its agent. The name
// is the identity:
//
//   - New name: the capability is added.
//   - Existing name, schema-equal descriptor: no-op. The first agent keeps
//     serving the capability, so process restarts and repeated wiring code
//     can re-register safely.
//   - Existing name, different parameter schema: ErrDuplicateCapability.
//
// Schema equality compares parameter names, types, required flags, and
// order. Descriptions are documentation and never cause a conflict.
//
// # JSON Registration
//
// RegisterJSON accepts a raw descriptor document, checks it against an
// embedded JSON Schema before decoding, and then registers it. This is the
// path for descriptors loaded from configuration files, where a field-level
// validation message beats an opaque decode error:
//
//	err := registry.RegisterJSON(raw, agent)
//	// descriptor document invalid:
//	//   - parameters.0.type: parameters.0.type must be one of the following: ...
//
// # Agents
//
// Agent is a single-method interface; AgentFunc adapts plain functions:
//
//	agent := capability.AgentFunc(func(ctx context.Context, params map[string]any) (*capability.Result, error) {
//	    return &capability.Result{Data: lookup(params), Cacheable: true}, nil
//	})
//
// The Result an agent returns carries caching directives alongside the
// payload: whether the value may be cached, an optional TTL hint, tags for
// targeted invalidation, and tags this execution invalidates in turn. The
// dispatch layer interprets these; agents never touch the cache directly.
//
// # Thread Safety
//
// Registry is safe for concurrent use. Lookups take a read lock and return
// defensive copies, so a resolved descriptor can be inspected or mutated
// without affecting the catalog.
package capability
