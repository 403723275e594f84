package capability

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/c360/datalink/errors"
)

// Sentinel errors for registry lookups and registration conflicts.
var (
	// ErrUnknownCapability is returned when no capability is registered
	// under the requested name.
	ErrUnknownCapability = stderrors.New("unknown capability")

	// ErrDuplicateCapability is returned when a registration names an
	// existing capability with a structurally different parameter schema.
	ErrDuplicateCapability = stderrors.New("duplicate capability")
)

// registration pairs a descriptor with the agent that serves it.
type registration struct {
	descriptor Descriptor
	agent      Agent
}

// Registry manages capability descriptors and the agents that serve them.
// It provides thread-safe registration and lookup; the read paths are lock
// cheap because dispatch resolves capabilities far more often than anything
// registers them.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*registration
	order  []string // registration order for List snapshots
}

// NewRegistry creates a new empty capability registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*registration),
	}
}

// Register adds a capability under its descriptor name.
//
// Re-registering a descriptor that is schema-equal to the existing one is a
// no-op: the originally registered agent keeps serving the capability.
// Registering the same name with a structurally different schema fails with
// ErrDuplicateCapability.
func (r *Registry) Register(desc Descriptor, agent Agent) error {
	if err := desc.Validate(); err != nil {
		return errors.Wrap(err, "Registry", "Register", "descriptor validation")
	}
	if agent == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "Registry", "Register", "agent validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.byName[desc.Name]; exists {
		if existing.descriptor.SchemaEqual(desc) {
			// Identical re-registration keeps the first agent
			return nil
		}
		msg := fmt.Errorf("%w: %q is registered with a different parameter schema",
			ErrDuplicateCapability, desc.Name)
		return errors.WrapInvalid(msg, "Registry", "Register", "duplicate capability check")
	}

	r.byName[desc.Name] = &registration{
		descriptor: desc.clone(),
		agent:      agent,
	}
	r.order = append(r.order, desc.Name)
	return nil
}

// Lookup resolves a capability by name, returning its descriptor and agent.
func (r *Registry) Lookup(name string) (Descriptor, Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, exists := r.byName[name]
	if !exists {
		msg := fmt.Errorf("%w: %q", ErrUnknownCapability, name)
		return Descriptor{}, nil, errors.WrapInvalid(msg, "Registry", "Lookup", "capability lookup")
	}
	return reg.descriptor.clone(), reg.agent, nil
}

// List returns a read-only snapshot of all registered descriptors in
// registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		if reg, exists := r.byName[name]; exists {
			out = append(out, reg.descriptor.clone())
		}
	}
	return out
}

// Deregister removes a capability. It reports whether the name was registered.
func (r *Registry) Deregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; !exists {
		return false
	}

	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
