package capability

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/c360/datalink/errors"
)

// namedAgent returns an agent whose results carry a marker so tests can tell
// which registration is serving a capability.
func namedAgent(marker string) Agent {
	return AgentFunc(func(_ context.Context, _ map[string]any) (*Result, error) {
		return &Result{Data: marker}, nil
	})
}

func weatherDescriptor() Descriptor {
	return Descriptor{
		Name:        "weather",
		Description: "Current conditions for a city",
		Parameters: []ParameterSpec{
			{Name: "city", Type: TypeString, Required: true},
			{Name: "units", Type: TypeString},
		},
	}
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	if registry == nil {
		t.Fatal("NewRegistry returned nil")
	}

	if registry.Len() != 0 {
		t.Errorf("Expected empty registry, got %d entries", registry.Len())
	}

	if len(registry.List()) != 0 {
		t.Error("List should start empty")
	}
}

func TestRegisterAndLookup(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register(weatherDescriptor(), namedAgent("weather-agent"))
	if err != nil {
		t.Fatalf("Failed to register capability: %v", err)
	}

	desc, agent, err := registry.Lookup("weather")
	if err != nil {
		t.Fatalf("Failed to look up capability: %v", err)
	}

	if desc.Name != "weather" {
		t.Errorf("Expected descriptor name 'weather', got '%s'", desc.Name)
	}
	if len(desc.Parameters) != 2 {
		t.Errorf("Expected 2 parameters, got %d", len(desc.Parameters))
	}

	result, err := agent.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Agent execution failed: %v", err)
	}
	if result.Data != "weather-agent" {
		t.Errorf("Expected marker 'weather-agent', got %v", result.Data)
	}
}

func TestLookupUnknown(t *testing.T) {
	registry := NewRegistry()

	_, _, err := registry.Lookup("missing")
	if err == nil {
		t.Fatal("Expected error for unknown capability")
	}
	if !stderrors.Is(err, ErrUnknownCapability) {
		t.Errorf("Expected ErrUnknownCapability, got %v", err)
	}
	if !errors.IsInvalid(err) {
		t.Errorf("Expected invalid classification, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	registry := NewRegistry()

	// Invalid descriptor is rejected before it lands in the registry
	err := registry.Register(Descriptor{Name: "bad name"}, namedAgent("a"))
	if err == nil {
		t.Error("Expected error for invalid descriptor")
	}
	if registry.Len() != 0 {
		t.Error("Failed registration should not be stored")
	}

	// Nil agent is rejected
	err = registry.Register(weatherDescriptor(), nil)
	if err == nil {
		t.Error("Expected error for nil agent")
	}
	if !errors.IsInvalid(err) {
		t.Errorf("Expected invalid classification, got %v", err)
	}
}

func TestReregisterIdenticalKeepsFirstAgent(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(weatherDescriptor(), namedAgent("first")); err != nil {
		t.Fatalf("Failed to register capability: %v", err)
	}

	// Same schema, different description and different agent. The
	// re-registration succeeds but changes nothing.
	again := weatherDescriptor()
	again.Description = "Rewritten summary"
	again.Parameters[0].Description = "Town"

	if err := registry.Register(again, namedAgent("second")); err != nil {
		t.Fatalf("Identical re-registration should be a no-op, got: %v", err)
	}

	if registry.Len() != 1 {
		t.Errorf("Expected 1 capability, got %d", registry.Len())
	}

	_, agent, err := registry.Lookup("weather")
	if err != nil {
		t.Fatalf("Failed to look up capability: %v", err)
	}
	result, err := agent.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Agent execution failed: %v", err)
	}
	if result.Data != "first" {
		t.Errorf("Expected original agent to keep serving, got marker %v", result.Data)
	}
}

func TestRegisterConflictingSchema(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(weatherDescriptor(), namedAgent("first")); err != nil {
		t.Fatalf("Failed to register capability: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Descriptor)
	}{
		{
			name: "parameter type changed",
			mutate: func(d *Descriptor) {
				d.Parameters[0].Type = TypeObject
			},
		},
		{
			name: "parameter added",
			mutate: func(d *Descriptor) {
				d.Parameters = append(d.Parameters, ParameterSpec{Name: "lang", Type: TypeString})
			},
		},
		{
			name: "required flag flipped",
			mutate: func(d *Descriptor) {
				d.Parameters[1].Required = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflicting := weatherDescriptor()
			tt.mutate(&conflicting)

			err := registry.Register(conflicting, namedAgent("second"))
			if err == nil {
				t.Fatal("Expected error for conflicting schema")
			}
			if !stderrors.Is(err, ErrDuplicateCapability) {
				t.Errorf("Expected ErrDuplicateCapability, got %v", err)
			}
		})
	}

	// Original registration is untouched
	_, agent, err := registry.Lookup("weather")
	if err != nil {
		t.Fatalf("Failed to look up capability: %v", err)
	}
	result, _ := agent.Execute(context.Background(), nil)
	if result.Data != "first" {
		t.Errorf("Expected original agent after conflicts, got marker %v", result.Data)
	}
}

func TestListOrder(t *testing.T) {
	registry := NewRegistry()

	names := []string{"weather", "crm.lookup", "fx-rates"}
	for _, name := range names {
		desc := Descriptor{Name: name}
		if err := registry.Register(desc, namedAgent(name)); err != nil {
			t.Fatalf("Failed to register %s: %v", name, err)
		}
	}

	listed := registry.List()
	if len(listed) != len(names) {
		t.Fatalf("Expected %d descriptors, got %d", len(names), len(listed))
	}
	for i, name := range names {
		if listed[i].Name != name {
			t.Errorf("Expected position %d to be '%s', got '%s'", i, name, listed[i].Name)
		}
	}
}

func TestListReturnsCopies(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(weatherDescriptor(), namedAgent("a")); err != nil {
		t.Fatalf("Failed to register capability: %v", err)
	}

	listed := registry.List()
	listed[0].Name = "mutated"
	listed[0].Parameters[0].Type = TypeInt

	// Registry state is unaffected by mutations of the snapshot
	desc, _, err := registry.Lookup("weather")
	if err != nil {
		t.Fatalf("Lookup failed after snapshot mutation: %v", err)
	}
	if desc.Parameters[0].Type != TypeString {
		t.Error("Mutating a List snapshot changed registry state")
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(weatherDescriptor(), namedAgent("a")); err != nil {
		t.Fatalf("Failed to register capability: %v", err)
	}

	desc, _, err := registry.Lookup("weather")
	if err != nil {
		t.Fatalf("Failed to look up capability: %v", err)
	}
	desc.Parameters[0].Required = false

	fresh, _, err := registry.Lookup("weather")
	if err != nil {
		t.Fatalf("Failed to look up capability: %v", err)
	}
	if !fresh.Parameters[0].Required {
		t.Error("Mutating a Lookup result changed registry state")
	}
}

func TestDeregister(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(weatherDescriptor(), namedAgent("a")); err != nil {
		t.Fatalf("Failed to register capability: %v", err)
	}

	if !registry.Deregister("weather") {
		t.Error("Expected Deregister to report removal")
	}
	if registry.Len() != 0 {
		t.Errorf("Expected empty registry after deregister, got %d", registry.Len())
	}
	if _, _, err := registry.Lookup("weather"); err == nil {
		t.Error("Expected lookup failure after deregister")
	}
	if len(registry.List()) != 0 {
		t.Error("Expected empty list after deregister")
	}

	// Second removal reports false
	if registry.Deregister("weather") {
		t.Error("Expected Deregister to report false for missing capability")
	}

	// The name is free for a different schema now
	changed := weatherDescriptor()
	changed.Parameters[0].Type = TypeObject
	if err := registry.Register(changed, namedAgent("b")); err != nil {
		t.Errorf("Expected re-registration after deregister to succeed: %v", err)
	}
}

func TestConcurrentRegistryAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	// Concurrent registrations of distinct capabilities
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			name := fmt.Sprintf("capability-%d", id)
			desc := Descriptor{
				Name: name,
				Parameters: []ParameterSpec{
					{Name: "input", Type: TypeString, Required: true},
				},
			}
			if err := registry.Register(desc, namedAgent(name)); err != nil {
				errs <- err
			}
		}(i)
	}

	// Concurrent identical re-registrations of one capability
	shared := Descriptor{Name: "shared"}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := registry.Register(shared, namedAgent("shared")); err != nil {
				errs <- err
			}
		}()
	}

	// Concurrent reads
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = registry.List()
			_, _, _ = registry.Lookup(fmt.Sprintf("capability-%d", id))
			_ = registry.Len()
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent operation failed: %v", err)
	}

	if registry.Len() != 11 {
		t.Errorf("Expected 11 capabilities after concurrent operations, got %d", registry.Len())
	}
}
