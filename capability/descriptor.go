package capability

import (
	"fmt"

	"github.com/c360/datalink/errors"
)

// Parameter type vocabulary. TypeAny accepts any value and skips type checking.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeObject = "object"
	TypeArray  = "array"
	TypeAny    = "any"
)

// MaxNameLength bounds capability and parameter names.
const MaxNameLength = 256

// ParameterSpec declares one parameter a capability accepts. Slice position
// in Descriptor.Parameters is declaration order; validation reports the first
// violation in that order.
type ParameterSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Descriptor declares a capability: its globally unique name and the
// parameters its agent accepts. Descriptors are immutable once registered.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  []ParameterSpec `json:"parameters,omitempty"`
}

// validTypes is the closed set of parameter types a descriptor may declare.
var validTypes = map[string]bool{
	TypeString: true,
	TypeInt:    true,
	TypeFloat:  true,
	TypeBool:   true,
	TypeObject: true,
	TypeArray:  true,
	TypeAny:    true,
}

// ValidateName checks a capability name: non-empty, bounded length, and
// limited to alphanumerics, dash, underscore, and dot.
func ValidateName(name string) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "Descriptor", "ValidateName", "empty name")
	}
	if len(name) > MaxNameLength {
		return errors.WrapInvalid(errors.ErrInvalidData, "Descriptor", "ValidateName", "name too long")
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return errors.WrapInvalid(errors.ErrInvalidData, "Descriptor", "ValidateName",
				"invalid name characters")
		}
	}
	return nil
}

// Validate checks the descriptor is well-formed: valid name, uniquely named
// parameters, and every declared type from the permitted vocabulary.
func (d Descriptor) Validate() error {
	if err := ValidateName(d.Name); err != nil {
		return err
	}

	seen := make(map[string]bool, len(d.Parameters))
	for _, p := range d.Parameters {
		if p.Name == "" {
			return errors.WrapInvalid(errors.ErrInvalidData, "Descriptor", "Validate",
				fmt.Sprintf("capability %q declares a parameter with no name", d.Name))
		}
		if seen[p.Name] {
			return errors.WrapInvalid(errors.ErrInvalidData, "Descriptor", "Validate",
				fmt.Sprintf("capability %q declares parameter %q twice", d.Name, p.Name))
		}
		seen[p.Name] = true

		if !validTypes[p.Type] {
			return errors.WrapInvalid(errors.ErrInvalidData, "Descriptor", "Validate",
				fmt.Sprintf("capability %q parameter %q has unknown type %q", d.Name, p.Name, p.Type))
		}
	}
	return nil
}

// SchemaEqual reports whether two descriptors declare the same parameter
// schema: identical parameters, in the same order, with the same name, type,
// and required flag. Descriptions are documentation and do not participate.
func (d Descriptor) SchemaEqual(other Descriptor) bool {
	if d.Name != other.Name {
		return false
	}
	if len(d.Parameters) != len(other.Parameters) {
		return false
	}
	for i, p := range d.Parameters {
		o := other.Parameters[i]
		if p.Name != o.Name || p.Type != o.Type || p.Required != o.Required {
			return false
		}
	}
	return true
}

// Parameter returns the declared spec for the named parameter.
func (d Descriptor) Parameter(name string) (ParameterSpec, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// clone returns a deep copy so registry snapshots cannot be mutated by callers.
func (d Descriptor) clone() Descriptor {
	out := Descriptor{
		Name:        d.Name,
		Description: d.Description,
	}
	if len(d.Parameters) > 0 {
		out.Parameters = make([]ParameterSpec, len(d.Parameters))
		copy(out.Parameters, d.Parameters)
	}
	return out
}
