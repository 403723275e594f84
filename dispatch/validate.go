package dispatch

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/c360/datalink/capability"
)

// validateParameters checks intent parameters against the declared schema:
// every required parameter present, every present parameter convertible to
// its declared type. Parameters are checked in declaration order and the
// first violation wins. Undeclared parameters pass through untouched; they
// still participate in fingerprinting.
func validateParameters(desc capability.Descriptor, params map[string]any) error {
	for _, p := range desc.Parameters {
		value, present := params[p.Name]
		if !present {
			if p.Required {
				return &InvalidParametersError{
					Field:  p.Name,
					Reason: "required parameter missing",
				}
			}
			continue
		}

		if reason := typeMismatch(p.Type, value); reason != "" {
			return &InvalidParametersError{
				Field:  p.Name,
				Reason: reason,
			}
		}
	}
	return nil
}

// typeMismatch reports why a value does not satisfy the declared type, or ""
// when it does. JSON decoding delivers numbers as float64 or json.Number, so
// the integer check accepts those when they carry an integral value.
func typeMismatch(declared string, value any) string {
	switch declared {
	case capability.TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("must be a string, got %T", value)
		}
	case capability.TypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("must be a boolean, got %T", value)
		}
	case capability.TypeInt:
		switch v := value.(type) {
		case int, int32, int64:
			// Valid
		case float64:
			if v != math.Trunc(v) {
				return fmt.Sprintf("must be an integer, got fractional number %v", v)
			}
		case json.Number:
			if !integralNumber(v) {
				return fmt.Sprintf("must be an integer, got %q", v.String())
			}
		default:
			return fmt.Sprintf("must be an integer, got %T", value)
		}
	case capability.TypeFloat:
		switch v := value.(type) {
		case int, int32, int64, float32, float64:
			// Valid
		case json.Number:
			if _, err := v.Float64(); err != nil {
				return fmt.Sprintf("must be a number, got %q", v.String())
			}
		default:
			return fmt.Sprintf("must be a number, got %T", value)
		}
	case capability.TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return fmt.Sprintf("must be an object, got %T", value)
		}
	case capability.TypeArray:
		if _, ok := value.([]any); !ok {
			return fmt.Sprintf("must be an array, got %T", value)
		}
	case capability.TypeAny:
		// Accepts everything, including nil
	}
	return ""
}

// integralNumber reports whether a json.Number carries a whole value.
func integralNumber(n json.Number) bool {
	if _, err := n.Int64(); err == nil {
		return true
	}
	f, err := n.Float64()
	return err == nil && f == math.Trunc(f)
}
