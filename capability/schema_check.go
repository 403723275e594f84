package capability

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/datalink/errors"
)

// descriptorMetaSchema constrains descriptor documents arriving as raw JSON,
// typically from configuration files. Structural problems are caught here
// with field-level messages before Descriptor.Validate applies the semantic
// rules (name charset, duplicate parameters).
const descriptorMetaSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Capability Descriptor",
  "type": "object",
  "required": ["name"],
  "additionalProperties": false,
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1,
      "maxLength": 256
    },
    "description": {
      "type": "string"
    },
    "parameters": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "type"],
        "additionalProperties": false,
        "properties": {
          "name": {
            "type": "string",
            "minLength": 1
          },
          "type": {
            "type": "string",
            "enum": ["string", "int", "float", "bool", "object", "array", "any"]
          },
          "required": {
            "type": "boolean"
          },
          "description": {
            "type": "string"
          }
        }
      }
    }
  }
}`

// RegisterJSON validates a raw descriptor document against the descriptor
// meta-schema, decodes it, and registers it with the given agent.
func (r *Registry) RegisterJSON(raw []byte, agent Agent) error {
	if err := validateDescriptorJSON(raw); err != nil {
		return errors.WrapInvalid(err, "Registry", "RegisterJSON", "descriptor document validation")
	}

	var desc Descriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return errors.WrapInvalid(err, "Registry", "RegisterJSON", "descriptor decoding")
	}

	return r.Register(desc, agent)
}

// validateDescriptorJSON checks a raw descriptor document against the
// embedded meta-schema.
func validateDescriptorJSON(raw []byte) error {
	metaSchemaLoader := gojsonschema.NewStringLoader(descriptorMetaSchema)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(metaSchemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		// Build error message from validation errors
		var b strings.Builder
		b.WriteString("descriptor document invalid:")
		for _, desc := range result.Errors() {
			fmt.Fprintf(&b, "\n  - %s: %s", desc.Field(), desc.Description())
		}
		return fmt.Errorf("%s", b.String())
	}

	return nil
}
