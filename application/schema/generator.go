// Package schema provides JSON schema generation for export arguments.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// newReflector returns the reflector shared by all generators. Schemas are
// emitted fully inline so a host can compile each one on its own.
func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
		DoNotReference: true,
		Anonymous:      true,
	}
}

// GenerateSchema creates a JSON schema from a Go struct.
// It uses the `invopop/jsonschema` library to reflect on the struct
// and generate a standard JSON Schema (Draft 2020-12).
func GenerateSchema(v interface{}) ([]byte, error) {
	schema := newReflector().Reflect(v)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}

// GenerateArgsSchema creates the compact schema of an export's argument
// object. descriptions maps JSON property names to their description.
// Properties stay required unless tagged omitempty, and unknown properties
// are rejected.
func GenerateArgsSchema(v interface{}, descriptions map[string]string) (json.RawMessage, error) {
	schema := newReflector().Reflect(v)

	if schema.Properties != nil {
		for name, desc := range descriptions {
			if prop, ok := schema.Properties.Get(name); ok && prop != nil && desc != "" {
				prop.Description = desc
			}
		}
	}

	jsonBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}
