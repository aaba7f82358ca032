// Package validation checks call arguments against the JSON schema an
// export publishes in its manifest, before the call crosses into the guest.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/demopy-gb-jj/demopy/domain/entities"
	domainErrors "github.com/demopy-gb-jj/demopy/domain/errors"
	"github.com/demopy-gb-jj/demopy/domain/ports"
)

// SchemaValidator implements ports.ArgsValidator using the ArgsSchema of
// each export. Compiled schemas are cached by export name.
type SchemaValidator struct {
	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

// NewSchemaValidator creates a new validator.
func NewSchemaValidator() ports.ArgsValidator {
	return &SchemaValidator{
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Validate checks args against the schema of export. Exports without a
// schema accept any arguments. Violations are reported as
// *errors.ArgumentError; an uncompilable schema as *errors.SchemaError.
func (v *SchemaValidator) Validate(export entities.ExportDescriptor, args []byte) error {
	if len(export.ArgsSchema) == 0 {
		return nil
	}

	sch, err := v.compiled(export)
	if err != nil {
		return err
	}

	args = bytes.TrimSpace(args)
	if len(args) == 0 {
		args = []byte("{}")
	}

	// Decode with UseNumber so large integers keep their exact value.
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.UseNumber()
	var obj interface{}
	if err := dec.Decode(&obj); err != nil {
		return &domainErrors.ArgumentError{Export: export.Name, Err: fmt.Errorf("arguments are not valid JSON: %w", err)}
	}

	if err := sch.Validate(obj); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &domainErrors.ArgumentError{Export: export.Name, Field: fieldOf(ve), Err: errors.New(leafMessage(ve))}
		}
		return &domainErrors.ArgumentError{Export: export.Name, Err: err}
	}

	return nil
}

// compiled returns the cached schema of export, compiling it on first use.
func (v *SchemaValidator) compiled(export entities.ExportDescriptor) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if sch, ok := v.schemas[export.Name]; ok {
		return sch, nil
	}

	url := "mem://exports/" + export.Name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(export.ArgsSchema)); err != nil {
		return nil, &domainErrors.SchemaError{Type: export.Name, Err: fmt.Errorf("failed to add schema resource: %w", err)}
	}

	sch, err := compiler.Compile(url)
	if err != nil {
		return nil, &domainErrors.SchemaError{Type: export.Name, Err: fmt.Errorf("invalid schema: %w", err)}
	}

	v.schemas[export.Name] = sch
	return sch, nil
}

// deepest returns the most specific cause of a validation failure.
func deepest(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// fieldOf names the top-level argument a failure refers to, if any.
func fieldOf(ve *jsonschema.ValidationError) string {
	loc := deepest(ve).InstanceLocation
	if len(loc) < 2 || loc[0] != '/' {
		return ""
	}
	field := loc[1:]
	for i := 0; i < len(field); i++ {
		if field[i] == '/' {
			return field[:i]
		}
	}
	return field
}

func leafMessage(ve *jsonschema.ValidationError) string {
	return deepest(ve).Message
}
