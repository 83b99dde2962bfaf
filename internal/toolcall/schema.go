package toolcall

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaValidator compiles and caches a tool's JSON Schema so per-call
// parameter validation (spec.md §4.5) is a cheap repeated Validate call
// rather than a recompile per invocation.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles schemaJSON (a draft 2020-12 JSON Schema
// document) for one tool's parameters.
func NewSchemaValidator(name string, schemaJSON []byte) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	var doc interface{}
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		return nil, fmt.Errorf("toolcall: decode schema for %s: %w", name, err)
	}
	resourceName := name + ".schema.json"
	if err := compiler.AddResource(resourceName, doc); err != nil {
		return nil, fmt.Errorf("toolcall: add schema resource for %s: %w", name, err)
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("toolcall: compile schema for %s: %w", name, err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate checks params against the compiled schema, round-tripping
// through JSON so map[string]interface{} matches the types jsonschema/v6
// expects (numbers as float64, etc).
func (v *SchemaValidator) Validate(params map[string]interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("validation: encode parameters: %w", err)
	}
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("validation: decode parameters: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("validation: %w", err)
	}
	return nil
}
