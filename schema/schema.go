// Package schema validates decoded JSON documents against JSON Schema
// definitions, wrapping the santhosh-tekuri compiler behind a two-call
// surface: compile once, validate many.
package schema

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a compiled validator, safe for concurrent use.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// ValidationError reports a document that failed validation. It unwraps
// to the compiler's error with the full failure details.
type ValidationError struct {
	Schema string // Name the schema was compiled under
	Err    error  // Underlying validation error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema %s: %v", e.Schema, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Compile builds a validator from a JSON Schema document. The name
// identifies the schema in errors and resolves relative references.
func Compile(name string, schemaJSON []byte) (*Schema, error) {
	if name == "" {
		name = "schema.json"
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("adding schema %s: %w", name, err)
	}

	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}

	return &Schema{name: name, compiled: compiled}, nil
}

// MustCompile is Compile for schemas known at build time; it panics on
// error.
func MustCompile(name string, schemaJSON []byte) *Schema {
	s, err := Compile(name, schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a decoded JSON value (the map/slice/scalar shapes
// encoding/json produces) against the schema.
func (s *Schema) Validate(doc any) error {
	if err := s.compiled.Validate(doc); err != nil {
		return &ValidationError{Schema: s.name, Err: err}
	}
	return nil
}

// ValidateJSON decodes raw JSON and validates it.
func (s *Schema) ValidateJSON(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}
	return s.Validate(doc)
}
