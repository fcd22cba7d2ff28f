package backend

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed signal.schema.json
var signalSchemaJSON []byte

const signalSchemaURL = "signal.schema.json"

// signalSchema rejects structurally broken signal payloads. Missing optional
// fields are left to the proposal derivation.
type signalSchema struct {
	schema *jsonschema.Schema
}

func compileSignalSchema() (*signalSchema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(signalSchemaURL, bytes.NewReader(signalSchemaJSON)); err != nil {
		return nil, fmt.Errorf("load signal schema: %w", err)
	}
	schema, err := compiler.Compile(signalSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile signal schema: %w", err)
	}
	return &signalSchema{schema: schema}, nil
}

func (s *signalSchema) Validate(raw []byte) error {
	if s == nil || s.schema == nil {
		return nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("signal: invalid json: %w", err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return fmt.Errorf("signal: schema: %w", err)
	}
	return nil
}
