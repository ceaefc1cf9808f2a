package usecase

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atvirokodosprendimai/regform/internal/core/domain"
)

//go:embed schema/registration_input.json
var registrationInputSchema []byte

// SchemaService checks that request bodies have the shape of a registration
// input before they reach the field rules.
type SchemaService struct {
	registration *santhosh.Schema
}

func NewSchemaService() (*SchemaService, error) {
	compiled, err := compileSchema(registrationInputSchema)
	if err != nil {
		return nil, fmt.Errorf("compile registration schema: %w", err)
	}
	return &SchemaService{registration: compiled}, nil
}

// ValidateRegistration checks data against the registration input schema.
// Returns *domain.ErrSchemaViolation on failure.
func (s *SchemaService) ValidateRegistration(data json.RawMessage) error {
	return runValidation(s.registration, data)
}

// compileSchema builds a *santhosh.Schema from raw JSON.
func compileSchema(schemaJSON []byte) (*santhosh.Schema, error) {
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

// runValidation validates data against a pre-compiled schema.
func runValidation(sch *santhosh.Schema, data json.RawMessage) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return &domain.ErrSchemaViolation{Errors: collectValidationErrors(ve)}
		}
		return &domain.ErrSchemaViolation{Errors: []string{err.Error()}}
	}
	return nil
}

func collectValidationErrors(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		location := ve.InstanceLocation
		if location == "" {
			location = "/"
		}
		msgs = append(msgs, location+": "+ve.Message)
	}
	return msgs
}
