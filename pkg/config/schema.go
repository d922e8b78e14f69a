package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrSchemaViolation is returned by ValidateFile when the file does not match
// the configuration schema.
var ErrSchemaViolation = errors.New("config does not match schema")

//go:embed schema.json
var schemaJSON []byte

// Violation is one schema error.
type Violation struct {
	Field       string
	Description string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Description
}

// Schema returns the JSON schema configuration files are validated against.
func Schema() []byte {
	out := make([]byte, len(schemaJSON))
	copy(out, schemaJSON)

	return out
}

// ValidateFile checks the YAML file at path against the configuration schema.
// It returns the violations found; the error wraps ErrSchemaViolation when
// there are any.
func ValidateFile(path string) ([]Violation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return ValidateYAML(data)
}

// ValidateYAML checks a YAML document against the configuration schema.
// An empty document is valid.
func ValidateYAML(data []byte) ([]Violation, error) {
	var doc map[string]any

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if doc == nil {
		doc = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		violations = append(violations, Violation{Field: verr.Field(), Description: verr.Description()})
	}

	return violations, fmt.Errorf("%w: %d violation(s)", ErrSchemaViolation, len(violations))
}
