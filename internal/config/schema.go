package config

import (
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// providerRecordSchema is the JSON Schema each provider record must satisfy
// before semantic validation runs.
const providerRecordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "provider_type"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "provider_type": {
      "type": "string",
      "enum": ["cli-subprocess", "local-http-api", "authenticated-http-api", "custom"]
    },
    "command": {"type": "string"},
    "api_endpoint": {"type": "string"},
    "api_key": {"type": "string"},
    "model": {"type": "string"},
    "max_tokens": {"type": "integer", "minimum": 1},
    "temperature": {"type": "number", "minimum": 0},
    "timeout": {"type": "integer", "minimum": 0},
    "env_vars": {"type": "object", "additionalProperties": {"type": "string"}},
    "additional_args": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	compiledSchema *gojsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func recordSchema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		loader := gojsonschema.NewStringLoader(providerRecordSchema)
		compiledSchema, compileErr = gojsonschema.NewSchema(loader)
	})
	return compiledSchema, compileErr
}

// validateSchema checks one raw record against the provider record schema.
func validateSchema(record []byte) error {
	schema, err := recordSchema()
	if err != nil {
		return &ConfigError{Reason: "compiling record schema: " + err.Error()}
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(record))
	if err != nil {
		return &ConfigError{Reason: err.Error()}
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return &ConfigError{Reason: strings.Join(msgs, "; ")}
}
