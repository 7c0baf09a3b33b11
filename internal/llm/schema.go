package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// GenerateContentSchema describes the parts of a generateContent response we read.
// Every field is optional: a reply with no candidates is an empty result, not a
// malformed one. Only wrong shapes (e.g. candidates not being an array) fail.
func GenerateContentSchema() map[string]any {
	part := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":    map[string]any{"type": "string"},
			"thought": map[string]any{"type": "boolean"},
		},
	}
	candidate := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"role":  map[string]any{"type": "string"},
					"parts": map[string]any{"type": "array", "items": part},
				},
			},
			"finishReason": map[string]any{"type": "string"},
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"candidates": map[string]any{"type": "array", "items": candidate},
			"promptFeedback": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"blockReason": map[string]any{"type": "string"},
				},
			},
			"usageMetadata": map[string]any{"type": "object"},
		},
	}
}
