package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var positive = map[string]any{"type": "number", "exclusiveMinimum": 0}

// MemberDimensionsSchema describes pillar and beam dimensions.
var MemberDimensionsSchema = map[string]any{
	"type":                 "object",
	"required":             []any{"width", "height", "length"},
	"additionalProperties": false,
	"properties": map[string]any{
		"width":  positive,
		"height": positive,
		"length": positive,
	},
}

// SlabDimensionsSchema describes slab dimensions; height is never stored for slabs.
var SlabDimensionsSchema = map[string]any{
	"type":                 "object",
	"required":             []any{"width", "length", "thickness"},
	"additionalProperties": false,
	"properties": map[string]any{
		"width":     positive,
		"length":    positive,
		"thickness": positive,
	},
}

// MaterialsSchema describes concrete and steel properties of an element.
var MaterialsSchema = map[string]any{
	"type":     "object",
	"required": []any{"concrete", "steel"},
	"properties": map[string]any{
		"concrete": map[string]any{
			"type":     "object",
			"required": []any{"fck"},
			"properties": map[string]any{
				"fck": positive,
			},
		},
		"steel": map[string]any{
			"type":     "object",
			"required": []any{"weight"},
			"properties": map[string]any{
				"weight": map[string]any{"type": "number", "minimum": 0},
			},
		},
	},
}

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*jsonschema.Schema{}
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
// name identifies the schema so it is compiled only once.
func ValidateJSONAgainstSchema(name string, schemaMap map[string]any, data []byte) error {
	schema, err := compileSchema(name, schemaMap)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return NewAppError("VALIDATION_ERROR", fmt.Sprintf("%s does not match schema", name), fmt.Errorf("%w: %v", ErrValidation, err))
	}
	return nil
}

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[name]; ok {
		return s, nil
	}

	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	schemaCache[name] = s
	return s, nil
}
