// Package schema validates tool arguments against their JSON input schemas.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/codex-k8s/pocketbase-mcp-server/internal/dsl"
)

// Validator holds compiled input schemas keyed by tool name.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// Compile compiles the input schema of every tool.
func Compile(tools []dsl.ToolConfig) (*Validator, error) {
	c := jsonschema.NewCompiler()
	for _, tool := range tools {
		data, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encode schema %s: %w", tool.Name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode schema %s: %w", tool.Name, err)
		}
		if err := c.AddResource(schemaURL(tool.Name), doc); err != nil {
			return nil, fmt.Errorf("register schema %s: %w", tool.Name, err)
		}
	}

	schemas := make(map[string]*jsonschema.Schema, len(tools))
	for _, tool := range tools {
		s, err := c.Compile(schemaURL(tool.Name))
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", tool.Name, err)
		}
		schemas[tool.Name] = s
	}
	return &Validator{schemas: schemas}, nil
}

func schemaURL(name string) string {
	return fmt.Sprintf("mem://tools/%s.schema.json", name)
}

// DecodeArguments parses raw tool arguments. Empty input yields an empty map.
func DecodeArguments(raw json.RawMessage) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	switch v := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("arguments must be an object, got %T", value)
	}
}

// Validate checks args against the schema of tool.
func (v *Validator) Validate(tool string, args map[string]any) error {
	s, ok := v.schemas[tool]
	if !ok {
		return fmt.Errorf("no schema for tool %s", tool)
	}
	var instance any = args
	if args == nil {
		instance = map[string]any{}
	}
	if err := s.Validate(instance); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", tool, err)
	}
	return nil
}
