package dsl

import (
	"fmt"
	"regexp"
	"strings"
)

var toolNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate verifies required catalog fields.
func Validate(cfg *Catalog) error {
	if cfg == nil {
		return fmt.Errorf("catalog is nil")
	}
	if strings.TrimSpace(cfg.Server.Name) == "" {
		return fmt.Errorf("server.name is required")
	}
	if strings.TrimSpace(cfg.Server.Version) == "" {
		return fmt.Errorf("server.version is required")
	}
	if len(cfg.Tools) == 0 {
		return fmt.Errorf("tools must not be empty")
	}

	toolNames := map[string]struct{}{}
	for i, tool := range cfg.Tools {
		if tool.Name == "" {
			return fmt.Errorf("tools[%d].name is required", i)
		}
		if !toolNamePattern.MatchString(tool.Name) {
			return fmt.Errorf("tools[%d].name %q must be snake_case", i, tool.Name)
		}
		if _, exists := toolNames[tool.Name]; exists {
			return fmt.Errorf("duplicate tool name: %s", tool.Name)
		}
		toolNames[tool.Name] = struct{}{}
		if strings.TrimSpace(tool.Description) == "" {
			return fmt.Errorf("tools[%d].description is required", i)
		}
		if strings.TrimSpace(tool.FailureLabel) == "" {
			return fmt.Errorf("tools[%d].failure_label is required", i)
		}
		if err := validateInputSchema(tool.InputSchema); err != nil {
			return fmt.Errorf("tools[%d].input_schema: %w", i, err)
		}
	}
	return nil
}

func validateInputSchema(schema map[string]any) error {
	if schema == nil {
		return fmt.Errorf("is required")
	}
	if typ, _ := schema["type"].(string); typ != "object" {
		return fmt.Errorf("type must be object")
	}
	props, hasProps := schema["properties"]
	var properties map[string]any
	if hasProps {
		var ok bool
		properties, ok = props.(map[string]any)
		if !ok {
			return fmt.Errorf("properties must be an object")
		}
	}
	required, hasRequired := schema["required"]
	if !hasRequired {
		return nil
	}
	items, ok := required.([]any)
	if !ok {
		return fmt.Errorf("required must be a list")
	}
	for _, item := range items {
		name, ok := item.(string)
		if !ok {
			return fmt.Errorf("required entries must be strings")
		}
		if _, declared := properties[name]; !declared {
			return fmt.Errorf("required property %q is not declared", name)
		}
	}
	return nil
}
