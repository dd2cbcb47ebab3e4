package dsl

import (
	"fmt"

	"go.yaml.in/yaml/v4"
)

// Load parses YAML bytes into a Catalog and validates it.
func Load(data []byte) (*Catalog, error) {
	var cfg Catalog
	if err := yaml.Load(data, &cfg, yaml.WithKnownFields()); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := normalizeCatalog(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
