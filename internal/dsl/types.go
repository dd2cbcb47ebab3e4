package dsl

// Catalog is the top-level tool catalog.
type Catalog struct {
	// Server describes the MCP server identity.
	Server ServerConfig `yaml:"server"`
	// Tools lists all tool declarations.
	Tools []ToolConfig `yaml:"tools"`
}

// ServerConfig defines MCP server identity.
type ServerConfig struct {
	// Name is the MCP server name.
	Name string `yaml:"name"`
	// Version is the MCP server version.
	Version string `yaml:"version"`
	// Instructions is an optional hint sent to clients on initialize.
	Instructions string `yaml:"instructions"`
}

// ToolConfig declares a tool exposed by the MCP server.
type ToolConfig struct {
	// Name is the tool name.
	Name string `yaml:"name"`
	// Title is the human-friendly tool title.
	Title string `yaml:"title"`
	// Description explains the tool for the agent.
	Description string `yaml:"description"`
	// FailureLabel prefixes the normalized backend error.
	FailureLabel string `yaml:"failure_label"`
	// RequiresAdmin authenticates as superuser before the backend call.
	RequiresAdmin bool `yaml:"requires_admin"`
	// Annotations provides optional tool hints.
	Annotations *ToolAnnotationsConfig `yaml:"annotations,omitempty"`
	// InputSchema defines JSON Schema for tool input.
	InputSchema map[string]any `yaml:"input_schema"`
	// Tags is an optional list of tags.
	Tags []string `yaml:"tags"`
}

// ToolAnnotationsConfig defines tool behavior hints.
type ToolAnnotationsConfig struct {
	// ReadOnlyHint indicates a read-only tool.
	ReadOnlyHint bool `yaml:"read_only_hint,omitempty"`
	// DestructiveHint indicates the tool may be destructive.
	DestructiveHint *bool `yaml:"destructive_hint,omitempty"`
	// IdempotentHint indicates repeated calls have no additional effect.
	IdempotentHint bool `yaml:"idempotent_hint,omitempty"`
	// OpenWorldHint indicates interaction with external entities.
	OpenWorldHint *bool `yaml:"open_world_hint,omitempty"`
}

// Tool returns the tool named name.
func (c *Catalog) Tool(name string) (ToolConfig, bool) {
	if c == nil {
		return ToolConfig{}, false
	}
	for _, tool := range c.Tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return ToolConfig{}, false
}
