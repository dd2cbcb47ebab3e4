package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/codex-k8s/pocketbase-mcp-server/internal/constants"
)

// Config stores environment-driven settings for the server.
type Config struct {
	// PocketBaseURL is the base URL of the PocketBase instance.
	PocketBaseURL string `env:"POCKETBASE_URL,required,notEmpty"`
	// AdminEmail is the superuser email used by admin tools.
	AdminEmail string `env:"POCKETBASE_ADMIN_EMAIL"`
	// AdminPassword is the superuser password used by admin tools.
	AdminPassword string `env:"POCKETBASE_ADMIN_PASSWORD"`
	// HTTPTimeout bounds each backend request. Zero disables the timeout.
	HTTPTimeout time.Duration `env:"POCKETBASE_HTTP_TIMEOUT" envDefault:"0s"`
	// RatePerMinute throttles backend requests. Zero disables throttling.
	RatePerMinute int `env:"POCKETBASE_RATE_PER_MINUTE" envDefault:"0"`

	// CatalogPath overrides the embedded tool catalog.
	CatalogPath string `env:"POCKETBASE_MCP_CATALOG"`
	// LogLevel sets the logger level.
	LogLevel string `env:"POCKETBASE_MCP_LOG_LEVEL" envDefault:"info"`
	// Transport selects stdio or http.
	Transport string `env:"POCKETBASE_MCP_TRANSPORT" envDefault:"stdio"`
	// HTTPListen is the listen address of the http transport.
	HTTPListen string `env:"POCKETBASE_MCP_HTTP_LISTEN" envDefault:":8080"`
	// HTTPPath is the MCP endpoint path of the http transport.
	HTTPPath string `env:"POCKETBASE_MCP_HTTP_PATH" envDefault:"/mcp"`
	// HTTPStateless disables session tracking on the http transport.
	HTTPStateless bool `env:"POCKETBASE_MCP_HTTP_STATELESS" envDefault:"false"`
	// ShutdownTimeout controls graceful shutdown duration.
	ShutdownTimeout time.Duration `env:"POCKETBASE_MCP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// Tools are glob patterns of exposed tool names.
	Tools []string `env:"POCKETBASE_MCP_TOOLS" envSeparator:","`
	// AuditDB is the SQLite audit database path. Empty logs audit events only.
	AuditDB string `env:"POCKETBASE_MCP_AUDIT_DB"`
}

// Load parses environment variables into Config.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case constants.TransportStdio, constants.TransportHTTP:
	default:
		return fmt.Errorf("unsupported transport %q", c.Transport)
	}
	if c.RatePerMinute < 0 {
		return fmt.Errorf("POCKETBASE_RATE_PER_MINUTE must not be negative")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("POCKETBASE_HTTP_TIMEOUT must not be negative")
	}
	tools := c.Tools[:0]
	for _, pattern := range c.Tools {
		if p := strings.TrimSpace(pattern); p != "" {
			tools = append(tools, p)
		}
	}
	c.Tools = tools
	return nil
}
