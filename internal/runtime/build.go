package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codex-k8s/pocketbase-mcp-server/internal/audit"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/dsl"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/protocol"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/schema"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/security"
)

// Dispatcher runs a named tool.
type Dispatcher interface {
	Call(ctx context.Context, name string, args map[string]any) (string, error)
}

// Builder constructs an MCP server from the tool catalog.
type Builder struct {
	// Logger is used for structured logging.
	Logger *slog.Logger
	// Audit records tool events.
	Audit audit.Logger
	// Dispatcher executes tool calls.
	Dispatcher Dispatcher
	// Validator checks arguments against tool input schemas.
	Validator *schema.Validator
	// Tools are glob patterns of exposed tool names. Empty exposes all.
	Tools []string
}

// Build creates an MCP server with the catalog tools.
func (b Builder) Build(catalog *dsl.Catalog) (*mcp.Server, error) {
	if catalog == nil {
		return nil, errors.New("catalog is nil")
	}
	if b.Dispatcher == nil {
		return nil, errors.New("dispatcher is nil")
	}
	for _, pattern := range b.Tools {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid tool pattern %q", pattern)
		}
	}

	var opts *mcp.ServerOptions
	if catalog.Server.Instructions != "" {
		opts = &mcp.ServerOptions{Instructions: catalog.Server.Instructions}
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    catalog.Server.Name,
		Version: catalog.Server.Version,
	}, opts)

	exposed := make(map[string]struct{}, len(catalog.Tools))
	for _, tool := range catalog.Tools {
		if !b.exposes(tool.Name) {
			continue
		}
		b.addTool(server, tool)
		exposed[tool.Name] = struct{}{}
	}
	if len(exposed) == 0 {
		return nil, fmt.Errorf("no tools match %v", b.Tools)
	}
	server.AddReceivingMiddleware(b.rejectUnknownTools(exposed))
	return server, nil
}

// rejectUnknownTools answers calls to tools that are not registered with a
// method-not-found error instead of the SDK's invalid-params reply.
func (b Builder) rejectUnknownTools(exposed map[string]struct{}) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			call, ok := req.(*mcp.CallToolRequest)
			if method != "tools/call" || !ok || call.Params == nil {
				return next(ctx, method, req)
			}
			if _, known := exposed[call.Params.Name]; known {
				return next(ctx, method, req)
			}
			err := protocol.MethodNotFound(fmt.Sprintf("Unknown tool: %s", call.Params.Name))
			correlationID := uuid.NewString()
			b.logWarn(ctx, "unknown tool", call.Params.Name, correlationID, err)
			b.record(ctx, audit.Event{Type: audit.EventToolError, Tool: call.Params.Name, CorrelationID: correlationID, Reason: err.Message})
			return nil, err
		}
	}
}

func (b Builder) exposes(name string) bool {
	if len(b.Tools) == 0 {
		return true
	}
	for _, pattern := range b.Tools {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (b Builder) addTool(server *mcp.Server, tool dsl.ToolConfig) {
	mcpTool := &mcp.Tool{
		Name:        tool.Name,
		Title:       tool.Title,
		Description: tool.Description,
		InputSchema: tool.InputSchema,
		Annotations: buildAnnotations(tool),
	}

	server.AddTool(mcpTool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		correlationID := uuid.NewString()

		var raw []byte
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}
		args, err := schema.DecodeArguments(raw)
		if err == nil && b.Validator != nil {
			err = b.Validator.Validate(tool.Name, args)
		}
		if err != nil {
			b.logWarn(ctx, "tool arguments rejected", tool.Name, correlationID, err)
			b.record(ctx, audit.Event{Type: audit.EventToolError, Tool: tool.Name, CorrelationID: correlationID, Reason: err.Error()})
			return nil, protocol.InvalidParams(err.Error())
		}

		if b.Logger != nil {
			b.Logger.InfoContext(ctx, "tool call", "tool", tool.Name, "correlation_id", correlationID, "args", security.RedactArguments(args))
		}
		b.record(ctx, audit.Event{Type: audit.EventToolCall, Tool: tool.Name, CorrelationID: correlationID})

		text, err := b.Dispatcher.Call(ctx, tool.Name, args)
		if err != nil {
			reason := err.Error()
			var rpcErr *jsonrpc.Error
			if errors.As(err, &rpcErr) {
				reason = rpcErr.Message
			}
			b.logWarn(ctx, "tool call failed", tool.Name, correlationID, errors.New(reason))
			b.record(ctx, audit.Event{Type: audit.EventToolError, Tool: tool.Name, CorrelationID: correlationID, Reason: reason})
			return nil, err
		}

		b.record(ctx, audit.Event{Type: audit.EventToolOK, Tool: tool.Name, CorrelationID: correlationID})
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	})
}

func (b Builder) logWarn(ctx context.Context, msg, tool, correlationID string, err error) {
	if b.Logger == nil {
		return
	}
	b.Logger.WarnContext(ctx, msg, "tool", tool, "correlation_id", correlationID, "error", err)
}

func (b Builder) record(ctx context.Context, event audit.Event) {
	if b.Audit != nil {
		b.Audit.Record(ctx, event)
	}
}

func buildAnnotations(tool dsl.ToolConfig) *mcp.ToolAnnotations {
	cfg := tool.Annotations
	if cfg == nil {
		return nil
	}
	return &mcp.ToolAnnotations{
		ReadOnlyHint:    cfg.ReadOnlyHint,
		DestructiveHint: cfg.DestructiveHint,
		IdempotentHint:  cfg.IdempotentHint,
		OpenWorldHint:   cfg.OpenWorldHint,
		Title:           tool.Title,
	}
}
