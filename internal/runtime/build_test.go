package runtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codex-k8s/pocketbase-mcp-server/internal/audit"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/dsl"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/protocol"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/schema"
)

type stubDispatcher struct {
	mu    sync.Mutex
	calls []map[string]any
	text  string
	err   error
}

func (s *stubDispatcher) Call(_ context.Context, _ string, args map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, args)
	return s.text, s.err
}

type memAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memAudit) Record(_ context.Context, event audit.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *memAudit) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

func testCatalog() *dsl.Catalog {
	openWorld := false
	return &dsl.Catalog{
		Server: dsl.ServerConfig{Name: "pocketbase-test", Version: "0.0.1", Instructions: "test"},
		Tools: []dsl.ToolConfig{
			{
				Name:         "list_records",
				Title:        "List records",
				Description:  "List records",
				FailureLabel: "Failed to list records",
				Annotations:  &dsl.ToolAnnotationsConfig{ReadOnlyHint: true, OpenWorldHint: &openWorld},
				InputSchema: map[string]any{
					"type":       "object",
					"properties": map[string]any{"collection": map[string]any{"type": "string"}},
					"required":   []any{"collection"},
				},
			},
			{
				Name:         "delete_record",
				Description:  "Delete a record",
				FailureLabel: "Failed to delete record",
				InputSchema:  map[string]any{"type": "object"},
			},
		},
	}
}

func connect(t *testing.T, b Builder, catalog *dsl.Catalog) *mcp.ClientSession {
	t.Helper()
	validator, err := schema.Compile(catalog.Tools)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	b.Validator = validator
	server, err := b.Build(catalog)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server Connect: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client Connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestBuild_ListsFilteredTools(t *testing.T) {
	session := connect(t, Builder{Dispatcher: &stubDispatcher{}, Tools: []string{"list_*"}}, testCatalog())
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(res.Tools) != 1 || res.Tools[0].Name != "list_records" {
		t.Fatalf("tools = %+v", res.Tools)
	}
	ann := res.Tools[0].Annotations
	if ann == nil || !ann.ReadOnlyHint || ann.Title != "List records" {
		t.Errorf("annotations = %+v", ann)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		builder Builder
		catalog *dsl.Catalog
	}{
		{name: "nil catalog", builder: Builder{Dispatcher: &stubDispatcher{}}},
		{name: "nil dispatcher", builder: Builder{}, catalog: testCatalog()},
		{name: "bad pattern", builder: Builder{Dispatcher: &stubDispatcher{}, Tools: []string{"list_[*"}}, catalog: testCatalog()},
		{name: "no match", builder: Builder{Dispatcher: &stubDispatcher{}, Tools: []string{"backup_*"}}, catalog: testCatalog()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.builder.Build(tt.catalog); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCallTool_Success(t *testing.T) {
	dispatcher := &stubDispatcher{text: `{"items":[]}`}
	events := &memAudit{}
	session := connect(t, Builder{Dispatcher: dispatcher, Audit: events}, testCatalog())

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "list_records",
		Arguments: map[string]any{"collection": "posts"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError || len(res.Content) != 1 {
		t.Fatalf("result = %+v", res)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok || text.Text != `{"items":[]}` {
		t.Fatalf("content = %#v", res.Content[0])
	}
	if len(dispatcher.calls) != 1 || dispatcher.calls[0]["collection"] != "posts" {
		t.Errorf("dispatcher calls = %+v", dispatcher.calls)
	}
	if got := strings.Join(events.types(), ","); got != "tool_call,tool_ok" {
		t.Errorf("audit events = %s", got)
	}
	events.mu.Lock()
	id := events.events[0].CorrelationID
	same := events.events[1].CorrelationID == id
	events.mu.Unlock()
	if id == "" || !same {
		t.Errorf("correlation ids differ or empty: %+v", events.events)
	}
}

func TestCallTool_InvalidArguments(t *testing.T) {
	dispatcher := &stubDispatcher{}
	events := &memAudit{}
	session := connect(t, Builder{Dispatcher: dispatcher, Audit: events}, testCatalog())

	_, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "list_records",
		Arguments: map[string]any{},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid arguments for list_records") {
		t.Fatalf("CallTool error = %v", err)
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("dispatcher ran with invalid arguments")
	}
	if got := strings.Join(events.types(), ","); got != "tool_error" {
		t.Errorf("audit events = %s", got)
	}
}

func TestCallTool_DispatchFailure(t *testing.T) {
	dispatcher := &stubDispatcher{err: protocol.InternalError("Failed to delete record: Missing record.")}
	events := &memAudit{}
	session := connect(t, Builder{Dispatcher: dispatcher, Audit: events}, testCatalog())

	_, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "delete_record",
		Arguments: map[string]any{"collection": "posts", "id": "r1"},
	})
	if err == nil || !strings.Contains(err.Error(), "Failed to delete record: Missing record.") {
		t.Fatalf("CallTool error = %v", err)
	}
	events.mu.Lock()
	defer events.mu.Unlock()
	last := events.events[len(events.events)-1]
	if last.Type != audit.EventToolError || last.Reason != "Failed to delete record: Missing record." {
		t.Errorf("last audit event = %+v", last)
	}
}

func TestCallTool_UnknownTool(t *testing.T) {
	dispatcher := &stubDispatcher{}
	events := &memAudit{}
	session := connect(t, Builder{Dispatcher: dispatcher, Audit: events, Tools: []string{"list_*"}}, testCatalog())

	for _, name := range []string{"no_such_tool", "delete_record"} {
		t.Run(name, func(t *testing.T) {
			_, err := session.CallTool(context.Background(), &mcp.CallToolParams{
				Name:      name,
				Arguments: map[string]any{"collection": "posts", "id": "r1"},
			})
			var rpcErr *jsonrpc.Error
			if !errors.As(err, &rpcErr) {
				t.Fatalf("CallTool error = %T %v", err, err)
			}
			if rpcErr.Code != protocol.CodeMethodNotFound {
				t.Errorf("code = %d, want %d", rpcErr.Code, protocol.CodeMethodNotFound)
			}
			if want := "Unknown tool: " + name; rpcErr.Message != want {
				t.Errorf("message = %q, want %q", rpcErr.Message, want)
			}
		})
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("dispatcher calls = %+v", dispatcher.calls)
	}
	if got := strings.Join(events.types(), ","); got != "tool_error,tool_error" {
		t.Errorf("audit events = %s", got)
	}
}

func TestExposes(t *testing.T) {
	b := Builder{Tools: []string{"list_*", "auth*"}}
	for name, want := range map[string]bool{
		"list_records":      true,
		"auth_refresh":      true,
		"authenticate_user": true,
		"delete_record":     false,
	} {
		if got := b.exposes(name); got != want {
			t.Errorf("exposes(%s) = %v, want %v", name, got, want)
		}
	}
	if !(Builder{}).exposes("anything") {
		t.Error("empty pattern list should expose every tool")
	}
}
