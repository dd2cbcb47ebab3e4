package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/codex-k8s/pocketbase-mcp-server/configs"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/dsl"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/pocketbase"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/protocol"
)

type call struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

type backend struct {
	mu     sync.Mutex
	calls  []call
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := call{Method: r.Method, Path: r.URL.EscapedPath(), Query: r.URL.RawQuery}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &c.Body)
	}
	b.mu.Lock()
	b.calls = append(b.calls, c)
	b.mu.Unlock()

	if h, ok := b.routes[r.Method+" "+c.Path]; ok {
		h(w, r)
		return
	}
	if strings.HasSuffix(c.Path, "/auth-with-password") {
		reply(w, http.StatusOK, `{"token":"tok","record":{"id":"u1"}}`)
		return
	}
	reply(w, http.StatusNotFound, `{"code":404,"message":"The requested resource wasn't found.","data":{}}`)
}

func (b *backend) requests() []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]call(nil), b.calls...)
}

// find returns the first request for method and path.
func (b *backend) find(t *testing.T, method, path string) call {
	t.Helper()
	for _, c := range b.requests() {
		if c.Method == method && c.Path == path {
			return c
		}
	}
	t.Fatalf("no %s %s request in %+v", method, path, b.requests())
	return call{}
}

func reply(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newDispatcher(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) (*Dispatcher, *backend) {
	t.Helper()
	b := &backend{routes: routes}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	client, err := pocketbase.New(srv.URL)
	if err != nil {
		t.Fatalf("pocketbase.New: %v", err)
	}
	catalog, err := configs.Catalog("")
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	d, err := New(client, Credentials{Email: "admin@example.com", Password: "secret"}, catalog.Tools)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, b
}

func static(status int, body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		reply(w, status, body)
	}
}

func rpcError(t *testing.T, err error) *jsonrpc.Error {
	t.Helper()
	var rpcErr *jsonrpc.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error %v (%T) is not a jsonrpc error", err, err)
	}
	return rpcErr
}

func TestNew_MissingHandler(t *testing.T) {
	client, err := pocketbase.New("http://127.0.0.1:8090")
	if err != nil {
		t.Fatalf("pocketbase.New: %v", err)
	}
	_, err = New(client, Credentials{}, []dsl.ToolConfig{{Name: "drop_everything"}})
	if err == nil || !strings.Contains(err.Error(), "drop_everything") {
		t.Fatalf("New() error = %v, want missing handler", err)
	}
	if _, err := New(nil, Credentials{}, nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestDispatcher_Names(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	names := d.Names()
	if len(names) != len(handlers) {
		t.Fatalf("Names() returned %d tools, want %d", len(names), len(handlers))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Names() not sorted: %v", names)
		}
	}
}

func TestCall_UnknownTool(t *testing.T) {
	d, b := newDispatcher(t, nil)
	_, err := d.Call(context.Background(), "drop_database", nil)
	rpcErr := rpcError(t, err)
	if rpcErr.Code != protocol.CodeMethodNotFound || rpcErr.Message != "Unknown tool: drop_database" {
		t.Fatalf("error = %+v", rpcErr)
	}
	if len(b.requests()) != 0 {
		t.Fatalf("unexpected backend calls: %+v", b.requests())
	}
}

func TestCall_BackendFailureIsNormalized(t *testing.T) {
	d, _ := newDispatcher(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"POST /api/collections/posts/records": static(http.StatusBadRequest,
			`{"code":400,"message":"Failed to create record.","data":{"title":{"code":"validation_required","message":"Missing required value."}}}`),
	})
	_, err := d.Call(context.Background(), "create_record", map[string]any{
		"collection": "posts",
		"data":       map[string]any{},
	})
	rpcErr := rpcError(t, err)
	want := "Failed to create record: Failed to create record.\nMissing required value."
	if rpcErr.Code != protocol.CodeInternalError || rpcErr.Message != want {
		t.Fatalf("error = %+v, want message %q", rpcErr, want)
	}
}

func TestCall_AdminAuthFailure(t *testing.T) {
	d, b := newDispatcher(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"POST /api/collections/_superusers/auth-with-password": static(http.StatusBadRequest,
			`{"code":400,"message":"Failed to authenticate.","data":{}}`),
	})
	_, err := d.Call(context.Background(), "get_collection", map[string]any{"collectionIdOrName": "posts"})
	rpcErr := rpcError(t, err)
	if rpcErr.Message != "Failed to get collection: Failed to authenticate." {
		t.Fatalf("message = %q", rpcErr.Message)
	}
	auth := b.find(t, http.MethodPost, "/api/collections/_superusers/auth-with-password")
	if auth.Body["identity"] != "admin@example.com" || auth.Body["password"] != "secret" {
		t.Fatalf("admin auth body = %+v", auth.Body)
	}
	if len(b.requests()) != 1 {
		t.Fatalf("handler ran after failed admin auth: %+v", b.requests())
	}
}

func TestCall_CreateCollectionAppendsAutodate(t *testing.T) {
	d, b := newDispatcher(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"POST /api/collections": static(http.StatusOK, `{"id":"c1","name":"posts"}`),
	})
	text, err := d.Call(context.Background(), "create_collection", map[string]any{
		"name":   "posts",
		"fields": []any{map[string]any{"name": "title", "type": "text"}},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if text != "{\n  \"id\": \"c1\",\n  \"name\": \"posts\"\n}" {
		t.Errorf("text = %q", text)
	}
	req := b.find(t, http.MethodPost, "/api/collections")
	fields, _ := req.Body["fields"].([]any)
	if len(fields) != 3 {
		t.Fatalf("fields = %+v, want 3", fields)
	}
	var names []string
	for _, f := range fields {
		names = append(names, f.(map[string]any)["name"].(string))
	}
	if strings.Join(names, ",") != "title,created,updated" {
		t.Errorf("field names = %v", names)
	}
}

func TestCall_Texts(t *testing.T) {
	noContent := static(http.StatusNoContent, ``)
	d, _ := newDispatcher(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"DELETE /api/collections/posts":                      noContent,
		"DELETE /api/collections/posts/records/r1":           noContent,
		"POST /api/collections/users/request-verification":   noContent,
		"POST /api/collections/users/confirm-verification":   noContent,
		"POST /api/collections/users/request-password-reset": noContent,
		"POST /api/collections/users/confirm-password-reset": noContent,
		"POST /api/collections/users/request-email-change":   noContent,
		"POST /api/collections/users/confirm-email-change":   noContent,
		"POST /api/backups":                                  noContent,
	})
	tests := []struct {
		tool string
		args map[string]any
		want string
	}{
		{tool: "delete_collection", args: map[string]any{"collectionIdOrName": "posts"}, want: "Successfully deleted collection posts"},
		{tool: "delete_record", args: map[string]any{"collection": "posts", "id": "r1"}, want: "Successfully deleted record r1 from collection posts"},
		{tool: "request_verification", args: map[string]any{"email": "a@b.c"}, want: "Verification email sent to a@b.c"},
		{tool: "confirm_verification", args: map[string]any{"token": "t"}, want: "Email verified"},
		{tool: "request_password_reset", args: map[string]any{"email": "a@b.c"}, want: "Password reset email sent to a@b.c"},
		{tool: "confirm_password_reset", args: map[string]any{"token": "t", "password": "p", "passwordConfirm": "p"}, want: "Password reset confirmed"},
		{tool: "request_email_change", args: map[string]any{"newEmail": "n@b.c"}, want: "Email change requested for n@b.c"},
		{tool: "confirm_email_change", args: map[string]any{"token": "t", "password": "p"}, want: "Email change confirmed"},
		{tool: "backup_database", args: map[string]any{"name": "nightly.zip"}, want: "{\n  \"name\": \"nightly.zip\"\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			got, err := d.Call(context.Background(), tt.tool, tt.args)
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCall_ListCollectionsModes(t *testing.T) {
	d, b := newDispatcher(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"GET /api/collections": static(http.StatusOK, `{"page":1,"perPage":100,"items":[{"id":"c1"}]}`),
	})
	tests := []struct {
		name      string
		args      map[string]any
		wantQuery []string
	}{
		{name: "default page", args: nil, wantQuery: []string{"page=1", "perPage=100"}},
		{name: "filter", args: map[string]any{"filter": "name='posts'"}, wantQuery: []string{"perPage=1", "filter="}},
		{name: "sort", args: map[string]any{"sort": "-created"}, wantQuery: []string{"sort=-created", "perPage=500"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.Call(context.Background(), "list_collections", tt.args); err != nil {
				t.Fatalf("Call: %v", err)
			}
			reqs := b.requests()
			last := reqs[len(reqs)-1]
			for _, part := range tt.wantQuery {
				if !strings.Contains(last.Query, part) {
					t.Errorf("query %q missing %q", last.Query, part)
				}
			}
		})
	}
}

func TestCall_ListRecordsDefaults(t *testing.T) {
	d, b := newDispatcher(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"GET /api/collections/posts/records": static(http.StatusOK, `{"items":[]}`),
	})
	if _, err := d.Call(context.Background(), "list_records", map[string]any{"collection": "posts"}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if q := b.find(t, http.MethodGet, "/api/collections/posts/records").Query; q != "page=1&perPage=50" {
		t.Errorf("query = %q", q)
	}
	if _, err := d.Call(context.Background(), "list_records", map[string]any{
		"collection": "posts",
		"page":       json.Number("3"),
		"perPage":    json.Number("5"),
	}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	reqs := b.requests()
	if q := reqs[len(reqs)-1].Query; q != "page=3&perPage=5" {
		t.Errorf("query = %q", q)
	}
}

func TestCall_UpdateCollectionStripsID(t *testing.T) {
	d, b := newDispatcher(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"PATCH /api/collections/posts": static(http.StatusOK, `{"id":"c1"}`),
	})
	if _, err := d.Call(context.Background(), "update_collection", map[string]any{
		"collectionIdOrName": "posts",
		"listRule":           "",
	}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	body := b.find(t, http.MethodPatch, "/api/collections/posts").Body
	if _, ok := body["collectionIdOrName"]; ok {
		t.Errorf("body still has collectionIdOrName: %+v", body)
	}
	if rule, ok := body["listRule"]; !ok || rule != "" {
		t.Errorf("listRule = %#v", rule)
	}
}

func TestCall_ImportData(t *testing.T) {
	d, b := newDispatcher(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"POST /api/collections/posts/records":     static(http.StatusOK, `{"id":"new"}`),
		"PATCH /api/collections/posts/records/r1": static(http.StatusOK, `{"id":"r1"}`),
	})

	text, err := d.Call(context.Background(), "import_data", map[string]any{
		"collection": "posts",
		"mode":       "upsert",
		"data": []any{
			map[string]any{"id": "r1", "title": "kept"},
			map[string]any{"id": "r2", "title": "missing"},
			map[string]any{"title": "fresh"},
		},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	var results []map[string]any
	if err := json.Unmarshal([]byte(text), &results); err != nil {
		t.Fatalf("decode results %q: %v", text, err)
	}
	if len(results) != 3 || results[0]["id"] != "r1" || results[1]["id"] != "new" || results[2]["id"] != "new" {
		t.Fatalf("results = %+v", results)
	}
	var methods []string
	for _, c := range b.requests() {
		methods = append(methods, c.Method+" "+c.Path)
	}
	want := []string{
		"PATCH /api/collections/posts/records/r1",
		"PATCH /api/collections/posts/records/r2",
		"POST /api/collections/posts/records",
		"POST /api/collections/posts/records",
	}
	if strings.Join(methods, "|") != strings.Join(want, "|") {
		t.Errorf("requests = %v, want %v", methods, want)
	}

	_, err = d.Call(context.Background(), "import_data", map[string]any{
		"collection": "posts",
		"mode":       "update",
		"data":       []any{map[string]any{"title": "no id"}},
	})
	if rpcErr := rpcError(t, err); !strings.Contains(rpcErr.Message, "requires an id") {
		t.Errorf("message = %q", rpcErr.Message)
	}
}

func TestCall_ImportStopsAtFirstFailure(t *testing.T) {
	d, b := newDispatcher(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"POST /api/collections/posts/records": static(http.StatusBadRequest, `{"code":400,"message":"Failed to create record.","data":{}}`),
	})
	_, err := d.Call(context.Background(), "import_data", map[string]any{
		"collection": "posts",
		"data":       []any{map[string]any{"a": 1}, map[string]any{"a": 2}},
	})
	if rpcErr := rpcError(t, err); rpcErr.Message != "Failed to import data: Failed to create record." {
		t.Errorf("message = %q", rpcErr.Message)
	}
	if n := len(b.requests()); n != 1 {
		t.Errorf("backend saw %d requests, want 1", n)
	}
}

func TestCall_AuthenticateUser(t *testing.T) {
	d, b := newDispatcher(t, nil)

	if _, err := d.Call(context.Background(), "authenticate_user", map[string]any{
		"email":    "",
		"password": "",
		"isAdmin":  true,
	}); err != nil {
		t.Fatalf("admin Call: %v", err)
	}
	admin := b.find(t, http.MethodPost, "/api/collections/_superusers/auth-with-password")
	if admin.Body["identity"] != "admin@example.com" {
		t.Errorf("admin identity = %v", admin.Body["identity"])
	}

	if _, err := d.Call(context.Background(), "authenticate_user", map[string]any{
		"email":    "u@example.com",
		"password": "pw",
	}); err != nil {
		t.Fatalf("user Call: %v", err)
	}
	user := b.find(t, http.MethodPost, "/api/collections/users/auth-with-password")
	if user.Body["identity"] != "u@example.com" {
		t.Errorf("user identity = %v", user.Body["identity"])
	}

	_, err := d.Call(context.Background(), "authenticate_user", map[string]any{"email": "u@example.com"})
	if rpcErr := rpcError(t, err); rpcErr.Message != "Authentication failed: Email and password are required for authentication" {
		t.Errorf("message = %q", rpcErr.Message)
	}
}

func TestCall_ImpersonateDefaults(t *testing.T) {
	d, b := newDispatcher(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"POST /api/collections/users/impersonate/u1": static(http.StatusOK, `{"token":"imp","record":{"id":"u1"}}`),
	})
	if _, err := d.Call(context.Background(), "impersonate_user", map[string]any{"id": "u1"}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	req := b.find(t, http.MethodPost, "/api/collections/users/impersonate/u1")
	if dur, ok := req.Body["duration"].(float64); !ok || dur != 3600 {
		t.Errorf("duration = %#v", req.Body["duration"])
	}
}

func TestCall_CreateUserOmitsMissingName(t *testing.T) {
	d, b := newDispatcher(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"POST /api/collections/users/records": static(http.StatusOK, `{"id":"u2"}`),
	})
	if _, err := d.Call(context.Background(), "create_user", map[string]any{
		"email":           "n@example.com",
		"password":        "pw123456",
		"passwordConfirm": "pw123456",
	}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	body := b.find(t, http.MethodPost, "/api/collections/users/records").Body
	if _, ok := body["name"]; ok {
		t.Errorf("body has name: %+v", body)
	}
	if body["passwordConfirm"] != "pw123456" {
		t.Errorf("body = %+v", body)
	}
}

func TestCall_ListRecordsRejectsFractionalPage(t *testing.T) {
	d, b := newDispatcher(t, nil)
	_, err := d.Call(context.Background(), "list_records", map[string]any{
		"collection": "posts",
		"perPage":    json.Number("2.5"),
	})
	if rpcErr := rpcError(t, err); rpcErr.Message != "Failed to list records: perPage must be an integer" {
		t.Errorf("message = %q", rpcErr.Message)
	}
	if n := len(b.requests()); n != 0 {
		t.Errorf("backend saw %d requests, want 0", n)
	}
}
