// Package tools maps tool calls onto PocketBase API calls.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/codex-k8s/pocketbase-mcp-server/internal/constants"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/dsl"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/errvalue"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/pocketbase"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/protocol"
)

// Credentials are the superuser credentials used by admin tools.
type Credentials struct {
	// Email is the superuser email.
	Email string
	// Password is the superuser password.
	Password string
}

type handlerFunc func(ctx context.Context, d *Dispatcher, args map[string]any) (string, error)

// Dispatcher routes tool calls to handlers sharing one PocketBase client.
type Dispatcher struct {
	client *pocketbase.Client
	admin  Credentials
	tools  map[string]dsl.ToolConfig
}

// New builds a dispatcher for the catalog tools. Every tool must have a
// handler.
func New(client *pocketbase.Client, admin Credentials, catalog []dsl.ToolConfig) (*Dispatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("pocketbase client is nil")
	}
	tools := make(map[string]dsl.ToolConfig, len(catalog))
	for _, tool := range catalog {
		if _, ok := handlers[tool.Name]; !ok {
			return nil, fmt.Errorf("tool %s has no handler", tool.Name)
		}
		tools[tool.Name] = tool
	}
	return &Dispatcher{client: client, admin: admin, tools: tools}, nil
}

// Names returns the dispatchable tool names, sorted.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.tools))
	for name := range d.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the named tool. Unknown tools fail with a method-not-found
// error; backend failures fail with an internal error whose message is the
// tool's failure label followed by the normalized backend error.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := d.tools[name]
	if !ok {
		return "", protocol.MethodNotFound(fmt.Sprintf("Unknown tool: %s", name))
	}
	if args == nil {
		args = map[string]any{}
	}
	if tool.RequiresAdmin {
		if err := d.authenticateAdmin(ctx); err != nil {
			return "", failure(tool, err)
		}
	}
	text, err := handlers[name](ctx, d, args)
	if err != nil {
		return "", failure(tool, err)
	}
	return text, nil
}

func (d *Dispatcher) authenticateAdmin(ctx context.Context) error {
	_, err := d.client.AuthWithPassword(ctx, constants.SuperusersCollection, d.admin.Email, d.admin.Password)
	return err
}

func failure(tool dsl.ToolConfig, err error) error {
	return protocol.InternalError(fmt.Sprintf("%s: %s", tool.FailureLabel, errvalue.Describe(errvalue.FromError(err))))
}

var handlers = map[string]handlerFunc{
	"create_collection":        createCollection,
	"update_collection":        updateCollection,
	"get_collection":           getCollection,
	"list_collections":         listCollections,
	"delete_collection":        deleteCollection,
	"create_record":            createRecord,
	"list_records":             listRecords,
	"update_record":            updateRecord,
	"delete_record":            deleteRecord,
	"import_data":              importData,
	"list_auth_methods":        listAuthMethods,
	"authenticate_user":        authenticateUser,
	"authenticate_with_oauth2": authenticateWithOAuth2,
	"authenticate_with_otp":    authenticateWithOTP,
	"auth_refresh":             authRefresh,
	"request_verification":     requestVerification,
	"confirm_verification":     confirmVerification,
	"request_password_reset":   requestPasswordReset,
	"confirm_password_reset":   confirmPasswordReset,
	"request_email_change":     requestEmailChange,
	"confirm_email_change":     confirmEmailChange,
	"impersonate_user":         impersonateUser,
	"create_user":              createUser,
	"backup_database":          backupDatabase,
}
