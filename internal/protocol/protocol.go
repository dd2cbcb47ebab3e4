// Package protocol maps tool failures onto JSON-RPC errors.
package protocol

import "github.com/modelcontextprotocol/go-sdk/jsonrpc"

// JSON-RPC error codes used by tool calls.
const (
	CodeInvalidParams  int64 = -32602
	CodeMethodNotFound int64 = -32601
	CodeInternalError  int64 = -32603
)

// MethodNotFound reports an unknown tool.
func MethodNotFound(message string) *jsonrpc.Error {
	return &jsonrpc.Error{Code: CodeMethodNotFound, Message: message}
}

// InvalidParams reports arguments that do not match the tool schema.
func InvalidParams(message string) *jsonrpc.Error {
	return &jsonrpc.Error{Code: CodeInvalidParams, Message: message}
}

// InternalError reports a failed backend call.
func InternalError(message string) *jsonrpc.Error {
	return &jsonrpc.Error{Code: CodeInternalError, Message: message}
}
