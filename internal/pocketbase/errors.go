package pocketbase

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/codex-k8s/pocketbase-mcp-server/internal/errvalue"
)

// DefaultErrorMessage is used when the backend reply carries no message.
const DefaultErrorMessage = "Something went wrong while processing your request."

// NotFoundMessage mirrors the backend's 404 message for synthesized misses.
const NotFoundMessage = "The requested resource wasn't found."

// ResponseError is a failed PocketBase call.
type ResponseError struct {
	// URL is the requested URL.
	URL string
	// Status is the HTTP status code, zero when the request never completed.
	Status int
	// Message is the top-level message reported by the backend.
	Message string
	// Body is the decoded error body.
	Body errvalue.Value
	// Err is the transport failure, if any.
	Err error
}

// Error implements error.
func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pocketbase request %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("pocketbase status %d: %s", e.Status, e.Message)
}

// Unwrap returns the transport failure.
func (e *ResponseError) Unwrap() error {
	return e.Err
}

// ErrorValue returns the payload handed to the error normalizer.
func (e *ResponseError) ErrorValue() errvalue.Value {
	if e.Body != nil {
		return e.Body
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = DefaultErrorMessage
	}
	return errvalue.Record{{Key: "message", Value: errvalue.String(msg)}}
}

// IsNotFound reports whether err is a 404 reply.
func IsNotFound(err error) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr) && respErr.Status == http.StatusNotFound
}

func newResponseError(url string, status int, body []byte) *ResponseError {
	respErr := &ResponseError{URL: url, Status: status}
	if len(body) > 0 {
		if v, err := errvalue.Decode(body); err == nil {
			if rec, ok := v.(errvalue.Record); ok && len(rec) > 0 {
				respErr.Body = rec
				if msg, ok := rec.Get("message"); ok {
					if s, ok := msg.(errvalue.String); ok {
						respErr.Message = string(s)
					}
				}
			}
		}
	}
	if respErr.Message == "" {
		respErr.Message = DefaultErrorMessage
	}
	if respErr.Body == nil {
		respErr.Body = errvalue.Record{
			{Key: "status", Value: errvalue.Other{Value: status}},
			{Key: "message", Value: errvalue.String(respErr.Message)},
		}
	}
	return respErr
}

func notFoundError(url string) *ResponseError {
	return &ResponseError{
		URL:     url,
		Status:  http.StatusNotFound,
		Message: NotFoundMessage,
		Body: errvalue.Record{
			{Key: "code", Value: errvalue.Other{Value: http.StatusNotFound}},
			{Key: "message", Value: errvalue.String(NotFoundMessage)},
			{Key: "data", Value: errvalue.Record{}},
		},
	}
}
