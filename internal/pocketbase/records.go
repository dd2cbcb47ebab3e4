package pocketbase

import (
	"context"
	"encoding/json"
	"net/http"
)

func recordsPath(collection string) string {
	return endpoint("api", "collections", collection, "records")
}

// CreateRecord creates a record in collection.
func (c *Client) CreateRecord(ctx context.Context, collection string, data map[string]any) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.send(ctx, http.MethodPost, recordsPath(collection), nil, data, &raw)
	return raw, err
}

// ListRecords returns one page of records.
func (c *Client) ListRecords(ctx context.Context, collection string, opts ListOptions) (json.RawMessage, error) {
	return c.getList(ctx, recordsPath(collection), opts)
}

// UpdateRecord patches a record.
func (c *Client) UpdateRecord(ctx context.Context, collection, id string, data map[string]any) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.send(ctx, http.MethodPatch, endpoint("api", "collections", collection, "records", id), nil, data, &raw)
	return raw, err
}

// DeleteRecord removes a record.
func (c *Client) DeleteRecord(ctx context.Context, collection, id string) error {
	return c.send(ctx, http.MethodDelete, endpoint("api", "collections", collection, "records", id), nil, nil, nil)
}
