package pocketbase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

var collectionsPath = endpoint("api", "collections")

// CreateCollection creates a collection from body.
func (c *Client) CreateCollection(ctx context.Context, body map[string]any) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.send(ctx, http.MethodPost, collectionsPath, nil, body, &raw)
	return raw, err
}

// UpdateCollection patches the collection identified by idOrName.
func (c *Client) UpdateCollection(ctx context.Context, idOrName string, body map[string]any) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.send(ctx, http.MethodPatch, endpoint("api", "collections", idOrName), nil, body, &raw)
	return raw, err
}

// GetCollection returns one collection; fields optionally limits the reply.
func (c *Client) GetCollection(ctx context.Context, idOrName, fields string) (json.RawMessage, error) {
	var query url.Values
	if fields != "" {
		query = url.Values{"fields": {fields}}
	}
	var raw json.RawMessage
	err := c.send(ctx, http.MethodGet, endpoint("api", "collections", idOrName), query, nil, &raw)
	return raw, err
}

// ListCollections returns one page of collections.
func (c *Client) ListCollections(ctx context.Context, opts ListOptions) (json.RawMessage, error) {
	return c.getList(ctx, collectionsPath, opts)
}

// FullCollectionList returns every collection as a JSON array.
func (c *Client) FullCollectionList(ctx context.Context, sort string) (json.RawMessage, error) {
	return c.getFullList(ctx, collectionsPath, ListOptions{Sort: sort})
}

// FirstCollection returns the first collection matching filter.
func (c *Client) FirstCollection(ctx context.Context, filter string) (json.RawMessage, error) {
	return c.getFirstListItem(ctx, collectionsPath, filter)
}

// DeleteCollection removes a collection.
func (c *Client) DeleteCollection(ctx context.Context, idOrName string) error {
	return c.send(ctx, http.MethodDelete, endpoint("api", "collections", idOrName), nil, nil, nil)
}
