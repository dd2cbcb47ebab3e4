package pocketbase

import (
	"context"
	"net/http"
)

// CreateBackup starts a new backup. An empty name lets the backend pick one.
func (c *Client) CreateBackup(ctx context.Context, name string) error {
	body := map[string]any{}
	if name != "" {
		body["name"] = name
	}
	return c.send(ctx, http.MethodPost, endpoint("api", "backups"), nil, body, nil)
}
