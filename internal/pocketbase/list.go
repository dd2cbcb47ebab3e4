package pocketbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// fullListBatch is the page size used when fetching every item.
const fullListBatch = 500

// ListOptions are the query parameters of list endpoints.
type ListOptions struct {
	// Page is the 1-based page number.
	Page int
	// PerPage is the page size.
	PerPage int
	// Filter is a PocketBase filter expression.
	Filter string
	// Sort is a PocketBase sort expression.
	Sort string
	// Fields limits the returned fields.
	Fields string
	// SkipTotal skips counting the total items.
	SkipTotal bool
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PerPage > 0 {
		q.Set("perPage", strconv.Itoa(o.PerPage))
	}
	if o.Filter != "" {
		q.Set("filter", o.Filter)
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	if o.Fields != "" {
		q.Set("fields", o.Fields)
	}
	if o.SkipTotal {
		q.Set("skipTotal", "1")
	}
	return q
}

type listPage struct {
	Items []json.RawMessage `json:"items"`
}

func (c *Client) getList(ctx context.Context, path string, opts ListOptions) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.send(ctx, http.MethodGet, path, opts.query(), nil, &raw)
	return raw, err
}

func (c *Client) getFullList(ctx context.Context, path string, opts ListOptions) (json.RawMessage, error) {
	items := []json.RawMessage{}
	opts.PerPage = fullListBatch
	opts.SkipTotal = true
	for page := 1; ; page++ {
		opts.Page = page
		raw, err := c.getList(ctx, path, opts)
		if err != nil {
			return nil, err
		}
		var parsed listPage
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("decode list page: %w", err)
		}
		items = append(items, parsed.Items...)
		if len(parsed.Items) < fullListBatch {
			break
		}
	}
	return json.Marshal(items)
}

func (c *Client) getFirstListItem(ctx context.Context, path, filter string) (json.RawMessage, error) {
	opts := ListOptions{Page: 1, PerPage: 1, Filter: filter, SkipTotal: true}
	raw, err := c.getList(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	var parsed listPage
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode list page: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, notFoundError(c.buildURL(path, opts.query()))
	}
	return parsed.Items[0], nil
}
