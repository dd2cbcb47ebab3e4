// Package pocketbase is a thin client for the PocketBase REST API.
package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxBodySize limits how much of a reply is read.
const maxBodySize = 32 << 20

// Client talks to a single PocketBase instance. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	auth       *AuthStore
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP client timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// WithRatePerMinute throttles outgoing requests. Zero disables throttling.
func WithRatePerMinute(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
}

// New creates a client for the PocketBase instance at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("pocketbase url is empty")
	}
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("pocketbase url is invalid: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("pocketbase url must be absolute: %s", baseURL)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""

	c := &Client{
		baseURL:    strings.TrimSuffix(parsed.String(), "/"),
		httpClient: &http.Client{},
		auth:       &AuthStore{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AuthStore returns the client's auth state.
func (c *Client) AuthStore() *AuthStore {
	return c.auth
}

// Health checks the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.send(ctx, http.MethodGet, "/api/health", nil, nil, nil)
}

// endpoint joins path segments, escaping each one.
func endpoint(segments ...string) string {
	var b strings.Builder
	for _, segment := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(segment))
	}
	return b.String()
}

func (c *Client) buildURL(path string, query url.Values) string {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// send performs one request. A non-2xx reply becomes a *ResponseError.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, out *json.RawMessage) error {
	target := c.buildURL(path, query)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &ResponseError{URL: target, Err: err}
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token := c.auth.Token(); token != "" {
		request.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return &ResponseError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &ResponseError{URL: target, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newResponseError(target, resp.StatusCode, data)
	}
	if out != nil {
		*out = json.RawMessage(bytes.TrimSpace(data))
	}
	return nil
}
