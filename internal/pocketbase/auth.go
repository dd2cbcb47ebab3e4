package pocketbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// AuthStore keeps the token of the last successful authentication.
type AuthStore struct {
	mu     sync.RWMutex
	token  string
	record json.RawMessage
}

// Save stores a token and its auth record.
func (s *AuthStore) Save(token string, record json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.record = record
}

// Clear drops the stored token.
func (s *AuthStore) Clear() {
	s.Save("", nil)
}

// Token returns the stored token.
func (s *AuthStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Record returns the stored auth record.
func (s *AuthStore) Record() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

// IsValid reports whether a token is stored.
func (s *AuthStore) IsValid() bool {
	return s.Token() != ""
}

type authResponse struct {
	Token  string          `json:"token"`
	Record json.RawMessage `json:"record"`
}

// OAuth2Request holds the code exchange parameters.
type OAuth2Request struct {
	// Provider is the OAuth2 provider name.
	Provider string `json:"provider"`
	// Code is the authorization code.
	Code string `json:"code"`
	// CodeVerifier is the PKCE verifier.
	CodeVerifier string `json:"codeVerifier"`
	// RedirectURL is the redirect URL used in the flow.
	RedirectURL string `json:"redirectURL"`
	// CreateData is optional data for a newly created record.
	CreateData map[string]any `json:"createData,omitempty"`
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.send(ctx, http.MethodPost, path, nil, body, &raw); err != nil {
		return nil, err
	}
	var parsed authResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	c.auth.Save(parsed.Token, parsed.Record)
	return raw, nil
}

// AuthWithPassword authenticates a record and stores its token.
func (c *Client) AuthWithPassword(ctx context.Context, collection, identity, password string) (json.RawMessage, error) {
	return c.authenticate(ctx, endpoint("api", "collections", collection, "auth-with-password"), map[string]any{
		"identity": identity,
		"password": password,
	})
}

// AuthWithOAuth2Code exchanges an OAuth2 code and stores the token.
func (c *Client) AuthWithOAuth2Code(ctx context.Context, collection string, req OAuth2Request) (json.RawMessage, error) {
	return c.authenticate(ctx, endpoint("api", "collections", collection, "auth-with-oauth2"), req)
}

// AuthRefresh refreshes the stored token.
func (c *Client) AuthRefresh(ctx context.Context, collection string) (json.RawMessage, error) {
	return c.authenticate(ctx, endpoint("api", "collections", collection, "auth-refresh"), map[string]any{})
}

// RequestOTP sends a one-time password to email.
func (c *Client) RequestOTP(ctx context.Context, collection, email string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.send(ctx, http.MethodPost, endpoint("api", "collections", collection, "request-otp"), nil, map[string]any{"email": email}, &raw)
	return raw, err
}

// ListAuthMethods returns the auth methods enabled for collection.
func (c *Client) ListAuthMethods(ctx context.Context, collection string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.send(ctx, http.MethodGet, endpoint("api", "collections", collection, "auth-methods"), nil, nil, &raw)
	return raw, err
}

// Impersonate issues a token for another record. The stored token is kept.
func (c *Client) Impersonate(ctx context.Context, collection, id string, duration int) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.send(ctx, http.MethodPost, endpoint("api", "collections", collection, "impersonate", id), nil, map[string]any{"duration": duration}, &raw)
	return raw, err
}

// RequestVerification sends a verification email.
func (c *Client) RequestVerification(ctx context.Context, collection, email string) error {
	return c.send(ctx, http.MethodPost, endpoint("api", "collections", collection, "request-verification"), nil, map[string]any{"email": email}, nil)
}

// ConfirmVerification confirms an email verification token.
func (c *Client) ConfirmVerification(ctx context.Context, collection, token string) error {
	return c.send(ctx, http.MethodPost, endpoint("api", "collections", collection, "confirm-verification"), nil, map[string]any{"token": token}, nil)
}

// RequestPasswordReset sends a password reset email.
func (c *Client) RequestPasswordReset(ctx context.Context, collection, email string) error {
	return c.send(ctx, http.MethodPost, endpoint("api", "collections", collection, "request-password-reset"), nil, map[string]any{"email": email}, nil)
}

// ConfirmPasswordReset sets a new password using a reset token.
func (c *Client) ConfirmPasswordReset(ctx context.Context, collection, token, password, passwordConfirm string) error {
	return c.send(ctx, http.MethodPost, endpoint("api", "collections", collection, "confirm-password-reset"), nil, map[string]any{
		"token":           token,
		"password":        password,
		"passwordConfirm": passwordConfirm,
	}, nil)
}

// RequestEmailChange asks for an email change of the authenticated record.
func (c *Client) RequestEmailChange(ctx context.Context, collection, newEmail string) error {
	return c.send(ctx, http.MethodPost, endpoint("api", "collections", collection, "request-email-change"), nil, map[string]any{"newEmail": newEmail}, nil)
}

// ConfirmEmailChange confirms an email change token.
func (c *Client) ConfirmEmailChange(ctx context.Context, collection, token, password string) error {
	return c.send(ctx, http.MethodPost, endpoint("api", "collections", collection, "confirm-email-change"), nil, map[string]any{
		"token":    token,
		"password": password,
	}, nil)
}
