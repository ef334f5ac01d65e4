// Package backend is the HTTP client for the delivery backend REST API.
//
// Every request carries "Authorization: Bearer <token>". The token is taken
// from the request context (the caller's own token, forwarded by the web
// layer) and falls back to the configured service token.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultRetryBaseDelay is the first backoff interval of the profile retry policy.
const DefaultRetryBaseDelay = time.Second

// Record is an entity as returned by the backend. The dashboard treats
// entities as opaque JSON objects.
type Record map[string]any

// Client talks to the backend API.
type Client struct {
	baseURL      string
	http         *http.Client
	serviceToken string
	retryBase    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithServiceToken sets the token used when the context carries none.
func WithServiceToken(token string) Option {
	return func(c *Client) { c.serviceToken = token }
}

// WithRetryBaseDelay sets the first backoff interval for retried calls.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryBase = d
		}
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: timeout},
		retryBase: DefaultRetryBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type tokenKey struct{}

// ContextWithToken stores the caller's bearer token for outgoing requests.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token stored by ContextWithToken.
func TokenFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey{}).(string); ok {
		return v
	}
	return ""
}

func (c *Client) token(ctx context.Context) string {
	if tok := TokenFromContext(ctx); tok != "" {
		return tok
	}
	return c.serviceToken
}

// do performs one request. body, if non-nil, is sent as JSON; out, if
// non-nil, receives the decoded JSON response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(method, path, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// doData performs a request whose response is wrapped in {"data": {...}} and
// returns the inner object. Bodies without a data envelope are returned whole.
func (c *Client) doData(ctx context.Context, method, path string, query url.Values, body any) (Record, error) {
	var raw Record
	if err := c.do(ctx, method, path, query, body, &raw); err != nil {
		return nil, err
	}
	if inner, ok := raw["data"].(map[string]any); ok {
		return Record(inner), nil
	}
	if raw == nil {
		raw = Record{}
	}
	return raw, nil
}
