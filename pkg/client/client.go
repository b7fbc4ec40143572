// Package client is the HTTP call surface for the auth gateway and the query
// endpoint behind it. Every call carries the stored bearer token, and every
// failure comes back as a *Error with one of a fixed set of kinds.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a call when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config holds the stored base address, query endpoint and timeout.
type Config struct {
	BaseURL       string
	QueryEndpoint string
	Timeout       time.Duration
}

// QueryRequest is the body sent to the query endpoint.
type QueryRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// QueryError is one entry of a query response's error list.
type QueryError struct {
	Message string `json:"message"`
}

type queryResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []QueryError    `json:"errors"`
}

// Client is safe for concurrent use.
type Client struct {
	baseURL       *url.URL
	queryEndpoint string
	httpClient    *http.Client
	tokens        TokenStore
	logger        *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTokenStore sets the store the bearer token is read from.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

// WithLogger sets the logger classified failures are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTransport replaces the underlying round tripper. The bearer hook still
// wraps it. Failures are classified as noResponse only when rt goes through
// the connection stage of an *http.Transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// New builds a client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.QueryEndpoint == "" {
		cfg.QueryEndpoint = "/graphql"
	}

	c := &Client{
		baseURL:       base,
		queryEndpoint: cfg.QueryEndpoint,
		httpClient:    &http.Client{Timeout: cfg.Timeout, Transport: http.DefaultTransport},
		tokens:        NewMemoryTokenStore(),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.httpClient.Transport = &bearerTransport{base: c.httpClient.Transport, tokens: c.tokens, logger: c.logger}
	return c, nil
}

// Tokens returns the store used for bearer injection.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// Request sends body as JSON and decodes a 2xx response into out. out may be nil.
func (c *Client) Request(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return c.fail(method, path, unexpected(err))
	}

	if err := ctx.Err(); err != nil {
		return c.fail(method, path, unexpected(err))
	}

	var attempted bool
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), &httptrace.ClientTrace{
		GetConn: func(string) { attempted = true },
	}))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Only a request that reached the connection stage was sent.
		if !attempted {
			return c.fail(method, path, unexpected(err))
		}
		return c.fail(method, path, noResponse(err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(method, path, noResponse(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(method, path, classifyStatus(resp.StatusCode, payload))
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return c.fail(method, path, unexpected(fmt.Errorf("decode response: %w", err)))
	}
	return nil
}

// Query posts a query to the query endpoint and decodes its data into out.
// A response carrying errors fails with the first error's message, even
// when the HTTP status was a success.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, out any) error {
	var envelope queryResponse
	if err := c.Request(ctx, http.MethodPost, c.queryEndpoint, QueryRequest{Query: query, Variables: variables}, &envelope); err != nil {
		return err
	}

	if len(envelope.Errors) > 0 {
		return c.fail(http.MethodPost, c.queryEndpoint, &Error{Kind: KindGraphError, Message: envelope.Errors[0].Message})
	}

	if out == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return c.fail(http.MethodPost, c.queryEndpoint, unexpected(fmt.Errorf("decode query data: %w", err)))
	}
	return nil
}

// Get sends a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Request(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Request(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Request(ctx, http.MethodPut, path, body, out)
}

// Delete sends a DELETE request and decodes the response into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Request(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// resolve joins path onto the base address. Absolute URLs are used as-is.
func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse path: %w", err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	base := *c.baseURL
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	ref.Path = strings.TrimPrefix(ref.Path, "/")
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) fail(method, path string, err *Error) error {
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("path", path),
		zap.String("kind", string(err.Kind)),
		zap.String("message", err.Message),
	}
	if err.StatusCode != 0 {
		fields = append(fields, zap.Int("status", err.StatusCode))
	}
	if err.cause != nil && !errors.Is(err.cause, context.Canceled) {
		fields = append(fields, zap.NamedError("cause", err.cause))
	}
	c.logger.Debug("request failed", fields...)
	return err
}

// bearerTransport adds the stored token to every outgoing request.
type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenStore
	logger *zap.Logger
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.tokens == nil {
		return base.RoundTrip(req)
	}

	token, err := t.tokens.Token(req.Context())
	if err != nil {
		t.logger.Warn("token store unavailable; sending request without credentials", zap.Error(err))
		return base.RoundTrip(req)
	}
	if token == "" {
		return base.RoundTrip(req)
	}

	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(authed)
}
