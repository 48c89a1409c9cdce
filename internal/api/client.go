package api

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salmonumbrella/pms-cli/internal/logging"
)

const (
	// DefaultBaseURL is the base URL used when none is configured
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
	// RequestIDHeader carries a per-request correlation id.
	RequestIDHeader = "X-Request-ID"
)

// TokenSource supplies bearer tokens to the client. Refresh is called at
// most once per request, after the server answered 401.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for a fixed token that cannot be refreshed.
type StaticToken string

// Token returns the fixed token.
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Refresh always fails; a static token has nothing to refresh with.
func (s StaticToken) Refresh(context.Context) (string, error) {
	return "", AuthenticationError{Message: "token expired and cannot be refreshed; run 'pms auth login'"}
}

// Client represents a PMS REST API client
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *zap.Logger
	debug      bool
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL for the client
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(u), "/")
	}
}

// WithTimeout sets a custom timeout for the HTTP client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDebug enables debug logging
func WithDebug(debug bool) ClientOption {
	return func(c *Client) {
		c.debug = debug
	}
}

// NewClient creates a new PMS API client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logging.Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetDebug enables or disables debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// do issues an authenticated request. On 401 it refreshes the token once
// and retries once; any other failure is returned as a typed error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = marshalBody(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, respBody, err := c.send(ctx, method, path, query, payload, false)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
		if _, refreshErr := c.tokens.Refresh(ctx); refreshErr != nil {
			c.logger.Debug("token refresh failed", zap.Error(refreshErr))
			return nil, AuthenticationError{Message: "session expired; run 'pms auth login'"}
		}
		resp, respBody, err = c.send(ctx, method, path, query, payload, true)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}
	return nil, statusError(resp.StatusCode, respBody)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, retried bool) (*http.Response, []byte, error) {
	target, err := c.resolve(path, query)
	if err != nil {
		return nil, nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := newRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to obtain token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, nil, TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	fields := []zap.Field{
		zap.String("method", method),
		zap.String("url", target),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Bool("retried", retried),
		zap.Duration("elapsed", time.Since(start)),
	}
	if c.debug {
		c.logger.Info("request", fields...)
	} else {
		c.logger.Debug("request", fields...)
	}

	return resp, respBody, nil
}

// resolve joins path onto the base URL. Absolute URLs (pagination links)
// are used as-is.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	var target string
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		if err := c.sameOrigin(path); err != nil {
			return "", err
		}
		target = path
	} else {
		target = c.baseURL + path
	}
	if len(query) == 0 {
		return target, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", target, err)
	}
	q := u.Query()
	for key, values := range query {
		q.Del(key)
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sameOrigin refuses absolute links pointing away from the configured API,
// since every request carries the bearer token.
func (c *Client) sameOrigin(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", link, err)
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", c.baseURL, err)
	}
	if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return fmt.Errorf("refusing to follow %s://%s: link is outside %s", u.Scheme, u.Host, c.baseURL)
	}
	return nil
}

func statusError(status int, body []byte) error {
	msg := extractMessage(body)
	switch {
	case status == http.StatusUnauthorized:
		if msg == "" {
			msg = "invalid or expired credentials"
		}
		return AuthenticationError{Message: msg}
	case status == http.StatusForbidden:
		if msg == "" {
			msg = "permission denied"
		}
		return AuthenticationError{Message: msg}
	case status == http.StatusNotFound:
		if msg == "" {
			msg = "not found"
		}
		return NotFoundError{Message: msg}
	case status == http.StatusTooManyRequests:
		if msg == "" {
			msg = "rate limit exceeded"
		}
		return RateLimitError{Message: msg}
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		if msg == "" {
			msg = "invalid request"
		}
		return ValidationError{Message: msg, Fields: extractFieldErrors(body)}
	default:
		return ServerError{Status: status, Message: msg}
	}
}

func marshalBody(body interface{}) ([]byte, error) {
	switch b := body.(type) {
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	default:
		return json.Marshal(body)
	}
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// List fetches the first page of a collection
func (c *Client) List(ctx context.Context, resource string, params url.Values) (*Page, error) {
	if err := ValidateResource(resource); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, ResourcePath(resource), params, nil)
	if err != nil {
		return nil, err
	}
	return parsePage(resp)
}

// ListNext follows a pagination link
func (c *Client) ListNext(ctx context.Context, next string) (*Page, error) {
	if strings.TrimSpace(next) == "" {
		return nil, errors.New("no next page")
	}
	resp, err := c.do(ctx, http.MethodGet, next, nil, nil)
	if err != nil {
		return nil, err
	}
	return parsePage(resp)
}

// Get retrieves a single entity
func (c *Client) Get(ctx context.Context, resource, id string) (json.RawMessage, error) {
	if err := ValidateResource(resource); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, ItemPath(resource, id), nil, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp), nil
}

// Create posts a new entity
func (c *Client) Create(ctx context.Context, resource string, body interface{}) (json.RawMessage, error) {
	if err := ValidateResource(resource); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, ResourcePath(resource), nil, body)
	if err != nil {
		return nil, err
	}
	return rawOrNil(resp), nil
}

// Update patches an entity
func (c *Client) Update(ctx context.Context, resource, id string, body interface{}) (json.RawMessage, error) {
	if err := ValidateResource(resource); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPatch, ItemPath(resource, id), nil, body)
	if err != nil {
		return nil, err
	}
	return rawOrNil(resp), nil
}

// Delete removes an entity
func (c *Client) Delete(ctx context.Context, resource, id string) (json.RawMessage, error) {
	if err := ValidateResource(resource); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodDelete, ItemPath(resource, id), nil, nil)
	if err != nil {
		return nil, err
	}
	return rawOrNil(resp), nil
}

// Dispatch invokes a named sub-action
func (c *Client) Dispatch(ctx context.Context, req ActionRequest) (json.RawMessage, error) {
	if err := ValidateResource(req.Resource); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Action) == "" {
		return nil, ValidationError{Message: "action name is required"}
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodPost
	}
	resp, err := c.do(ctx, method, ActionPath(req.Resource, req.ID, req.Action), nil, req.Body)
	if err != nil {
		return nil, err
	}
	return rawOrNil(resp), nil
}

func rawOrNil(b []byte) json.RawMessage {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

// parsePage accepts both a bare JSON array and the paginated envelope
// {"count", "next", "previous", "results"}.
func parsePage(body []byte) (*Page, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Page{}, nil
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to parse list result: %w", err)
		}
		return &Page{Results: items, Count: len(items)}, nil
	}

	var envelope struct {
		Count   *int              `json:"count"`
		Next    *string           `json:"next"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse list result: %w", err)
	}
	if envelope.Results == nil && envelope.Count == nil {
		return nil, fmt.Errorf("failed to parse list result: unexpected response shape")
	}

	page := &Page{Results: envelope.Results, Count: len(envelope.Results)}
	if envelope.Count != nil {
		page.Count = *envelope.Count
	}
	if envelope.Next != nil {
		page.Next = *envelope.Next
	}
	return page, nil
}

// Ensure Client implements PMSAPI at compile time
var _ PMSAPI = (*Client)(nil)
