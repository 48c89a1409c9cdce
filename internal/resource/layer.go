// Package resource is the access layer between commands and the PMS REST
// API: cached list and detail queries, and mutations that report their
// outcome through a Notifier.
package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/salmonumbrella/pms-cli/internal/api"
	"github.com/salmonumbrella/pms-cli/internal/logging"
)

// Transport performs the HTTP calls. *api.Client implements it.
type Transport interface {
	List(ctx context.Context, resource string, params url.Values) (*api.Page, error)
	ListNext(ctx context.Context, next string) (*api.Page, error)
	Get(ctx context.Context, resource, id string) (json.RawMessage, error)
	Create(ctx context.Context, resource string, body interface{}) (json.RawMessage, error)
	Update(ctx context.Context, resource, id string, body interface{}) (json.RawMessage, error)
	Delete(ctx context.Context, resource, id string) (json.RawMessage, error)
	Dispatch(ctx context.Context, req api.ActionRequest) (json.RawMessage, error)
}

// Notifier shows mutation outcomes. Success messages dismiss themselves;
// error messages wait for the user.
type Notifier interface {
	ShowSuccess(msg string)
	ShowErrorConfirm(msg string)
}

// Status is the lifecycle of a query or mutation.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Option configures a Layer.
type Option func(*Layer)

// WithCache shares a cache between layers.
func WithCache(c *Cache) Option {
	return func(l *Layer) {
		if c != nil {
			l.cache = c
		}
	}
}

// WithMaxAge makes cached entries older than d refetch on Fetch.
func WithMaxAge(d time.Duration) Option {
	return func(l *Layer) { l.maxAge = d }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Layer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Layer hands out queries and mutations over one transport.
type Layer struct {
	transport Transport
	notifier  Notifier
	cache     *Cache
	maxAge    time.Duration
	logger    *zap.Logger
}

// NewLayer builds a Layer. A nil notifier discards notifications.
func NewLayer(t Transport, n Notifier, opts ...Option) *Layer {
	if n == nil {
		n = discard{}
	}
	l := &Layer{
		transport: t,
		notifier:  n,
		cache:     NewCache(),
		logger:    logging.Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cache returns the layer's cache.
func (l *Layer) Cache() *Cache { return l.cache }

// Invalidate drops every cached list and detail of resource, so the next
// Fetch goes to the network.
func (l *Layer) Invalidate(resource string) {
	n := l.cache.InvalidateResource(normalizeResource(resource))
	l.logger.Debug("cache invalidated", zap.String("resource", resource), zap.Int("entries", n))
}

type discard struct{}

func (discard) ShowSuccess(string)      {}
func (discard) ShowErrorConfirm(string) {}

func normalizeResource(resource string) string {
	return strings.Trim(strings.TrimSpace(resource), "/")
}

// DecodeRow turns a raw entity into a generic value. Numbers stay
// json.Number so amounts keep their precision.
func DecodeRow(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}
	return v, nil
}

func decodeRows(raws []json.RawMessage) ([]any, error) {
	rows := make([]any, 0, len(raws))
	for _, raw := range raws {
		row, err := DecodeRow(raw)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
