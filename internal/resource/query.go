package resource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ListResult is what a list query caches: the rows fetched so far and the
// link to the next page.
type ListResult struct {
	Rows  []any
	Next  string
	Count int
}

// ListQuery reads a collection. It never notifies; failures are exposed
// through IsError and Err.
type ListQuery struct {
	layer    *Layer
	resource string
	params   url.Values
	key      Key

	mu      sync.Mutex
	enabled bool
	status  Status
	result  *ListResult
	err     error
}

// List returns a query over resource filtered by params. A disabled query
// makes no request until SetEnabled(true).
func (l *Layer) List(resource string, params url.Values, enabled bool) *ListQuery {
	resource = normalizeResource(resource)
	copied := url.Values{}
	for k, v := range params {
		copied[k] = append([]string(nil), v...)
	}
	return &ListQuery{
		layer:    l,
		resource: resource,
		params:   copied,
		key:      ListKey(resource, copied),
		enabled:  enabled,
	}
}

// Key is the cache key of the query.
func (q *ListQuery) Key() Key { return q.key }

// Enabled reports whether the query may fetch.
func (q *ListQuery) Enabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enabled
}

// SetEnabled turns fetching on or off.
func (q *ListQuery) SetEnabled(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enabled = enabled
}

// Fetch loads the first page, from cache when present and fresh.
func (q *ListQuery) Fetch(ctx context.Context) error {
	if !q.Enabled() {
		return nil
	}
	l := q.layer
	if !l.cache.Stale(q.key, l.maxAge) {
		if e, ok := l.cache.Get(q.key); ok {
			if res, ok := e.Data.(*ListResult); ok {
				l.logger.Debug("cache hit", zap.String("resource", q.resource), zap.String("params", q.key.Params))
				q.finish(res, nil)
				return nil
			}
		}
	}
	return q.Refetch(ctx)
}

// Refetch loads the first page from the network, dropping any pages
// fetched before.
func (q *ListQuery) Refetch(ctx context.Context) error {
	if !q.Enabled() {
		return nil
	}
	q.start()

	page, err := q.layer.transport.List(ctx, q.resource, q.params)
	if err != nil {
		q.layer.logger.Debug("list failed", zap.String("resource", q.resource), zap.Error(err))
		q.finish(nil, err)
		return err
	}
	rows, err := decodeRows(page.Results)
	if err != nil {
		q.finish(nil, err)
		return err
	}

	res := &ListResult{Rows: rows, Next: page.Next, Count: page.Count}
	q.layer.cache.Set(q.key, res)
	q.finish(res, nil)
	return nil
}

// HasNextPage reports whether the server announced another page.
func (q *ListQuery) HasNextPage() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.result != nil && strings.TrimSpace(q.result.Next) != ""
}

// FetchNextPage appends the next page to the rows. Without a next page it
// does nothing.
func (q *ListQuery) FetchNextPage(ctx context.Context) error {
	if !q.Enabled() || !q.HasNextPage() {
		return nil
	}
	q.mu.Lock()
	prev := q.result
	q.mu.Unlock()

	q.start()
	page, err := q.layer.transport.ListNext(ctx, prev.Next)
	if err != nil {
		q.mu.Lock()
		q.status = StatusError
		q.err = err
		q.mu.Unlock()
		return err
	}
	rows, err := decodeRows(page.Results)
	if err != nil {
		q.mu.Lock()
		q.status = StatusError
		q.err = err
		q.mu.Unlock()
		return err
	}

	merged := make([]any, 0, len(prev.Rows)+len(rows))
	merged = append(merged, prev.Rows...)
	merged = append(merged, rows...)
	res := &ListResult{Rows: merged, Next: page.Next, Count: page.Count}
	if res.Count == 0 {
		res.Count = prev.Count
	}
	q.layer.cache.Set(q.key, res)
	q.finish(res, nil)
	return nil
}

// FetchAll follows next links until the collection is exhausted. A next link
// seen twice is an error rather than an endless walk.
func (q *ListQuery) FetchAll(ctx context.Context) error {
	if err := q.Fetch(ctx); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for q.HasNextPage() {
		next := q.nextLink()
		if seen[next] {
			err := fmt.Errorf("pagination loop: next link %q repeated", next)
			q.mu.Lock()
			q.status = StatusError
			q.err = err
			q.mu.Unlock()
			return err
		}
		seen[next] = true
		if err := q.FetchNextPage(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (q *ListQuery) nextLink() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.result == nil {
		return ""
	}
	return strings.TrimSpace(q.result.Next)
}

func (q *ListQuery) start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.status = StatusPending
}

func (q *ListQuery) finish(res *ListResult, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err != nil {
		q.status = StatusError
		q.err = err
		q.result = &ListResult{Rows: []any{}}
		return
	}
	q.status = StatusSuccess
	q.err = nil
	q.result = res
}

// Rows returns the rows fetched so far. A disabled or unfetched query has
// none (nil); a failed query has an empty slice.
func (q *ListQuery) Rows() []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.enabled || q.result == nil {
		return nil
	}
	return q.result.Rows
}

// Count is the total the server reported, or the number of rows when it
// did not paginate.
func (q *ListQuery) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.result == nil {
		return 0
	}
	return q.result.Count
}

// Status returns the query status.
func (q *ListQuery) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.status
}

// IsLoading reports an in-flight request.
func (q *ListQuery) IsLoading() bool { return q.Status() == StatusPending }

// IsError reports whether the last request failed.
func (q *ListQuery) IsError() bool { return q.Status() == StatusError }

// Err returns the last error.
func (q *ListQuery) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// GetQuery reads one entity.
type GetQuery struct {
	layer    *Layer
	resource string
	id       string
	key      Key

	mu      sync.Mutex
	enabled bool
	status  Status
	data    any
	err     error
}

// Get returns a query for resource/id. It stays disabled while id is empty.
func (l *Layer) Get(resource, id string, enabled bool) *GetQuery {
	resource = normalizeResource(resource)
	id = strings.TrimSpace(id)
	return &GetQuery{
		layer:    l,
		resource: resource,
		id:       id,
		key:      DetailKey(resource, id),
		enabled:  enabled,
	}
}

// Enabled reports whether the query may fetch.
func (q *GetQuery) Enabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enabled && q.id != ""
}

// SetEnabled turns fetching on or off.
func (q *GetQuery) SetEnabled(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enabled = enabled
}

// Fetch loads the entity, from cache when present and fresh.
func (q *GetQuery) Fetch(ctx context.Context) error {
	if !q.Enabled() {
		return nil
	}
	l := q.layer
	if !l.cache.Stale(q.key, l.maxAge) {
		if e, ok := l.cache.Get(q.key); ok {
			l.logger.Debug("cache hit", zap.String("resource", q.resource), zap.String("id", q.id))
			q.finish(e.Data, nil)
			return nil
		}
	}
	return q.Refetch(ctx)
}

// Refetch loads the entity from the network.
func (q *GetQuery) Refetch(ctx context.Context) error {
	if !q.Enabled() {
		return nil
	}
	q.mu.Lock()
	q.status = StatusPending
	q.mu.Unlock()

	raw, err := q.layer.transport.Get(ctx, q.resource, q.id)
	if err != nil {
		q.layer.logger.Debug("get failed", zap.String("resource", q.resource), zap.String("id", q.id), zap.Error(err))
		q.finish(nil, err)
		return err
	}
	data, err := DecodeRow(raw)
	if err != nil {
		q.finish(nil, err)
		return err
	}
	q.layer.cache.Set(q.key, data)
	q.finish(data, nil)
	return nil
}

func (q *GetQuery) finish(data any, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.data = data
	q.err = err
	if err != nil {
		q.status = StatusError
		return
	}
	q.status = StatusSuccess
}

// Data returns the decoded entity.
func (q *GetQuery) Data() any {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.data
}

// Status returns the query status.
func (q *GetQuery) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.status
}

// IsLoading reports an in-flight request.
func (q *GetQuery) IsLoading() bool { return q.Status() == StatusPending }

// IsError reports whether the last request failed.
func (q *GetQuery) IsError() bool { return q.Status() == StatusError }

// Err returns the last error.
func (q *GetQuery) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}
