package api

import (
	"context"
	"encoding/json"
	"net/url"
)

// PMSAPI defines the interface for interacting with the hotel PMS REST API.
// Every operation is addressed by a resource name ("rooms",
// "housekeeping/tasks", ...) that maps onto /api/<resource>/.
type PMSAPI interface {
	// List fetches the first page of a collection.
	// params are sent as the query string (search, filters, page_size).
	List(ctx context.Context, resource string, params url.Values) (*Page, error)

	// ListNext follows a pagination link returned in Page.Next.
	ListNext(ctx context.Context, next string) (*Page, error)

	// Get retrieves a single entity by id.
	Get(ctx context.Context, resource, id string) (json.RawMessage, error)

	// Create posts a new entity and returns the server representation.
	Create(ctx context.Context, resource string, body interface{}) (json.RawMessage, error)

	// Update partially updates an entity (PATCH).
	Update(ctx context.Context, resource, id string, body interface{}) (json.RawMessage, error)

	// Delete removes an entity. The response payload, if any, is returned verbatim.
	Delete(ctx context.Context, resource, id string) (json.RawMessage, error)

	// Dispatch invokes a named sub-action under a resource path.
	Dispatch(ctx context.Context, req ActionRequest) (json.RawMessage, error)

	// BaseURL returns the API root this client talks to.
	BaseURL() string
}

// Page is one page of a collection response.
type Page struct {
	Results []json.RawMessage `json:"results"`
	Next    string            `json:"next,omitempty"`
	Count   int               `json:"count"`
}

// HasNext reports whether another page can be fetched.
func (p *Page) HasNext() bool {
	return p != nil && p.Next != ""
}

// ActionRequest describes a non-CRUD call such as
// POST /api/housekeeping/tasks/{id}/start/.
type ActionRequest struct {
	Resource string
	ID       string // optional; collection-level action when empty
	Action   string
	Method   string // defaults to POST
	Body     interface{}
}
