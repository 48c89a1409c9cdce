package cmd

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/salmonumbrella/pms-cli/internal/api"
)

type fakeClient struct {
	ListFunc     func(string, url.Values) (*api.Page, error)
	ListNextFunc func(string) (*api.Page, error)
	GetFunc      func(string, string) (json.RawMessage, error)
	CreateFunc   func(string, interface{}) (json.RawMessage, error)
	UpdateFunc   func(string, string, interface{}) (json.RawMessage, error)
	DeleteFunc   func(string, string) (json.RawMessage, error)
	DispatchFunc func(api.ActionRequest) (json.RawMessage, error)
}

var _ api.PMSAPI = (*fakeClient)(nil)

func (f *fakeClient) List(_ context.Context, resource string, params url.Values) (*api.Page, error) {
	if f.ListFunc != nil {
		return f.ListFunc(resource, params)
	}
	return &api.Page{}, nil
}

func (f *fakeClient) ListNext(_ context.Context, next string) (*api.Page, error) {
	if f.ListNextFunc != nil {
		return f.ListNextFunc(next)
	}
	return &api.Page{}, nil
}

func (f *fakeClient) Get(_ context.Context, resource, id string) (json.RawMessage, error) {
	if f.GetFunc != nil {
		return f.GetFunc(resource, id)
	}
	return nil, api.NotFoundError{Message: "not found"}
}

func (f *fakeClient) Create(_ context.Context, resource string, body interface{}) (json.RawMessage, error) {
	if f.CreateFunc != nil {
		return f.CreateFunc(resource, body)
	}
	return nil, nil
}

func (f *fakeClient) Update(_ context.Context, resource, id string, body interface{}) (json.RawMessage, error) {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(resource, id, body)
	}
	return nil, nil
}

func (f *fakeClient) Delete(_ context.Context, resource, id string) (json.RawMessage, error) {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(resource, id)
	}
	return nil, nil
}

func (f *fakeClient) Dispatch(_ context.Context, req api.ActionRequest) (json.RawMessage, error) {
	if f.DispatchFunc != nil {
		return f.DispatchFunc(req)
	}
	return nil, nil
}

func (f *fakeClient) BaseURL() string {
	return "http://pms.test"
}

// rawRows encodes rows as the raw results of a page.
func rawRows(rows ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		out[i] = json.RawMessage(r)
	}
	return out
}
