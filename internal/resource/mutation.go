package resource

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/salmonumbrella/pms-cli/internal/api"
)

// Messages shown after mutations.
const (
	GenericErrorMessage = "Ocurrió un error"
	CreatedMessage      = "Registro creado correctamente"
	UpdatedMessage      = "Registro actualizado correctamente"
	DeletedMessage      = "Registro eliminado correctamente"
	DispatchedMessage   = "Acción realizada correctamente"
)

// UpdateInput is the argument of an update mutation.
type UpdateInput struct {
	ID   string
	Body any
}

// ActionInput is the argument of a dispatch mutation. An empty ID
// dispatches at collection level; an empty Method means POST.
type ActionInput struct {
	ID     string
	Action string
	Method string
	Body   any
}

// MutationState is the outcome of the last Mutate call.
type MutationState struct {
	Status Status
	Data   json.RawMessage
	Err    error
}

func (s MutationState) IsPending() bool { return s.Status == StatusPending }
func (s MutationState) IsError() bool   { return s.Status == StatusError }
func (s MutationState) IsSuccess() bool { return s.Status == StatusSuccess }

// MutateOption sets per-call callbacks.
type MutateOption func(*mutateOptions)

type mutateOptions struct {
	onSuccess func(json.RawMessage)
	onError   func(error)
}

// OnSuccess runs after the success notification with the server payload.
func OnSuccess(fn func(data json.RawMessage)) MutateOption {
	return func(o *mutateOptions) { o.onSuccess = fn }
}

// OnError runs after the error notification.
func OnError(fn func(err error)) MutateOption {
	return func(o *mutateOptions) { o.onError = fn }
}

// Mutation is a write operation that reports its outcome to the layer's
// Notifier. Errors are always shown; Mutate also returns them.
type Mutation[In any] struct {
	layer    *Layer
	resource string
	name     string
	call     func(ctx context.Context, in In) (json.RawMessage, error)
	success  string
	message  func(err error) string

	mu    sync.Mutex
	state MutationState
}

// Create returns a mutation that posts a new entity.
func (l *Layer) Create(resource string) *Mutation[any] {
	resource = normalizeResource(resource)
	return &Mutation[any]{
		layer:    l,
		resource: resource,
		name:     "create",
		success:  CreatedMessage,
		message:  ErrorMessage,
		call: func(ctx context.Context, body any) (json.RawMessage, error) {
			return l.transport.Create(ctx, resource, body)
		},
	}
}

// Update returns a mutation that patches an entity.
func (l *Layer) Update(resource string) *Mutation[UpdateInput] {
	resource = normalizeResource(resource)
	return &Mutation[UpdateInput]{
		layer:    l,
		resource: resource,
		name:     "update",
		success:  UpdatedMessage,
		message:  ErrorMessage,
		call: func(ctx context.Context, in UpdateInput) (json.RawMessage, error) {
			return l.transport.Update(ctx, resource, in.ID, in.Body)
		},
	}
}

// Delete returns a mutation that removes an entity by id.
func (l *Layer) Delete(resource string) *Mutation[string] {
	resource = normalizeResource(resource)
	return &Mutation[string]{
		layer:    l,
		resource: resource,
		name:     "delete",
		success:  DeletedMessage,
		message:  DeleteErrorMessage,
		call: func(ctx context.Context, id string) (json.RawMessage, error) {
			return l.transport.Delete(ctx, resource, id)
		},
	}
}

// Dispatch returns a mutation that invokes a named sub-action. The
// response is passed through verbatim.
func (l *Layer) Dispatch(resource string) *Mutation[ActionInput] {
	resource = normalizeResource(resource)
	return &Mutation[ActionInput]{
		layer:    l,
		resource: resource,
		name:     "dispatch",
		success:  DispatchedMessage,
		message:  ErrorMessage,
		call: func(ctx context.Context, in ActionInput) (json.RawMessage, error) {
			return l.transport.Dispatch(ctx, api.ActionRequest{
				Resource: resource,
				ID:       in.ID,
				Action:   in.Action,
				Method:   in.Method,
				Body:     in.Body,
			})
		},
	}
}

// Mutate runs the operation once. On success the success message is shown
// and OnSuccess runs; on failure the error is shown and OnError runs.
func (m *Mutation[In]) Mutate(ctx context.Context, in In, opts ...MutateOption) (json.RawMessage, error) {
	var o mutateOptions
	for _, opt := range opts {
		opt(&o)
	}

	m.setState(MutationState{Status: StatusPending})
	data, err := m.call(ctx, in)
	logger := m.layer.logger.With(zap.String("resource", m.resource), zap.String("op", m.name))
	if err != nil {
		logger.Debug("mutation failed", zap.Error(err))
		m.setState(MutationState{Status: StatusError, Err: err})
		m.layer.notifier.ShowErrorConfirm(m.message(err))
		if o.onError != nil {
			o.onError(err)
		}
		return nil, err
	}

	logger.Debug("mutation succeeded")
	m.setState(MutationState{Status: StatusSuccess, Data: data})
	m.layer.notifier.ShowSuccess(m.success)
	if o.onSuccess != nil {
		o.onSuccess(data)
	}
	return data, nil
}

// State returns the outcome of the last call.
func (m *Mutation[In]) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset returns the mutation to idle.
func (m *Mutation[In]) Reset() {
	m.setState(MutationState{})
}

func (m *Mutation[In]) setState(s MutationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// ErrorMessage is the text shown for a failed mutation: the server
// message, or a generic one for transport and unknown failures.
func ErrorMessage(err error) string {
	if msg, ok := api.ServerMessage(err); ok {
		return msg
	}
	return GenericErrorMessage
}

// DeleteErrorMessage is ErrorMessage with a single-element list wrapper
// such as "['…']" removed.
func DeleteErrorMessage(err error) string {
	return StripListWrapper(ErrorMessage(err))
}

// StripListWrapper removes a leading "['" and trailing "']" (or the
// double-quoted form).
func StripListWrapper(msg string) string {
	s := strings.TrimSpace(msg)
	for _, pair := range [][2]string{{"['", "']"}, {`["`, `"]`}} {
		if len(s) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			return s[len(pair[0]) : len(s)-len(pair[1])]
		}
	}
	return msg
}
