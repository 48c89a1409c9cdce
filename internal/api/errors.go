package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/itchyny/gojq"
)

// Error types for specific API errors
type (
	// AuthenticationError indicates an authentication failure
	AuthenticationError struct{ Message string }
	// RateLimitError indicates rate limit exceeded
	RateLimitError struct{ Message string }
	// NotFoundError indicates a resource was not found
	NotFoundError struct{ Message string }
	// ValidationError indicates the server rejected the input.
	// Fields holds per-field messages when the server reports them.
	ValidationError struct {
		Message string
		Fields  map[string][]string
	}
	// ServerError is any other non-2xx response.
	ServerError struct {
		Status  int
		Message string
	}
	// TransportError wraps network failures (connection refused, timeouts).
	TransportError struct{ Err error }
)

func (e AuthenticationError) Error() string { return e.Message }
func (e RateLimitError) Error() string      { return e.Message }
func (e NotFoundError) Error() string       { return e.Message }
func (e ValidationError) Error() string     { return e.Message }
func (e ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (status %d)", e.Status)
	}
	return e.Message
}
func (e TransportError) Error() string { return fmt.Sprintf("request failed: %v", e.Err) }
func (e TransportError) Unwrap() error { return e.Err }

// ServerMessage returns the message the server attached to err, if any.
// Transport failures and unknown errors report ok=false so callers can
// substitute a generic text.
func ServerMessage(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var transportErr TransportError
	if errors.As(err, &transportErr) {
		return "", false
	}

	var (
		authErr       AuthenticationError
		rateErr       RateLimitError
		notFoundErr   NotFoundError
		validationErr ValidationError
		serverErr     ServerError
	)
	var msg string
	switch {
	case errors.As(err, &validationErr):
		msg = validationErr.Message
	case errors.As(err, &notFoundErr):
		msg = notFoundErr.Message
	case errors.As(err, &authErr):
		msg = authErr.Message
	case errors.As(err, &rateErr):
		msg = rateErr.Message
	case errors.As(err, &serverErr):
		msg = serverErr.Message
	}
	msg = strings.TrimSpace(msg)
	return msg, msg != ""
}

// messageQuery picks the human-readable message out of an error body.
// Order: message, detail, error, non_field_errors, then the first field error.
const messageQuery = `
if type == "object" then
  (.message // .detail // .error // (.non_field_errors | arrays | .[0]) //
   ([to_entries[] | select(.value | type == "array") | .value[0]] | .[0]))
elif type == "array" then .[0]
elif type == "string" then .
else empty end
`

var (
	messageCodeOnce sync.Once
	messageCode     *gojq.Code
	messageCodeErr  error
)

func compiledMessageQuery() (*gojq.Code, error) {
	messageCodeOnce.Do(func() {
		parsed, err := gojq.Parse(messageQuery)
		if err != nil {
			messageCodeErr = err
			return
		}
		messageCode, messageCodeErr = gojq.Compile(parsed)
	})
	return messageCode, messageCodeErr
}

// extractMessage returns the server message from an error response body.
// Non-JSON bodies are returned trimmed when short enough to be a message.
func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		if len(trimmed) <= 200 && !strings.HasPrefix(trimmed, "<") {
			return trimmed
		}
		return ""
	}

	code, err := compiledMessageQuery()
	if err != nil {
		return ""
	}
	iter := code.Run(data)
	v, ok := iter.Next()
	if !ok || v == nil {
		return ""
	}
	if _, isErr := v.(error); isErr {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// extractFieldErrors collects {"field": ["msg", ...]} pairs from a body.
func extractFieldErrors(body []byte) map[string][]string {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	fields := make(map[string][]string)
	for key, value := range raw {
		list, ok := value.([]interface{})
		if !ok {
			continue
		}
		for _, item := range list {
			if s, ok := item.(string); ok {
				fields[key] = append(fields[key], s)
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
