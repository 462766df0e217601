package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrDuplicateSubmit is returned when an identical mutation is already in flight.
var ErrDuplicateSubmit = errors.New("duplicate submit: an identical request is in flight")

// Status of an APIError that never reached the server.
const StatusTransport = 0

// APIError is the normalised form of every failed request.
type APIError struct {
	Status  int
	Message string
	// Errors holds field errors, keyed by JSON field name.
	Errors map[string]string
	Err    error
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	fields := make([]string, 0, len(e.Errors))
	for f, msg := range e.Errors {
		fields = append(fields, f+": "+msg)
	}
	sort.Strings(fields)
	return fmt.Sprintf("api error %d: %s (%s)", e.Status, e.Message, strings.Join(fields, "; "))
}

func (e *APIError) Unwrap() error { return e.Err }

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func timeoutError(err error) *APIError {
	return &APIError{Status: http.StatusRequestTimeout, Message: "request timeout", Err: err}
}

func transportError(err error) *APIError {
	return &APIError{Status: StatusTransport, Message: "network error", Err: err}
}

// parseError reads the server's error bodies: `{"error": "..."}`, `{"detail": "..."}`
// or a map of field errors.
func parseError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	for _, key := range []string{"error", "detail", "message"} {
		if msg, ok := fields[key].(string); ok && msg != "" {
			apiErr.Message = msg
			return apiErr
		}
	}

	apiErr.Errors = make(map[string]string, len(fields))
	for f, v := range fields {
		switch msg := v.(type) {
		case string:
			apiErr.Errors[f] = msg
		case []interface{}:
			parts := make([]string, 0, len(msg))
			for _, p := range msg {
				parts = append(parts, fmt.Sprint(p))
			}
			apiErr.Errors[f] = strings.Join(parts, ", ")
		default:
			apiErr.Errors[f] = fmt.Sprint(msg)
		}
	}
	if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
		apiErr.Message = "validation error"
	} else {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
