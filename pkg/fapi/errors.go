package fapi

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
)

// ErrNoClient is returned when the Frontend API has no client for this
// device yet (a null response payload). Callers recover by creating one.
var ErrNoClient = errors.New("no client exists for this device")

// APIError is a non-2xx response from the Frontend API. Response holds the
// decoded error payload when the body was parseable.
type APIError struct {
	Status   int
	Response *api.ErrorResponse
	Body     []byte
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: body}
	var resp api.ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && len(resp.Errors) > 0 {
		apiErr.Response = &resp
	}
	return apiErr
}

func (e *APIError) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("frontend API error (status %d): %s", e.Status, e.Response.Summary())
	}
	return fmt.Sprintf("frontend API error (status %d)", e.Status)
}

// TraceID returns the clerk_trace_id from the error payload, if any.
func (e *APIError) TraceID() string {
	if e.Response == nil {
		return ""
	}
	return e.Response.ClerkTraceID
}

// HasCode reports whether any error entry in the payload carries code.
func (e *APIError) HasCode(code string) bool {
	if e.Response == nil {
		return false
	}
	for _, entry := range e.Response.Errors {
		if entry.Code == code {
			return true
		}
	}
	return false
}
