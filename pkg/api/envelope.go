package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Envelope is the wrapper the Frontend API places around every successful
// response body. Response holds the operation-specific payload and Client
// carries a piggybacked refresh of the device's Client resource, or null when
// the operation did not touch client state.
type Envelope struct {
	Response json.RawMessage `json:"response"`
	Client   *Client         `json:"client"`
}

// DecodeResponse unmarshals the envelope's payload into v. A null or absent
// payload leaves v untouched and returns nil.
func (e *Envelope) DecodeResponse(v interface{}) error {
	if len(e.Response) == 0 || string(e.Response) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Response, v); err != nil {
		return fmt.Errorf("failed to decode response payload: %w", err)
	}
	return nil
}

// Error is a single entry from the Frontend API's error payload.
type Error struct {
	Message     string          `json:"message"`
	LongMessage string          `json:"long_message,omitempty"`
	Code        string          `json:"code,omitempty"`
	Meta        json.RawMessage `json:"meta,omitempty"`
}

// ErrorResponse is the body the Frontend API returns on non-2xx statuses.
type ErrorResponse struct {
	Errors       []Error `json:"errors"`
	ClerkTraceID string  `json:"clerk_trace_id,omitempty"`
}

// Summary flattens the error list into a single human-readable string,
// preferring long messages when present.
func (r *ErrorResponse) Summary() string {
	if len(r.Errors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msg := e.LongMessage
		if msg == "" {
			msg = e.Message
		}
		if e.Code != "" {
			msg = fmt.Sprintf("%s (%s)", msg, e.Code)
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}
