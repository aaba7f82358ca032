package entities

import (
	"encoding/json"
	"time"
)

// ContextWire is the JSON wire format for context.Context propagation.
type ContextWire struct {
	Deadline  *time.Time `json:"deadline,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	TimeoutMs int64      `json:"timeout_ms,omitempty"`
	Canceled  bool       `json:"canceled,omitempty"`
}

// CallRequest is the JSON envelope a host sends to invoke an export by name.
type CallRequest struct {
	Args    json.RawMessage `json:"args,omitempty"`
	Export  string          `json:"export"`
	Context ContextWire     `json:"context"`
}

// CallResponse is the JSON envelope returned for a CallRequest.
// Exactly one of Value and Error is set.
type CallResponse struct {
	Value      json.RawMessage `json:"value,omitempty"`
	Error      *ErrorDetail    `json:"error,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	DurationNs int64           `json:"duration_ns,omitempty"`
}

// Failed reports whether the response carries an error.
func (r CallResponse) Failed() bool {
	return r.Error != nil
}

// LogMessageWire is the JSON wire format for a log message from guest to host.
type LogMessageWire struct {
	Timestamp time.Time     `json:"timestamp"`
	Attrs     []LogAttrWire `json:"attrs,omitempty"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
	Context   ContextWire   `json:"context"`
}

// LogAttrWire represents a single slog attribute for wire transfer.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`  // "string", "int64", "bool", "float64", "time", "error", "json", "any"
	Value string `json:"value"` // String representation of the value
}
