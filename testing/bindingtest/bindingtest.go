// Package bindingtest provides a test harness for export registries.
package bindingtest

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/demopy-gb-jj/demopy/application/binding"
	"github.com/demopy-gb-jj/demopy/domain/entities"
)

// TestCase defines one call against an export.
type TestCase struct {
	Name     string
	Export   string
	Args     map[string]any
	RawArgs  string // used verbatim when set, for malformed input
	Validate func(t *testing.T, resp entities.CallResponse)
}

// RunExportTests dispatches every case through reg as a call envelope.
func RunExportTests(t *testing.T, reg *binding.Registry, tests []TestCase) {
	t.Helper()

	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			var args json.RawMessage
			switch {
			case tc.RawArgs != "":
				args = json.RawMessage(tc.RawArgs)
			case tc.Args != nil:
				data, err := json.Marshal(tc.Args)
				if err != nil {
					t.Fatalf("failed to marshal args: %v", err)
				}
				args = data
			}

			resp := reg.Dispatch(context.Background(), entities.CallRequest{
				Export: tc.Export,
				Args:   args,
			})

			if tc.Validate != nil {
				tc.Validate(t, resp)
			}
		})
	}
}

// AssertSuccess asserts the call returned a value.
func AssertSuccess(t *testing.T, resp entities.CallResponse) {
	t.Helper()
	if resp.Failed() {
		t.Errorf("expected success, got %s error: %s", resp.Error.Type, resp.Error.Message)
	}
}

// AssertErrorType asserts the call failed with the given error type.
func AssertErrorType(t *testing.T, resp entities.CallResponse, errorType string) {
	t.Helper()
	if !resp.Failed() {
		t.Errorf("expected %s error, got value %s", errorType, resp.Value)
		return
	}
	if resp.Error.Type != errorType {
		t.Errorf("expected %s error, got %s: %s", errorType, resp.Error.Type, resp.Error.Message)
	}
}

// AssertValue asserts the call returned expected. Numbers are compared by
// value so an int64 expectation matches a JSON number.
func AssertValue(t *testing.T, resp entities.CallResponse, expected any) {
	t.Helper()
	if resp.Failed() {
		t.Errorf("expected value %v, got %s error: %s", expected, resp.Error.Type, resp.Error.Message)
		return
	}

	var actual any
	if err := json.Unmarshal(resp.Value, &actual); err != nil {
		t.Errorf("response value is not JSON: %v", err)
		return
	}

	// Handle basic numeric conversion for JSON unmarshaled data
	if expectedNum, ok := toFloat64(expected); ok {
		if actualNum, ok := toFloat64(actual); ok {
			if expectedNum != actualNum {
				t.Errorf("expected %v, got %v", expected, actual)
			}
			return
		}
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %#v, got %#v", expected, actual)
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
