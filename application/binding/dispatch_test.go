package binding

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/internal/wasmcontext"
)

func TestRegistry_Dispatch(t *testing.T) {
	reg := newTestRegistry(t)

	resp := reg.Dispatch(context.Background(), entities.CallRequest{
		Export:  "sum",
		Args:    json.RawMessage(`{"a":40,"b":2}`),
		Context: entities.ContextWire{RequestID: "req-1"},
	})

	require.False(t, resp.Failed(), "unexpected error: %v", resp.Error)
	assert.JSONEq(t, `42`, string(resp.Value))
	assert.Equal(t, "req-1", resp.RequestID)
	assert.GreaterOrEqual(t, resp.DurationNs, int64(0))
}

func TestRegistry_Dispatch_Errors(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		name     string
		req      entities.CallRequest
		wantType string
		wantCode string
	}{
		{
			name:     "unknown export",
			req:      entities.CallRequest{Export: "nope"},
			wantType: "not_found",
			wantCode: "nope",
		},
		{
			name:     "bad arguments",
			req:      entities.CallRequest{Export: "sum", Args: json.RawMessage(`{"a":"x","b":1}`)},
			wantType: "argument",
			wantCode: "sum",
		},
		{
			name:     "canceled context",
			req:      entities.CallRequest{Export: "sum", Args: json.RawMessage(`{"a":1,"b":1}`), Context: entities.ContextWire{Canceled: true}},
			wantType: "canceled",
			wantCode: "sum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := reg.Dispatch(context.Background(), tt.req)
			require.True(t, resp.Failed())
			assert.Nil(t, resp.Value)
			assert.Equal(t, tt.wantType, resp.Error.Type)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestRegistry_Dispatch_PropagatesContext(t *testing.T) {
	var (
		gotID       string
		hasDeadline bool
	)
	reg, err := NewRegistry(
		WithFunc("whoami", "", func(ctx context.Context, _ noArgs) (string, error) {
			gotID, _ = wasmcontext.RequestIDFrom(ctx)
			_, hasDeadline = ctx.Deadline()
			return gotID, nil
		}),
	)
	require.NoError(t, err)

	deadline := time.Now().Add(time.Minute)
	resp := reg.Dispatch(context.Background(), entities.CallRequest{
		Export:  "whoami",
		Context: entities.ContextWire{RequestID: "abc", Deadline: &deadline},
	})

	require.False(t, resp.Failed(), "%+v", resp.Error)
	assert.Equal(t, "abc", gotID)
	assert.JSONEq(t, `"abc"`, string(resp.Value))
	assert.True(t, hasDeadline)
}

func TestRegistry_DispatchBytes(t *testing.T) {
	reg := newTestRegistry(t)

	t.Run("valid envelope", func(t *testing.T) {
		out := reg.DispatchBytes(context.Background(), []byte(`{"export":"echo","args":{"s":"héllo"},"context":{"request_id":"r"}}`))

		var resp entities.CallResponse
		require.NoError(t, json.Unmarshal(out, &resp))
		require.False(t, resp.Failed())
		assert.JSONEq(t, `"héllo"`, string(resp.Value))
		assert.Equal(t, "r", resp.RequestID)
	})

	t.Run("malformed envelope", func(t *testing.T) {
		out := reg.DispatchBytes(context.Background(), []byte(`not json`))

		var resp entities.CallResponse
		require.NoError(t, json.Unmarshal(out, &resp))
		require.True(t, resp.Failed())
		assert.Equal(t, "wire", resp.Error.Type)
		assert.Equal(t, "wire_format", resp.Error.Code)
	})
}

func TestRegister(t *testing.T) {
	t.Cleanup(func() { registered = nil })

	first := newTestRegistry(t)
	second := newTestRegistry(t)

	Register(first)
	Register(second)

	assert.Same(t, first, Registered(), "second registration is ignored")
}
