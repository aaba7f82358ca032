// Package wasmcontext converts between context.Context and the ContextWire
// carried by every call envelope, so deadlines, cancellation and request ids
// survive the trip from host to guest.
package wasmcontext

import (
	"context"
	"time"

	"github.com/demopy-gb-jj/demopy/domain/entities"
)

// contextKey is a type alias for context value keys to avoid collisions.
type contextKey string

// RequestIDKey is the context key for request ID.
const RequestIDKey contextKey = "request_id"

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestIDFrom returns the request id stored in ctx, if any.
func RequestIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(RequestIDKey).(string)
	return id, ok && id != ""
}

// ContextToWire captures the deadline, cancellation state and request id of ctx.
func ContextToWire(ctx context.Context) entities.ContextWire {
	wire := entities.ContextWire{}

	if deadline, ok := ctx.Deadline(); ok {
		wire.Deadline = &deadline
		if timeout := time.Until(deadline); timeout > 0 {
			wire.TimeoutMs = timeout.Milliseconds()
		}
	}

	select {
	case <-ctx.Done():
		wire.Canceled = true
	default:
	}

	if id, ok := RequestIDFrom(ctx); ok {
		wire.RequestID = id
	}

	return wire
}

// WireToContext rebuilds a context from wire on top of parent.
// If parent is nil, context.Background() is used. The returned CancelFunc
// must always be called.
func WireToContext(parent context.Context, wire entities.ContextWire) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	switch {
	case wire.Deadline != nil:
		ctx, cancel = context.WithDeadline(parent, *wire.Deadline)
	case wire.TimeoutMs > 0:
		ctx, cancel = context.WithTimeout(parent, time.Duration(wire.TimeoutMs)*time.Millisecond)
	default:
		ctx, cancel = context.WithCancel(parent)
	}

	if wire.RequestID != "" {
		ctx = WithRequestID(ctx, wire.RequestID)
	}

	if wire.Canceled {
		cancel()
	}

	return ctx, cancel
}
