package wazero

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var instanceNameKey = &contextKey{name: "instance_name"}

// WithInstanceName adds the instance name to the context.
// Guest log records emitted during the call are tagged with it.
func WithInstanceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, instanceNameKey, name)
}

// InstanceNameFromContext retrieves the instance name from the context.
func InstanceNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(instanceNameKey).(string)
	return name, ok
}

// GetInstanceName extracts the instance name from context, falling back to the module name.
func GetInstanceName(ctx context.Context, mod api.Module) string {
	if name, ok := InstanceNameFromContext(ctx); ok {
		return name
	}
	return mod.Name()
}
