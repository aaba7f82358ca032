package binding

import "context"

type exportNameKey struct{}

// withExportName records the export being invoked for middleware access.
func withExportName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, exportNameKey{}, name)
}

// ExportName returns the name of the export being invoked, or "" outside
// of a registry call.
func ExportName(ctx context.Context) string {
	name, _ := ctx.Value(exportNameKey{}).(string)
	return name
}
