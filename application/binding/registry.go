package binding

import (
	"context"
	"fmt"

	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/domain/errors"
)

// Registry is an immutable export table.
// Once created via NewRegistry, exports cannot be added or removed.
type Registry struct {
	exports    map[string]*export
	names      []string // registration order, which is manifest order
	name       string
	version    string
	edition    string
	middleware []Middleware
}

// export is a registered function together with its descriptor.
type export struct {
	descriptor entities.ExportDescriptor
	handler    Handler
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	exports    map[string]*export
	names      []string
	name       string
	version    string
	edition    string
	middleware []Middleware
	errors     []error
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*registryBuilder)

// NewRegistry creates an immutable Registry with the given options.
// Returns an error if any export name is empty or registered twice, or if
// an argument type cannot be described.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	b := &registryBuilder{
		exports: make(map[string]*export),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0] // Return first error
	}

	// Apply middleware chain to all handlers (FIFO order)
	wrapped := make(map[string]*export, len(b.exports))
	for name, exp := range b.exports {
		handler := exp.handler
		// Apply middleware in reverse order so first middleware wraps outermost
		for i := len(b.middleware) - 1; i >= 0; i-- {
			handler = b.middleware[i](handler)
		}
		wrapped[name] = &export{descriptor: exp.descriptor, handler: handler}
	}

	return &Registry{
		exports:    wrapped,
		names:      b.names,
		name:       b.name,
		version:    b.version,
		edition:    b.edition,
		middleware: b.middleware,
	}, nil
}

// Invoke calls the named export with a JSON argument object and returns
// the JSON encoded result. Unknown names yield *errors.ExportNotFoundError.
func (r *Registry) Invoke(ctx context.Context, name string, args []byte) ([]byte, error) {
	exp, ok := r.exports[name]
	if !ok {
		return nil, &errors.ExportNotFoundError{Name: name}
	}

	return exp.handler(withExportName(ctx, name), args)
}

// Has returns true if an export with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.exports[name]
	return ok
}

// Names returns the export names in registration order.
func (r *Registry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// Export returns the descriptor of the named export.
func (r *Registry) Export(name string) (entities.ExportDescriptor, bool) {
	exp, ok := r.exports[name]
	if !ok {
		return entities.ExportDescriptor{}, false
	}
	return exp.descriptor, true
}

// Manifest describes the module and every export in registration order.
func (r *Registry) Manifest() *entities.Manifest {
	exports := make([]entities.ExportDescriptor, 0, len(r.names))
	for _, name := range r.names {
		exports = append(exports, r.exports[name].descriptor)
	}

	return &entities.Manifest{
		Name:       r.name,
		Version:    r.version,
		Edition:    r.edition,
		SDKVersion: Version,
		Exports:    exports,
	}
}

// addExport registers an export under its descriptor name.
// Returns an error if the name is empty or already registered.
func (b *registryBuilder) addExport(desc entities.ExportDescriptor, handler Handler) error {
	if desc.Name == "" {
		return fmt.Errorf("export name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("export %q has no handler", desc.Name)
	}
	if _, exists := b.exports[desc.Name]; exists {
		return fmt.Errorf("duplicate export name: %q", desc.Name)
	}
	b.exports[desc.Name] = &export{descriptor: desc, handler: handler}
	b.names = append(b.names, desc.Name)
	return nil
}

// WithHandler registers a raw Handler under desc.Name.
// Use WithFunc for type-safe registration with automatic JSON handling.
func WithHandler(desc entities.ExportDescriptor, handler Handler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addExport(desc, handler); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithFunc registers a typed function. Args must be a struct (or pointer
// to struct) whose exported fields are the named arguments.
func WithFunc[Args any, Ret any](name, description string, fn Func[Args, Ret], opts ...ExportOption) RegistryOption {
	return func(b *registryBuilder) {
		desc, err := describe[Args, Ret](name, description)
		if err != nil {
			b.errors = append(b.errors, err)
			return
		}
		for _, opt := range opts {
			opt(&desc)
		}
		if err := b.addExport(desc, NewFuncHandler(name, fn)); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// WithModuleInfo sets the identity reported by Manifest.
func WithModuleInfo(name, version, edition string) RegistryOption {
	return func(b *registryBuilder) {
		b.name = name
		b.version = version
		b.edition = edition
	}
}

// ExportOption adjusts a reflected export descriptor.
type ExportOption func(*entities.ExportDescriptor)

// WithSignature records the direct wasm signature of an export.
func WithSignature(params, results []string) ExportOption {
	return func(d *entities.ExportDescriptor) {
		d.Signature = &entities.Signature{Params: params, Results: results}
	}
}
