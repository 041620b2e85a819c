package hostfuncs

import (
	"context"
	"fmt"
	"sort"
)

// HandlerRegistry is an immutable native-interface function table.
// Once created via NewRegistry, functions cannot be added or removed, so
// lookups during guest calls need no locking.
type HandlerRegistry struct {
	functions  map[string]Function
	names      []string // sorted for consistent iteration
	middleware []Middleware
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	functions  map[string]Function
	middleware []Middleware
	errors     []error
}

// RegistryOption is a functional option for configuring a HandlerRegistry.
type RegistryOption func(*registryBuilder)

// NewRegistry creates an immutable HandlerRegistry with the given options.
// Returns an error if any function name is registered twice.
//
// Example usage:
//
//	registry, err := NewRegistry(
//	    WithMiddleware(ExceptionMiddleware(), PanicRecoveryMiddleware()),
//	    WithBundle(AllBundles()),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{
		functions: make(map[string]Function),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := make([]string, 0, len(b.functions))
	for name := range b.functions {
		names = append(names, name)
	}
	sort.Strings(names)

	// Apply middleware chain to all handlers (FIFO order)
	wrapped := make(map[string]Function, len(b.functions))
	for name, f := range b.functions {
		h := f.Handler
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		f.Handler = h
		wrapped[name] = f
	}

	return &HandlerRegistry{
		functions:  wrapped,
		names:      names,
		middleware: b.middleware,
	}, nil
}

// Invoke runs the named function against frame.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, frame *Frame) error {
	f, ok := r.functions[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f.Handler(NewHostContext(ctx, name, frame), frame)
}

// Lookup returns the named function with its middleware applied.
func (r *HandlerRegistry) Lookup(name string) (Function, bool) {
	f, ok := r.functions[name]
	return f, ok
}

// Has returns true if a function with the given name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.functions[name]
	return ok
}

// Names returns a sorted list of all registered function names.
func (r *HandlerRegistry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// addFunction registers f under its name.
// Returns an error if the name is already registered.
func (b *registryBuilder) addFunction(f Function) error {
	if f.Name == "" {
		return fmt.Errorf("function name cannot be empty")
	}
	if f.Handler == nil {
		return fmt.Errorf("function %q has no handler", f.Name)
	}
	if _, exists := b.functions[f.Name]; exists {
		return fmt.Errorf("duplicate function name: %q", f.Name)
	}
	b.functions[f.Name] = f
	return nil
}

// WithFunction registers a single function.
func WithFunction(f Function) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addFunction(f); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithBundle registers every function of the bundles.
func WithBundle(bundles ...Bundle) RegistryOption {
	return func(b *registryBuilder) {
		for _, bundle := range bundles {
			for _, f := range bundle.Functions() {
				if err := b.addFunction(f); err != nil {
					b.errors = append(b.errors, err)
				}
			}
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
