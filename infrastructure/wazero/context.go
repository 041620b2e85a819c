package wazero

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	jnivm "github.com/Dadoum/libjnivm"
)

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var (
	vmKey      = &contextKey{name: "vm"}
	libraryKey = &contextKey{name: "library"}
)

// WithVM adds the runtime making a guest call to the context.
func WithVM(ctx context.Context, vm *jnivm.VM) context.Context {
	return context.WithValue(ctx, vmKey, vm)
}

// VMFromContext retrieves the runtime from the context.
func VMFromContext(ctx context.Context) (*jnivm.VM, bool) {
	vm, ok := ctx.Value(vmKey).(*jnivm.VM)
	return vm, ok && vm != nil
}

// WithLibraryName adds the name of the calling library to the context.
func WithLibraryName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, libraryKey, name)
}

// LibraryNameFromContext retrieves the library name from the context.
func LibraryNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(libraryKey).(string)
	return name, ok
}

// GetLibraryName extracts the library name from context, falling back to the
// module name.
func GetLibraryName(ctx context.Context, mod api.Module) string {
	if name, ok := LibraryNameFromContext(ctx); ok {
		return name
	}
	return mod.Name()
}
