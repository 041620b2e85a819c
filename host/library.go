package host

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	jnivm "github.com/Dadoum/libjnivm"
	adapter "github.com/Dadoum/libjnivm/infrastructure/wazero"
)

// ErrLibraryClosed is returned when closing a library twice.
var ErrLibraryClosed = errors.New("library already closed")

// Library is an instantiated guest library. Its exported functions are
// native targets.
type Library struct {
	name     string
	mod      api.Module
	compiled wazero.CompiledModule

	mu     sync.Mutex
	closed bool
}

// Name returns the name the library was loaded under.
func (l *Library) Name() string { return l.name }

// Module returns the guest module instance.
func (l *Library) Module() api.Module { return l.mod }

// Memory returns the guest's linear memory and allocator.
func (l *Library) Memory() *adapter.Memory { return adapter.NewMemory(l.mod) }

// Exports lists the exported function names, sorted.
func (l *Library) Exports() []string {
	defs := l.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Library) Symbol(name string) (jnivm.Target, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, false
	}
	fn := l.mod.ExportedFunction(name)
	if fn == nil {
		return nil, false
	}
	return adapter.NewFunction(fn, name, l.name), true
}

func (l *Library) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLibraryClosed
	}
	l.closed = true
	l.mu.Unlock()

	var result *multierror.Error
	if err := l.mod.Close(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := l.compiled.Close(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
