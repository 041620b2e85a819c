package jnivm

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/Dadoum/libjnivm/jni"
)

const (
	onLoadSymbol   = "JNI_OnLoad"
	onUnloadSymbol = "JNI_OnUnload"
)

// ErrNoOpener is returned by AttachLibrary when the runtime has no
// LibraryOpener.
var ErrNoOpener = errors.New("no library opener configured")

// Library is an opened native library.
type Library interface {
	// Symbol returns the exported entry point with the given name.
	Symbol(name string) (Target, bool)
	// Close releases the library. It is called after the unload hook.
	Close(ctx context.Context) error
}

// LibraryOpener opens libraries by path.
type LibraryOpener interface {
	Open(ctx context.Context, path string) (Library, error)
}

// LibraryOpenerFunc adapts a function to LibraryOpener.
type LibraryOpenerFunc func(ctx context.Context, path string) (Library, error)

func (f LibraryOpenerFunc) Open(ctx context.Context, path string) (Library, error) {
	return f(ctx, path)
}

// library is an attached library entry. lib is nil when opening failed.
type library struct {
	path      string
	lib       Library
	version   int32
	detaching bool
}

func (l *library) symbol(name string) (Target, bool) {
	if l.lib == nil {
		return nil, false
	}
	return l.lib.Symbol(name)
}

// AttachLibrary opens the library at path, runs its JNI_OnLoad hook if it
// exports one and binds already declared native methods it implements.
//
// The calling thread gets an environment before the hook runs.
// A library that fails to open is still recorded, without hooks, and the
// open error is returned as a *LibraryError. Attaching an attached path is a
// no-op.
func (vm *VM) AttachLibrary(ctx context.Context, path string) error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return ErrClosed
	}
	if _, ok := vm.libraries[path]; ok {
		vm.mu.Unlock()
		return nil
	}
	entry := &library{path: path}
	vm.libraries[path] = entry
	vm.libOrder = append(vm.libOrder, path)
	opener := vm.opener
	vm.mu.Unlock()

	if opener == nil {
		vm.logger.WarnContext(ctx, "jnivm: library not opened", "path", path, "error", ErrNoOpener)
		return &LibraryError{Err: ErrNoOpener, Path: path, Op: "open"}
	}
	lib, err := opener.Open(ctx, path)
	if err != nil {
		vm.logger.WarnContext(ctx, "jnivm: library not opened", "path", path, "error", err)
		return &LibraryError{Err: err, Path: path, Op: "open"}
	}
	vm.mu.Lock()
	entry.lib = lib
	vm.mu.Unlock()

	if hook, ok := lib.Symbol(onLoadSymbol); ok {
		// The hook may look up its environment through the VM.
		vm.GetEnv(ctx)
		version, err := hook.CallInt(&Call{Context: ctx, VM: vm})
		if err != nil {
			return &LibraryError{Err: err, Path: path, Op: "load"}
		}
		vm.mu.Lock()
		entry.version = version
		vm.mu.Unlock()
		vm.logger.DebugContext(ctx, "jnivm: library loaded", "path", path, "version", fmt.Sprintf("%#x", version))
	}

	n := vm.bindLibrary(entry)
	vm.logger.DebugContext(ctx, "jnivm: library attached", "path", path, "natives", n)
	return nil
}

// DetachLibrary runs the library's JNI_OnUnload hook and then closes it.
// The library stays attached while the hook runs, so the hook can still call
// its own natives. Native methods bound from the library are unbound before
// it is closed.
func (vm *VM) DetachLibrary(ctx context.Context, path string) error {
	vm.mu.Lock()
	entry, ok := vm.libraries[path]
	if !ok || entry.detaching {
		vm.mu.Unlock()
		return nil
	}
	entry.detaching = true
	vm.mu.Unlock()

	var result *multierror.Error
	if entry.lib != nil {
		if hook, ok := entry.lib.Symbol(onUnloadSymbol); ok {
			if err := hook.CallVoid(&Call{Context: ctx, VM: vm}); err != nil {
				result = multierror.Append(result, &LibraryError{Err: err, Path: path, Op: "unload"})
			}
		}
	}

	vm.mu.Lock()
	delete(vm.libraries, path)
	for i, p := range vm.libOrder {
		if p == path {
			vm.libOrder = append(vm.libOrder[:i], vm.libOrder[i+1:]...)
			break
		}
	}
	vm.mu.Unlock()
	if entry.lib == nil {
		return result.ErrorOrNil()
	}

	for _, c := range vm.Classes() {
		for _, m := range c.Methods() {
			m.unbindFrom(entry)
		}
	}
	if err := entry.lib.Close(ctx); err != nil {
		result = multierror.Append(result, &LibraryError{Err: err, Path: path, Op: "close"})
	}
	vm.logger.DebugContext(ctx, "jnivm: library detached", "path", path)
	return result.ErrorOrNil()
}

// Libraries returns the attached library paths in attach order.
func (vm *VM) Libraries() []string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return append([]string(nil), vm.libOrder...)
}

// LibraryVersion returns the version the library's JNI_OnLoad reported, or
// zero when it has none.
func (vm *VM) LibraryVersion(path string) (int32, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	l, ok := vm.libraries[path]
	if !ok {
		return 0, false
	}
	return l.version, true
}

// bindLibrary binds every unbound native method the library exports.
func (vm *VM) bindLibrary(l *library) int {
	n := 0
	for _, c := range vm.Classes() {
		for _, m := range c.Methods() {
			if !m.IsNative() || m.Target() != nil {
				continue
			}
			if t, ok := lookupNative(l, m); ok {
				m.bind(t, l)
				n++
			}
		}
	}
	return n
}

// resolveNative binds m from the first attached library exporting it.
func (vm *VM) resolveNative(m *Method) bool {
	vm.mu.Lock()
	libs := make([]*library, 0, len(vm.libOrder))
	for _, p := range vm.libOrder {
		libs = append(libs, vm.libraries[p])
	}
	vm.mu.Unlock()

	for _, l := range libs {
		if t, ok := lookupNative(l, m); ok {
			m.bind(t, l)
			return true
		}
	}
	return false
}

func lookupNative(l *library, m *Method) (Target, bool) {
	if t, ok := l.symbol(jni.ShortSymbol(m.class.name, m.name)); ok {
		return t, true
	}
	return l.symbol(jni.LongSymbol(m.class.name, m.name, m.signature))
}
