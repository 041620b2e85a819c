package jnivm

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/Dadoum/libjnivm/jni"
)

// FunctionTable is the native-interface function table a runtime presents
// to native code. The host package supplies the wasm rendition.
type FunctionTable interface {
	// Has reports whether the table provides the function with the given
	// native-interface name.
	Has(name string) bool
}

// VM is a runtime context. It owns the class registry, the per-thread
// environments, the global reference table and the attached libraries, all
// guarded by a single mutex.
type VM struct {
	logger    *slog.Logger
	strict    bool
	opener    LibraryOpener
	functions FunctionTable
	observers []Observer

	mu         sync.Mutex
	closed     bool
	envs       map[ThreadID]*Env
	envHandles map[uint32]*Env
	nextEnv    uint32
	globals    []Entity
	interned   map[Entity]jni.Ref
	classes    map[string]*Class
	hostTypes  map[reflect.Type]*Class
	libraries  map[string]*library
	libOrder   []string

	objectClass           *Class
	classClass            *Class
	methodClass           *Class
	fieldClass            *Class
	stringClass           *Class
	throwableClass        *Class
	runtimeExceptionClass *Class
}

var bootstrapClasses = []struct{ name, super string }{
	{"java/lang/Class", "java/lang/Object"},
	{"java/lang/String", "java/lang/Object"},
	{"java/lang/reflect/Method", "java/lang/Object"},
	{"java/lang/reflect/Field", "java/lang/Object"},
	{"java/lang/Throwable", "java/lang/Object"},
	{"java/lang/Exception", "java/lang/Throwable"},
	{"java/lang/RuntimeException", "java/lang/Exception"},
	{"java/lang/NullPointerException", "java/lang/RuntimeException"},
	{"java/lang/IllegalArgumentException", "java/lang/RuntimeException"},
	{"java/lang/IndexOutOfBoundsException", "java/lang/RuntimeException"},
	{"java/lang/Error", "java/lang/Throwable"},
	{"java/lang/LinkageError", "java/lang/Error"},
	{"java/lang/NoClassDefFoundError", "java/lang/LinkageError"},
	{"java/lang/UnsatisfiedLinkError", "java/lang/LinkageError"},
}

// New creates a runtime with the bootstrap classes registered.
func New(opts ...Option) *VM {
	cfg := defaultVMConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	vm := &VM{
		logger:     cfg.logger,
		strict:     cfg.strict,
		opener:     cfg.opener,
		functions:  cfg.functions,
		observers:  cfg.observers,
		envs:       make(map[ThreadID]*Env),
		envHandles: make(map[uint32]*Env),
		interned:   make(map[Entity]jni.Ref),
		classes:    make(map[string]*Class),
		hostTypes:  make(map[reflect.Type]*Class),
		libraries:  make(map[string]*library),
	}
	vm.bootstrap()
	return vm
}

func (vm *VM) bootstrap() {
	vm.objectClass = newClass(vm, "java/lang/Object", nil, false)
	vm.classes[vm.objectClass.name] = vm.objectClass
	for _, b := range bootstrapClasses {
		c := newClass(vm, b.name, vm.classes[b.super], false)
		vm.classes[b.name] = c
	}
	vm.classClass = vm.classes["java/lang/Class"]
	vm.methodClass = vm.classes["java/lang/reflect/Method"]
	vm.fieldClass = vm.classes["java/lang/reflect/Field"]
	vm.stringClass = vm.classes["java/lang/String"]
	vm.throwableClass = vm.classes["java/lang/Throwable"]
	vm.runtimeExceptionClass = vm.classes["java/lang/RuntimeException"]
	// Classes created before java/lang/Class existed.
	for _, c := range vm.classes {
		c.Object.class = vm.classClass
	}

	vm.hostTypes[reflect.TypeOf((*String)(nil))] = vm.stringClass
	vm.hostTypes[reflect.TypeOf((*Class)(nil))] = vm.classClass
	vm.hostTypes[reflect.TypeOf((*Method)(nil))] = vm.methodClass
	vm.hostTypes[reflect.TypeOf((*Field)(nil))] = vm.fieldClass
	vm.hostTypes[reflect.TypeOf((*Throwable)(nil))] = vm.throwableClass
	vm.hostTypes[reflect.TypeOf((*Instance)(nil))] = vm.objectClass
}

// Logger returns the runtime's logger.
func (vm *VM) Logger() *slog.Logger { return vm.logger }

// Version returns the native-interface version the runtime implements.
func (vm *VM) Version() int32 { return jni.Version1_6 }

// GetEnv returns the environment of the calling thread, creating it on first
// use. When ctx carries no WithThread identity the environment belongs to
// the OS thread, and the calling goroutine stays locked to that thread until
// DetachEnv.
func (vm *VM) GetEnv(ctx context.Context) *Env {
	id, locked := bindThread(ctx)
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if env, ok := vm.envs[id]; ok {
		if locked {
			runtime.UnlockOSThread()
		}
		return env
	}
	vm.nextEnv++
	env := newEnv(ctx, vm, id, vm.nextEnv)
	env.locked = locked
	vm.envs[id] = env
	vm.envHandles[env.handle] = env
	return env
}

// LookupEnv returns the calling thread's environment without creating one.
func (vm *VM) LookupEnv(ctx context.Context) (*Env, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	env, ok := vm.envs[currentThread(ctx)]
	return env, ok
}

// EnvByHandle returns the environment with the given handle.
func (vm *VM) EnvByHandle(h uint32) (*Env, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	env, ok := vm.envHandles[h]
	return env, ok
}

// AttachCurrentThread is GetEnv for a runtime that may have been closed.
func (vm *VM) AttachCurrentThread(ctx context.Context) (*Env, error) {
	vm.mu.Lock()
	closed := vm.closed
	vm.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return vm.GetEnv(ctx), nil
}

// DetachEnv drops the calling thread's environment. Its local references
// and any pending exception are discarded.
func (vm *VM) DetachEnv(ctx context.Context) {
	id := currentThread(ctx)
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if env, ok := vm.envs[id]; ok {
		delete(vm.envHandles, env.handle)
		delete(vm.envs, id)
		if env.locked {
			runtime.UnlockOSThread()
		}
	}
}

// DetachCurrentThread is DetachEnv with a status result.
func (vm *VM) DetachCurrentThread(ctx context.Context) int32 {
	if _, ok := vm.LookupEnv(ctx); !ok {
		return jni.EDETACHED
	}
	vm.DetachEnv(ctx)
	return jni.OK
}

// Close detaches every library, most recently attached first, and drops all
// environments and global references. Errors from individual libraries are
// collected rather than stopping the shutdown. Goroutines GetEnv locked to
// their OS thread stay locked.
func (vm *VM) Close(ctx context.Context) error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return nil
	}
	vm.closed = true
	paths := append([]string(nil), vm.libOrder...)
	vm.mu.Unlock()

	var result *multierror.Error
	for i := len(paths) - 1; i >= 0; i-- {
		if err := vm.DetachLibrary(ctx, paths[i]); err != nil {
			result = multierror.Append(result, err)
		}
	}

	vm.mu.Lock()
	clear(vm.envs)
	clear(vm.envHandles)
	clear(vm.globals)
	clear(vm.interned)
	vm.globals = vm.globals[:0]
	vm.mu.Unlock()
	return result.ErrorOrNil()
}

// DestroyJavaVM is Close with a status result.
func (vm *VM) DestroyJavaVM(ctx context.Context) int32 {
	if err := vm.Close(ctx); err != nil {
		vm.logger.ErrorContext(ctx, "jnivm: destroy failed", "error", err)
		return jni.ERR
	}
	return jni.OK
}

// NewString creates a java/lang/String entity.
func (vm *VM) NewString(s string) *String {
	str := &String{Value: s}
	str.init(vm.stringClass)
	return str
}

// NewThrowable creates a throwable of class c. A nil class means
// java/lang/Throwable.
func (vm *VM) NewThrowable(c *Class, msg string, cause error) *Throwable {
	if c == nil {
		c = vm.throwableClass
	}
	t := &Throwable{Message: msg, Cause: cause}
	t.init(c)
	return t
}

// NewArray creates an array of n elements of the type described by elem.
func (vm *VM) NewArray(elem string, n int) (*Array, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative array size %d", ErrArgumentType, n)
	}
	t, err := jni.ParseType(elem)
	if err != nil {
		return nil, err
	}
	if t.Kind == jni.Void {
		return nil, fmt.Errorf("%w: void array", jni.ErrMalformedSignature)
	}
	c, err := vm.FindClass("[" + elem)
	if err != nil {
		return nil, err
	}
	a := &Array{Elem: t}
	if t.Kind.IsReference() {
		a.refs = make([]Entity, n)
	} else {
		a.prims = make([]jni.Value, n)
		for i := range a.prims {
			a.prims[i] = jni.Zero(t.Kind)
		}
	}
	a.init(c)
	return a, nil
}

func (vm *VM) observeClass(c *Class) {
	for _, o := range vm.observers {
		o.ClassDeclared(c)
	}
}

func (vm *VM) observeMethod(m *Method) {
	for _, o := range vm.observers {
		o.MethodDeclared(m)
	}
}

func (vm *VM) observeField(f *Field) {
	for _, o := range vm.observers {
		o.FieldDeclared(f)
	}
}

func (vm *VM) observeNativeCall(m *Method) {
	for _, o := range vm.observers {
		o.NativeCall(m)
	}
}

func (vm *VM) observeUnimplemented(m *Method) {
	for _, o := range vm.observers {
		o.Unimplemented(m)
	}
}
