package jnivm

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dadoum/libjnivm/jni"
)

// Env is the per-thread view of a runtime: the pending exception slot, local
// reference frames and the native-interface function table. An Env must only
// be used from the thread it was created for.
type Env struct {
	vm     *VM
	thread ThreadID
	handle uint32
	ctx    context.Context
	// locked is set when the environment holds its goroutine on an OS thread.
	locked bool

	pending Entity
	locals  []Entity
	frames  []int
}

func newEnv(ctx context.Context, vm *VM, thread ThreadID, handle uint32) *Env {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Env{vm: vm, thread: thread, handle: handle, ctx: ctx}
}

// VM returns the runtime the environment belongs to.
func (env *Env) VM() *VM { return env.vm }

// Thread returns the thread identity the environment is bound to.
func (env *Env) Thread() ThreadID { return env.thread }

// Handle returns the environment's opaque handle as seen by wasm natives.
func (env *Env) Handle() uint32 { return env.handle }

// Context returns the context the environment was attached with.
func (env *Env) Context() context.Context { return env.ctx }

// Functions returns the native-interface function table presented to
// native code, or nil when the runtime was built without one.
func (env *Env) Functions() FunctionTable { return env.vm.functions }

// NewLocalRef anchors e in the current local frame.
func (env *Env) NewLocalRef(e Entity) jni.Ref {
	if isNil(e) {
		return jni.Null
	}
	env.locals = append(env.locals, e)
	return jni.LocalRef(len(env.locals) - 1)
}

// DeleteLocalRef releases a local reference before its frame is popped.
func (env *Env) DeleteLocalRef(r jni.Ref) {
	if r == jni.Null || r.IsGlobal() {
		return
	}
	if s := r.Slot(); s >= 0 && s < len(env.locals) {
		env.locals[s] = nil
	}
}

// Resolve returns the entity a local or global reference addresses. The
// null reference resolves to nil without error.
func (env *Env) Resolve(r jni.Ref) (Entity, error) {
	if r == jni.Null {
		return nil, nil
	}
	if r.IsGlobal() {
		return env.vm.ResolveGlobal(r)
	}
	s := r.Slot()
	if s < 0 || s >= len(env.locals) || env.locals[s] == nil {
		return nil, fmt.Errorf("%w: local %#x", ErrInvalidRef, uint32(r))
	}
	return env.locals[s], nil
}

// PushLocalFrame opens a new local reference frame.
func (env *Env) PushLocalFrame() {
	env.pushFrame()
}

// PopLocalFrame releases every local reference created since the matching
// PushLocalFrame and re-anchors result, if any, in the enclosing frame.
func (env *Env) PopLocalFrame(result jni.Ref) jni.Ref {
	var keep Entity
	if result != jni.Null {
		keep, _ = env.Resolve(result)
	}
	env.popFrame()
	return env.NewLocalRef(keep)
}

func (env *Env) pushFrame() {
	env.frames = append(env.frames, len(env.locals))
}

func (env *Env) popFrame() {
	if len(env.frames) == 0 {
		return
	}
	start := env.frames[len(env.frames)-1]
	env.frames = env.frames[:len(env.frames)-1]
	clear(env.locals[start:])
	env.locals = env.locals[:start]
}

// NewString creates a java/lang/String and returns a local reference to it.
func (env *Env) NewString(s string) jni.Ref {
	return env.NewLocalRef(env.vm.NewString(s))
}

// NewArray creates an array whose element type is described by elem, e.g.
// "I" or "Ljava/lang/String;", and returns a local reference to it.
func (env *Env) NewArray(elem string, n int) (jni.Ref, error) {
	a, err := env.vm.NewArray(elem, n)
	if err != nil {
		return jni.Null, err
	}
	return env.NewLocalRef(a), nil
}

// FindClass looks a class up by internal name. In strict mode a missing
// class is also raised as java/lang/NoClassDefFoundError.
func (env *Env) FindClass(name string) (*Class, error) {
	c, err := env.vm.FindClass(name)
	if err != nil {
		env.Raise(err)
		return nil, err
	}
	return c, nil
}

// Throw makes e the pending exception. Only one exception may be pending.
func (env *Env) Throw(e Entity) error {
	if isNil(e) {
		return fmt.Errorf("%w: throw null", ErrInvalidRef)
	}
	if env.pending != nil {
		return ErrExceptionPending
	}
	env.pending = e
	return nil
}

// ThrowNew creates a throwable of class c with msg and makes it pending.
func (env *Env) ThrowNew(c *Class, msg string) error {
	return env.Throw(env.vm.NewThrowable(c, msg, nil))
}

// ExceptionOccurred returns the pending exception without clearing it.
func (env *Env) ExceptionOccurred() Entity { return env.pending }

// ExceptionCheck reports whether an exception is pending.
func (env *Env) ExceptionCheck() bool { return env.pending != nil }

// ExceptionClear drops the pending exception.
func (env *Env) ExceptionClear() { env.pending = nil }

// ExceptionDescribe logs and clears the pending exception.
func (env *Env) ExceptionDescribe() {
	if env.pending == nil {
		return
	}
	exc := &Exception{Value: env.pending}
	env.pending = nil
	env.vm.logger.ErrorContext(env.ctx, "jnivm: pending exception", "thread", uint64(env.thread), "exception", exc.Error())
}

// Raise converts a Go error into a pending managed exception. An *Exception
// rethrows its original value. A slot that is already occupied keeps its
// exception.
func (env *Env) Raise(err error) {
	if err == nil {
		return
	}
	var e Entity
	var exc *Exception
	if errors.As(err, &exc) && exc.Value != nil {
		e = exc.Value
	} else {
		c, _ := env.vm.lookupClass(exceptionClassFor(err))
		if c == nil {
			c = env.vm.runtimeExceptionClass
		}
		e = env.vm.NewThrowable(c, err.Error(), err)
	}
	if env.Throw(e) != nil {
		env.vm.logger.WarnContext(env.ctx, "jnivm: dropping exception raised while another is pending", "error", err)
	}
}

// takeException clears and returns the pending exception, if any.
func (env *Env) takeException() *Exception {
	if env.pending == nil {
		return nil
	}
	exc := &Exception{Value: env.pending}
	env.pending = nil
	return exc
}

// GetField reads field f of obj, or the static value when f is static. Object
// values come back as local references.
func (env *Env) GetField(obj Entity, f *Field) (jni.Value, error) {
	var s Slot
	if f.IsStatic() {
		s = f.Static()
	} else {
		h, ok := obj.(fieldHolder)
		if !ok || isNil(obj) {
			return jni.Value{}, fmt.Errorf("%w: %s on %T", ErrInvalidRef, f, obj)
		}
		s = h.Field(f)
	}
	if f.Kind().IsReference() {
		return jni.ObjectValue(env.NewLocalRef(s.Entity)), nil
	}
	return s.Value, nil
}

// SetField writes field f of obj, or the static value when f is static.
func (env *Env) SetField(obj Entity, f *Field, v jni.Value) error {
	s, err := env.slotFor(f, v)
	if err != nil {
		return err
	}
	if f.IsStatic() {
		f.SetStatic(s)
		return nil
	}
	h, ok := obj.(fieldHolder)
	if !ok || isNil(obj) {
		return fmt.Errorf("%w: %s on %T", ErrInvalidRef, f, obj)
	}
	h.SetField(f, s)
	return nil
}

func (env *Env) slotFor(f *Field, v jni.Value) (Slot, error) {
	conv, err := v.As(f.Kind())
	if err != nil {
		return Slot{}, fmt.Errorf("%s: %w: %v", f, ErrArgumentType, err)
	}
	if !f.Kind().IsReference() {
		return Slot{Value: conv}, nil
	}
	e, err := env.Resolve(conv.Ref())
	if err != nil {
		return Slot{}, err
	}
	return Slot{Value: jni.ObjectValue(jni.Null), Entity: e}, nil
}
