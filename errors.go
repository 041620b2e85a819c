package jnivm

import (
	"errors"
	"fmt"

	"github.com/Dadoum/libjnivm/jni"
)

var (
	// ErrUnsupportedSignature is raised when a method's return type code has no
	// call adapter.
	ErrUnsupportedSignature = errors.New("unsupported signature")

	// ErrExceptionPending is returned when a call is attempted, or a second
	// exception raised, while the environment already has one in flight.
	ErrExceptionPending = errors.New("exception pending")

	// ErrArgumentCount is raised when the number of arguments does not match the
	// method signature.
	ErrArgumentCount = errors.New("argument count mismatch")

	// ErrArgumentType is raised when an argument cannot be converted to the
	// declared parameter type.
	ErrArgumentType = errors.New("argument type mismatch")

	// ErrTargetMismatch is raised when a native target's Go or wasm function type
	// does not agree with the method signature.
	ErrTargetMismatch = errors.New("native target does not match signature")

	// ErrNoNativeTarget is raised when a native method has no bound target and
	// none of the attached libraries exports it.
	ErrNoNativeTarget = errors.New("native method not bound")

	// ErrNativePanic is raised when a Go native or host body panics.
	ErrNativePanic = errors.New("native code panicked")

	// ErrClassNotFound is returned by strict class lookups.
	ErrClassNotFound = errors.New("class not found")

	// ErrInvalidRef is returned when a handle does not address a live entity.
	ErrInvalidRef = errors.New("invalid reference")

	// ErrIndexOutOfBounds is returned for array or string indices outside the
	// valid range.
	ErrIndexOutOfBounds = errors.New("index out of bounds")

	// ErrClosed is returned by operations on a closed runtime.
	ErrClosed = errors.New("runtime closed")

	// ErrLibraryClosed is returned when closing a library twice.
	ErrLibraryClosed = errors.New("library already closed")
)

// SignatureError reports a signature the dispatch core cannot handle.
type SignatureError struct {
	Err       error
	Class     string
	Method    string
	Signature string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("%s.%s%s: %v", e.Class, e.Method, e.Signature, e.Err)
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}

// LibraryError reports a failure attaching or detaching a library.
type LibraryError struct {
	Err  error
	Path string
	Op   string
}

func (e *LibraryError) Error() string {
	return fmt.Sprintf("library %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LibraryError) Unwrap() error {
	return e.Err
}

// Exception is the error form of a propagated managed exception. Value is the
// thrown entity, usually a *Throwable.
type Exception struct {
	Value Entity
}

func (e *Exception) Error() string {
	if t, ok := e.Value.(*Throwable); ok {
		return t.String()
	}
	if e.Value == nil {
		return "exception: <null>"
	}
	if c := e.Value.Base().Class(); c != nil {
		return "exception: " + c.Name()
	}
	return fmt.Sprintf("exception: %T", e.Value)
}

// Unwrap exposes the Go error a throwable was raised from, so errors.Is works
// across the managed exception channel.
func (e *Exception) Unwrap() error {
	if t, ok := e.Value.(*Throwable); ok {
		return t.Cause
	}
	return nil
}

// Throwable returns the thrown value as a *Throwable when it is one.
func (e *Exception) Throwable() (*Throwable, bool) {
	t, ok := e.Value.(*Throwable)
	return t, ok
}

// exceptionClassFor picks the managed exception class for a Go error raised
// by the runtime itself.
func exceptionClassFor(err error) string {
	switch {
	case errors.Is(err, ErrClassNotFound):
		return "java/lang/NoClassDefFoundError"
	case errors.Is(err, ErrNoNativeTarget):
		return "java/lang/UnsatisfiedLinkError"
	case errors.Is(err, ErrInvalidRef):
		return "java/lang/NullPointerException"
	case errors.Is(err, ErrIndexOutOfBounds):
		return "java/lang/IndexOutOfBoundsException"
	case errors.Is(err, ErrArgumentCount), errors.Is(err, ErrArgumentType):
		return "java/lang/IllegalArgumentException"
	case errors.Is(err, jni.ErrMalformedSignature):
		return "java/lang/IllegalArgumentException"
	}
	return "java/lang/RuntimeException"
}
