package hostfuncs

import (
	"errors"
	"fmt"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/jni"
)

var (
	// ErrNotFound is returned when invoking a function the table lacks.
	ErrNotFound = errors.New("unknown native-interface function")

	// ErrNoEnv is returned when an environment handle does not name a live
	// environment.
	ErrNoEnv = errors.New("unknown environment handle")

	// ErrMemory is returned when a guest pointer falls outside linear memory.
	ErrMemory = errors.New("guest memory access out of range")

	// ErrIndex is returned for array or string indices out of bounds. It is
	// the runtime's sentinel, so it surfaces as IndexOutOfBoundsException.
	ErrIndex = jnivm.ErrIndexOutOfBounds

	// ErrPanic is returned when a handler panics.
	ErrPanic = errors.New("native-interface function panicked")

	// ErrWrongType is returned when a reference addresses an entity of the
	// wrong kind, such as a string where a class is expected.
	ErrWrongType = errors.New("reference has the wrong type")
)

// FatalError is raised by FatalError calls from native code. It is never
// turned into a managed exception; the host aborts the guest instead.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string {
	return "fatal error from native code: " + e.Message
}

// Status maps a handler error onto a native-interface status code.
func Status(err error) int32 {
	switch {
	case err == nil:
		return jni.OK
	case errors.Is(err, ErrNoEnv):
		return jni.EDETACHED
	case errors.Is(err, ErrMemory):
		return jni.EINVAL
	case errors.Is(err, jnivm.ErrExceptionPending):
		return jni.ERR
	case errors.Is(err, jnivm.ErrInvalidRef), errors.Is(err, ErrWrongType):
		return jni.EINVAL
	}
	return jni.ERR
}

func memErr(op string, ptr, n uint32) error {
	return fmt.Errorf("%w: %s %d bytes at %#x", ErrMemory, op, n, ptr)
}
