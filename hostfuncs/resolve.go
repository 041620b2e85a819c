package hostfuncs

import (
	"fmt"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/jni"
)

// resolveAs resolves a non-null reference to an entity of type T.
func resolveAs[T jnivm.Entity](env *jnivm.Env, r jni.Ref, what string) (T, error) {
	var zero T
	if r == jni.Null {
		return zero, fmt.Errorf("%w: null %s", jnivm.ErrInvalidRef, what)
	}
	e, err := env.Resolve(r)
	if err != nil {
		return zero, err
	}
	t, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T is not a %s", ErrWrongType, e, what)
	}
	return t, nil
}

func toArgs(vals []jni.Value) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}

// status writes the status code for err. A failure is also raised as a
// managed exception unless the slot is already occupied.
func status(f *Frame, env *jnivm.Env, err error) error {
	if err != nil && env != nil && !env.ExceptionCheck() {
		env.Raise(err)
	}
	f.ReturnI32(Status(err))
	return nil
}

func boolResult(f *Frame, v bool) {
	if v {
		f.Return(1)
		return
	}
	f.Return(0)
}
