package hostfuncs

import (
	"context"

	jnivm "github.com/Dadoum/libjnivm"
)

// ExceptionBundle returns the exception functions.
func ExceptionBundle() Bundle {
	return &staticBundle{functions: []Function{
		fn("Throw", types(I32, I32), types(I32), throw),
		fn("ThrowNew", types(I32, I32, I32), types(I32), throwNew),
		fn("ExceptionOccurred", types(I32), types(I32), exceptionOccurred),
		fn("ExceptionDescribe", types(I32), nil, exceptionDescribe),
		fn("ExceptionClear", types(I32), nil, exceptionClear),
		fn("ExceptionCheck", types(I32), types(I32), exceptionCheck),
		fn("FatalError", types(I32, I32), nil, fatalError),
	}}
}

func throw(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	e, err := resolveAs[jnivm.Entity](env, f.Ref(1), "throwable")
	if err != nil {
		return status(f, env, err)
	}
	// A pending exception stays pending; the status reports the refusal.
	f.ReturnI32(Status(env.Throw(e)))
	return nil
}

func throwNew(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	c, err := resolveAs[*jnivm.Class](env, f.Ref(1), "class")
	if err != nil {
		return status(f, env, err)
	}
	msg := ""
	if ptr := f.U32(2); ptr != 0 {
		if msg, err = readCString(f.Mem, ptr); err != nil {
			return status(f, env, err)
		}
	}
	f.ReturnI32(Status(env.ThrowNew(c, msg)))
	return nil
}

func exceptionOccurred(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	f.Return(uint64(env.NewLocalRef(env.ExceptionOccurred())))
	return nil
}

func exceptionDescribe(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	env.ExceptionDescribe()
	return nil
}

func exceptionClear(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	env.ExceptionClear()
	return nil
}

func exceptionCheck(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	boolResult(f, env.ExceptionCheck())
	return nil
}

func fatalError(_ context.Context, f *Frame) error {
	msg, err := readCString(f.Mem, f.U32(1))
	if err != nil {
		msg = "<unreadable message>"
	}
	return &FatalError{Message: msg}
}
