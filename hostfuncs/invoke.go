package hostfuncs

import (
	"context"

	"github.com/Dadoum/libjnivm/jni"
)

// VMHandle is the JavaVM pointer handed to guest code. There is one runtime
// per guest instance, so the value is fixed.
const VMHandle uint32 = 1

// InvokeBundle returns the invocation interface. These functions take the
// VM handle rather than an environment and report failures only through
// their status result.
func InvokeBundle() Bundle {
	return &staticBundle{functions: []Function{
		fn("DestroyJavaVM", types(I32), types(I32), destroyJavaVM),
		fn("AttachCurrentThread", types(I32, I32, I32), types(I32), attachCurrentThread),
		fn("AttachCurrentThreadAsDaemon", types(I32, I32, I32), types(I32), attachCurrentThread),
		fn("DetachCurrentThread", types(I32), types(I32), detachCurrentThread),
		fn("GetEnv", types(I32, I32, I32), types(I32), getEnv),
	}}
}

func destroyJavaVM(ctx context.Context, f *Frame) error {
	f.ReturnI32(f.VM.DestroyJavaVM(ctx))
	return nil
}

func attachCurrentThread(ctx context.Context, f *Frame) error {
	env, err := f.VM.AttachCurrentThread(ctx)
	if err != nil {
		f.ReturnI32(jni.ERR)
		return nil
	}
	if err := writeOptionalU32(f.Mem, f.U32(1), env.Handle()); err != nil {
		f.ReturnI32(jni.EINVAL)
		return nil
	}
	f.ReturnI32(jni.OK)
	return nil
}

func detachCurrentThread(ctx context.Context, f *Frame) error {
	f.ReturnI32(f.VM.DetachCurrentThread(ctx))
	return nil
}

func getEnv(ctx context.Context, f *Frame) error {
	penv, version := f.U32(1), f.I32(2)
	code := jni.OK
	var handle uint32
	switch env, ok := f.VM.LookupEnv(ctx); {
	case !knownVersion(version):
		code = jni.EVERSION
	case !ok:
		code = jni.EDETACHED
	default:
		handle = env.Handle()
	}
	if err := writeOptionalU32(f.Mem, penv, handle); err != nil {
		code = jni.EINVAL
	}
	f.ReturnI32(code)
	return nil
}

func knownVersion(v int32) bool {
	switch v {
	case jni.Version1_1, jni.Version1_2, jni.Version1_4, jni.Version1_6:
		return true
	}
	return false
}
