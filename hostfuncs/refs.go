package hostfuncs

import (
	"context"

	"github.com/Dadoum/libjnivm/jni"
)

// RefBundle returns the local and global reference functions.
func RefBundle() Bundle {
	return &staticBundle{functions: []Function{
		fn("NewGlobalRef", types(I32, I32), types(I32), newGlobalRef),
		fn("DeleteGlobalRef", types(I32, I32), nil, deleteGlobalRef),
		fn("NewWeakGlobalRef", types(I32, I32), types(I32), newGlobalRef),
		fn("DeleteWeakGlobalRef", types(I32, I32), nil, deleteGlobalRef),
		fn("NewLocalRef", types(I32, I32), types(I32), newLocalRef),
		fn("DeleteLocalRef", types(I32, I32), nil, deleteLocalRef),
		fn("PushLocalFrame", types(I32, I32), types(I32), pushLocalFrame),
		fn("PopLocalFrame", types(I32, I32), types(I32), popLocalFrame),
		fn("EnsureLocalCapacity", types(I32, I32), types(I32), ensureLocalCapacity),
		fn("IsSameObject", types(I32, I32, I32), types(I32), isSameObject),
		fn("GetObjectRefType", types(I32, I32), types(I32), getObjectRefType),
	}}
}

func newGlobalRef(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	e, err := env.Resolve(f.Ref(1))
	if err != nil {
		return err
	}
	f.Return(uint64(f.VM.NewGlobalRef(e)))
	return nil
}

func deleteGlobalRef(_ context.Context, f *Frame) error {
	if f.Ref(1) == jni.Null {
		return nil
	}
	return f.VM.DeleteGlobalRef(f.Ref(1))
}

func newLocalRef(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	e, err := env.Resolve(f.Ref(1))
	if err != nil {
		return err
	}
	f.Return(uint64(env.NewLocalRef(e)))
	return nil
}

func deleteLocalRef(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	env.DeleteLocalRef(f.Ref(1))
	return nil
}

func pushLocalFrame(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	if f.I32(1) < 0 {
		f.ReturnI32(jni.EINVAL)
		return nil
	}
	env.PushLocalFrame()
	f.ReturnI32(jni.OK)
	return nil
}

func popLocalFrame(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	f.Return(uint64(env.PopLocalFrame(f.Ref(1))))
	return nil
}

// ensureLocalCapacity always succeeds; local frames grow on demand.
func ensureLocalCapacity(_ context.Context, f *Frame) error {
	if f.I32(1) < 0 {
		f.ReturnI32(jni.EINVAL)
		return nil
	}
	f.ReturnI32(jni.OK)
	return nil
}

func isSameObject(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	a, err := env.Resolve(f.Ref(1))
	if err != nil {
		return err
	}
	b, err := env.Resolve(f.Ref(2))
	if err != nil {
		return err
	}
	boolResult(f, a == b)
	return nil
}

func getObjectRefType(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	r := f.Ref(1)
	if e, err := env.Resolve(r); err != nil || e == nil {
		f.ReturnI32(jni.InvalidRefType)
		return nil
	}
	if r.IsGlobal() {
		f.ReturnI32(jni.GlobalRefType)
		return nil
	}
	f.ReturnI32(jni.LocalRefType)
	return nil
}
