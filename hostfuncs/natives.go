package hostfuncs

import (
	"context"
	"encoding/binary"
	"fmt"

	jnivm "github.com/Dadoum/libjnivm"
)

// nativeMethodSize is sizeof(JNINativeMethod) on wasm32.
const nativeMethodSize = 12

// NativesBundle returns RegisterNatives, UnregisterNatives, GetJavaVM and the
// monitor functions.
func NativesBundle() Bundle {
	return &staticBundle{functions: []Function{
		fn("RegisterNatives", types(I32, I32, I32, I32), types(I32), registerNatives),
		fn("UnregisterNatives", types(I32, I32), types(I32), unregisterNatives),
		fn("GetJavaVM", types(I32, I32), types(I32), getJavaVM),
		fn("MonitorEnter", types(I32, I32), types(I32), monitor),
		fn("MonitorExit", types(I32, I32), types(I32), monitor),
	}}
}

func registerNatives(ctx context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	c, err := resolveAs[*jnivm.Class](env, f.Ref(1), "class")
	if err != nil {
		return status(f, env, err)
	}
	methods, err := readNativeMethods(ctx, f, f.U32(2), f.I32(3))
	if err != nil {
		return status(f, env, err)
	}
	return status(f, env, f.VM.RegisterNatives(c, methods))
}

func readNativeMethods(ctx context.Context, f *Frame, ptr uint32, n int32) ([]jnivm.NativeMethod, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative method count %d", ErrMemory, n)
	}
	if f.Natives == nil {
		return nil, fmt.Errorf("%w: no function table to resolve natives from", jnivm.ErrNoNativeTarget)
	}
	raw, err := readBytes(f.Mem, ptr, uint32(n)*nativeMethodSize)
	if err != nil {
		return nil, err
	}
	out := make([]jnivm.NativeMethod, 0, n)
	for i := 0; i < int(n); i++ {
		entry := raw[i*nativeMethodSize:]
		name, err := readCString(f.Mem, binary.LittleEndian.Uint32(entry))
		if err != nil {
			return nil, err
		}
		sig, err := readCString(f.Mem, binary.LittleEndian.Uint32(entry[4:]))
		if err != nil {
			return nil, err
		}
		t, err := f.Natives.FunctionAt(ctx, binary.LittleEndian.Uint32(entry[8:]), sig)
		if err != nil {
			return nil, fmt.Errorf("native %s%s: %w", name, sig, err)
		}
		out = append(out, jnivm.NativeMethod{Name: name, Signature: sig, Fn: t})
	}
	return out, nil
}

func unregisterNatives(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	c, err := resolveAs[*jnivm.Class](env, f.Ref(1), "class")
	if err != nil {
		return status(f, env, err)
	}
	f.VM.UnregisterNatives(c)
	return status(f, env, nil)
}

func getJavaVM(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	return status(f, env, writeU32(f.Mem, f.U32(1), VMHandle))
}

// Monitors are not modelled; guest code runs on one thread per environment.
func monitor(_ context.Context, f *Frame) error {
	if _, err := f.Env(); err != nil {
		return err
	}
	f.ReturnI32(0)
	return nil
}
