package hostfuncs

import (
	"context"
	"encoding/binary"
	"fmt"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/jni"
)

// Release modes for Release<Type>ArrayElements.
const (
	releaseCopyFree = 0
	releaseCommit   = 1
	releaseAbort    = 2
)

// ArrayBundle returns the array functions.
func ArrayBundle() Bundle {
	fs := []Function{
		fn("GetArrayLength", types(I32, I32), types(I32), getArrayLength),
		fn("NewObjectArray", types(I32, I32, I32, I32), types(I32), newObjectArray),
		fn("GetObjectArrayElement", types(I32, I32, I32), types(I32), getObjectArrayElement),
		fn("SetObjectArrayElement", types(I32, I32, I32, I32), nil, setObjectArrayElement),
		fn("GetPrimitiveArrayCritical", types(I32, I32, I32), types(I32), getArrayElements(0)),
		fn("ReleasePrimitiveArrayCritical", types(I32, I32, I32, I32), nil, releaseArrayElements(0)),
	}
	for _, k := range jni.Kinds {
		if !k.IsPrimitive() {
			continue
		}
		n := k.Name()
		fs = append(fs,
			fn("New"+n+"Array", types(I32, I32), types(I32), newPrimitiveArray(k)),
			fn("Get"+n+"ArrayElements", types(I32, I32, I32), types(I32), getArrayElements(k)),
			fn("Release"+n+"ArrayElements", types(I32, I32, I32, I32), nil, releaseArrayElements(k)),
			fn("Get"+n+"ArrayRegion", types(I32, I32, I32, I32, I32), nil, arrayRegion(k, false)),
			fn("Set"+n+"ArrayRegion", types(I32, I32, I32, I32, I32), nil, arrayRegion(k, true)),
		)
	}
	return &staticBundle{functions: fs}
}

func elemSize(k jni.Kind) uint32 {
	switch k {
	case jni.Boolean, jni.Byte:
		return 1
	case jni.Char, jni.Short:
		return 2
	case jni.Long, jni.Double:
		return 8
	}
	return 4
}

// arrayArg resolves parameter 1 as an array. A non-zero kind also requires
// the element type to match.
func arrayArg(f *Frame, kind jni.Kind) (*jnivm.Env, *jnivm.Array, error) {
	env, err := f.Env()
	if err != nil {
		return nil, nil, err
	}
	a, err := resolveAs[*jnivm.Array](env, f.Ref(1), "array")
	if err != nil {
		return nil, nil, err
	}
	if kind == 0 && !a.Elem.Kind.IsPrimitive() {
		return nil, nil, fmt.Errorf("%w: %s is not a primitive array", ErrWrongType, a.Class().Name())
	}
	if kind != 0 && a.Elem.Kind != kind {
		return nil, nil, fmt.Errorf("%w: %s is not a %s array", ErrWrongType, a.Class().Name(), kind.Name())
	}
	return env, a, nil
}

func encodeElems(a *jnivm.Array, start, n int) ([]byte, error) {
	size := int(elemSize(a.Elem.Kind))
	out := make([]byte, size*n)
	var raw [8]byte
	for i := 0; i < n; i++ {
		v, err := a.Get(start + i)
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint64(raw[:], v.Bits())
		copy(out[i*size:], raw[:size])
	}
	return out, nil
}

func decodeElems(a *jnivm.Array, start int, b []byte) error {
	size := int(elemSize(a.Elem.Kind))
	var raw [8]byte
	for i := 0; i*size < len(b); i++ {
		clear(raw[:])
		copy(raw[:], b[i*size:(i+1)*size])
		v := jni.FromBits(a.Elem.Kind, binary.LittleEndian.Uint64(raw[:]))
		if err := a.Set(start+i, v); err != nil {
			return err
		}
	}
	return nil
}

func getArrayLength(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	a, err := resolveAs[*jnivm.Array](env, f.Ref(1), "array")
	if err != nil {
		return err
	}
	f.ReturnI32(int32(a.Len()))
	return nil
}

func newPrimitiveArray(k jni.Kind) Handler {
	return func(_ context.Context, f *Frame) error {
		env, err := f.Env()
		if err != nil {
			return err
		}
		ref, err := env.NewArray(string(byte(k)), int(f.I32(1)))
		if err != nil {
			return err
		}
		f.Return(uint64(ref))
		return nil
	}
}

func newObjectArray(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	c, err := resolveAs[*jnivm.Class](env, f.Ref(2), "class")
	if err != nil {
		return err
	}
	init, err := env.Resolve(f.Ref(3))
	if err != nil {
		return err
	}
	elem := c.Name()
	if elem[0] != '[' {
		elem = "L" + elem + ";"
	}
	a, err := f.VM.NewArray(elem, int(f.I32(1)))
	if err != nil {
		return err
	}
	if init != nil {
		for i := 0; i < a.Len(); i++ {
			_ = a.SetElement(i, init)
		}
	}
	f.Return(uint64(env.NewLocalRef(a)))
	return nil
}

func getObjectArrayElement(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	a, err := resolveAs[*jnivm.Array](env, f.Ref(1), "array")
	if err != nil {
		return err
	}
	e, err := a.Element(int(f.I32(2)))
	if err != nil {
		return err
	}
	f.Return(uint64(env.NewLocalRef(e)))
	return nil
}

func setObjectArrayElement(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	a, err := resolveAs[*jnivm.Array](env, f.Ref(1), "array")
	if err != nil {
		return err
	}
	e, err := env.Resolve(f.Ref(3))
	if err != nil {
		return err
	}
	if err := a.SetElement(int(f.I32(2)), e); err != nil {
		return err
	}
	return nil
}

// getArrayElements copies the whole array into guest memory. Kind zero
// accepts any primitive array.
func getArrayElements(k jni.Kind) Handler {
	return func(ctx context.Context, f *Frame) error {
		_, a, err := arrayArg(f, k)
		if err != nil {
			return err
		}
		b, err := encodeElems(a, 0, a.Len())
		if err != nil {
			return err
		}
		if len(b) == 0 {
			b = []byte{0}
		}
		ptr, err := allocCopy(ctx, f.Mem, b)
		if err != nil {
			return err
		}
		if err := writeOptionalBool(f.Mem, f.U32(2), true); err != nil {
			return err
		}
		f.Return(uint64(ptr))
		return nil
	}
}

func releaseArrayElements(k jni.Kind) Handler {
	return func(ctx context.Context, f *Frame) error {
		_, a, err := arrayArg(f, k)
		if err != nil {
			return err
		}
		ptr, mode := f.U32(2), f.I32(3)
		if ptr == 0 {
			return nil
		}
		if mode != releaseAbort {
			b, err := readBytes(f.Mem, ptr, elemSize(a.Elem.Kind)*uint32(a.Len()))
			if err != nil {
				return err
			}
			if err := decodeElems(a, 0, b); err != nil {
				return err
			}
		}
		if mode == releaseCommit {
			return nil
		}
		return f.Mem.Free(ctx, ptr)
	}
}

// arrayRegion implements Get<Type>ArrayRegion and, with set, the Set form.
func arrayRegion(k jni.Kind, set bool) Handler {
	return func(_ context.Context, f *Frame) error {
		_, a, err := arrayArg(f, k)
		if err != nil {
			return err
		}
		start, n, buf := f.I32(2), f.I32(3), f.U32(4)
		if start < 0 || n < 0 || int(start)+int(n) > a.Len() {
			return fmt.Errorf("%w: region [%d, %d) of %d", ErrIndex, start, start+n, a.Len())
		}
		if set {
			b, err := readBytes(f.Mem, buf, elemSize(k)*uint32(n))
			if err != nil {
				return err
			}
			return decodeElems(a, int(start), b)
		}
		b, err := encodeElems(a, int(start), int(n))
		if err != nil {
			return err
		}
		return writeBytes(f.Mem, buf, b)
	}
}
