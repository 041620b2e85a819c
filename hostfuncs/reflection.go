package hostfuncs

import (
	"context"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/jni"
)

// ReflectionBundle returns DefineClass, the reflected member conversions,
// the direct buffer functions and GetModule.
func ReflectionBundle() Bundle {
	return &staticBundle{functions: []Function{
		fn("DefineClass", types(I32, I32, I32, I32, I32), types(I32), defineClass),
		fn("FromReflectedMethod", types(I32, I32), types(I32), fromReflected[*jnivm.Method]("method")),
		fn("FromReflectedField", types(I32, I32), types(I32), fromReflected[*jnivm.Field]("field")),
		fn("ToReflectedMethod", types(I32, I32, I32, I32), types(I32), toReflected[*jnivm.Method]("method ID")),
		fn("ToReflectedField", types(I32, I32, I32, I32), types(I32), toReflected[*jnivm.Field]("field ID")),
		fn("NewDirectByteBuffer", types(I32, I32, I64), types(I32), newDirectByteBuffer),
		fn("GetDirectBufferAddress", types(I32, I32), types(I32), getDirectBufferAddress),
		fn("GetDirectBufferCapacity", types(I32, I32), types(I64), getDirectBufferCapacity),
		fn("GetModule", types(I32, I32), types(I32), getModule),
	}}
}

// defineClass declares the named class. The class bytes are ignored; only
// host-declared members exist.
func defineClass(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	name, err := readCString(f.Mem, f.U32(1))
	if err != nil {
		return err
	}
	f.Return(uint64(env.NewLocalRef(f.VM.DefineClass(name, nil))))
	return nil
}

// Reflected members and member IDs are the same entities.
func fromReflected[T jnivm.Entity](what string) Handler {
	return func(_ context.Context, f *Frame) error {
		env, err := f.Env()
		if err != nil {
			return err
		}
		m, err := resolveAs[T](env, f.Ref(1), what)
		if err != nil {
			return err
		}
		f.Return(uint64(f.VM.InternRef(m)))
		return nil
	}
}

func toReflected[T jnivm.Entity](what string) Handler {
	return func(_ context.Context, f *Frame) error {
		env, err := f.Env()
		if err != nil {
			return err
		}
		m, err := resolveAs[T](env, f.Ref(2), what)
		if err != nil {
			return err
		}
		f.Return(uint64(env.NewLocalRef(m)))
		return nil
	}
}

type bufferClass struct {
	buffer, direct    *jnivm.Class
	address, capacity *jnivm.Field
}

func directBufferClass(vm *jnivm.VM) bufferClass {
	buffer := vm.DefineClass("java/nio/Buffer", nil)
	direct := vm.DefineClass("java/nio/DirectByteBuffer", vm.DefineClass("java/nio/ByteBuffer", buffer))
	return bufferClass{
		buffer:   buffer,
		direct:   direct,
		address:  buffer.GetField("address", "J", false),
		capacity: buffer.GetField("capacity", "I", false),
	}
}

func newDirectByteBuffer(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	bc := directBufferClass(f.VM)
	obj := bc.direct.NewInstance()
	if err := env.SetField(obj, bc.address, jni.LongValue(int64(f.U32(1)))); err != nil {
		return err
	}
	if err := env.SetField(obj, bc.capacity, jni.LongValue(int64(f.Stack[2]))); err != nil {
		return err
	}
	f.Return(uint64(env.NewLocalRef(obj)))
	return nil
}

// bufferField reads a field of a direct buffer. Anything else yields ok false.
func bufferField(f *Frame, pick func(bufferClass) *jnivm.Field) (jni.Value, bool, error) {
	env, err := f.Env()
	if err != nil {
		return jni.Value{}, false, err
	}
	obj, err := env.Resolve(f.Ref(1))
	if err != nil || obj == nil {
		return jni.Value{}, false, err
	}
	bc := directBufferClass(f.VM)
	if !bc.buffer.IsInstance(obj) {
		return jni.Value{}, false, nil
	}
	v, err := env.GetField(obj, pick(bc))
	return v, err == nil, err
}

func getDirectBufferAddress(_ context.Context, f *Frame) error {
	v, ok, err := bufferField(f, func(bc bufferClass) *jnivm.Field { return bc.address })
	if err != nil {
		return err
	}
	if !ok {
		f.Return(0)
		return nil
	}
	f.Return(uint64(uint32(v.Long())))
	return nil
}

func getDirectBufferCapacity(_ context.Context, f *Frame) error {
	v, ok, err := bufferField(f, func(bc bufferClass) *jnivm.Field { return bc.capacity })
	if err != nil {
		return err
	}
	if !ok {
		f.ReturnValue(jni.LongValue(-1))
		return nil
	}
	f.ReturnValue(jni.LongValue(int64(v.Int())))
	return nil
}

// Modules are not modelled.
func getModule(_ context.Context, f *Frame) error {
	if _, err := f.Env(); err != nil {
		return err
	}
	f.Return(uint64(jni.Null))
	return nil
}
