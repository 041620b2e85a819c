package hostfuncs

import (
	"context"
	"fmt"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/jni"
)

// ValueType is the type of one stack slot, using wasm value type codes.
type ValueType byte

const (
	I32 ValueType = 0x7f
	I64 ValueType = 0x7e
	F32 ValueType = 0x7d
	F64 ValueType = 0x7c
)

// ValueTypeOf returns the stack type values of kind k travel as. Void has
// none.
func ValueTypeOf(k jni.Kind) (ValueType, bool) {
	switch k {
	case jni.Boolean, jni.Byte, jni.Char, jni.Short, jni.Int, jni.Object, jni.Array:
		return I32, true
	case jni.Long:
		return I64, true
	case jni.Float:
		return F32, true
	case jni.Double:
		return F64, true
	}
	return 0, false
}

// Memory is the guest's linear memory.
type Memory interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
	// Allocate reserves size bytes in guest memory.
	Allocate(ctx context.Context, size uint32) (uint32, error)
	// Free releases memory obtained from Allocate.
	Free(ctx context.Context, ptr uint32) error
}

// NativeResolver turns guest function pointers into native targets.
type NativeResolver interface {
	FunctionAt(ctx context.Context, index uint32, sig string) (jnivm.Target, error)
}

// Frame is one call from guest code into the function table. Params arrive
// in Stack and results are written back from Stack[0].
type Frame struct {
	VM      *jnivm.VM
	Mem     Memory
	Natives NativeResolver
	Stack   []uint64

	env *jnivm.Env
}

// Env resolves the environment handle passed as the first argument of every
// native-interface function.
func (f *Frame) Env() (*jnivm.Env, error) {
	if f.env != nil {
		return f.env, nil
	}
	env, ok := f.VM.EnvByHandle(f.U32(0))
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoEnv, f.U32(0))
	}
	f.env = env
	return env, nil
}

// U32 returns parameter i as an unsigned 32-bit value.
func (f *Frame) U32(i int) uint32 { return uint32(f.Stack[i]) }

// I32 returns parameter i as a signed 32-bit value.
func (f *Frame) I32(i int) int32 { return int32(uint32(f.Stack[i])) }

// Ref returns parameter i as a reference.
func (f *Frame) Ref(i int) jni.Ref { return jni.Ref(f.U32(i)) }

// Value returns parameter i decoded as kind k.
func (f *Frame) Value(i int, k jni.Kind) jni.Value { return jni.FromBits(k, f.Stack[i]) }

// Return writes a single result.
func (f *Frame) Return(v uint64) { f.Stack[0] = v }

// ReturnI32 writes a signed 32-bit result.
func (f *Frame) ReturnI32(v int32) { f.Stack[0] = uint64(uint32(v)) }

// ReturnValue writes v in its stack encoding. Void writes nothing.
func (f *Frame) ReturnValue(v jni.Value) {
	if v.Kind() != jni.Void {
		f.Stack[0] = v.Bits()
	}
}

// Handler implements one native-interface function.
type Handler func(ctx context.Context, f *Frame) error

// Function is a named entry of the function table with its stack signature.
type Function struct {
	Name    string
	Params  []ValueType
	Results []ValueType
	Handler Handler
}

func fn(name string, params, results []ValueType, h Handler) Function {
	return Function{Name: name, Params: params, Results: results, Handler: h}
}

func types(ts ...ValueType) []ValueType { return ts }
