package wazero

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/tetratelabs/wazero/api"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/hostfuncs"
	"github.com/Dadoum/libjnivm/jni"
)

// Function adapts a guest function to jnivm.Target.
//
// Methods are called as (env, receiver, args...) with each argument in its
// stack encoding. Lifecycle hooks are called as (vm, reserved) with the
// runtime's VM handle and a zero reserved pointer.
type Function struct {
	fn      api.Function
	name    string
	library string
}

// NewFunction wraps fn. name is used in errors and library in the context
// handed to host functions the guest calls back into.
func NewFunction(fn api.Function, name, library string) *Function {
	return &Function{fn: fn, name: name, library: library}
}

// Name returns the symbol or table slot the function was resolved from.
func (f *Function) Name() string { return f.name }

func (f *Function) call(c *jnivm.Call, want jni.Kind) (uint64, error) {
	def := f.fn.Definition()
	if err := f.checkResult(def, want); err != nil {
		return 0, err
	}
	params := encodeParams(c)
	if c.Hook() {
		params = params[:min(len(params), len(def.ParamTypes()))]
	}
	if len(params) != len(def.ParamTypes()) {
		return 0, fmt.Errorf("%w: %s takes %d params, call passes %d",
			jnivm.ErrTargetMismatch, f.name, len(def.ParamTypes()), len(params))
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = WithLibraryName(WithVM(ctx, c.VM), f.library)
	results, err := f.fn.Call(ctx, params...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", f.name, err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}

// checkResult rejects guest functions whose result type cannot carry want.
// Void calls accept any result and drop it.
func (f *Function) checkResult(def api.FunctionDefinition, want jni.Kind) error {
	if want == jni.Void {
		return nil
	}
	vt, _ := hostfuncs.ValueTypeOf(want)
	if slices.Equal(def.ResultTypes(), []api.ValueType{api.ValueType(vt)}) {
		return nil
	}
	return fmt.Errorf("%w: %s returns %s, call expects %c",
		jnivm.ErrTargetMismatch, f.name, resultNames(def), byte(want))
}

func resultNames(def api.FunctionDefinition) string {
	if len(def.ResultTypes()) == 0 {
		return "nothing"
	}
	names := make([]string, len(def.ResultTypes()))
	for i, t := range def.ResultTypes() {
		names[i] = api.ValueTypeName(t)
	}
	return strings.Join(names, ",")
}

func encodeParams(c *jnivm.Call) []uint64 {
	if c.Hook() {
		return []uint64{uint64(hostfuncs.VMHandle), 0}
	}
	params := make([]uint64, 0, len(c.Args)+2)
	params = append(params, uint64(c.Env.Handle()), uint64(uint32(c.Receiver)))
	for _, a := range c.Args {
		params = append(params, encodeValue(a))
	}
	return params
}

func encodeValue(v jni.Value) uint64 {
	switch v.Kind() {
	case jni.Boolean:
		if v.Bool() {
			return 1
		}
		return 0
	case jni.Byte:
		return api.EncodeI32(int32(v.Byte()))
	case jni.Char:
		return uint64(v.Char())
	case jni.Short:
		return api.EncodeI32(int32(v.Short()))
	case jni.Int:
		return api.EncodeI32(v.Int())
	case jni.Long:
		return api.EncodeI64(v.Long())
	case jni.Float:
		return api.EncodeF32(v.Float())
	case jni.Double:
		return api.EncodeF64(v.Double())
	case jni.Object, jni.Array:
		return api.EncodeU32(uint32(v.Ref()))
	}
	return 0
}

func (f *Function) CallVoid(c *jnivm.Call) error {
	_, err := f.call(c, jni.Void)
	return err
}

func (f *Function) CallBoolean(c *jnivm.Call) (bool, error) {
	r, err := f.call(c, jni.Boolean)
	return uint8(r) != 0, err
}

func (f *Function) CallByte(c *jnivm.Call) (int8, error) {
	r, err := f.call(c, jni.Byte)
	return int8(r), err
}

func (f *Function) CallChar(c *jnivm.Call) (uint16, error) {
	r, err := f.call(c, jni.Char)
	return uint16(r), err
}

func (f *Function) CallShort(c *jnivm.Call) (int16, error) {
	r, err := f.call(c, jni.Short)
	return int16(r), err
}

func (f *Function) CallInt(c *jnivm.Call) (int32, error) {
	r, err := f.call(c, jni.Int)
	return api.DecodeI32(r), err
}

func (f *Function) CallLong(c *jnivm.Call) (int64, error) {
	r, err := f.call(c, jni.Long)
	return int64(r), err
}

func (f *Function) CallFloat(c *jnivm.Call) (float32, error) {
	r, err := f.call(c, jni.Float)
	return api.DecodeF32(r), err
}

func (f *Function) CallDouble(c *jnivm.Call) (float64, error) {
	r, err := f.call(c, jni.Double)
	return api.DecodeF64(r), err
}

func (f *Function) CallObject(c *jnivm.Call) (jni.Ref, error) {
	r, err := f.call(c, jni.Object)
	return jni.Ref(api.DecodeU32(r)), err
}
