package hostfuncs

import (
	"context"
	"fmt"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/jni"
)

type callMode int

const (
	virtualCall callMode = iota
	nonvirtualCall
	staticCall
)

// argForm is how a call passes its arguments: C varargs, a va_list or a
// jvalue array. In wasm32 varargs and va_list are both a pointer to the same
// packed argument area.
type argForm string

const (
	formVarargs argForm = ""
	formVaList  argForm = "V"
	formArray   argForm = "A"
)

var argForms = []argForm{formVarargs, formVaList, formArray}

// CallBundle returns the Call<Type>Method, CallNonvirtual<Type>Method and
// CallStatic<Type>Method families in all three argument forms, plus
// NewObject.
func CallBundle() Bundle {
	var fs []Function
	for _, form := range argForms {
		for _, k := range jni.Kinds {
			var results []ValueType
			if vt, ok := ValueTypeOf(k); ok {
				results = types(vt)
			}
			fs = append(fs,
				fn(fmt.Sprintf("Call%sMethod%s", k.Name(), form), types(I32, I32, I32, I32), results, callMethod(virtualCall, k, form)),
				fn(fmt.Sprintf("CallNonvirtual%sMethod%s", k.Name(), form), types(I32, I32, I32, I32, I32), results, callMethod(nonvirtualCall, k, form)),
				fn(fmt.Sprintf("CallStatic%sMethod%s", k.Name(), form), types(I32, I32, I32, I32), results, callMethod(staticCall, k, form)),
			)
		}
		fs = append(fs, fn("NewObject"+string(form), types(I32, I32, I32, I32), types(I32), newObject(form)))
	}
	return &staticBundle{functions: fs}
}

func readArgs(f *Frame, m *jnivm.Method, ptr uint32, form argForm) ([]jni.Value, error) {
	sig, err := jni.ParseSignature(m.Signature())
	if err != nil {
		return nil, err
	}
	if len(sig.Params) == 0 {
		return nil, nil
	}
	if form == formArray {
		return readJValues(f.Mem, ptr, sig.Params)
	}
	return readVarArgs(f.Mem, ptr, sig.Params)
}

func callMethod(mode callMode, kind jni.Kind, form argForm) Handler {
	midIdx, argsIdx := 2, 3
	if mode == nonvirtualCall {
		midIdx, argsIdx = 3, 4
	}
	return func(_ context.Context, f *Frame) error {
		env, err := f.Env()
		if err != nil {
			return err
		}
		m, err := resolveAs[*jnivm.Method](env, f.Ref(midIdx), "method ID")
		if err != nil {
			return err
		}

		var ret jni.Value
		if mode == staticCall {
			cls, err := resolveAs[*jnivm.Class](env, f.Ref(1), "class")
			if err != nil {
				return err
			}
			args, err := readArgs(f, m, f.U32(argsIdx), form)
			if err != nil {
				return err
			}
			ret, err = m.InvokeStatic(env, cls, toArgs(args)...)
			if err != nil {
				return err
			}
		} else {
			obj, err := resolveAs[jnivm.Entity](env, f.Ref(1), "object")
			if err != nil {
				return err
			}
			if mode == virtualCall {
				m = override(f.VM, obj, m)
			}
			args, err := readArgs(f, m, f.U32(argsIdx), form)
			if err != nil {
				return err
			}
			ret, err = m.InvokeInstance(env, obj, toArgs(args)...)
			if err != nil {
				return err
			}
		}

		if kind == jni.Void {
			return nil
		}
		conv, err := ret.As(kind)
		if err != nil {
			return fmt.Errorf("%w: %s called as %s: %v", ErrWrongType, m, kind.Name(), err)
		}
		f.ReturnValue(conv)
		return nil
	}
}

// override finds the method obj's runtime class uses for m.
func override(vm *jnivm.VM, obj jnivm.Entity, m *jnivm.Method) *jnivm.Method {
	c := vm.ClassOf(obj)
	if c == nil || c == m.Class() {
		return m
	}
	if om := c.Method(m.Name(), m.Signature()); om != nil {
		return om
	}
	return m
}

func newObject(form argForm) Handler {
	return func(_ context.Context, f *Frame) error {
		env, err := f.Env()
		if err != nil {
			return err
		}
		cls, err := resolveAs[*jnivm.Class](env, f.Ref(1), "class")
		if err != nil {
			return err
		}
		ctor, err := resolveAs[*jnivm.Method](env, f.Ref(2), "method ID")
		if err != nil {
			return err
		}
		args, err := readArgs(f, ctor, f.U32(3), form)
		if err != nil {
			return err
		}
		obj := cls.NewInstance()
		if _, err := ctor.InvokeInstance(env, obj, toArgs(args)...); err != nil {
			return err
		}
		f.Return(uint64(env.NewLocalRef(obj)))
		return nil
	}
}
