package hostfuncs

import (
	"context"
	"fmt"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/jni"
)

// FieldBundle returns Get<Type>Field, Set<Type>Field and their static
// forms.
func FieldBundle() Bundle {
	var fs []Function
	for _, k := range jni.Kinds {
		if k == jni.Void {
			continue
		}
		vt, _ := ValueTypeOf(k)
		fs = append(fs,
			fn("Get"+k.Name()+"Field", types(I32, I32, I32), types(vt), getField(k, false)),
			fn("Set"+k.Name()+"Field", types(I32, I32, I32, vt), nil, setField(k, false)),
			fn("GetStatic"+k.Name()+"Field", types(I32, I32, I32), types(vt), getField(k, true)),
			fn("SetStatic"+k.Name()+"Field", types(I32, I32, I32, vt), nil, setField(k, true)),
		)
	}
	return &staticBundle{functions: fs}
}

// fieldTarget resolves the (object or class, field ID) pair every field
// function starts with. Static access has no instance.
func fieldTarget(f *Frame, static bool) (*jnivm.Env, jnivm.Entity, *jnivm.Field, error) {
	env, err := f.Env()
	if err != nil {
		return nil, nil, nil, err
	}
	field, err := resolveAs[*jnivm.Field](env, f.Ref(2), "field ID")
	if err != nil {
		return nil, nil, nil, err
	}
	if static {
		if _, err := resolveAs[*jnivm.Class](env, f.Ref(1), "class"); err != nil {
			return nil, nil, nil, err
		}
		if !field.IsStatic() {
			return nil, nil, nil, fmt.Errorf("%w: %s is not static", ErrWrongType, field)
		}
		return env, nil, field, nil
	}
	obj, err := resolveAs[jnivm.Entity](env, f.Ref(1), "object")
	if err != nil {
		return nil, nil, nil, err
	}
	return env, obj, field, nil
}

func getField(kind jni.Kind, static bool) Handler {
	return func(_ context.Context, f *Frame) error {
		env, obj, field, err := fieldTarget(f, static)
		if err != nil {
			return err
		}
		v, err := env.GetField(obj, field)
		if err != nil {
			return err
		}
		conv, err := v.As(kind)
		if err != nil {
			return fmt.Errorf("%w: %s read as %s: %v", ErrWrongType, field, kind.Name(), err)
		}
		f.ReturnValue(conv)
		return nil
	}
}

func setField(kind jni.Kind, static bool) Handler {
	return func(_ context.Context, f *Frame) error {
		env, obj, field, err := fieldTarget(f, static)
		if err != nil {
			return err
		}
		return env.SetField(obj, field, f.Value(3, kind))
	}
}
