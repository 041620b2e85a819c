package jnivm

import (
	"fmt"
	"reflect"

	"github.com/Dadoum/libjnivm/jni"
)

// marshal converts one caller argument into a runtime value. Entities and
// strings become local references in the current frame.
func (env *Env) marshal(arg any) (jni.Value, error) {
	switch v := arg.(type) {
	case nil:
		return jni.ObjectValue(jni.Null), nil
	case jni.Value:
		return v, nil
	case jni.Ref:
		return jni.ObjectValue(v), nil
	case bool:
		return jni.BooleanValue(v), nil
	case int8:
		return jni.ByteValue(v), nil
	case uint8:
		return jni.ByteValue(int8(v)), nil
	case uint16:
		return jni.CharValue(v), nil
	case int16:
		return jni.ShortValue(v), nil
	case int32:
		return jni.IntValue(v), nil
	case int:
		return jni.IntValue(int32(v)), nil
	case int64:
		return jni.LongValue(v), nil
	case float32:
		return jni.FloatValue(v), nil
	case float64:
		return jni.DoubleValue(v), nil
	case string:
		return jni.ObjectValue(env.NewString(v)), nil
	case Entity:
		if isNil(v) {
			return jni.ObjectValue(jni.Null), nil
		}
		return jni.ObjectValue(env.NewLocalRef(v)), nil
	}
	return jni.Value{}, fmt.Errorf("%w: cannot pass %T", ErrArgumentType, arg)
}

// marshalArgs runs every argument through marshal and, when the signature
// parses, checks the count and coerces each value to its parameter type.
func (env *Env) marshalArgs(m *Method, args []any) ([]jni.Value, error) {
	if m.sigErr == nil && len(args) != len(m.sig.Params) {
		return nil, &SignatureError{
			Err:       fmt.Errorf("%w: got %d, want %d", ErrArgumentCount, len(args), len(m.sig.Params)),
			Class:     m.class.name,
			Method:    m.name,
			Signature: m.signature,
		}
	}
	vals := make([]jni.Value, len(args))
	for i, a := range args {
		v, err := env.marshal(a)
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", m, i, err)
		}
		if m.sigErr == nil {
			v, err = v.As(m.sig.Params[i].Kind)
			if err != nil {
				return nil, fmt.Errorf("%s argument %d: %w: %v", m, i, ErrArgumentType, err)
			}
		}
		vals[i] = v
	}
	return vals, nil
}

func isNil(e Entity) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
