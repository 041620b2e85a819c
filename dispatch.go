package jnivm

import (
	"fmt"

	"github.com/Dadoum/libjnivm/jni"
)

// invoker is the typed call path of one native method, fixed at bind time.
type invoker func(c *Call) (jni.Value, error)

// returnAdapters selects, by return type code, which typed call to make on a
// Target and how to wrap its raw result.
var returnAdapters = map[jni.Kind]func(Target) invoker{
	jni.Void: func(t Target) invoker {
		return func(c *Call) (jni.Value, error) {
			return jni.VoidValue(), t.CallVoid(c)
		}
	},
	jni.Boolean: func(t Target) invoker {
		return func(c *Call) (jni.Value, error) {
			v, err := t.CallBoolean(c)
			return jni.BooleanValue(v), err
		}
	},
	jni.Byte: func(t Target) invoker {
		return func(c *Call) (jni.Value, error) {
			v, err := t.CallByte(c)
			return jni.ByteValue(v), err
		}
	},
	jni.Char: func(t Target) invoker {
		return func(c *Call) (jni.Value, error) {
			v, err := t.CallChar(c)
			return jni.CharValue(v), err
		}
	},
	jni.Short: func(t Target) invoker {
		return func(c *Call) (jni.Value, error) {
			v, err := t.CallShort(c)
			return jni.ShortValue(v), err
		}
	},
	jni.Int: func(t Target) invoker {
		return func(c *Call) (jni.Value, error) {
			v, err := t.CallInt(c)
			return jni.IntValue(v), err
		}
	},
	jni.Long: func(t Target) invoker {
		return func(c *Call) (jni.Value, error) {
			v, err := t.CallLong(c)
			return jni.LongValue(v), err
		}
	},
	jni.Float: func(t Target) invoker {
		return func(c *Call) (jni.Value, error) {
			v, err := t.CallFloat(c)
			return jni.FloatValue(v), err
		}
	},
	jni.Double: func(t Target) invoker {
		return func(c *Call) (jni.Value, error) {
			v, err := t.CallDouble(c)
			return jni.DoubleValue(v), err
		}
	},
	jni.Object: objectAdapter,
	jni.Array:  objectAdapter,
}

func objectAdapter(t Target) invoker {
	return func(c *Call) (jni.Value, error) {
		v, err := t.CallObject(c)
		return jni.ObjectValue(v), err
	}
}

// adapt builds the invoker for m. An unknown return type code yields an
// invoker that fails every call rather than guessing a type.
func adapt(m *Method, t Target) invoker {
	kind := m.ReturnKind()
	if a, ok := returnAdapters[kind]; ok {
		return a(t)
	}
	err := &SignatureError{
		Err:       fmt.Errorf("%w: return type %q", ErrUnsupportedSignature, byte(kind)),
		Class:     m.class.name,
		Method:    m.name,
		Signature: m.signature,
	}
	return func(*Call) (jni.Value, error) {
		return jni.Value{}, err
	}
}

// InvokeStatic calls m with a class receiver. A nil cls means the declaring
// class.
func (m *Method) InvokeStatic(env *Env, cls *Class, args ...any) (jni.Value, error) {
	if cls == nil {
		cls = m.class
	}
	return m.invoke(env, cls, args)
}

// InvokeInstance calls m with an instance receiver.
func (m *Method) InvokeInstance(env *Env, obj Entity, args ...any) (jni.Value, error) {
	return m.invoke(env, obj, args)
}

// Invoke calls m, choosing the receiver kind from the method: static methods
// get their declaring class, instance methods get recv.
func (m *Method) Invoke(env *Env, recv Entity, args ...any) (jni.Value, error) {
	if m.IsStatic() {
		cls, _ := recv.(*Class)
		return m.InvokeStatic(env, cls, args...)
	}
	return m.InvokeInstance(env, recv, args...)
}

// invoke is the dispatch core shared by both receiver kinds. It always ends by
// checking the environment's pending exception slot: a pending exception is
// returned as an *Exception and the computed value is discarded.
func (m *Method) invoke(env *Env, recv Entity, args []any) (jni.Value, error) {
	if env.pending != nil {
		return jni.Value{}, fmt.Errorf("call %s: %w", m, ErrExceptionPending)
	}

	env.pushFrame()
	ret := m.call(env, recv, args)
	// Object results must survive the callee frame.
	var out Entity
	if ret.Kind().IsReference() && ret.Ref() != jni.Null && env.pending == nil {
		e, err := env.Resolve(ret.Ref())
		if err != nil {
			env.Raise(fmt.Errorf("result of %s: %w", m, err))
		}
		out = e
	}
	env.popFrame()

	if exc := env.takeException(); exc != nil {
		return jni.Value{}, exc
	}
	if out != nil {
		ret = jni.ObjectValue(env.NewLocalRef(out))
	}
	return ret, nil
}

func (m *Method) call(env *Env, recv Entity, args []any) jni.Value {
	vals, err := env.marshalArgs(m, args)
	if err != nil {
		env.Raise(err)
		return jni.Value{}
	}
	if m.IsNative() {
		return m.callNative(env, recv, vals)
	}
	return m.jinvoke(env, recv, vals)
}

func (m *Method) callNative(env *Env, recv Entity, vals []jni.Value) jni.Value {
	env.vm.observeNativeCall(m)
	inv := m.boundInvoker()
	if inv == nil {
		if !env.vm.resolveNative(m) {
			env.Raise(&SignatureError{Err: ErrNoNativeTarget, Class: m.class.name, Method: m.name, Signature: m.signature})
			return jni.Value{}
		}
		inv = m.boundInvoker()
	}
	ret, err := inv(&Call{
		Context:  env.Context(),
		VM:       env.vm,
		Env:      env,
		Method:   m,
		Receiver: env.NewLocalRef(recv),
		Args:     vals,
	})
	if err != nil {
		env.Raise(err)
		return jni.Value{}
	}
	return ret
}

// jinvoke runs a method implemented by the host. Methods declared on demand
// have no body and yield the zero value of their return type.
func (m *Method) jinvoke(env *Env, recv Entity, vals []jni.Value) (ret jni.Value) {
	kind := m.ReturnKind()
	if !kind.Valid() {
		env.Raise(&SignatureError{
			Err:       fmt.Errorf("%w: return type %q", ErrUnsupportedSignature, byte(kind)),
			Class:     m.class.name,
			Method:    m.name,
			Signature: m.signature,
		})
		return jni.Value{}
	}
	body := m.hostBody()
	if body == nil {
		env.vm.observeUnimplemented(m)
		env.vm.logger.Debug("jnivm: call to unimplemented method", "class", m.class.name, "method", m.name, "signature", m.signature)
		return jni.Zero(kind)
	}

	defer func() {
		if r := recover(); r != nil {
			env.Raise(fmt.Errorf("%w: %s: %v", ErrNativePanic, m, r))
			ret = jni.Value{}
		}
	}()
	v, err := body(env, recv, vals)
	if err != nil {
		env.Raise(err)
		return jni.Value{}
	}
	if kind == jni.Void {
		return jni.VoidValue()
	}
	if v.Kind() == jni.Void {
		return jni.Zero(kind)
	}
	conv, err := v.As(kind)
	if err != nil {
		env.Raise(fmt.Errorf("%w: %s: %v", ErrTargetMismatch, m, err))
		return jni.Value{}
	}
	return conv
}
