package jnivm

import (
	"context"
	"fmt"
	"reflect"

	"github.com/Dadoum/libjnivm/jni"
)

// Call carries one invocation across the native boundary.
type Call struct {
	Context context.Context
	VM      *VM
	// Env is nil when a library lifecycle hook is invoked.
	Env *Env
	// Method is nil when a library lifecycle hook is invoked.
	Method *Method
	// Receiver is a class handle for static methods and an object handle for
	// instance methods.
	Receiver jni.Ref
	Args     []jni.Value
}

// Hook reports whether the call is a library lifecycle hook rather than a
// method invocation.
func (c *Call) Hook() bool { return c.Env == nil }

// Target is an opaque native entry point. Each Call method performs the call
// treating the entry point as a function returning that type; the dispatch
// core picks exactly one of them from the signature's return type code.
type Target interface {
	CallVoid(c *Call) error
	CallBoolean(c *Call) (bool, error)
	CallByte(c *Call) (int8, error)
	CallChar(c *Call) (uint16, error)
	CallShort(c *Call) (int16, error)
	CallInt(c *Call) (int32, error)
	CallLong(c *Call) (int64, error)
	CallFloat(c *Call) (float32, error)
	CallDouble(c *Call) (float64, error)
	CallObject(c *Call) (jni.Ref, error)
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	envType     = reflect.TypeOf((*Env)(nil))
	vmType      = reflect.TypeOf((*VM)(nil))
	refType     = reflect.TypeOf(jni.Null)
	valueType   = reflect.TypeOf(jni.Value{})
	entityType  = reflect.TypeOf((*Entity)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	stringType  = reflect.TypeOf("")
)

// GoTarget adapts an ordinary Go function into a Target.
//
// Leading parameters of type context.Context, *VM or *Env are filled from the
// call. For method calls the next parameter receives the receiver, then one
// parameter per signature argument. Receivers and object arguments may be
// declared as jni.Ref, as Entity or any concrete entity type, or as string
// for java/lang/String. A trailing error result raises a managed exception.
type GoTarget struct {
	fn       reflect.Value
	typ      reflect.Type
	name     string
	inject   int
	hasError bool
}

// NewGoTarget wraps fn, which must be a non-variadic function.
func NewGoTarget(name string, fn any) (*GoTarget, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: %s: expected func, got %T", ErrTargetMismatch, name, fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: %s: variadic functions are not supported", ErrTargetMismatch, name)
	}
	g := &GoTarget{fn: v, typ: t, name: name}
	for g.inject < t.NumIn() && injected(t.In(g.inject)) {
		g.inject++
	}
	outs := t.NumOut()
	if outs > 0 && t.Out(outs-1) == errorType {
		g.hasError = true
		outs--
	}
	if outs > 1 {
		return nil, fmt.Errorf("%w: %s: at most one result besides error", ErrTargetMismatch, name)
	}
	return g, nil
}

func injected(t reflect.Type) bool {
	return t == contextType || t == envType || t == vmType
}

// MustGoTarget is NewGoTarget for statically known functions.
func MustGoTarget(name string, fn any) *GoTarget {
	g, err := NewGoTarget(name, fn)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *GoTarget) String() string { return g.name }

func (g *GoTarget) call(c *Call) (out []reflect.Value, err error) {
	in := make([]reflect.Value, 0, g.typ.NumIn())
	for i := 0; i < g.inject; i++ {
		switch g.typ.In(i) {
		case contextType:
			ctx := c.Context
			if ctx == nil {
				ctx = context.Background()
			}
			in = append(in, reflect.ValueOf(ctx))
		case envType:
			in = append(in, reflect.ValueOf(c.Env))
		case vmType:
			in = append(in, reflect.ValueOf(c.VM))
		}
	}

	rest := g.typ.NumIn() - g.inject
	if c.Hook() {
		// Hooks take optional trailing parameters such as the reserved pointer.
		for i := 0; i < rest; i++ {
			p := g.typ.In(g.inject + i)
			if i < len(c.Args) {
				v, err := convertIn(c, p, c.Args[i])
				if err != nil {
					return nil, err
				}
				in = append(in, v)
				continue
			}
			in = append(in, reflect.Zero(p))
		}
	} else {
		if rest != len(c.Args)+1 {
			return nil, fmt.Errorf("%w: %s takes %d arguments after the receiver, signature has %d",
				ErrArgumentCount, g.name, rest-1, len(c.Args))
		}
		recv, err := convertIn(c, g.typ.In(g.inject), jni.ObjectValue(c.Receiver))
		if err != nil {
			return nil, err
		}
		in = append(in, recv)
		for i, a := range c.Args {
			v, err := convertIn(c, g.typ.In(g.inject+1+i), a)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			in = append(in, v)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %s: %v", ErrNativePanic, g.name, r)
		}
	}()
	out = g.fn.Call(in)
	if g.hasError {
		if e := out[len(out)-1]; !e.IsNil() {
			return nil, e.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	return out, nil
}

func convertIn(c *Call, p reflect.Type, v jni.Value) (reflect.Value, error) {
	switch {
	case p == valueType:
		return reflect.ValueOf(v), nil
	case p == refType:
		return reflect.ValueOf(v.Ref()), nil
	case p == stringType && v.Kind().IsReference():
		e, err := resolveFor(c, v.Ref())
		if err != nil {
			return reflect.Value{}, err
		}
		s, ok := e.(*String)
		if !ok && e != nil {
			return reflect.Value{}, fmt.Errorf("%w: %T is not a string", ErrArgumentType, e)
		}
		if s == nil {
			return reflect.ValueOf(""), nil
		}
		return reflect.ValueOf(s.Value), nil
	case p.Implements(entityType) || p == entityType:
		if !v.Kind().IsReference() {
			return reflect.Value{}, fmt.Errorf("%w: %s value for %s parameter", ErrArgumentType, v.Kind().Name(), p)
		}
		e, err := resolveFor(c, v.Ref())
		if err != nil {
			return reflect.Value{}, err
		}
		if e == nil {
			return reflect.Zero(p), nil
		}
		ev := reflect.ValueOf(e)
		if !ev.Type().AssignableTo(p) {
			return reflect.Value{}, fmt.Errorf("%w: %T is not assignable to %s", ErrArgumentType, e, p)
		}
		return ev, nil
	}

	k, ok := kindOfGo(p)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: unsupported parameter type %s", ErrTargetMismatch, p)
	}
	conv, err := v.As(k)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %v", ErrArgumentType, err)
	}
	return reflect.ValueOf(conv.Interface()).Convert(p), nil
}

func resolveFor(c *Call, r jni.Ref) (Entity, error) {
	if r == jni.Null {
		return nil, nil
	}
	if c.Env != nil {
		return c.Env.Resolve(r)
	}
	if c.VM != nil && r.IsGlobal() {
		return c.VM.ResolveGlobal(r)
	}
	return nil, fmt.Errorf("%w: %#x", ErrInvalidRef, uint32(r))
}

// kindOfGo maps a Go parameter or result type onto a primitive type code.
func kindOfGo(t reflect.Type) (jni.Kind, bool) {
	switch t.Kind() {
	case reflect.Bool:
		return jni.Boolean, true
	case reflect.Int8, reflect.Uint8:
		return jni.Byte, true
	case reflect.Uint16:
		return jni.Char, true
	case reflect.Int16:
		return jni.Short, true
	case reflect.Int32, reflect.Uint32, reflect.Int:
		return jni.Int, true
	case reflect.Int64, reflect.Uint64:
		return jni.Long, true
	case reflect.Float32:
		return jni.Float, true
	case reflect.Float64:
		return jni.Double, true
	}
	return 0, false
}

// result converts the single Go result into a value of kind want.
func (g *GoTarget) result(c *Call, out []reflect.Value, want jni.Kind) (jni.Value, error) {
	if len(out) == 0 {
		return jni.Value{}, fmt.Errorf("%w: %s returns nothing, signature returns %s", ErrTargetMismatch, g.name, want.Name())
	}
	r := out[0]
	if want.IsReference() {
		return g.objectResult(c, r)
	}
	if r.Type() == valueType {
		v := r.Interface().(jni.Value)
		if v.Kind() != want {
			return jni.Value{}, fmt.Errorf("%w: %s returned %s, signature returns %s", ErrTargetMismatch, g.name, v.Kind().Name(), want.Name())
		}
		return v, nil
	}
	k, ok := kindOfGo(r.Type())
	if !ok || k != want {
		return jni.Value{}, fmt.Errorf("%w: %s returns %s, signature returns %s", ErrTargetMismatch, g.name, r.Type(), want.Name())
	}
	switch want {
	case jni.Boolean:
		return jni.BooleanValue(r.Bool()), nil
	case jni.Byte:
		if r.Kind() == reflect.Uint8 {
			return jni.ByteValue(int8(r.Uint())), nil
		}
		return jni.ByteValue(int8(r.Int())), nil
	case jni.Char:
		return jni.CharValue(uint16(r.Uint())), nil
	case jni.Short:
		return jni.ShortValue(int16(r.Int())), nil
	case jni.Int:
		if r.Kind() == reflect.Uint32 {
			return jni.IntValue(int32(r.Uint())), nil
		}
		return jni.IntValue(int32(r.Int())), nil
	case jni.Long:
		if r.Kind() == reflect.Uint64 {
			return jni.LongValue(int64(r.Uint())), nil
		}
		return jni.LongValue(r.Int()), nil
	case jni.Float:
		return jni.FloatValue(float32(r.Float())), nil
	case jni.Double:
		return jni.DoubleValue(r.Float()), nil
	}
	return jni.Value{}, fmt.Errorf("%w: %s", ErrUnsupportedSignature, want)
}

func (g *GoTarget) objectResult(c *Call, r reflect.Value) (jni.Value, error) {
	switch {
	case r.Type() == refType:
		return jni.ObjectValue(r.Interface().(jni.Ref)), nil
	case r.Type() == valueType:
		v := r.Interface().(jni.Value)
		if !v.Kind().IsReference() {
			return jni.Value{}, fmt.Errorf("%w: %s returned %s, signature returns an object", ErrTargetMismatch, g.name, v.Kind().Name())
		}
		return v, nil
	case r.Type() == stringType:
		if c.Env == nil {
			return jni.Value{}, fmt.Errorf("%w: %s: no environment for string result", ErrTargetMismatch, g.name)
		}
		return jni.ObjectValue(c.Env.NewString(r.String())), nil
	case r.Type().Implements(entityType):
		if c.Env == nil {
			return jni.Value{}, fmt.Errorf("%w: %s: no environment for object result", ErrTargetMismatch, g.name)
		}
		if (r.Kind() == reflect.Interface || r.Kind() == reflect.Pointer) && r.IsNil() {
			return jni.ObjectValue(jni.Null), nil
		}
		return jni.ObjectValue(c.Env.NewLocalRef(r.Interface().(Entity))), nil
	}
	return jni.Value{}, fmt.Errorf("%w: %s returns %s, signature returns an object", ErrTargetMismatch, g.name, r.Type())
}

func (g *GoTarget) callAs(c *Call, want jni.Kind) (jni.Value, error) {
	out, err := g.call(c)
	if err != nil {
		return jni.Value{}, err
	}
	return g.result(c, out, want)
}

func (g *GoTarget) CallVoid(c *Call) error {
	_, err := g.call(c)
	return err
}

func (g *GoTarget) CallBoolean(c *Call) (bool, error) {
	v, err := g.callAs(c, jni.Boolean)
	return v.Bool(), err
}

func (g *GoTarget) CallByte(c *Call) (int8, error) {
	v, err := g.callAs(c, jni.Byte)
	return v.Byte(), err
}

func (g *GoTarget) CallChar(c *Call) (uint16, error) {
	v, err := g.callAs(c, jni.Char)
	return v.Char(), err
}

func (g *GoTarget) CallShort(c *Call) (int16, error) {
	v, err := g.callAs(c, jni.Short)
	return v.Short(), err
}

func (g *GoTarget) CallInt(c *Call) (int32, error) {
	v, err := g.callAs(c, jni.Int)
	return v.Int(), err
}

func (g *GoTarget) CallLong(c *Call) (int64, error) {
	v, err := g.callAs(c, jni.Long)
	return v.Long(), err
}

func (g *GoTarget) CallFloat(c *Call) (float32, error) {
	v, err := g.callAs(c, jni.Float)
	return v.Float(), err
}

func (g *GoTarget) CallDouble(c *Call) (float64, error) {
	v, err := g.callAs(c, jni.Double)
	return v.Double(), err
}

func (g *GoTarget) CallObject(c *Call) (jni.Ref, error) {
	v, err := g.callAs(c, jni.Object)
	return v.Ref(), err
}
