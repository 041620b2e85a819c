package jnivm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dadoum/libjnivm/jni"
)

func newTestEnv(t *testing.T, opts ...Option) (*VM, *Env) {
	t.Helper()
	vm := New(opts...)
	env := vm.GetEnv(WithThread(context.Background(), 1))
	return vm, env
}

func TestDispatch_NativeSentinels(t *testing.T) {
	vm, env := newTestEnv(t)
	cls := vm.DefineClass("com/example/Sentinels", nil)

	tests := []struct {
		sig  string
		fn   any
		want jni.Value
	}{
		{"()Z", func(jni.Ref) bool { return true }, jni.BooleanValue(true)},
		{"()B", func(jni.Ref) int8 { return -7 }, jni.ByteValue(-7)},
		{"()C", func(jni.Ref) uint16 { return 0xBEEF }, jni.CharValue(0xBEEF)},
		{"()S", func(jni.Ref) int16 { return -1234 }, jni.ShortValue(-1234)},
		{"()I", func(jni.Ref) int32 { return 0x7EADBEEF }, jni.IntValue(0x7EADBEEF)},
		{"()J", func(jni.Ref) int64 { return -0x123456789A }, jni.LongValue(-0x123456789A)},
		{"()F", func(jni.Ref) float32 { return 3.5 }, jni.FloatValue(3.5)},
		{"()D", func(jni.Ref) float64 { return -2.25 }, jni.DoubleValue(-2.25)},
	}
	for _, tt := range tests {
		t.Run(tt.sig, func(t *testing.T) {
			m := cls.DefineNative("get", tt.sig, true)
			m.Bind(MustGoTarget(tt.sig, tt.fn))

			got, err := m.InvokeStatic(env, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind(), got.Kind())
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("()Ljava/lang/String;", func(t *testing.T) {
		m := cls.DefineNative("get", "()Ljava/lang/String;", true)
		m.Bind(MustGoTarget("string", func(jni.Ref) string { return "sentinel" }))

		got, err := m.InvokeStatic(env, nil)
		require.NoError(t, err)
		assert.Equal(t, jni.Object, got.Kind())

		e, err := env.Resolve(got.Ref())
		require.NoError(t, err)
		s, ok := e.(*String)
		require.True(t, ok)
		assert.Equal(t, "sentinel", s.Value)
	})
}

func TestDispatch_Void(t *testing.T) {
	vm, env := newTestEnv(t)
	cls := vm.DefineClass("com/example/Void", nil)

	calls := 0
	m := cls.DefineNative("run", "()V", true)
	m.Bind(MustGoTarget("run", func(jni.Ref) { calls++ }))

	got, err := m.InvokeStatic(env, nil)
	require.NoError(t, err)
	assert.Equal(t, jni.Void, got.Kind())
	assert.Equal(t, 1, calls)

	// A Go native with a result bound to a void method still succeeds.
	m.Bind(MustGoTarget("run", func(jni.Ref) int32 { calls++; return 5 }))
	got, err = m.InvokeStatic(env, nil)
	require.NoError(t, err)
	assert.Equal(t, jni.VoidValue(), got)
	assert.Equal(t, 2, calls)
}

func TestDispatch_Receivers(t *testing.T) {
	vm, env := newTestEnv(t)
	cls := vm.DefineClass("com/example/Receivers", nil)
	obj := cls.NewInstance()

	type seen struct {
		recv Entity
		a    int32
		b    int64
	}
	var static, instance seen

	ms := cls.DefineNative("s", "(IJ)V", true)
	ms.Bind(MustGoTarget("s", func(recv *Class, a int32, b int64) {
		static = seen{recv, a, b}
	}))
	mi := cls.DefineNative("i", "(IJ)V", false)
	mi.Bind(MustGoTarget("i", func(recv *Instance, a int32, b int64) {
		instance = seen{recv, a, b}
	}))

	_, err := ms.InvokeStatic(env, nil, 7, int64(9))
	require.NoError(t, err)
	_, err = mi.InvokeInstance(env, obj, 7, int64(9))
	require.NoError(t, err)

	assert.Same(t, cls, static.recv)
	assert.Same(t, obj, instance.recv)
	assert.Equal(t, static.a, instance.a)
	assert.Equal(t, static.b, instance.b)

	t.Run("Invoke picks the receiver", func(t *testing.T) {
		_, err := ms.Invoke(env, nil, 1, int64(2))
		require.NoError(t, err)
		assert.Same(t, cls, static.recv)
		_, err = mi.Invoke(env, obj, 3, int64(4))
		require.NoError(t, err)
		assert.Equal(t, int32(3), instance.a)
	})
}

func TestDispatch_ExceptionFromCallee(t *testing.T) {
	vm, env := newTestEnv(t)
	cls := vm.DefineClass("com/example/Thrower", nil)
	isx := vm.DefineClass("java/lang/IllegalStateException", vm.MustFindClass("java/lang/RuntimeException"))

	m := cls.DefineNative("get", "()I", true)
	m.Bind(MustGoTarget("get", func(env *Env, _ jni.Ref) int32 {
		require.NoError(t, env.ThrowNew(isx, "boom"))
		return 42
	}))

	got, err := m.InvokeStatic(env, nil)
	require.Error(t, err)
	assert.Equal(t, jni.Value{}, got)

	var exc *Exception
	require.ErrorAs(t, err, &exc)
	th, ok := exc.Throwable()
	require.True(t, ok)
	assert.Same(t, isx, th.Class())
	assert.Equal(t, "boom", th.Message)
	assert.False(t, env.ExceptionCheck())
}

func TestDispatch_ErrorResultBecomesException(t *testing.T) {
	vm, env := newTestEnv(t)
	cls := vm.DefineClass("com/example/Failing", nil)
	errBroken := errors.New("broken")

	m := cls.DefineNative("get", "()J", true)
	m.Bind(MustGoTarget("get", func(jni.Ref) (int64, error) { return 0, errBroken }))

	_, err := m.InvokeStatic(env, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken)

	var exc *Exception
	require.ErrorAs(t, err, &exc)
	assert.Equal(t, "java/lang/RuntimeException", exc.Value.Base().Class().Name())
}

func TestDispatch_UnsupportedSignature(t *testing.T) {
	vm, env := newTestEnv(t)
	cls := vm.DefineClass("com/example/Bad", nil)

	t.Run("native", func(t *testing.T) {
		called := false
		m := cls.DefineNative("bad", "()Q", true)
		m.Bind(MustGoTarget("bad", func(jni.Ref) int32 { called = true; return 1 }))

		got, err := m.InvokeStatic(env, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedSignature)
		assert.Equal(t, jni.Value{}, got)
		assert.False(t, called)
	})

	t.Run("host", func(t *testing.T) {
		m := cls.DefineMethod("bad", "(I)", true, func(*Env, Entity, []jni.Value) (jni.Value, error) {
			return jni.IntValue(1), nil
		})
		_, err := m.InvokeStatic(env, nil, 1)
		assert.ErrorIs(t, err, ErrUnsupportedSignature)
	})
}

func TestDispatch_RefusesWhilePending(t *testing.T) {
	vm, env := newTestEnv(t)
	cls := vm.DefineClass("com/example/Pending", nil)
	m := cls.DefineMethod("get", "()I", true, func(*Env, Entity, []jni.Value) (jni.Value, error) {
		return jni.IntValue(1), nil
	})

	require.NoError(t, env.ThrowNew(nil, "first"))
	_, err := m.InvokeStatic(env, nil)
	assert.ErrorIs(t, err, ErrExceptionPending)
	assert.True(t, env.ExceptionCheck())

	env.ExceptionClear()
	got, err := m.InvokeStatic(env, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.Int())
}

func TestDispatch_Reentrant(t *testing.T) {
	vm, env := newTestEnv(t)
	cls := vm.DefineClass("com/example/Nested", nil)

	inner := cls.DefineMethod("inner", "(I)I", true, func(_ *Env, _ Entity, args []jni.Value) (jni.Value, error) {
		return jni.IntValue(args[0].Int() * 2), nil
	})
	thrower := cls.DefineMethod("thrower", "()V", true, func(env *Env, _ Entity, _ []jni.Value) (jni.Value, error) {
		return jni.Value{}, env.ThrowNew(vm.MustFindClass("java/lang/IllegalArgumentException"), "nested")
	})

	outer := cls.DefineNative("outer", "(I)I", true)
	outer.Bind(MustGoTarget("outer", func(env *Env, _ jni.Ref, v int32) (int32, error) {
		r, err := inner.InvokeStatic(env, nil, v)
		if err != nil {
			return 0, err
		}
		return r.Int() + 1, nil
	}))
	failing := cls.DefineNative("failing", "()I", true)
	failing.Bind(MustGoTarget("failing", func(env *Env, _ jni.Ref) (int32, error) {
		if _, err := thrower.InvokeStatic(env, nil); err != nil {
			return 0, err
		}
		return 1, nil
	}))

	got, err := outer.InvokeStatic(env, nil, 20)
	require.NoError(t, err)
	assert.Equal(t, int32(41), got.Int())
	assert.False(t, env.ExceptionCheck())

	_, err = failing.InvokeStatic(env, nil)
	var exc *Exception
	require.ErrorAs(t, err, &exc)
	th, _ := exc.Throwable()
	assert.Equal(t, "nested", th.Message)
	assert.Equal(t, "java/lang/IllegalArgumentException", th.Class().Name())
	assert.False(t, env.ExceptionCheck())
}

func TestDispatch_Arguments(t *testing.T) {
	vm, env := newTestEnv(t)
	cls := vm.DefineClass("com/example/Args", nil)

	double := cls.DefineMethod("double", "(J)J", true, func(_ *Env, _ Entity, args []jni.Value) (jni.Value, error) {
		return jni.LongValue(args[0].Long() * 2), nil
	})
	concat := cls.DefineNative("concat", "(Ljava/lang/String;I)Ljava/lang/String;", true)
	concat.Bind(MustGoTarget("concat", func(_ jni.Ref, s string, n int32) string {
		out := ""
		for i := int32(0); i < n; i++ {
			out += s
		}
		return out
	}))

	t.Run("numeric coercion", func(t *testing.T) {
		got, err := double.InvokeStatic(env, nil, 21)
		require.NoError(t, err)
		assert.Equal(t, jni.LongValue(42), got)
	})

	t.Run("strings", func(t *testing.T) {
		got, err := concat.InvokeStatic(env, nil, "ab", 3)
		require.NoError(t, err)
		e, err := env.Resolve(got.Ref())
		require.NoError(t, err)
		assert.Equal(t, "ababab", e.(*String).Value)
	})

	t.Run("count mismatch", func(t *testing.T) {
		_, err := double.InvokeStatic(env, nil, 1, 2)
		assert.ErrorIs(t, err, ErrArgumentCount)
		var exc *Exception
		require.ErrorAs(t, err, &exc)
		assert.Equal(t, "java/lang/IllegalArgumentException", exc.Value.Base().Class().Name())
	})

	t.Run("type mismatch", func(t *testing.T) {
		_, err := double.InvokeStatic(env, nil, "nope")
		assert.ErrorIs(t, err, ErrArgumentType)
	})
}

func TestDispatch_ImplicitMethodReturnsZero(t *testing.T) {
	rec := &countingObserver{}
	vm, env := newTestEnv(t, WithObserver(rec))
	cls, err := vm.FindClass("com/example/Unknown")
	require.NoError(t, err)
	obj := cls.NewInstance()

	tests := []struct {
		sig  string
		kind jni.Kind
	}{
		{"()J", jni.Long},
		{"()D", jni.Double},
		{"()Ljava/lang/Object;", jni.Object},
		{"()V", jni.Void},
	}
	for _, tt := range tests {
		t.Run(tt.sig, func(t *testing.T) {
			m := cls.GetMethod("missing", tt.sig, false)
			got, err := m.InvokeInstance(env, obj)
			require.NoError(t, err)
			assert.Equal(t, jni.Zero(tt.kind), got)
		})
	}
	assert.Equal(t, len(tests), rec.unimplemented)
}

func TestDispatch_NoNativeTarget(t *testing.T) {
	vm, env := newTestEnv(t)
	m := vm.DefineClass("com/example/Unbound", nil).DefineNative("f", "()V", true)

	_, err := m.InvokeStatic(env, nil)
	assert.ErrorIs(t, err, ErrNoNativeTarget)
	var exc *Exception
	require.ErrorAs(t, err, &exc)
	assert.Equal(t, "java/lang/UnsatisfiedLinkError", exc.Value.Base().Class().Name())
}

func TestDispatch_Panics(t *testing.T) {
	vm, env := newTestEnv(t)
	cls := vm.DefineClass("com/example/Panics", nil)

	native := cls.DefineNative("n", "()V", true)
	native.Bind(MustGoTarget("n", func(jni.Ref) { panic("native") }))
	host := cls.DefineMethod("h", "()V", true, func(*Env, Entity, []jni.Value) (jni.Value, error) {
		panic("host")
	})

	_, err := native.InvokeStatic(env, nil)
	assert.ErrorIs(t, err, ErrNativePanic)
	_, err = host.InvokeStatic(env, nil)
	assert.ErrorIs(t, err, ErrNativePanic)
}

func TestDispatch_TargetMismatch(t *testing.T) {
	vm, env := newTestEnv(t)
	cls := vm.DefineClass("com/example/Mismatch", nil)
	m := cls.DefineNative("f", "()I", true)
	m.Bind(MustGoTarget("f", func(jni.Ref) float64 { return 1 }))

	_, err := m.InvokeStatic(env, nil)
	assert.ErrorIs(t, err, ErrTargetMismatch)
}

type countingObserver struct {
	NopObserver
	classes       int
	methods       int
	fields        int
	natives       int
	unimplemented int
}

func (o *countingObserver) ClassDeclared(*Class)   { o.classes++ }
func (o *countingObserver) MethodDeclared(*Method) { o.methods++ }
func (o *countingObserver) FieldDeclared(*Field)   { o.fields++ }
func (o *countingObserver) NativeCall(*Method)     { o.natives++ }
func (o *countingObserver) Unimplemented(*Method)  { o.unimplemented++ }
