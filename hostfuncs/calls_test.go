package hostfuncs

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/jni"
)

// varargs lays out arguments the way a wasm32 C compiler passes them to a
// variadic function.
func varargs(vals ...jni.Value) []byte {
	var b []byte
	for _, v := range vals {
		switch v.Kind() {
		case jni.Long, jni.Double, jni.Float:
			for len(b)%8 != 0 {
				b = append(b, 0)
			}
			bits := v.Bits()
			if v.Kind() == jni.Float {
				bits = jni.DoubleValue(float64(v.Float())).Bits()
			}
			b = binary.LittleEndian.AppendUint64(b, bits)
		default:
			b = binary.LittleEndian.AppendUint32(b, uint32(v.Bits()))
		}
	}
	return b
}

func TestCallMethod_ArgumentForms(t *testing.T) {
	h := newHarness(t)
	c := h.vm.DefineClass("com/example/Calc", nil)
	c.DefineMethod("add", "(BJ)J", false, func(env *jnivm.Env, recv jnivm.Entity, args []jni.Value) (jni.Value, error) {
		return jni.LongValue(int64(args[0].Byte()) + args[1].Long()), nil
	})
	obj := h.local(c.NewInstance())
	mid := h.call("GetMethodID", h.local(c), h.mem.cstring(t, "add"), h.mem.cstring(t, "(BJ)J"))
	args := []jni.Value{jni.ByteValue(-2), jni.LongValue(1 << 40)}
	want := uint64(1<<40 - 2)

	assert.Equal(t, want, h.call("CallLongMethodA", obj, mid, uint64(h.mem.put(t, jvalues(args...)))))
	assert.Equal(t, want, h.call("CallLongMethodV", obj, mid, uint64(h.mem.put(t, varargs(args...)))))
	assert.Equal(t, want, h.call("CallLongMethod", obj, mid, uint64(h.mem.put(t, varargs(args...)))))
	assert.False(t, h.env.ExceptionCheck())
}

func TestCallStaticMethod_Floats(t *testing.T) {
	h := newHarness(t)
	c := h.vm.DefineClass("com/example/Calc", nil)
	c.DefineMethod("scale", "(IFD)D", true, func(env *jnivm.Env, recv jnivm.Entity, args []jni.Value) (jni.Value, error) {
		return jni.DoubleValue(float64(args[0].Int()) * float64(args[1].Float()) * args[2].Double()), nil
	})
	c.DefineMethod("half", "(F)F", true, func(env *jnivm.Env, recv jnivm.Entity, args []jni.Value) (jni.Value, error) {
		return jni.FloatValue(args[0].Float() / 2), nil
	})
	cls := h.local(c)
	scale := h.call("GetStaticMethodID", cls, h.mem.cstring(t, "scale"), h.mem.cstring(t, "(IFD)D"))
	half := h.call("GetStaticMethodID", cls, h.mem.cstring(t, "half"), h.mem.cstring(t, "(F)F"))
	args := []jni.Value{jni.IntValue(3), jni.FloatValue(0.5), jni.DoubleValue(4)}

	assert.Equal(t, f64(6), h.call("CallStaticDoubleMethod", cls, scale, uint64(h.mem.put(t, varargs(args...)))))
	assert.Equal(t, f64(6), h.call("CallStaticDoubleMethodA", cls, scale, uint64(h.mem.put(t, jvalues(args...)))))
	assert.Equal(t, f32(1.25), h.call("CallStaticFloatMethodA", cls, half, uint64(h.mem.put(t, jvalues(jni.FloatValue(2.5))))))
}

func TestCallMethod_VirtualAndNonvirtual(t *testing.T) {
	h := newHarness(t)
	base := h.vm.DefineClass("com/example/Base", nil)
	derived := h.vm.DefineClass("com/example/Derived", base)
	named := func(name string) jnivm.HostFunc {
		return func(env *jnivm.Env, recv jnivm.Entity, args []jni.Value) (jni.Value, error) {
			return jni.ObjectValue(env.NewString(name)), nil
		}
	}
	base.DefineMethod("name", "()Ljava/lang/String;", false, named("base"))
	derived.DefineMethod("name", "()Ljava/lang/String;", false, named("derived"))

	obj := h.local(derived.NewInstance())
	mid := h.call("GetMethodID", h.local(base), h.mem.cstring(t, "name"), h.mem.cstring(t, "()Ljava/lang/String;"))

	r := h.call("CallObjectMethodA", obj, mid, 0)
	assert.Equal(t, "derived", h.resolve(r).(*jnivm.String).Value)

	r = h.call("CallNonvirtualObjectMethodA", obj, h.local(base), mid, 0)
	assert.Equal(t, "base", h.resolve(r).(*jnivm.String).Value)
}

func TestCallVoidMethod(t *testing.T) {
	h := newHarness(t)
	c := h.vm.DefineClass("com/example/Counter", nil)
	calls := 0
	c.DefineMethod("tick", "()V", false, func(env *jnivm.Env, recv jnivm.Entity, args []jni.Value) (jni.Value, error) {
		calls++
		return jni.VoidValue(), nil
	})
	mid := h.call("GetMethodID", h.local(c), h.mem.cstring(t, "tick"), h.mem.cstring(t, "()V"))

	h.call("CallVoidMethod", h.local(c.NewInstance()), mid, 0)
	h.call("CallVoidMethodV", h.local(c.NewInstance()), mid, 0)
	assert.Equal(t, 2, calls)
}

func TestNewObject(t *testing.T) {
	h := newHarness(t)
	c := h.vm.DefineClass("com/example/Point", nil)
	x := c.DefineField("x", "I", false)
	c.DefineMethod("<init>", "(I)V", false, func(env *jnivm.Env, recv jnivm.Entity, args []jni.Value) (jni.Value, error) {
		return jni.VoidValue(), env.SetField(recv, x, args[0])
	})
	ctor := h.call("GetMethodID", h.local(c), h.mem.cstring(t, "<init>"), h.mem.cstring(t, "(I)V"))

	for _, name := range []string{"NewObject", "NewObjectV", "NewObjectA"} {
		t.Run(name, func(t *testing.T) {
			args := h.mem.put(t, jvalues(jni.IntValue(17)))
			if name != "NewObjectA" {
				args = h.mem.put(t, varargs(jni.IntValue(17)))
			}
			r := h.call(name, h.local(c), ctor, uint64(args))
			in, ok := h.resolve(r).(*jnivm.Instance)
			require.True(t, ok)
			assert.Equal(t, int32(17), in.Field(x).Value.Int())
		})
	}
}

func TestCallMethod_ErrorBecomesException(t *testing.T) {
	h := newHarness(t)
	errKaput := errors.New("kaput")
	c := h.vm.DefineClass("com/example/Flaky", nil)
	c.DefineMethod("run", "()I", true, func(env *jnivm.Env, recv jnivm.Entity, args []jni.Value) (jni.Value, error) {
		return jni.IntValue(5), errKaput
	})
	mid := h.call("GetStaticMethodID", h.local(c), h.mem.cstring(t, "run"), h.mem.cstring(t, "()I"))

	assert.Zero(t, h.call("CallStaticIntMethodA", h.local(c), mid, 0))
	thr := h.requirePending("java/lang/RuntimeException")
	assert.ErrorIs(t, thr.Cause, errKaput)
}

func TestCallMethod_ThrownExceptionStaysPending(t *testing.T) {
	h := newHarness(t)
	iae := h.vm.MustFindClass("java/lang/IllegalArgumentException")
	c := h.vm.DefineClass("com/example/Strict", nil)
	c.DefineMethod("check", "()Z", true, func(env *jnivm.Env, recv jnivm.Entity, args []jni.Value) (jni.Value, error) {
		return jni.BooleanValue(true), env.ThrowNew(iae, "nope")
	})
	mid := h.call("GetStaticMethodID", h.local(c), h.mem.cstring(t, "check"), h.mem.cstring(t, "()Z"))

	assert.Zero(t, h.call("CallStaticBooleanMethod", h.local(c), mid, 0))
	thr := h.requirePending("java/lang/IllegalArgumentException")
	assert.Equal(t, "nope", thr.Message)
}

func TestCallMethod_UndeclaredReturnsZero(t *testing.T) {
	h := newHarness(t)
	c := h.local(h.vm.DefineClass("com/example/Stub", nil))
	mid := h.call("GetStaticMethodID", c, h.mem.cstring(t, "answer"), h.mem.cstring(t, "()J"))

	assert.Zero(t, h.call("CallStaticLongMethodA", c, mid, 0))
	assert.False(t, h.env.ExceptionCheck())
}

func TestCallMethod_Failures(t *testing.T) {
	h := newHarness(t)
	c := h.vm.DefineClass("com/example/Calc", nil)
	c.DefineMethod("one", "()I", false, func(env *jnivm.Env, recv jnivm.Entity, args []jni.Value) (jni.Value, error) {
		return jni.IntValue(1), nil
	})
	mid := h.call("GetMethodID", h.local(c), h.mem.cstring(t, "one"), h.mem.cstring(t, "()I"))

	t.Run("null receiver", func(t *testing.T) {
		assert.Zero(t, h.call("CallIntMethodA", 0, mid, 0))
		h.requirePending("java/lang/NullPointerException")
	})

	t.Run("bad method ID", func(t *testing.T) {
		assert.Zero(t, h.call("CallIntMethodA", h.local(c.NewInstance()), h.local(c), 0))
		h.requirePending("java/lang/RuntimeException")
	})

	t.Run("return kind mismatch", func(t *testing.T) {
		assert.Zero(t, h.call("CallObjectMethodA", h.local(c.NewInstance()), mid, 0))
		h.requirePending("java/lang/RuntimeException")
	})

	t.Run("argument area out of range", func(t *testing.T) {
		addMid := h.call("GetMethodID", h.local(c), h.mem.cstring(t, "add"), h.mem.cstring(t, "(I)I"))
		assert.Zero(t, h.call("CallIntMethodA", h.local(c.NewInstance()), addMid, uint64(h.mem.Size())))
		h.requirePending("java/lang/RuntimeException")
	})
}
