package hostfuncs

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/jni"
)

// tableResolver resolves function pointers from a fixed table.
type tableResolver map[uint32]jnivm.Target

func (r tableResolver) FunctionAt(_ context.Context, index uint32, sig string) (jnivm.Target, error) {
	t, ok := r[index]
	if !ok {
		return nil, fmt.Errorf("no function at table index %d", index)
	}
	return t, nil
}

type nativeEntry struct {
	name, sig string
	fnPtr     uint32
}

func (h *harness) nativeMethods(entries ...nativeEntry) uint64 {
	b := make([]byte, nativeMethodSize*len(entries))
	for i, e := range entries {
		rec := b[i*nativeMethodSize:]
		binary.LittleEndian.PutUint32(rec, uint32(h.mem.cstring(h.t, e.name)))
		binary.LittleEndian.PutUint32(rec[4:], uint32(h.mem.cstring(h.t, e.sig)))
		binary.LittleEndian.PutUint32(rec[8:], e.fnPtr)
	}
	return uint64(h.mem.put(h.t, b))
}

func TestRegisterNatives(t *testing.T) {
	h := newHarness(t)
	h.natives = tableResolver{
		3: jnivm.MustGoTarget("twice", func(recv jni.Ref, x int32) int32 { return 2 * x }),
		4: jnivm.MustGoTarget("greet", func(recv jni.Ref, name string) string { return "hi " + name }),
	}
	c := h.vm.DefineClass("com/example/Native", nil)
	c.DefineNative("twice", "(I)I", true)

	methods := h.nativeMethods(
		nativeEntry{"twice", "(I)I", 3},
		nativeEntry{"greet", "(Ljava/lang/String;)Ljava/lang/String;", 4},
	)
	assert.Equal(t, uint64(jni.OK), h.call("RegisterNatives", h.local(c), methods, 2))

	twice := c.Method("twice", "(I)I")
	require.NotNil(t, twice)
	assert.True(t, twice.IsNative())
	v, err := twice.InvokeStatic(h.env, nil, int32(21))
	require.NoError(t, err)
	assert.Equal(t, int32(42), v.Int())

	greet := c.Method("greet", "(Ljava/lang/String;)Ljava/lang/String;")
	require.NotNil(t, greet)
	v, err = greet.InvokeInstance(h.env, c.NewInstance(), "there")
	require.NoError(t, err)
	s, err := h.env.Resolve(v.Ref())
	require.NoError(t, err)
	assert.Equal(t, "hi there", s.(*jnivm.String).Value)

	h.call("UnregisterNatives", h.local(c))
	assert.Nil(t, twice.Target())
}

func TestRegisterNatives_Failures(t *testing.T) {
	h := newHarness(t)
	c := h.local(h.vm.DefineClass("com/example/Native", nil))
	methods := h.nativeMethods(nativeEntry{"run", "()V", 9})

	t.Run("no resolver", func(t *testing.T) {
		assert.Equal(t, jni.ERR, int32(uint32(h.call("RegisterNatives", c, methods, 1))))
		h.requirePending("java/lang/UnsatisfiedLinkError")
	})

	t.Run("unknown table index", func(t *testing.T) {
		h.natives = tableResolver{}
		assert.Equal(t, jni.ERR, int32(uint32(h.call("RegisterNatives", c, methods, 1))))
		h.requirePending("java/lang/RuntimeException")
	})

	t.Run("bad count", func(t *testing.T) {
		h.natives = tableResolver{}
		assert.Equal(t, jni.EINVAL, int32(uint32(h.call("RegisterNatives", c, methods, i32(-1)))))
		h.requirePending("java/lang/RuntimeException")
	})

	t.Run("null class", func(t *testing.T) {
		assert.Equal(t, jni.EINVAL, int32(uint32(h.call("RegisterNatives", 0, methods, 1))))
		h.requirePending("java/lang/NullPointerException")
	})
}

func TestGetJavaVM(t *testing.T) {
	h := newHarness(t)
	out := h.mem.put(t, make([]byte, 4))

	assert.Equal(t, uint64(jni.OK), h.call("GetJavaVM", uint64(out)))
	assert.Equal(t, VMHandle, h.mem.u32(out))
}

func TestMonitors(t *testing.T) {
	h := newHarness(t)
	obj := h.local(h.vm.NewString("lock"))

	assert.Equal(t, uint64(jni.OK), h.call("MonitorEnter", obj))
	assert.Equal(t, uint64(jni.OK), h.call("MonitorExit", obj))
}
