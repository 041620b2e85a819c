package hostfuncs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/jni"
)

func TestGlobalRefs(t *testing.T) {
	h := newHarness(t)
	s := h.vm.NewString("kept")
	local := h.local(s)

	global := h.call("NewGlobalRef", local)
	require.True(t, jni.Ref(uint32(global)).IsGlobal())
	assert.Same(t, s, h.resolve(global))
	assert.Equal(t, uint64(jni.GlobalRefType), h.call("GetObjectRefType", global))
	assert.Equal(t, uint64(jni.LocalRefType), h.call("GetObjectRefType", local))
	assert.Equal(t, uint64(1), h.call("IsSameObject", local, global))

	h.call("DeleteGlobalRef", global)
	assert.Equal(t, uint64(jni.InvalidRefType), h.call("GetObjectRefType", global))

	weak := h.call("NewWeakGlobalRef", local)
	assert.Same(t, s, h.resolve(weak))
	h.call("DeleteWeakGlobalRef", weak)
	h.call("DeleteGlobalRef", 0)
	assert.False(t, h.env.ExceptionCheck())
}

func TestLocalRefs(t *testing.T) {
	h := newHarness(t)
	s := h.vm.NewString("local")
	r := h.local(s)

	dup := h.call("NewLocalRef", r)
	assert.NotEqual(t, r, dup)
	assert.Equal(t, uint64(1), h.call("IsSameObject", r, dup))

	h.call("DeleteLocalRef", dup)
	assert.Equal(t, uint64(jni.InvalidRefType), h.call("GetObjectRefType", dup))
	assert.Equal(t, uint64(1), h.call("IsSameObject", 0, 0))
	assert.Equal(t, uint64(0), h.call("IsSameObject", r, 0))
}

func TestLocalFrames(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, uint64(jni.OK), h.call("PushLocalFrame", 16))
	inner := h.local(h.vm.NewString("inner"))
	other := h.local(h.vm.NewString("dropped"))
	kept := h.call("PopLocalFrame", inner)

	assert.Equal(t, "inner", h.resolve(kept).(*jnivm.String).Value)
	assert.Equal(t, uint64(jni.InvalidRefType), h.call("GetObjectRefType", other))

	assert.Equal(t, jni.EINVAL, int32(uint32(h.call("PushLocalFrame", i32(-1)))))
	assert.Equal(t, uint64(jni.OK), h.call("EnsureLocalCapacity", 64))
	assert.Equal(t, jni.EINVAL, int32(uint32(h.call("EnsureLocalCapacity", i32(-1)))))
}
