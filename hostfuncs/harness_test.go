package hostfuncs

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/jni"
)

// fakeMemory is a flat byte slice with a bump allocator.
type fakeMemory struct {
	buf   []byte
	next  uint32
	freed []uint32
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{buf: make([]byte, 64*1024), next: 1024}
}

func (m *fakeMemory) Size() uint32 { return uint32(len(m.buf)) }

func (m *fakeMemory) Read(offset, n uint32) ([]byte, bool) {
	if uint64(offset)+uint64(n) > uint64(len(m.buf)) {
		return nil, false
	}
	return m.buf[offset : offset+n], true
}

func (m *fakeMemory) Write(offset uint32, v []byte) bool {
	if uint64(offset)+uint64(len(v)) > uint64(len(m.buf)) {
		return false
	}
	copy(m.buf[offset:], v)
	return true
}

func (m *fakeMemory) Allocate(_ context.Context, size uint32) (uint32, error) {
	ptr := (m.next + 7) &^ 7
	if uint64(ptr)+uint64(size) > uint64(len(m.buf)) {
		return 0, errors.New("out of memory")
	}
	m.next = ptr + size
	return ptr, nil
}

func (m *fakeMemory) Free(_ context.Context, ptr uint32) error {
	m.freed = append(m.freed, ptr)
	return nil
}

func (m *fakeMemory) put(t *testing.T, b []byte) uint32 {
	t.Helper()
	ptr, err := allocCopy(context.Background(), m, b)
	require.NoError(t, err)
	return ptr
}

func (m *fakeMemory) cstring(t *testing.T, s string) uint64 {
	return uint64(m.put(t, append([]byte(s), 0)))
}

func (m *fakeMemory) u32(ptr uint32) uint32 {
	return binary.LittleEndian.Uint32(m.buf[ptr:])
}

// jvalues lays out a jvalue array.
func jvalues(vals ...jni.Value) []byte {
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(b[8*i:], v.Bits())
	}
	return b
}

type harness struct {
	t       *testing.T
	ctx     context.Context
	vm      *jnivm.VM
	env     *jnivm.Env
	mem     *fakeMemory
	reg     *HandlerRegistry
	natives NativeResolver
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, opts ...jnivm.Option) *harness {
	t.Helper()
	vm := jnivm.New(append([]jnivm.Option{jnivm.WithLogger(discardLogger())}, opts...)...)
	ctx := jnivm.WithThread(context.Background(), 1)
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)
	return &harness{t: t, ctx: ctx, vm: vm, env: vm.GetEnv(ctx), mem: newFakeMemory(), reg: reg}
}

// rawCtx invokes name with a complete parameter list.
func (h *harness) rawCtx(ctx context.Context, name string, args ...uint64) (uint64, error) {
	h.t.Helper()
	f, ok := h.reg.Lookup(name)
	require.True(h.t, ok, name)
	require.Len(h.t, args, len(f.Params), name)
	stack := make([]uint64, max(len(f.Params), len(f.Results)))
	copy(stack, args)
	frame := &Frame{VM: h.vm, Mem: h.mem, Natives: h.natives, Stack: stack}
	err := h.reg.Invoke(ctx, name, frame)
	return stack[0], err
}

func (h *harness) raw(name string, args ...uint64) (uint64, error) {
	h.t.Helper()
	return h.rawCtx(h.ctx, name, args...)
}

// call invokes name on the harness environment and requires success at the
// host level. Managed exceptions are left pending.
func (h *harness) call(name string, args ...uint64) uint64 {
	h.t.Helper()
	v, err := h.raw(name, append([]uint64{uint64(h.env.Handle())}, args...)...)
	require.NoError(h.t, err, name)
	return v
}

func (h *harness) local(e jnivm.Entity) uint64 {
	return uint64(h.env.NewLocalRef(e))
}

func (h *harness) resolve(r uint64) jnivm.Entity {
	h.t.Helper()
	e, err := h.env.Resolve(jni.Ref(uint32(r)))
	require.NoError(h.t, err)
	return e
}

// takePending returns and clears the pending exception.
func (h *harness) takePending() jnivm.Entity {
	e := h.env.ExceptionOccurred()
	h.env.ExceptionClear()
	return e
}

func (h *harness) requirePending(class string) *jnivm.Throwable {
	h.t.Helper()
	thr, ok := h.takePending().(*jnivm.Throwable)
	require.True(h.t, ok, "expected a pending %s", class)
	require.Equal(h.t, class, thr.Class().Name())
	return thr
}

func i32(v int32) uint64 { return uint64(uint32(v)) }

func f32(v float32) uint64 { return uint64(math.Float32bits(v)) }

func f64(v float64) uint64 { return math.Float64bits(v) }
