package host

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	jnivm "github.com/Dadoum/libjnivm"
	wasm "github.com/Dadoum/libjnivm/internal/testutil"
	"github.com/Dadoum/libjnivm/jni"
)

func TestNewExecutor(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, e)
	if e != nil {
		assert.True(t, e.Registry().Has("FindClass"))
		err := e.Close(ctx)
		assert.NoError(t, err)
	}
}

func TestNewExecutor_CompilationCache(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx, WithCompilationCache(t.TempDir()), WithMemoryLimitPages(16))
	require.NoError(t, err)
	lib, err := e.Load(ctx, "empty", (&wasm.Module{}).Encode())
	require.NoError(t, err)
	assert.Empty(t, lib.Exports())
	assert.NoError(t, e.Close(ctx))
}

// segment lays out data at a fixed base address.
type segment struct {
	base uint32
	buf  []byte
}

func (s *segment) add(b []byte) uint32 {
	ptr := s.base + uint32(len(s.buf))
	s.buf = append(s.buf, b...)
	return ptr
}

func (s *segment) u32s(vs ...uint32) uint32 {
	var b []byte
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	return s.add(b)
}

func (s *segment) data() wasm.Data { return wasm.Data{Offset: s.base, Bytes: s.buf} }

var (
	envRecv = []byte{wasm.I32, wasm.I32}
	retI32  = []byte{wasm.I32}
)

func native(params []byte, results []byte, export string, body ...[]byte) wasm.Func {
	return wasm.Func{
		Type:   wasm.Signature{Params: append(append([]byte{}, envRecv...), params...), Results: results},
		Body:   wasm.Ops(body...),
		Export: export,
	}
}

func jniImport(name string, params, results []byte) wasm.Import {
	return wasm.Import{Module: "jni", Name: name, Type: wasm.Signature{Params: params, Results: results}}
}

// guest is a library exercising returns, arguments and callbacks into the
// function table.
func guest() []byte {
	strs := &segment{base: 1024}
	exceptionName := strs.add(wasm.CString("java/lang/IllegalStateException"))
	boom := strs.add(wasm.CString("boom"))
	hello := strs.add(wasm.CString("hello"))
	addName := strs.add(wasm.CString("add"))
	addSig := strs.add(wasm.CString("(II)I"))

	m := &wasm.Module{
		Imports: []wasm.Import{
			jniImport("GetVersion", []byte{wasm.I32}, retI32),
			jniImport("GetEnv", []byte{wasm.I32, wasm.I32, wasm.I32}, retI32),
			jniImport("FindClass", []byte{wasm.I32, wasm.I32}, retI32),
			jniImport("ThrowNew", []byte{wasm.I32, wasm.I32, wasm.I32}, retI32),
			jniImport("NewStringUTF", []byte{wasm.I32, wasm.I32}, retI32),
			jniImport("GetStringUTFChars", []byte{wasm.I32, wasm.I32, wasm.I32}, retI32),
			jniImport("RegisterNatives", []byte{wasm.I32, wasm.I32, wasm.I32, wasm.I32}, retI32),
			jniImport("FatalError", []byte{wasm.I32, wasm.I32}, nil),
		},
		Memory: 1,
	}
	const (
		getVersion = iota
		getEnv
		findClass
		throwNew
		newStringUTF
		getStringUTFChars
		registerNatives
		fatalError
	)
	m.Funcs = []wasm.Func{
		wasm.BumpAllocator(),
		{
			Type: wasm.Signature{Params: []byte{wasm.I32, wasm.I32}, Results: retI32},
			Body: wasm.Ops(
				wasm.LocalGet(0), wasm.I32Const(16), wasm.I32Const(jni.Version1_6), wasm.Call(getEnv), wasm.Drop,
				wasm.I32Const(16), wasm.I32Load, wasm.Call(getVersion),
			),
			Export: "JNI_OnLoad",
		},
		native(nil, []byte{wasm.I32}, "Java_com_example_Sentinels_booleanValue", wasm.I32Const(1)),
		native(nil, []byte{wasm.I32}, "Java_com_example_Sentinels_byteValue", wasm.I32Const(-7)),
		native(nil, []byte{wasm.I32}, "Java_com_example_Sentinels_charValue", wasm.I32Const(0x20ac)),
		native(nil, []byte{wasm.I32}, "Java_com_example_Sentinels_shortValue", wasm.I32Const(-1234)),
		native(nil, []byte{wasm.I32}, "Java_com_example_Sentinels_intValue", wasm.I32Const(-123456789)),
		native(nil, []byte{wasm.I64}, "Java_com_example_Sentinels_longValue", wasm.I64Const(0x123456789abcdef0)),
		native(nil, []byte{wasm.F32}, "Java_com_example_Sentinels_floatValue", wasm.F32Const(3.5)),
		native(nil, []byte{wasm.F64}, "Java_com_example_Sentinels_doubleValue", wasm.F64Const(-2.25e10)),
		native([]byte{wasm.I64, wasm.I32}, []byte{wasm.I64}, "Java_com_example_Sentinels_sum",
			wasm.LocalGet(2), wasm.LocalGet(3), wasm.I64ExtendI32S, wasm.I64Add),
		native([]byte{wasm.F64, wasm.F32}, []byte{wasm.F64}, "Java_com_example_Sentinels_scale",
			wasm.LocalGet(2), wasm.LocalGet(3), wasm.F64PromoteF32, wasm.F64Mul),
		native(nil, []byte{wasm.I32}, "Java_com_example_Sentinels_version",
			wasm.LocalGet(0), wasm.Call(getVersion)),
		native(nil, nil, "Java_com_example_Sentinels_fail",
			wasm.LocalGet(0),
			wasm.LocalGet(0), wasm.I32Const(int32(exceptionName)), wasm.Call(findClass),
			wasm.I32Const(int32(boom)), wasm.Call(throwNew), wasm.Drop),
		native(nil, []byte{wasm.I32}, "Java_com_example_Sentinels_hello",
			wasm.LocalGet(0), wasm.I32Const(int32(hello)), wasm.Call(newStringUTF)),
		native([]byte{wasm.I32}, []byte{wasm.I32}, "Java_com_example_Sentinels_first",
			wasm.LocalGet(0), wasm.LocalGet(2), wasm.I32Const(0), wasm.Call(getStringUTFChars), wasm.I32Load8U),
		native(nil, nil, "Java_com_example_Sentinels_abort",
			wasm.LocalGet(0), wasm.I32Const(int32(boom)), wasm.Call(fatalError)),
		native([]byte{wasm.I32, wasm.I32}, []byte{wasm.I32}, "", wasm.LocalGet(2), wasm.LocalGet(3), wasm.I32Add),
	}
	add := m.FuncIndex(len(m.Funcs) - 1)
	m.Table = []uint32{add}
	methods := strs.u32s(addName, addSig, wasm.TableBase)
	m.Funcs = append(m.Funcs,
		native(nil, []byte{wasm.I32}, "Java_com_example_Sentinels_register",
			wasm.LocalGet(0), wasm.LocalGet(1), wasm.I32Const(int32(methods)), wasm.I32Const(1), wasm.Call(registerNatives)))
	m.Data = []wasm.Data{wasm.BumpData(8192), strs.data()}
	return m.Encode()
}

type ExecutorSuite struct {
	suite.Suite
	ctx  context.Context
	exec *Executor
	vm   *jnivm.VM
	env  *jnivm.Env
	cls  *jnivm.Class
}

func TestExecutorSuite(t *testing.T) {
	suite.Run(t, new(ExecutorSuite))
}

func (s *ExecutorSuite) SetupTest() {
	s.ctx = jnivm.WithThread(context.Background(), 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec, err := NewExecutor(s.ctx,
		WithLogger(logger),
		WithFS(fstest.MapFS{"libguest.wasm": {Data: guest()}}),
	)
	s.Require().NoError(err)
	s.exec = exec
	s.vm = jnivm.New(append(exec.VMOptions(), jnivm.WithLogger(logger))...)
	s.env = s.vm.GetEnv(s.ctx)
	s.Require().NoError(s.vm.AttachLibrary(s.ctx, "libguest.wasm"))
	s.cls = s.vm.DefineClass("com/example/Sentinels", nil)
}

func (s *ExecutorSuite) TearDownTest() {
	s.NoError(s.vm.Close(s.ctx))
	s.NoError(s.exec.Close(s.ctx))
}

func (s *ExecutorSuite) invoke(name, sig string, args ...any) (jni.Value, error) {
	return s.cls.DefineNative(name, sig, true).InvokeStatic(s.env, s.cls, args...)
}

func (s *ExecutorSuite) TestSentinelReturns() {
	tests := []struct {
		name string
		sig  string
		want jni.Value
	}{
		{"booleanValue", "()Z", jni.BooleanValue(true)},
		{"byteValue", "()B", jni.ByteValue(-7)},
		{"charValue", "()C", jni.CharValue(0x20ac)},
		{"shortValue", "()S", jni.ShortValue(-1234)},
		{"intValue", "()I", jni.IntValue(-123456789)},
		{"longValue", "()J", jni.LongValue(0x123456789abcdef0)},
		{"floatValue", "()F", jni.FloatValue(3.5)},
		{"doubleValue", "()D", jni.DoubleValue(-2.25e10)},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			got, err := s.invoke(tt.name, tt.sig)
			s.Require().NoError(err)
			s.Equal(tt.want, got)
		})
	}
}

func (s *ExecutorSuite) TestArguments() {
	got, err := s.invoke("sum", "(JI)J", int64(1)<<40, int32(-2))
	s.Require().NoError(err)
	s.Equal(int64(1)<<40-2, got.Long())

	got, err = s.invoke("scale", "(DF)D", 2.5, float32(4))
	s.Require().NoError(err)
	s.Equal(10.0, got.Double())
}

func (s *ExecutorSuite) TestLoadHook() {
	// JNI_OnLoad resolves its environment through GetEnv and returns the
	// version that environment reports.
	version, ok := s.vm.LibraryVersion("libguest.wasm")
	s.True(ok)
	s.Equal(jni.Version1_6, version)
}

func (s *ExecutorSuite) TestGetVersion() {
	got, err := s.invoke("version", "()I")
	s.Require().NoError(err)
	s.Equal(jni.Version1_6, got.Int())
}

func (s *ExecutorSuite) TestThrowNew() {
	_, err := s.invoke("fail", "()V")
	var exc *jnivm.Exception
	s.Require().ErrorAs(err, &exc)
	thr, ok := exc.Value.(*jnivm.Throwable)
	s.Require().True(ok)
	s.Equal("java/lang/IllegalStateException", thr.Class().Name())
	s.Equal("boom", thr.Message)
}

func (s *ExecutorSuite) TestStrings() {
	got, err := s.invoke("hello", "()Ljava/lang/String;")
	s.Require().NoError(err)
	e, err := s.env.Resolve(got.Ref())
	s.Require().NoError(err)
	str, ok := e.(*jnivm.String)
	s.Require().True(ok)
	s.Equal("hello", str.Value)

	got, err = s.invoke("first", "(Ljava/lang/String;)I", "xyz")
	s.Require().NoError(err)
	s.Equal(int32('x'), got.Int())
}

func (s *ExecutorSuite) TestRegisterNativesFromTable() {
	got, err := s.invoke("register", "()I")
	s.Require().NoError(err)
	s.Equal(jni.OK, got.Int())

	m := s.cls.GetMethod("add", "(II)I", true)
	s.Require().NotNil(m)
	got, err = m.InvokeStatic(s.env, s.cls, int32(2), int32(3))
	s.Require().NoError(err)
	s.Equal(int32(5), got.Int())
}

func (s *ExecutorSuite) TestFatalErrorTraps() {
	_, err := s.invoke("abort", "()V")
	s.Error(err)
}

func (s *ExecutorSuite) TestResultTypeMismatch() {
	_, err := s.invoke("intValue", "()J")
	s.Error(err)
}

func (s *ExecutorSuite) TestLibraryExports() {
	lib, err := s.exec.Load(s.ctx, "again", guest())
	s.Require().NoError(err)
	s.Contains(lib.Exports(), "JNI_OnLoad")
	s.Contains(lib.Exports(), "allocate")

	_, ok := lib.Symbol("missing")
	s.False(ok)
	s.Require().NoError(lib.Close(s.ctx))
	_, ok = lib.Symbol("JNI_OnLoad")
	s.False(ok)
	s.ErrorIs(lib.Close(s.ctx), ErrLibraryClosed)
}

func TestLoad_MissingImport(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer e.Close(ctx)

	m := &wasm.Module{Imports: []wasm.Import{jniImport("NoSuchFunction", nil, nil)}}
	_, err = e.Load(ctx, "bad", m.Encode())
	assert.ErrorIs(t, err, ErrMissingImport)
	assert.ErrorContains(t, err, "NoSuchFunction")
}

func TestOpen_MissingFile(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx, WithFS(fstest.MapFS{}))
	require.NoError(t, err)
	defer e.Close(ctx)

	_, err = e.Open(ctx, "libnone.wasm")
	assert.Error(t, err)
}

func TestGuestCallOutsideRuntime(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer e.Close(ctx)

	m := &wasm.Module{
		Imports: []wasm.Import{jniImport("GetVersion", []byte{wasm.I32}, retI32)},
		Funcs: []wasm.Func{{
			Type:   wasm.Signature{Results: retI32},
			Body:   wasm.Ops(wasm.I32Const(1), wasm.Call(0)),
			Export: "run",
		}},
	}
	lib, err := e.Load(ctx, "outside", m.Encode())
	require.NoError(t, err)
	_, err = lib.Module().ExportedFunction("run").Call(ctx)
	assert.ErrorContains(t, err, "outside a runtime call")
}
