package jnivm

import (
	"sync"

	"github.com/Dadoum/libjnivm/jni"
)

// HostFunc implements a non-native method in Go. recv is the *Class for
// static calls and the instance otherwise. Returning an error raises it as a
// managed exception.
type HostFunc func(env *Env, recv Entity, args []jni.Value) (jni.Value, error)

// Method describes a method of a class.
type Method struct {
	Object
	class     *Class
	name      string
	signature string
	sig       jni.Signature
	sigErr    error

	mu      sync.RWMutex
	static  bool
	native  bool
	body    HostFunc
	target  Target
	source  *library
	invoker invoker
}

func newMethod(c *Class, name, sig string, static, native bool, body HostFunc) *Method {
	m := &Method{
		class:     c,
		name:      name,
		signature: sig,
		static:    static,
		native:    native,
		body:      body,
	}
	m.sig, m.sigErr = jni.ParseSignature(sig)
	m.init(c.vm.methodClass)
	return m
}

// Class returns the declaring class.
func (m *Method) Class() *Class { return m.class }

// Name returns the method name.
func (m *Method) Name() string { return m.name }

// Signature returns the method signature string.
func (m *Method) Signature() string { return m.signature }

// ReturnKind returns the type code following the last ')' of the signature.
func (m *Method) ReturnKind() jni.Kind { return jni.ReturnKind(m.signature) }

// IsStatic reports whether the method is static.
func (m *Method) IsStatic() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.static
}

// IsNative reports whether the method is implemented by native code.
func (m *Method) IsNative() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.native
}

// Implemented reports whether calling the method runs any code: a host body
// for non-native methods or a bound target for native ones.
func (m *Method) Implemented() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.native {
		return m.target != nil
	}
	return m.body != nil
}

// Target returns the bound native target, if any.
func (m *Method) Target() Target {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.target
}

// Bind marks the method native and binds t as its native entry point. The
// call adapter for the return type is selected here, once, not per call.
func (m *Method) Bind(t Target) {
	m.bind(t, nil)
}

func (m *Method) bind(t Target, from *library) {
	inv := adapt(m, t)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.native = true
	m.target = t
	m.source = from
	m.invoker = inv
}

// Unbind drops the native target. The method stays native and will be
// resolved again from the attached libraries on its next call.
func (m *Method) Unbind() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target = nil
	m.source = nil
	m.invoker = nil
}

func (m *Method) unbindFrom(lib *library) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.source != lib || lib == nil {
		return false
	}
	m.target = nil
	m.source = nil
	m.invoker = nil
	return true
}

func (m *Method) boundInvoker() invoker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.invoker
}

func (m *Method) hostBody() HostFunc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.body
}

func (m *Method) String() string {
	return m.class.name + "." + m.name + m.signature
}
