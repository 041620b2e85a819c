package jnivm

import (
	"reflect"
	"sort"
	"sync"

	"github.com/Dadoum/libjnivm/jni"
)

type memberKey struct {
	name string
	sig  string
}

// Class describes a managed class. Classes are owned by the runtime that
// declared them and are shared by the by-name and by-host-type registries and
// by any handles native code holds.
type Class struct {
	Object
	name     string
	vm       *VM
	implicit bool

	mu       sync.RWMutex
	super    *Class
	hostType reflect.Type
	methods  map[memberKey]*Method
	fields   map[memberKey]*Field
}

func newClass(vm *VM, name string, super *Class, implicit bool) *Class {
	c := &Class{
		name:     name,
		vm:       vm,
		implicit: implicit,
		super:    super,
		methods:  make(map[memberKey]*Method),
		fields:   make(map[memberKey]*Field),
	}
	c.init(vm.classClass)
	return c
}

// Name returns the internal class name, e.g. "java/lang/String".
func (c *Class) Name() string { return c.name }

// Implicit reports whether the class was declared on demand by a lookup
// rather than registered by the embedder.
func (c *Class) Implicit() bool { return c.implicit }

// VM returns the runtime that owns the class.
func (c *Class) VM() *VM { return c.vm }

// Super returns the superclass, or nil for java/lang/Object.
func (c *Class) Super() *Class {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.super
}

// SetSuper replaces the superclass.
func (c *Class) SetSuper(super *Class) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.super = super
}

// HostType returns the Go type registered for the class, if any.
func (c *Class) HostType() reflect.Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hostType
}

// IsSubclassOf reports whether c is other or inherits from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for cur := c; cur != nil; cur = cur.Super() {
		if cur == other {
			return true
		}
	}
	return false
}

// Method looks up a method by name and signature on c and its superclasses.
func (c *Class) Method(name, sig string) *Method {
	key := memberKey{name, sig}
	for cur := c; cur != nil; cur = cur.Super() {
		cur.mu.RLock()
		m := cur.methods[key]
		cur.mu.RUnlock()
		if m != nil {
			return m
		}
	}
	return nil
}

// GetMethod looks up a method and implicitly declares it on c when no class
// in the hierarchy has it. Implicit methods have no body and return the zero
// value of their return type.
func (c *Class) GetMethod(name, sig string, static bool) *Method {
	if m := c.Method(name, sig); m != nil {
		return m
	}
	m, created := c.addMethod(name, sig, static, false, nil)
	if created {
		c.vm.observeMethod(m)
	}
	return m
}

// DefineMethod declares a host-implemented method. An existing declaration
// with the same name and signature gets the new body.
func (c *Class) DefineMethod(name, sig string, static bool, body HostFunc) *Method {
	m, created := c.addMethod(name, sig, static, false, body)
	if !created {
		m.mu.Lock()
		m.body = body
		m.static = static
		m.mu.Unlock()
	}
	if created {
		c.vm.observeMethod(m)
	}
	return m
}

// DefineNative declares a native method. Its target is resolved from the
// attached libraries on first call unless one is bound explicitly.
func (c *Class) DefineNative(name, sig string, static bool) *Method {
	m, created := c.addMethod(name, sig, static, true, nil)
	if !created {
		m.mu.Lock()
		m.native = true
		m.static = static
		m.mu.Unlock()
	}
	if created {
		c.vm.observeMethod(m)
	}
	return m
}

func (c *Class) addMethod(name, sig string, static, native bool, body HostFunc) (*Method, bool) {
	key := memberKey{name, sig}
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.methods[key]; ok {
		return m, false
	}
	m := newMethod(c, name, sig, static, native, body)
	c.methods[key] = m
	return m, true
}

// Methods returns the methods declared directly on c, sorted by name and
// signature.
func (c *Class) Methods() []*Method {
	c.mu.RLock()
	out := make([]*Method, 0, len(c.methods))
	for _, m := range c.methods {
		out = append(out, m)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].signature < out[j].signature
	})
	return out
}

// Field looks up a field by name and type descriptor on c and its superclasses.
func (c *Class) Field(name, sig string) *Field {
	key := memberKey{name, sig}
	for cur := c; cur != nil; cur = cur.Super() {
		cur.mu.RLock()
		f := cur.fields[key]
		cur.mu.RUnlock()
		if f != nil {
			return f
		}
	}
	return nil
}

// GetField looks up a field and implicitly declares it on c when missing.
func (c *Class) GetField(name, sig string, static bool) *Field {
	if f := c.Field(name, sig); f != nil {
		return f
	}
	return c.DefineField(name, sig, static)
}

// DefineField declares a field on c, returning the existing one when already
// declared.
func (c *Class) DefineField(name, sig string, static bool) *Field {
	key := memberKey{name, sig}
	c.mu.Lock()
	f, ok := c.fields[key]
	if !ok {
		f = newField(c, name, sig, static)
		c.fields[key] = f
	}
	c.mu.Unlock()
	if !ok {
		c.vm.observeField(f)
	}
	return f
}

// Fields returns the fields declared directly on c, sorted by name.
func (c *Class) Fields() []*Field {
	c.mu.RLock()
	out := make([]*Field, 0, len(c.fields))
	for _, f := range c.fields {
		out = append(out, f)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].signature < out[j].signature
	})
	return out
}

// NewInstance allocates an uninitialised instance of c.
func (c *Class) NewInstance() *Instance {
	return NewInstance(c)
}

// IsInstance reports whether e is an instance of c.
func (c *Class) IsInstance(e Entity) bool {
	if e == nil {
		return false
	}
	ec := c.vm.ClassOf(e)
	return ec != nil && ec.IsSubclassOf(c)
}

// arrayElem returns the element type for array classes like "[I".
func (c *Class) arrayElem() (jni.Type, bool) {
	if len(c.name) < 2 || c.name[0] != '[' {
		return jni.Type{}, false
	}
	t, err := jni.ParseType(c.name[1:])
	if err != nil {
		return jni.Type{}, false
	}
	return t, true
}
