package jnivm

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/Dadoum/libjnivm/jni"
)

// FindClass returns the class registered under name. A missing class is
// declared on demand as a subclass of java/lang/Object, so repeated lookups
// of the same name return the same class. With WithStrictClasses a missing
// class other than an array class is an ErrClassNotFound error instead.
func (vm *VM) FindClass(name string) (*Class, error) {
	name = normalizeClassName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty class name", ErrClassNotFound)
	}
	vm.mu.Lock()
	if c, ok := vm.classes[name]; ok {
		vm.mu.Unlock()
		return c, nil
	}
	if vm.strict && name[0] != '[' {
		vm.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}
	c := newClass(vm, name, vm.objectClass, true)
	vm.classes[name] = c
	vm.mu.Unlock()

	vm.logger.Debug("jnivm: declared class on demand", "class", name)
	vm.observeClass(c)
	return c, nil
}

// MustFindClass is FindClass for names known to be registered.
func (vm *VM) MustFindClass(name string) *Class {
	c, err := vm.FindClass(name)
	if err != nil {
		panic(err)
	}
	return c
}

// DefineClass registers a class explicitly. A new class with a nil super
// extends java/lang/Object. For an existing class a non-nil super replaces
// its superclass and a nil super keeps it.
func (vm *VM) DefineClass(name string, super *Class) *Class {
	name = normalizeClassName(name)
	vm.mu.Lock()
	c, ok := vm.classes[name]
	if !ok {
		parent := super
		if parent == nil && name != "java/lang/Object" {
			parent = vm.objectClass
		}
		c = newClass(vm, name, parent, false)
		vm.classes[name] = c
	}
	vm.mu.Unlock()
	if ok {
		if super != nil {
			c.SetSuper(super)
		}
		return c
	}
	vm.observeClass(c)
	return c
}

func (vm *VM) lookupClass(name string) (*Class, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	c, ok := vm.classes[name]
	return c, ok
}

// Classes returns every registered class sorted by name.
func (vm *VM) Classes() []*Class {
	vm.mu.Lock()
	out := make([]*Class, 0, len(vm.classes))
	for _, c := range vm.classes {
		out = append(out, c)
	}
	vm.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// DeclareSignature declares every class a method or field signature names.
func (vm *VM) DeclareSignature(sig string) error {
	names, err := jni.ClassNames(sig)
	if err != nil {
		return err
	}
	for _, n := range names {
		if _, err := vm.FindClass(n); err != nil {
			return err
		}
	}
	return nil
}

// RegisterClass maps the host type typ to the class name, declaring the
// class when needed. Entities of that type whose embedded Object carries no
// class resolve to it through ClassOf.
func (vm *VM) RegisterClass(name string, typ reflect.Type) (*Class, error) {
	if typ == nil || !typ.Implements(entityType) {
		return nil, fmt.Errorf("%w: %v does not implement Entity", ErrArgumentType, typ)
	}
	c := vm.DefineClass(name, nil)
	c.mu.Lock()
	c.hostType = typ
	c.mu.Unlock()

	vm.mu.Lock()
	vm.hostTypes[typ] = c
	vm.mu.Unlock()
	return c, nil
}

// RegisterType maps the Go type T to the class name.
func RegisterType[T Entity](vm *VM, name string) *Class {
	c, err := vm.RegisterClass(name, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		panic(err)
	}
	return c
}

// ClassOf returns the class representing e: the class it was created with,
// otherwise the class registered for its host type.
func (vm *VM) ClassOf(e Entity) *Class {
	if isNil(e) {
		return nil
	}
	if c := e.Base().Class(); c != nil {
		return c
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.hostTypes[reflect.TypeOf(e)]
}

// NativeMethod describes one native binding. Fn is either a Target or a Go
// function accepted by NewGoTarget. Static is only consulted when the method
// is not declared yet.
type NativeMethod struct {
	Name      string
	Signature string
	Static    bool
	Fn        any
}

// RegisterNatives binds native targets to methods of cls, declaring the
// methods as native when needed.
func (vm *VM) RegisterNatives(cls *Class, methods []NativeMethod) error {
	for _, nm := range methods {
		t, ok := nm.Fn.(Target)
		if !ok {
			g, err := NewGoTarget(cls.name+"."+nm.Name, nm.Fn)
			if err != nil {
				return &SignatureError{Err: err, Class: cls.name, Method: nm.Name, Signature: nm.Signature}
			}
			t = g
		}
		static := nm.Static
		if m := cls.Method(nm.Name, nm.Signature); m != nil {
			static = m.IsStatic()
		}
		cls.DefineNative(nm.Name, nm.Signature, static).Bind(t)
		vm.logger.Debug("jnivm: registered native", "class", cls.name, "method", nm.Name, "signature", nm.Signature)
	}
	return nil
}

// UnregisterNatives unbinds every native method declared on cls.
func (vm *VM) UnregisterNatives(cls *Class) {
	for _, m := range cls.Methods() {
		if m.IsNative() {
			m.Unbind()
		}
	}
}

// normalizeClassName accepts dotted names and descriptors.
func normalizeClassName(name string) string {
	if len(name) > 2 && name[0] == 'L' && name[len(name)-1] == ';' {
		name = name[1 : len(name)-1]
	}
	out := []byte(name)
	for i, b := range out {
		if b == '.' {
			out[i] = '/'
		}
	}
	return string(out)
}
