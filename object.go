package jnivm

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Dadoum/libjnivm/jni"
)

// Entity is implemented by every value the runtime can hand to native code:
// classes, methods, fields and instances. Host types become entities by
// embedding Object or Instance.
type Entity interface {
	Base() *Object
}

var objectIDs atomic.Uint64

// Object is the identity-bearing core shared by all entities.
type Object struct {
	id    atomic.Uint64
	class *Class
}

// Base returns o itself; it is what makes embedding types entities.
func (o *Object) Base() *Object { return o }

// ID returns the entity's process-unique identity, assigning one on first use.
func (o *Object) ID() uint64 {
	if id := o.id.Load(); id != 0 {
		return id
	}
	o.id.CompareAndSwap(0, objectIDs.Add(1))
	return o.id.Load()
}

// Class returns the class the entity was created with, or nil for host values
// whose class is resolved through the runtime's host type map.
func (o *Object) Class() *Class { return o.class }

func (o *Object) init(c *Class) {
	o.class = c
	o.ID()
}

// Slot holds a stored field value. Reference-typed slots keep the entity
// itself, never a handle, so stored objects outlive the frame that wrote them.
type Slot struct {
	Value  jni.Value
	Entity Entity
}

// Instance is a plain object with per-instance field storage.
type Instance struct {
	Object
	mu     sync.Mutex
	fields map[*Field]Slot
}

// NewInstance allocates an instance of c without running any constructor.
func NewInstance(c *Class) *Instance {
	in := &Instance{}
	in.init(c)
	return in
}

// Field reads an instance field, returning the zero value of its type when
// the field was never written.
func (in *Instance) Field(f *Field) Slot {
	in.mu.Lock()
	defer in.mu.Unlock()
	if v, ok := in.fields[f]; ok {
		return v
	}
	return Slot{Value: jni.Zero(f.Kind())}
}

// SetField writes an instance field.
func (in *Instance) SetField(f *Field, v Slot) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.fields == nil {
		in.fields = make(map[*Field]Slot)
	}
	in.fields[f] = v
}

// fieldHolder is implemented by entities that can store instance fields.
type fieldHolder interface {
	Field(f *Field) Slot
	SetField(f *Field, v Slot)
}

// String is a java/lang/String.
type String struct {
	Object
	Value string
}

// Array is a primitive or reference array. Reference arrays hold entities,
// not handles, so elements survive the frames they were stored from.
type Array struct {
	Object
	Elem  jni.Type
	mu    sync.RWMutex
	prims []jni.Value
	refs  []Entity
}

// Len returns the number of elements.
func (a *Array) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.Elem.Kind.IsReference() {
		return len(a.refs)
	}
	return len(a.prims)
}

// Get returns a primitive element.
func (a *Array) Get(i int) (jni.Value, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i < 0 || i >= len(a.prims) {
		return jni.Value{}, fmt.Errorf("%w: array index %d for length %d", ErrIndexOutOfBounds, i, len(a.prims))
	}
	return a.prims[i], nil
}

// Set stores a primitive element, converting it to the element type.
func (a *Array) Set(i int, v jni.Value) error {
	conv, err := v.As(a.Elem.Kind)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.prims) {
		return fmt.Errorf("%w: array index %d for length %d", ErrIndexOutOfBounds, i, len(a.prims))
	}
	a.prims[i] = conv
	return nil
}

// Element returns a reference element.
func (a *Array) Element(i int) (Entity, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i < 0 || i >= len(a.refs) {
		return nil, fmt.Errorf("%w: array index %d for length %d", ErrIndexOutOfBounds, i, len(a.refs))
	}
	return a.refs[i], nil
}

// SetElement stores a reference element.
func (a *Array) SetElement(i int, e Entity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.refs) {
		return fmt.Errorf("%w: array index %d for length %d", ErrIndexOutOfBounds, i, len(a.refs))
	}
	a.refs[i] = e
	return nil
}

// Throwable is an instance of java/lang/Throwable or one of its subclasses.
type Throwable struct {
	Instance
	Message string
	// Cause is the Go error the throwable was raised from, if any.
	Cause error
}

func (t *Throwable) String() string {
	name := "java/lang/Throwable"
	if c := t.Class(); c != nil {
		name = c.Name()
	}
	if t.Message == "" {
		return name
	}
	return name + ": " + t.Message
}
