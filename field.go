package jnivm

import (
	"sync"

	"github.com/Dadoum/libjnivm/jni"
)

// Field describes a field of a class. Static fields keep their value here;
// instance values live in the instances.
type Field struct {
	Object
	class     *Class
	name      string
	signature string
	typ       jni.Type
	static    bool

	mu    sync.RWMutex
	value Slot
}

func newField(c *Class, name, sig string, static bool) *Field {
	f := &Field{class: c, name: name, signature: sig, static: static}
	if t, err := jni.ParseType(sig); err == nil {
		f.typ = t
	} else {
		f.typ = jni.Type{Kind: jni.Kind(firstByte(sig)), Descriptor: sig}
	}
	f.value = Slot{Value: jni.Zero(f.typ.Kind)}
	f.init(c.vm.fieldClass)
	return f
}

func firstByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[0]
}

// Class returns the declaring class.
func (f *Field) Class() *Class { return f.class }

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Signature returns the field type descriptor.
func (f *Field) Signature() string { return f.signature }

// Kind returns the field's type code.
func (f *Field) Kind() jni.Kind { return f.typ.Kind }

// IsStatic reports whether the field is static.
func (f *Field) IsStatic() bool { return f.static }

// Static returns the value of a static field.
func (f *Field) Static() Slot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// SetStatic stores the value of a static field.
func (f *Field) SetStatic(v Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
}

func (f *Field) String() string {
	return f.class.name + "." + f.name + ":" + f.signature
}
