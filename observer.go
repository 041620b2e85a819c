package jnivm

// Observer is notified of declarations and native call attempts. Callbacks
// run synchronously on the thread that triggered them and must not block.
type Observer interface {
	ClassDeclared(c *Class)
	MethodDeclared(m *Method)
	FieldDeclared(f *Field)
	// NativeCall is reported before a native method is dispatched, whether
	// or not a target can be found for it.
	NativeCall(m *Method)
	// Unimplemented is reported when a non-native method without a body is
	// called.
	Unimplemented(m *Method)
}

// NopObserver implements Observer with no-ops; embed it to observe a subset
// of events.
type NopObserver struct{}

func (NopObserver) ClassDeclared(*Class)   {}
func (NopObserver) MethodDeclared(*Method) {}
func (NopObserver) FieldDeclared(*Field)   {}
func (NopObserver) NativeCall(*Method)     {}
func (NopObserver) Unimplemented(*Method)  {}
