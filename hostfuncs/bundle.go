package hostfuncs

// Bundle is a set of related functions registered together.
type Bundle interface {
	Functions() []Function
}

type staticBundle struct {
	functions []Function
}

func (b *staticBundle) Functions() []Function {
	return b.functions
}

func bundleOf(fs ...[]Function) Bundle {
	b := &staticBundle{}
	for _, f := range fs {
		b.functions = append(b.functions, f...)
	}
	return b
}

// AllBundles returns every function this package implements.
func AllBundles() Bundle {
	return bundleOf(
		ClassBundle().Functions(),
		ReflectionBundle().Functions(),
		CallBundle().Functions(),
		FieldBundle().Functions(),
		RefBundle().Functions(),
		ExceptionBundle().Functions(),
		StringBundle().Functions(),
		ArrayBundle().Functions(),
		NativesBundle().Functions(),
		InvokeBundle().Functions(),
		LogBundle().Functions(),
	)
}

// NewDefaultRegistry builds the full table. Handler errors, panics included,
// become managed exceptions in the caller's environment.
func NewDefaultRegistry(extra ...RegistryOption) (*HandlerRegistry, error) {
	opts := []RegistryOption{
		WithMiddleware(ExceptionMiddleware(), PanicRecoveryMiddleware()),
		WithBundle(AllBundles()),
	}
	return NewRegistry(append(opts, extra...)...)
}
