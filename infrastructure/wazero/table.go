package wazero

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental/table"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/hostfuncs"
	"github.com/Dadoum/libjnivm/jni"
)

// ErrBadFunctionPointer is returned when a function pointer does not name a
// table entry of the expected type.
var ErrBadFunctionPointer = errors.New("invalid guest function pointer")

// TableResolver resolves guest function pointers, which are indices into
// the module's first function table.
type TableResolver struct {
	mod     api.Module
	library string
}

// NewTableResolver wraps mod. library names the module in resolved targets.
func NewTableResolver(mod api.Module, library string) *TableResolver {
	return &TableResolver{mod: mod, library: library}
}

// FunctionAt returns the table entry at index, checked against the stack
// types of a native method with signature sig.
func (r *TableResolver) FunctionAt(_ context.Context, index uint32, sig string) (jnivm.Target, error) {
	s, err := jni.ParseSignature(sig)
	if err != nil {
		return nil, err
	}
	params := []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	for _, p := range s.Params {
		vt, _ := hostfuncs.ValueTypeOf(p.Kind)
		params = append(params, api.ValueType(vt))
	}
	var results []api.ValueType
	if vt, ok := hostfuncs.ValueTypeOf(s.Return.Kind); ok {
		results = append(results, api.ValueType(vt))
	}

	fn, err := lookupFunction(r.mod, index, params, results)
	if err != nil {
		return nil, fmt.Errorf("%w: %d for %s: %v", ErrBadFunctionPointer, index, sig, err)
	}
	return NewFunction(fn, fmt.Sprintf("%s[%d]", r.mod.Name(), index), r.library), nil
}

// lookupFunction turns the panics of table.LookupFunction into errors.
func lookupFunction(mod api.Module, index uint32, params, results []api.ValueType) (fn api.Function, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return table.LookupFunction(mod, 0, index, params, results), nil
}
