package jnivm

import (
	"fmt"

	"github.com/Dadoum/libjnivm/jni"
)

// NewGlobalRef keeps e alive until DeleteGlobalRef and returns a handle to
// it. The table only grows, so every handle stays distinct and valid until
// released.
func (vm *VM) NewGlobalRef(e Entity) jni.Ref {
	if isNil(e) {
		return jni.Null
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.globals = append(vm.globals, e)
	return jni.GlobalRef(len(vm.globals) - 1)
}

// InternRef returns a global reference to e that is shared by every caller
// asking for the same entity. Native code addresses classes, methods and
// fields by such references; they cannot be deleted.
func (vm *VM) InternRef(e Entity) jni.Ref {
	if isNil(e) {
		return jni.Null
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if r, ok := vm.interned[e]; ok {
		return r
	}
	vm.globals = append(vm.globals, e)
	r := jni.GlobalRef(len(vm.globals) - 1)
	vm.interned[e] = r
	return r
}

// DeleteGlobalRef releases a global reference. Other handles are unaffected.
func (vm *VM) DeleteGlobalRef(r jni.Ref) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	s, err := vm.globalSlot(r)
	if err != nil {
		return err
	}
	if ir, ok := vm.interned[vm.globals[s]]; ok && ir == r {
		return fmt.Errorf("%w: interned %#x cannot be deleted", ErrInvalidRef, uint32(r))
	}
	vm.globals[s] = nil
	return nil
}

// ResolveGlobal returns the entity a global reference holds.
func (vm *VM) ResolveGlobal(r jni.Ref) (Entity, error) {
	if r == jni.Null {
		return nil, nil
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	s, err := vm.globalSlot(r)
	if err != nil {
		return nil, err
	}
	return vm.globals[s], nil
}

func (vm *VM) globalSlot(r jni.Ref) (int, error) {
	s := r.Slot()
	if !r.IsGlobal() || s < 0 || s >= len(vm.globals) || vm.globals[s] == nil {
		return 0, fmt.Errorf("%w: global %#x", ErrInvalidRef, uint32(r))
	}
	return s, nil
}
