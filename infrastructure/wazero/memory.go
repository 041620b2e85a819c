package wazero

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/tetratelabs/wazero/api"
)

// ErrNoAllocator is returned when a guest exports neither allocate nor
// malloc.
var ErrNoAllocator = errors.New("guest module exports no allocator")

// Memory exposes a guest module's linear memory and allocator to the
// function table.
//
// Allocation prefers the guest's "allocate(size) ptr" export and falls back
// to "malloc". Freeing uses "deallocate(ptr, size)" or "free(ptr)"; a guest
// with neither keeps the memory.
type Memory struct {
	mod api.Module
	mem api.Memory
}

// NewMemory wraps mod. A module without linear memory has size zero and
// rejects every read and write.
func NewMemory(mod api.Module) *Memory {
	return &Memory{mod: mod, mem: linearMemory(mod)}
}

// linearMemory returns the memory of mod, or nil. wazero reports a missing
// memory as a typed nil pointer inside the api.Memory interface.
func linearMemory(mod api.Module) api.Memory {
	mem := mod.Memory()
	if mem == nil {
		return nil
	}
	if v := reflect.ValueOf(mem); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return mem
}

func (m *Memory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

func (m *Memory) Read(offset, byteCount uint32) ([]byte, bool) {
	if m.mem == nil {
		return nil, false
	}
	return m.mem.Read(offset, byteCount)
}

func (m *Memory) Write(offset uint32, v []byte) bool {
	if m.mem == nil {
		return false
	}
	return m.mem.Write(offset, v)
}

func (m *Memory) Allocate(ctx context.Context, size uint32) (uint32, error) {
	fn := m.export("allocate", "malloc")
	if fn == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoAllocator, m.mod.Name())
	}
	results, err := fn.Call(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("guest allocate(%d): %w", size, err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("guest allocate(%d): no result", size)
	}
	ptr := api.DecodeU32(results[0])
	if ptr == 0 && size > 0 {
		return 0, fmt.Errorf("guest allocate(%d): out of memory", size)
	}
	return ptr, nil
}

func (m *Memory) Free(ctx context.Context, ptr uint32) error {
	fn := m.export("deallocate", "free")
	if fn == nil {
		return nil
	}
	params := make([]uint64, len(fn.Definition().ParamTypes()))
	if len(params) > 0 {
		params[0] = uint64(ptr)
	}
	if _, err := fn.Call(ctx, params...); err != nil {
		return fmt.Errorf("guest free(%#x): %w", ptr, err)
	}
	return nil
}

func (m *Memory) export(names ...string) api.Function {
	for _, name := range names {
		if fn := m.mod.ExportedFunction(name); fn != nil {
			return fn
		}
	}
	return nil
}
