// Package testutil builds small wasm guest modules for tests.
package testutil

import (
	"encoding/binary"
	"math"
)

// Value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
	F32 byte = 0x7d
	F64 byte = 0x7c
)

// Signature is a function type.
type Signature struct {
	Params  []byte
	Results []byte
}

// Import is an imported function.
type Import struct {
	Module string
	Name   string
	Type   Signature
}

// Func is a defined function. Body holds the instructions without the
// trailing end opcode.
type Func struct {
	Type   Signature
	Locals []byte
	Body   []byte
	// Export is the export name, or "" to keep the function private.
	Export string
}

// Data is an active data segment.
type Data struct {
	Offset uint32
	Bytes  []byte
}

// Module is a guest module. Function indices number imports first, then
// Funcs in order. Table lists function indices placed in the module's table
// from slot TableBase on; slot 0 stays null.
type Module struct {
	Imports []Import
	Funcs   []Func
	Table   []uint32
	// Memory is the minimum page count; 0 defines no memory.
	Memory uint32
	Data   []Data
}

// TableBase is the first table slot filled from Module.Table.
const TableBase = 1

// FuncIndex returns the function index of m.Funcs[i].
func (m *Module) FuncIndex(i int) uint32 { return uint32(len(m.Imports) + i) }

// Encode returns the binary module.
func (m *Module) Encode() []byte {
	var types []Signature
	typeIndex := func(s Signature) uint32 {
		for i, t := range types {
			if string(t.Params) == string(s.Params) && string(t.Results) == string(s.Results) {
				return uint32(i)
			}
		}
		types = append(types, s)
		return uint32(len(types) - 1)
	}
	imports := make([]uint32, len(m.Imports))
	for i, imp := range m.Imports {
		imports[i] = typeIndex(imp.Type)
	}
	funcs := make([]uint32, len(m.Funcs))
	for i, f := range m.Funcs {
		funcs[i] = typeIndex(f.Type)
	}

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	var sec []byte
	sec = uleb(sec, uint32(len(types)))
	for _, t := range types {
		sec = append(sec, 0x60)
		sec = vec(sec, t.Params)
		sec = vec(sec, t.Results)
	}
	out = section(out, 1, sec)

	if len(m.Imports) > 0 {
		sec = uleb(nil, uint32(len(m.Imports)))
		for i, imp := range m.Imports {
			sec = vec(sec, []byte(imp.Module))
			sec = vec(sec, []byte(imp.Name))
			sec = append(sec, 0x00)
			sec = uleb(sec, imports[i])
		}
		out = section(out, 2, sec)
	}

	sec = uleb(nil, uint32(len(funcs)))
	for _, t := range funcs {
		sec = uleb(sec, t)
	}
	out = section(out, 3, sec)

	if len(m.Table) > 0 {
		sec = []byte{0x01, 0x70, 0x00}
		sec = uleb(sec, uint32(len(m.Table)+TableBase))
		out = section(out, 4, sec)
	}

	if m.Memory > 0 {
		sec = []byte{0x01, 0x00}
		sec = uleb(sec, m.Memory)
		out = section(out, 5, sec)
	}

	var exports [][]byte
	for i, f := range m.Funcs {
		if f.Export == "" {
			continue
		}
		e := vec(nil, []byte(f.Export))
		e = append(e, 0x00)
		exports = append(exports, uleb(e, m.FuncIndex(i)))
	}
	if m.Memory > 0 {
		exports = append(exports, append(vec(nil, []byte("memory")), 0x02, 0x00))
	}
	sec = uleb(nil, uint32(len(exports)))
	for _, e := range exports {
		sec = append(sec, e...)
	}
	out = section(out, 7, sec)

	if len(m.Table) > 0 {
		sec = []byte{0x01, 0x00}
		sec = append(sec, I32Const(TableBase)...)
		sec = append(sec, 0x0b)
		sec = uleb(sec, uint32(len(m.Table)))
		for _, idx := range m.Table {
			sec = uleb(sec, idx)
		}
		out = section(out, 9, sec)
	}

	sec = uleb(nil, uint32(len(m.Funcs)))
	for _, f := range m.Funcs {
		var body []byte
		if len(f.Locals) == 0 {
			body = []byte{0x00}
		} else {
			body = uleb(nil, uint32(len(f.Locals)))
			for _, l := range f.Locals {
				body = append(body, 0x01, l)
			}
		}
		body = append(body, f.Body...)
		body = append(body, 0x0b)
		sec = vec(sec, body)
	}
	out = section(out, 10, sec)

	if len(m.Data) > 0 {
		sec = uleb(nil, uint32(len(m.Data)))
		for _, d := range m.Data {
			sec = append(sec, 0x00)
			sec = append(sec, I32Const(int32(d.Offset))...)
			sec = append(sec, 0x0b)
			sec = vec(sec, d.Bytes)
		}
		out = section(out, 11, sec)
	}
	return out
}

// Ops concatenates instruction sequences.
func Ops(ops ...[]byte) []byte {
	var out []byte
	for _, op := range ops {
		out = append(out, op...)
	}
	return out
}

func I32Const(v int32) []byte { return sleb([]byte{0x41}, int64(v)) }

func I64Const(v int64) []byte { return sleb([]byte{0x42}, v) }

func F32Const(v float32) []byte {
	return binary.LittleEndian.AppendUint32([]byte{0x43}, math.Float32bits(v))
}

func F64Const(v float64) []byte {
	return binary.LittleEndian.AppendUint64([]byte{0x44}, math.Float64bits(v))
}

func LocalGet(i uint32) []byte { return uleb([]byte{0x20}, i) }

func LocalTee(i uint32) []byte { return uleb([]byte{0x22}, i) }

func Call(fn uint32) []byte { return uleb([]byte{0x10}, fn) }

// Memory instructions use natural alignment and no offset.
var (
	I32Load       = []byte{0x28, 0x02, 0x00}
	I32Store      = []byte{0x36, 0x02, 0x00}
	I32Load8U     = []byte{0x2d, 0x00, 0x00}
	I32Add        = []byte{0x6a}
	I64Add        = []byte{0x7c}
	I64ExtendI32S = []byte{0xac}
	F64PromoteF32 = []byte{0xbb}
	F64Mul        = []byte{0xa2}
	Drop          = []byte{0x1a}
)

// BumpAllocator is an "allocate(size) ptr" export serving memory from base
// upwards. It keeps its cursor in the word at address 0, which Data must
// seed, see BumpData.
func BumpAllocator() Func {
	return Func{
		Type:   Signature{Params: []byte{I32}, Results: []byte{I32}},
		Locals: []byte{I32},
		Body: Ops(
			I32Const(0),
			I32Const(0), I32Load, LocalTee(1),
			LocalGet(0), I32Add,
			I32Store,
			LocalGet(1),
		),
		Export: "allocate",
	}
}

// BumpData seeds the allocator cursor of BumpAllocator.
func BumpData(base uint32) Data {
	return Data{Offset: 0, Bytes: binary.LittleEndian.AppendUint32(nil, base)}
}

// CString returns s with a terminating NUL.
func CString(s string) []byte { return append([]byte(s), 0) }

func section(out []byte, id byte, body []byte) []byte {
	out = append(out, id)
	return vec(out, body)
}

func vec(out, b []byte) []byte {
	out = uleb(out, uint32(len(b)))
	return append(out, b...)
}

func uleb(out []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(out []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
