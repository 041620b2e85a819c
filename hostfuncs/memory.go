package hostfuncs

import (
	"bytes"
	"context"
	"encoding/binary"
	"unicode/utf16"

	"github.com/Dadoum/libjnivm/jni"
)

// maxCString bounds how far a NUL terminator is searched for.
const maxCString = 1 << 20

func readBytes(mem Memory, ptr, n uint32) ([]byte, error) {
	b, ok := mem.Read(ptr, n)
	if !ok {
		return nil, memErr("read", ptr, n)
	}
	return b, nil
}

func writeBytes(mem Memory, ptr uint32, b []byte) error {
	if !mem.Write(ptr, b) {
		return memErr("write", ptr, uint32(len(b)))
	}
	return nil
}

// readCString reads a NUL-terminated string.
func readCString(mem Memory, ptr uint32) (string, error) {
	if ptr == 0 {
		return "", memErr("read", ptr, 0)
	}
	size := mem.Size()
	if ptr >= size {
		return "", memErr("read", ptr, 1)
	}
	n := min(size-ptr, maxCString)
	b, err := readBytes(mem, ptr, n)
	if err != nil {
		return "", err
	}
	end := bytes.IndexByte(b, 0)
	if end < 0 {
		return "", memErr("read unterminated string", ptr, n)
	}
	return string(b[:end]), nil
}

func readU32(mem Memory, ptr uint32) (uint32, error) {
	b, err := readBytes(mem, ptr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func writeU32(mem Memory, ptr, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return writeBytes(mem, ptr, b[:])
}

// writeOptionalU32 stores v when ptr is not null, as done for out parameters
// like isCopy.
func writeOptionalU32(mem Memory, ptr, v uint32) error {
	if ptr == 0 {
		return nil
	}
	return writeU32(mem, ptr, v)
}

func writeOptionalBool(mem Memory, ptr uint32, v bool) error {
	if ptr == 0 {
		return nil
	}
	b := byte(0)
	if v {
		b = 1
	}
	return writeBytes(mem, ptr, []byte{b})
}

// readJValues reads a jvalue array: one 8-byte little-endian union per
// parameter.
func readJValues(mem Memory, ptr uint32, params []jni.Type) ([]jni.Value, error) {
	if len(params) == 0 {
		return nil, nil
	}
	b, err := readBytes(mem, ptr, uint32(8*len(params)))
	if err != nil {
		return nil, err
	}
	vals := make([]jni.Value, len(params))
	for i, p := range params {
		vals[i] = jni.FromBits(p.Kind, binary.LittleEndian.Uint64(b[8*i:]))
	}
	return vals, nil
}

// readVarArgs reads C variadic arguments laid out by a wasm32 compiler:
// integers narrower than int are promoted to a 4-byte int, float is promoted
// to double, and 8-byte values are 8-byte aligned.
func readVarArgs(mem Memory, ptr uint32, params []jni.Type) ([]jni.Value, error) {
	vals := make([]jni.Value, len(params))
	off := ptr
	for i, p := range params {
		size := uint32(4)
		if p.Kind == jni.Long || p.Kind == jni.Float || p.Kind == jni.Double {
			size = 8
		}
		off = (off + size - 1) &^ (size - 1)
		b, err := readBytes(mem, off, size)
		if err != nil {
			return nil, err
		}
		off += size
		if size == 4 {
			vals[i] = jni.FromBits(p.Kind, uint64(binary.LittleEndian.Uint32(b)))
			continue
		}
		bits := binary.LittleEndian.Uint64(b)
		if p.Kind == jni.Float {
			vals[i] = jni.FloatValue(float32(jni.FromBits(jni.Double, bits).Double()))
			continue
		}
		vals[i] = jni.FromBits(p.Kind, bits)
	}
	return vals, nil
}

// allocCopy copies b into freshly allocated guest memory.
func allocCopy(ctx context.Context, mem Memory, b []byte) (uint32, error) {
	ptr, err := mem.Allocate(ctx, uint32(len(b)))
	if err != nil {
		return 0, err
	}
	if err := writeBytes(mem, ptr, b); err != nil {
		return 0, err
	}
	return ptr, nil
}

func encodeUTF16(s string) []byte {
	return unitBytes(utf16.Encode([]rune(s)))
}

func unitBytes(units []uint16) []byte {
	b := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	return b
}

func decodeUTF16(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units))
}
