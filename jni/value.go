package jni

import (
	"fmt"
	"math"
)

// Ref is an opaque object handle as seen by native code. The zero Ref is the
// null reference.
type Ref uint32

// Null is the null reference.
const Null Ref = 0

// globalBit marks handles that live in the process-wide global table.
const globalBit Ref = 1 << 31

// IsGlobal reports whether r addresses the global reference table.
func (r Ref) IsGlobal() bool { return r&globalBit != 0 }

// Slot returns the zero-based table slot addressed by r. It must not be called
// on Null.
func (r Ref) Slot() int { return int(r&^globalBit) - 1 }

// LocalRef builds the handle for slot in a local reference frame.
func LocalRef(slot int) Ref { return Ref(uint32(slot) + 1) }

// GlobalRef builds the handle for slot in the global reference table.
func GlobalRef(slot int) Ref { return Ref(uint32(slot)+1) | globalBit }

// Value is a tagged union able to hold any argument or result crossing the
// native boundary. The zero Value is a void value.
type Value struct {
	kind Kind
	bits uint64
}

func VoidValue() Value { return Value{kind: Void} }
func BooleanValue(v bool) Value { return Value{kind: Boolean, bits: b2u(v)} }
func ByteValue(v int8) Value { return Value{kind: Byte, bits: uint64(uint8(v))} }
func CharValue(v uint16) Value { return Value{kind: Char, bits: uint64(v)} }
func ShortValue(v int16) Value { return Value{kind: Short, bits: uint64(uint16(v))} }
func IntValue(v int32) Value { return Value{kind: Int, bits: uint64(uint32(v))} }
func LongValue(v int64) Value { return Value{kind: Long, bits: uint64(v)} }
func FloatValue(v float32) Value { return Value{kind: Float, bits: uint64(math.Float32bits(v))} }
func DoubleValue(v float64) Value { return Value{kind: Double, bits: math.Float64bits(v)} }
func ObjectValue(r Ref) Value { return Value{kind: Object, bits: uint64(r)} }

func b2u(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// Kind returns the tag. Array-typed values are tagged Object.
func (v Value) Kind() Kind {
	if v.kind == 0 {
		return Void
	}
	return v.kind
}

func (v Value) Bool() bool { return v.bits&0xFF != 0 }
func (v Value) Byte() int8 { return int8(v.bits) }
func (v Value) Char() uint16 { return uint16(v.bits) }
func (v Value) Short() int16 { return int16(v.bits) }
func (v Value) Int() int32 { return int32(v.bits) }
func (v Value) Long() int64 { return int64(v.bits) }
func (v Value) Float() float32 { return math.Float32frombits(uint32(v.bits)) }
func (v Value) Double() float64 { return math.Float64frombits(v.bits) }
func (v Value) Ref() Ref { return Ref(uint32(v.bits)) }

// Bits returns the raw 64-bit payload, laid out the way a jvalue union holds it.
func (v Value) Bits() uint64 { return v.bits }

// FromBits rebuilds a value of kind k from a raw jvalue payload.
func FromBits(k Kind, bits uint64) Value {
	switch k {
	case Boolean:
		return BooleanValue(bits&0xFF != 0)
	case Byte:
		return ByteValue(int8(bits))
	case Char:
		return CharValue(uint16(bits))
	case Short:
		return ShortValue(int16(bits))
	case Int:
		return IntValue(int32(bits))
	case Long:
		return LongValue(int64(bits))
	case Float:
		return FloatValue(math.Float32frombits(uint32(bits)))
	case Double:
		return DoubleValue(math.Float64frombits(bits))
	case Object, Array:
		return ObjectValue(Ref(uint32(bits)))
	}
	return VoidValue()
}

// Zero returns the default value of kind k, which is what an unimplemented
// method yields.
func Zero(k Kind) Value {
	if k.IsReference() {
		return ObjectValue(Null)
	}
	if !k.Valid() {
		return VoidValue()
	}
	return Value{kind: k}
}

// As converts v to kind k using the widening and narrowing rules of the
// managed language. Reference values only convert to reference kinds.
func (v Value) As(k Kind) (Value, error) {
	from := v.Kind()
	if from == k || (from.IsReference() && k.IsReference()) {
		return v, nil
	}
	if from.IsReference() || k.IsReference() || from == Void || k == Void {
		return Value{}, fmt.Errorf("cannot convert %s value to %s", from.Name(), k.Name())
	}
	if from == Boolean || k == Boolean {
		return Value{}, fmt.Errorf("cannot convert %s value to %s", from.Name(), k.Name())
	}
	switch k {
	case Byte:
		return ByteValue(int8(v.integer())), nil
	case Char:
		return CharValue(uint16(v.integer())), nil
	case Short:
		return ShortValue(int16(v.integer())), nil
	case Int:
		return IntValue(int32(v.integer())), nil
	case Long:
		return LongValue(v.integer()), nil
	case Float:
		return FloatValue(float32(v.float())), nil
	case Double:
		return DoubleValue(v.float()), nil
	}
	return Value{}, fmt.Errorf("cannot convert %s value to %s", from.Name(), k.Name())
}

func (v Value) integer() int64 {
	switch v.Kind() {
	case Byte:
		return int64(v.Byte())
	case Char:
		return int64(v.Char())
	case Short:
		return int64(v.Short())
	case Int:
		return int64(v.Int())
	case Long:
		return v.Long()
	case Float:
		return int64(v.Float())
	case Double:
		return int64(v.Double())
	}
	return 0
}

func (v Value) float() float64 {
	switch v.Kind() {
	case Float:
		return float64(v.Float())
	case Double:
		return v.Double()
	}
	return float64(v.integer())
}

// Interface returns the payload as the matching Go type.
func (v Value) Interface() any {
	switch v.Kind() {
	case Boolean:
		return v.Bool()
	case Byte:
		return v.Byte()
	case Char:
		return v.Char()
	case Short:
		return v.Short()
	case Int:
		return v.Int()
	case Long:
		return v.Long()
	case Float:
		return v.Float()
	case Double:
		return v.Double()
	case Object, Array:
		return v.Ref()
	}
	return nil
}

func (v Value) String() string {
	if v.Kind() == Void {
		return "void"
	}
	return fmt.Sprintf("%s(%v)", v.Kind().Name(), v.Interface())
}
