package jni

import "fmt"

// Kind is a single-character type code from the signature mini-language.
type Kind byte

const (
	Void    Kind = 'V'
	Boolean Kind = 'Z'
	Byte    Kind = 'B'
	Char    Kind = 'C'
	Short   Kind = 'S'
	Int     Kind = 'I'
	Long    Kind = 'J'
	Float   Kind = 'F'
	Double  Kind = 'D'
	Object  Kind = 'L'
	Array   Kind = '['
)

// Valid reports whether k is a known type code.
func (k Kind) Valid() bool {
	switch k {
	case Void, Boolean, Byte, Char, Short, Int, Long, Float, Double, Object, Array:
		return true
	}
	return false
}

// IsReference reports whether values of this kind travel as object handles.
func (k Kind) IsReference() bool {
	return k == Object || k == Array
}

// IsPrimitive reports whether k is one of the eight primitive kinds.
func (k Kind) IsPrimitive() bool {
	return k.Valid() && k != Void && !k.IsReference()
}

// Name returns the JNI spelling used in function names like CallIntMethod.
func (k Kind) Name() string {
	switch k {
	case Void:
		return "Void"
	case Boolean:
		return "Boolean"
	case Byte:
		return "Byte"
	case Char:
		return "Char"
	case Short:
		return "Short"
	case Int:
		return "Int"
	case Long:
		return "Long"
	case Float:
		return "Float"
	case Double:
		return "Double"
	case Object, Array:
		return "Object"
	}
	return fmt.Sprintf("Kind(%q)", byte(k))
}

func (k Kind) String() string {
	return string(rune(k))
}

// Kinds lists the return kinds the dispatch core can adapt, in the order the
// native-interface function table declares its Call<Type>Method families.
var Kinds = []Kind{Object, Boolean, Byte, Char, Short, Int, Long, Float, Double, Void}
