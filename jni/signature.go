package jni

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedSignature is returned when a signature does not follow the
// (<params>)<return> form.
var ErrMalformedSignature = errors.New("malformed signature")

// Type is one parameter or return type of a signature.
type Type struct {
	Kind Kind
	// Descriptor is the full type spelling, e.g. "I", "Ljava/lang/String;" or "[[J".
	Descriptor string
}

// ClassName returns the internal class name the type refers to, or "" for
// primitives. Array types name their array class, e.g. "[I".
func (t Type) ClassName() string {
	switch t.Kind {
	case Object:
		return strings.TrimSuffix(strings.TrimPrefix(t.Descriptor, "L"), ";")
	case Array:
		return t.Descriptor
	}
	return ""
}

// Signature is a parsed method signature.
type Signature struct {
	Params []Type
	Return Type
	raw    string
}

func (s Signature) String() string { return s.raw }

// ReturnKind locates the return type of sig by reading the character that
// follows the last ')'. The result is not validated; callers that dispatch on
// it must reject unknown codes.
func ReturnKind(sig string) Kind {
	i := strings.LastIndexByte(sig, ')')
	if i < 0 || i+1 >= len(sig) {
		return 0
	}
	return Kind(sig[i+1])
}

// ParseSignature parses a method signature such as "(ILjava/lang/String;[J)V".
func ParseSignature(sig string) (Signature, error) {
	if len(sig) < 3 || sig[0] != '(' {
		return Signature{}, fmt.Errorf("%w: %q", ErrMalformedSignature, sig)
	}
	end := strings.LastIndexByte(sig, ')')
	if end < 0 {
		return Signature{}, fmt.Errorf("%w: %q: missing ')'", ErrMalformedSignature, sig)
	}

	out := Signature{raw: sig}
	for pos := 1; pos < end; {
		t, n, err := parseType(sig[pos:end])
		if err != nil {
			return Signature{}, fmt.Errorf("%w: %q: %v", ErrMalformedSignature, sig, err)
		}
		if t.Kind == Void {
			return Signature{}, fmt.Errorf("%w: %q: void parameter", ErrMalformedSignature, sig)
		}
		out.Params = append(out.Params, t)
		pos += n
	}

	ret, n, err := parseType(sig[end+1:])
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %q: %v", ErrMalformedSignature, sig, err)
	}
	if end+1+n != len(sig) {
		return Signature{}, fmt.Errorf("%w: %q: trailing characters", ErrMalformedSignature, sig)
	}
	out.Return = ret
	return out, nil
}

// ParseType parses a single field type descriptor.
func ParseType(desc string) (Type, error) {
	t, n, err := parseType(desc)
	if err != nil {
		return Type{}, fmt.Errorf("%w: %q: %v", ErrMalformedSignature, desc, err)
	}
	if n != len(desc) {
		return Type{}, fmt.Errorf("%w: %q: trailing characters", ErrMalformedSignature, desc)
	}
	return t, nil
}

func parseType(s string) (Type, int, error) {
	if s == "" {
		return Type{}, 0, errors.New("unexpected end of input")
	}
	switch k := Kind(s[0]); k {
	case Void, Boolean, Byte, Char, Short, Int, Long, Float, Double:
		return Type{Kind: k, Descriptor: s[:1]}, 1, nil
	case Object:
		semi := strings.IndexByte(s, ';')
		if semi < 2 {
			return Type{}, 0, fmt.Errorf("unterminated class type %q", s)
		}
		return Type{Kind: Object, Descriptor: s[:semi+1]}, semi + 1, nil
	case Array:
		elem, n, err := parseType(s[1:])
		if err != nil {
			return Type{}, 0, err
		}
		if elem.Kind == Void {
			return Type{}, 0, errors.New("array of void")
		}
		return Type{Kind: Array, Descriptor: s[:n+1]}, n + 1, nil
	default:
		return Type{}, 0, fmt.Errorf("unknown type code %q", s[0])
	}
}

// ClassNames returns every class name referenced by a method signature or a
// field descriptor, in order of appearance and without duplicates. Array
// element classes are included.
func ClassNames(sig string) ([]string, error) {
	var names []string
	seen := map[string]bool{}
	for pos := 0; pos < len(sig); {
		if sig[pos] == '(' || sig[pos] == ')' {
			pos++
			continue
		}
		t, n, err := parseType(sig[pos:])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedSignature, sig, err)
		}
		pos += n
		desc := strings.TrimLeft(t.Descriptor, "[")
		if desc[0] != byte(Object) {
			continue
		}
		name := desc[1 : len(desc)-1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}
