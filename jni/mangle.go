package jni

import (
	"fmt"
	"strings"
)

// Mangle escapes a class name, method name or parameter list the way native
// symbol names encode them: '/' becomes '_', '_' becomes "_1", ';' becomes
// "_2", '[' becomes "_3" and any other character outside [A-Za-z0-9] becomes
// "_0xxxx" with four lowercase hex digits.
func Mangle(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '/' || r == '.':
			b.WriteByte('_')
		case r == '_':
			b.WriteString("_1")
		case r == ';':
			b.WriteString("_2")
		case r == '[':
			b.WriteString("_3")
		case r < 0x80 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			for _, u := range utf16Units(r) {
				fmt.Fprintf(&b, "_0%04x", u)
			}
		}
	}
	return b.String()
}

func utf16Units(r rune) []uint16 {
	if r < 0x10000 {
		return []uint16{uint16(r)}
	}
	r -= 0x10000
	return []uint16{uint16(0xD800 + (r>>10)&0x3FF), uint16(0xDC00 + r&0x3FF)}
}

// ShortSymbol returns the symbol a library exports for a native method that
// is not overloaded: Java_<class>_<method>.
func ShortSymbol(class, method string) string {
	return "Java_" + Mangle(class) + "_" + Mangle(method)
}

// LongSymbol returns the overload-qualified symbol:
// Java_<class>_<method>__<params>. Only the parameter part of sig is used.
func LongSymbol(class, method, sig string) string {
	params := sig
	if i := strings.IndexByte(sig, '('); i >= 0 {
		params = sig[i+1:]
	}
	if i := strings.LastIndexByte(params, ')'); i >= 0 {
		params = params[:i]
	}
	return ShortSymbol(class, method) + "__" + Mangle(params)
}
