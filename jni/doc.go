// Package jni holds the vocabulary shared by the runtime and by native libraries:
// type codes, the jvalue-style tagged union, opaque reference handles, the
// signature mini-language, native symbol name mangling and the ordered
// native-interface function table.
//
// Nothing in this package depends on the runtime or on a wasm engine.
package jni
