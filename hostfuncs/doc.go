// Package hostfuncs implements the native-interface function table in pure
// Go. Functions operate on raw value stacks and a Memory abstraction, so they
// have no dependency on a particular wasm engine; the host package exports
// them to wazero.
package hostfuncs
