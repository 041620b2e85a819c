// Package codegen records what native code asks of a runtime and turns the
// record into source.
//
// A Recorder is a jnivm.Observer. Attach it with jnivm.WithObserver, run the
// native library, then take a Dump: every class, method and field the
// library declared or looked up, with the native methods it called. Dumps
// serialize to YAML, are validated against their JSON Schema when read
// back, and generate Go registration stubs and a C header of native entry
// points.
package codegen
