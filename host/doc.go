// Package host runs native libraries compiled to WebAssembly.
//
// An Executor owns a wazero runtime with WASI and the "jni" host module,
// which exports the native-interface function table of package hostfuncs.
// It implements jnivm.LibraryOpener: each opened library is instantiated as
// its own guest module whose exports become native targets, so JNI_OnLoad,
// JNI_OnUnload and Java_* symbols bind exactly like in-process libraries.
//
//	exec, err := host.NewExecutor(ctx, host.WithFS(os.DirFS("libs")))
//	if err != nil {
//	    return err
//	}
//	defer exec.Close(ctx)
//
//	vm := jnivm.New(exec.VMOptions()...)
//	err = vm.AttachLibrary(ctx, "libgame.wasm")
package host
