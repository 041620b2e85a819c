// Package wazero registers the native-interface function table with the
// wazero runtime and adapts guest modules to the runtime's native targets.
//
// It bridges the pure Go handlers of package hostfuncs with wasm guests:
//
//   - Every table function becomes an import of the "jni" host module
//   - Guest exports and function table entries become jnivm.Target values
//   - Guest linear memory and its allocate export back hostfuncs.Memory
//
// # Basic Usage
//
//	registry, err := hostfuncs.NewDefaultRegistry()
//	if err != nil {
//	    return err
//	}
//
//	runtime := wazero.NewRuntime(ctx)
//	err = wazero.RegisterWithRuntime(ctx, runtime, registry,
//	    wazero.WithModuleName("jni"),
//	)
//
// Guest code only reaches the table while the runtime is calling into it:
// the calling VM travels in the context passed to the guest function.
package wazero
