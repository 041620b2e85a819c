package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/hostfuncs"
	adapter "github.com/Dadoum/libjnivm/infrastructure/wazero"
)

// ErrMissingImport is returned when a guest imports a table function the
// executor's registry lacks.
var ErrMissingImport = errors.New("guest imports an unknown native-interface function")

// Executor manages the wazero runtime shared by all guest libraries.
type Executor struct {
	runtime     wazero.Runtime
	cache       wazero.CompilationCache
	registry    *hostfuncs.HandlerRegistry
	logger      *slog.Logger
	moduleName  string
	fsys        fs.FS
	memoryLimit uint32
	cacheDir    string

	mu        sync.Mutex
	instances map[string]int
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{
		logger:     slog.Default(),
		moduleName: "jni",
		instances:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		reg, err := hostfuncs.NewDefaultRegistry(
			hostfuncs.WithMiddleware(hostfuncs.LoggingMiddleware(e.logger)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create default registry: %w", err)
		}
		e.registry = reg
	}

	cfg := wazero.NewRuntimeConfig()
	if e.memoryLimit > 0 {
		cfg = cfg.WithMemoryLimitPages(e.memoryLimit)
	}
	if e.cacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(e.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache: %w", err)
		}
		e.cache = cache
		cfg = cfg.WithCompilationCache(cache)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	if err := adapter.RegisterWithRuntime(ctx, rt, e.registry,
		adapter.WithModuleName(e.moduleName),
		adapter.WithLogger(e.logger),
	); err != nil {
		_ = e.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return e, nil
}

// Close releases the runtime and every library instantiated in it.
func (e *Executor) Close(ctx context.Context) error {
	err := e.runtime.Close(ctx)
	if e.cache != nil {
		if cerr := e.cache.Close(ctx); err == nil {
			err = cerr
		}
	}
	return err
}

// Registry returns the function table guests import.
func (e *Executor) Registry() *hostfuncs.HandlerRegistry { return e.registry }

// VMOptions returns the options binding a runtime to this executor: it
// opens libraries through Open and presents the executor's function table.
func (e *Executor) VMOptions() []jnivm.Option {
	return []jnivm.Option{
		jnivm.WithLibraryOpener(e),
		jnivm.WithFunctionTable(e.registry),
	}
}

// Open reads the module at path and loads it. It implements
// jnivm.LibraryOpener.
func (e *Executor) Open(ctx context.Context, path string) (jnivm.Library, error) {
	var (
		wasm []byte
		err  error
	)
	if e.fsys != nil {
		wasm, err = fs.ReadFile(e.fsys, path)
	} else {
		wasm, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read library: %w", err)
	}
	lib, err := e.Load(ctx, path, wasm)
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// Load compiles and instantiates a guest library. name identifies it in
// logs and errors; loading the same name twice yields independent
// instances.
func (e *Executor) Load(ctx context.Context, name string, wasm []byte) (*Library, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	if err := e.checkImports(ctx, name, compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	cfg := wazero.NewModuleConfig().
		WithName(e.instanceName(name)).
		WithStartFunctions()
	mod, err := e.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate %s: %w", name, err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(adapter.WithLibraryName(ctx, name)); err != nil {
			_ = mod.Close(ctx)
			_ = compiled.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	lib := &Library{name: name, mod: mod, compiled: compiled}
	e.logger.DebugContext(ctx, "host: loaded library",
		"library", name, "module", mod.Name(), "exports", len(lib.Exports()))
	return lib, nil
}

// checkImports rejects guests importing table functions the registry does
// not provide, naming all of them at once.
func (e *Executor) checkImports(ctx context.Context, name string, compiled wazero.CompiledModule) error {
	var missing []string
	used := 0
	for _, def := range compiled.ImportedFunctions() {
		module, fn, _ := def.Import()
		if module != e.moduleName {
			continue
		}
		used++
		if !e.registry.Has(fn) {
			missing = append(missing, fn)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s: %v", ErrMissingImport, name, missing)
	}
	e.logger.DebugContext(ctx, "host: library imports", "library", name, "functions", used)
	return nil
}

func (e *Executor) instanceName(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.instances[name]
	e.instances[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s#%d", name, n)
}
