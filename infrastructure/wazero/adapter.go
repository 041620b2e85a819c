package wazero

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/Dadoum/libjnivm/hostfuncs"
	"github.com/Dadoum/libjnivm/jni"
)

// ErrNoRuntime is the trap raised when guest code calls the function table
// outside a call made by the runtime.
var ErrNoRuntime = errors.New("native-interface function called outside a runtime call")

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// ModuleName is the host module name (default: "jni").
	ModuleName string

	// Logger receives table registration and handler failures. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// CustomHandlers adds wazero functions that are not part of the
	// native-interface table, such as runtime-specific imports of a guest
	// toolchain.
	CustomHandlers []CustomHandler
}

// CustomHandler is a raw wazero function exported next to the table.
type CustomHandler struct {
	// Name is the exported function name.
	Name string

	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "jni").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithLogger sets the adapter's logger.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		c.Logger = logger
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName: "jni",
	}
}

// RegisterWithRuntime registers all functions of a HandlerRegistry with a
// wazero runtime as one host module, each exported under its table name
// with its own stack signature.
//
// Each function is wrapped to:
//   - Find the calling runtime in the context, trapping without one
//   - Bind the caller's linear memory, allocator and function table
//   - Invoke the handler, which reads params from and writes results to the
//     wazero stack
//
// A FatalError from native code traps the guest. Other handler errors are
// logged and the call returns zero.
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, registry *hostfuncs.HandlerRegistry, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)

	for _, name := range registry.Names() {
		f, _ := registry.Lookup(name)
		funcName := name
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				handleRegistryCall(ctx, mod, stack, registry, funcName, cfg.Logger)
			}), valueTypes(f.Params), valueTypes(f.Results)).
			WithName(funcName).
			Export(funcName)
	}

	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("instantiate host module %q: %w", cfg.ModuleName, err)
	}

	provided, missing := coverage(registry)
	cfg.Logger.DebugContext(ctx, "wazero: registered native-interface table",
		"module", cfg.ModuleName,
		"provided", provided,
		"table_size", len(jni.FunctionNames)+len(jni.InvokeFunctionNames),
		"missing", missing)
	return nil
}

// coverage counts the table entries registry provides and names the
// non-reserved entries it lacks.
func coverage(registry *hostfuncs.HandlerRegistry) (int, []string) {
	provided := 0
	var missing []string
	for _, names := range [][]string{jni.FunctionNames, jni.InvokeFunctionNames} {
		for _, name := range names {
			switch {
			case registry.Has(name):
				provided++
			case !strings.HasPrefix(name, "reserved"):
				missing = append(missing, name)
			}
		}
	}
	return provided, missing
}

func handleRegistryCall(ctx context.Context, mod api.Module, stack []uint64, registry *hostfuncs.HandlerRegistry, name string, logger *slog.Logger) {
	vm, ok := VMFromContext(ctx)
	if !ok {
		panic(fmt.Errorf("%w: %s from %s", ErrNoRuntime, name, mod.Name()))
	}
	library := GetLibraryName(ctx, mod)
	frame := &hostfuncs.Frame{
		VM:      vm,
		Mem:     NewMemory(mod),
		Natives: NewTableResolver(mod, library),
		Stack:   stack,
	}
	err := registry.Invoke(ctx, name, frame)
	if err == nil {
		return
	}
	var fatal *hostfuncs.FatalError
	if errors.As(err, &fatal) {
		panic(err)
	}
	logger.ErrorContext(ctx, "wazero: native-interface function failed",
		"function", name, "library", library, "error", err)
	if len(stack) > 0 {
		stack[0] = 0
	}
}

func valueTypes(ts []hostfuncs.ValueType) []api.ValueType {
	out := make([]api.ValueType, len(ts))
	for i, t := range ts {
		out[i] = api.ValueType(t)
	}
	return out
}
