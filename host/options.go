package host

import (
	"io/fs"
	"log/slog"

	"github.com/Dadoum/libjnivm/hostfuncs"
)

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithHostFunctions configures the executor with a function table registry.
// The default is hostfuncs.NewDefaultRegistry().
func WithHostFunctions(registry *hostfuncs.HandlerRegistry) Option {
	return func(e *Executor) {
		e.registry = registry
	}
}

// WithLogger sets the logger for library loading and host module failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithModuleName sets the name guests import the function table from
// (default: "jni").
func WithModuleName(name string) Option {
	return func(e *Executor) {
		e.moduleName = name
	}
}

// WithFS makes Open read library paths from fsys instead of the host file
// system.
func WithFS(fsys fs.FS) Option {
	return func(e *Executor) {
		e.fsys = fsys
	}
}

// WithMemoryLimitPages caps each guest's linear memory, in 64KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(e *Executor) {
		e.memoryLimit = pages
	}
}

// WithCompilationCache stores compiled guests under dir so later executors
// skip compilation.
func WithCompilationCache(dir string) Option {
	return func(e *Executor) {
		e.cacheDir = dir
	}
}
