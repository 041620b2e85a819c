package jnivm

import "log/slog"

type vmConfig struct {
	logger    *slog.Logger
	strict    bool
	opener    LibraryOpener
	functions FunctionTable
	observers []Observer
}

func defaultVMConfig() vmConfig {
	return vmConfig{
		logger: slog.Default(),
	}
}

// Option configures a VM.
type Option func(*vmConfig)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *vmConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStrictClasses makes FindClass fail for classes that were never
// registered instead of declaring them on demand.
func WithStrictClasses(strict bool) Option {
	return func(c *vmConfig) {
		c.strict = strict
	}
}

// WithLibraryOpener sets how AttachLibrary opens library paths.
func WithLibraryOpener(o LibraryOpener) Option {
	return func(c *vmConfig) {
		c.opener = o
	}
}

// WithFunctionTable sets the native-interface function table environments
// expose.
func WithFunctionTable(t FunctionTable) Option {
	return func(c *vmConfig) {
		c.functions = t
	}
}

// WithObserver adds an observer. Observers are called in the order added.
func WithObserver(o Observer) Option {
	return func(c *vmConfig) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}
