package hostfuncs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Middleware wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type Middleware func(next Handler) Handler

func functionName(ctx context.Context) string {
	if hc, ok := ctx.(HostContext); ok {
		return hc.FunctionName()
	}
	return "unknown"
}

// PanicRecoveryMiddleware returns a middleware that converts handler panics
// into ErrPanic errors instead of crashing the host.
func PanicRecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, f *Frame) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %s: %v", ErrPanic, functionName(ctx), r)
				}
			}()
			return next(ctx, f)
		}
	}
}

// ExceptionMiddleware returns a middleware that raises handler errors as
// managed exceptions in the caller's environment and zeroes the result, the
// way native-interface functions report failure. *FatalError passes through,
// as do errors from handlers that never resolved an environment, such as the
// invocation interface.
func ExceptionMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, f *Frame) error {
			err := next(ctx, f)
			if err == nil {
				return nil
			}
			var fatal *FatalError
			if errors.As(err, &fatal) {
				return err
			}
			if f.env == nil {
				return err
			}
			f.env.Raise(err)
			if len(f.Stack) > 0 {
				f.Stack[0] = 0
			}
			return nil
		}
	}
}

// LoggingMiddleware returns a middleware that logs every call at debug level
// and failures at warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, f *Frame) error {
			name := functionName(ctx)
			logger.DebugContext(ctx, "native-interface call", "function", name)
			err := next(ctx, f)
			if err != nil {
				logger.WarnContext(ctx, "native-interface call failed", "function", name, "error", err)
			}
			return err
		}
	}
}
