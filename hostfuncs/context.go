package hostfuncs

import (
	"context"
)

// HostContext wraps a standard context.Context with the state of one
// function-table call. Middleware uses it to find the invoked function and
// to share request-scoped values.
type HostContext interface {
	context.Context

	// FunctionName returns the name of the function being invoked.
	FunctionName() string

	// Frame returns the call's stack frame.
	Frame() *Frame

	// SetValue stores a request-scoped value. Unlike context.WithValue,
	// this mutates the existing HostContext.
	SetValue(key, value any)

	// GetValue retrieves a request-scoped value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

type hostContext struct {
	context.Context
	values   map[any]any
	funcName string
	frame    *Frame
}

// NewHostContext creates a HostContext for a call of funcName.
func NewHostContext(ctx context.Context, funcName string, frame *Frame) HostContext {
	return &hostContext{
		Context:  ctx,
		funcName: funcName,
		frame:    frame,
	}
}

func (c *hostContext) FunctionName() string { return c.funcName }

func (c *hostContext) Frame() *Frame { return c.frame }

func (c *hostContext) SetValue(key, value any) {
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = value
}

func (c *hostContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// HostContextFrom extracts a HostContext from a context.Context.
// If the context is already a HostContext, it is returned directly.
// Otherwise, a new HostContext is created wrapping the given context.
func HostContextFrom(ctx context.Context, funcName string, frame *Frame) HostContext {
	if hc, ok := ctx.(HostContext); ok {
		return hc
	}
	return NewHostContext(ctx, funcName, frame)
}
