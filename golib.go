package jnivm

import (
	"context"
	"io/fs"
	"sync"
)

// GoLibrary is an in-process library whose exports are Go functions or
// Targets, keyed by symbol name.
type GoLibrary struct {
	mu      sync.Mutex
	symbols map[string]Target
	closed  bool
	onClose func()
}

// NewGoLibrary wraps each export with NewGoTarget unless it already is a
// Target.
func NewGoLibrary(exports map[string]any) (*GoLibrary, error) {
	l := &GoLibrary{symbols: make(map[string]Target, len(exports))}
	for name, fn := range exports {
		if t, ok := fn.(Target); ok {
			l.symbols[name] = t
			continue
		}
		t, err := NewGoTarget(name, fn)
		if err != nil {
			return nil, err
		}
		l.symbols[name] = t
	}
	return l, nil
}

// OnClose registers f to run when the library is closed.
func (l *GoLibrary) OnClose(f func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onClose = f
}

func (l *GoLibrary) Symbol(name string) (Target, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, false
	}
	t, ok := l.symbols[name]
	return t, ok
}

func (l *GoLibrary) Close(context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLibraryClosed
	}
	l.closed = true
	f := l.onClose
	l.mu.Unlock()
	if f != nil {
		f()
	}
	return nil
}

// Closed reports whether Close has run.
func (l *GoLibrary) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// StaticOpener opens libraries from a fixed path table.
type StaticOpener map[string]Library

func (o StaticOpener) Open(_ context.Context, path string) (Library, error) {
	if l, ok := o[path]; ok {
		return l, nil
	}
	return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
}
