package jnivm

import (
	"context"
	"runtime"
)

// ThreadID identifies the thread an environment belongs to.
type ThreadID uint64

// osThread marks identities taken from the OS so they never collide with
// identities set through WithThread.
const osThread ThreadID = 1 << 63

type threadKey struct{}

// WithThread overrides the thread identity GetEnv uses for ctx. Without it
// GetEnv locks the calling goroutine to its OS thread until DetachEnv.
func WithThread(ctx context.Context, id ThreadID) context.Context {
	return context.WithValue(ctx, threadKey{}, id)
}

// ThreadFrom returns the thread identity set with WithThread.
func ThreadFrom(ctx context.Context) (ThreadID, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(threadKey{}).(ThreadID)
	return id, ok
}

func currentThread(ctx context.Context) ThreadID {
	if id, ok := ThreadFrom(ctx); ok {
		return id
	}
	return osThreadID() | osThread
}

// bindThread is currentThread for callers that may create an environment.
// An OS identity is read after locking the goroutine to its thread; the
// caller owns that lock and must release it if no environment keeps it.
func bindThread(ctx context.Context) (id ThreadID, locked bool) {
	if id, ok := ThreadFrom(ctx); ok {
		return id, false
	}
	runtime.LockOSThread()
	return osThreadID() | osThread, true
}
