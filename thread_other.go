//go:build !linux && !windows

package jnivm

// Without a portable thread id every goroutine shares one environment unless
// the context carries WithThread.
func osThreadID() ThreadID {
	return 1
}
