//go:build linux

package jnivm

import "golang.org/x/sys/unix"

func osThreadID() ThreadID {
	return ThreadID(unix.Gettid())
}
