//go:build windows

package jnivm

import "golang.org/x/sys/windows"

func osThreadID() ThreadID {
	return ThreadID(windows.GetCurrentThreadId())
}
