package log

import (
	"context"
	"log/slog"
)

// Priority is a native log priority as passed to __android_log_write.
type Priority int32

const (
	PriorityUnknown Priority = iota
	PriorityDefault
	PriorityVerbose
	PriorityDebug
	PriorityInfo
	PriorityWarn
	PriorityError
	PriorityFatal
	PrioritySilent
)

// Level maps the priority onto a slog level. Verbose logs below debug.
func (p Priority) Level() slog.Level {
	switch {
	case p <= PriorityDefault:
		return slog.LevelInfo
	case p == PriorityVerbose:
		return slog.LevelDebug - 4
	case p == PriorityDebug:
		return slog.LevelDebug
	case p == PriorityInfo:
		return slog.LevelInfo
	case p == PriorityWarn:
		return slog.LevelWarn
	}
	return slog.LevelError
}

// WriteNative logs a message emitted by native code. Silent messages are
// dropped.
func WriteNative(ctx context.Context, logger *slog.Logger, prio Priority, tag, msg string) {
	if prio >= PrioritySilent {
		return
	}
	logger.Log(ctx, prio.Level(), msg, "tag", tag, "priority", int32(prio))
}
