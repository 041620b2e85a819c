package hostfuncs

import (
	"context"

	jlog "github.com/Dadoum/libjnivm/log"
)

// LogBundle returns the Android logging entry points native libraries
// commonly import alongside the function table.
func LogBundle() Bundle {
	return &staticBundle{functions: []Function{
		fn("__android_log_write", types(I32, I32, I32), types(I32), androidLogWrite),
	}}
}

func androidLogWrite(ctx context.Context, f *Frame) error {
	tag, err := optionalCString(f, f.U32(1))
	if err != nil {
		return &FatalError{Message: err.Error()}
	}
	msg, err := optionalCString(f, f.U32(2))
	if err != nil {
		return &FatalError{Message: err.Error()}
	}
	jlog.WriteNative(ctx, f.VM.Logger(), jlog.Priority(f.I32(0)), tag, msg)
	f.ReturnI32(1)
	return nil
}

func optionalCString(f *Frame, ptr uint32) (string, error) {
	if ptr == 0 {
		return "", nil
	}
	return readCString(f.Mem, ptr)
}
