package hostfuncs

import (
	"context"
	"fmt"
	"unicode/utf16"

	jnivm "github.com/Dadoum/libjnivm"
)

// StringBundle returns the string functions. Strings cross the boundary as
// UTF-16 (the Chars forms) or NUL-terminated UTF-8 (the UTF forms).
func StringBundle() Bundle {
	return &staticBundle{functions: []Function{
		fn("NewString", types(I32, I32, I32), types(I32), newString),
		fn("GetStringLength", types(I32, I32), types(I32), getStringLength),
		fn("GetStringChars", types(I32, I32, I32), types(I32), getStringChars),
		fn("ReleaseStringChars", types(I32, I32, I32), nil, releaseChars),
		fn("NewStringUTF", types(I32, I32), types(I32), newStringUTF),
		fn("GetStringUTFLength", types(I32, I32), types(I32), getStringUTFLength),
		fn("GetStringUTFChars", types(I32, I32, I32), types(I32), getStringUTFChars),
		fn("ReleaseStringUTFChars", types(I32, I32, I32), nil, releaseChars),
		fn("GetStringRegion", types(I32, I32, I32, I32, I32), nil, getStringRegion(false)),
		fn("GetStringUTFRegion", types(I32, I32, I32, I32, I32), nil, getStringRegion(true)),
		fn("GetStringCritical", types(I32, I32, I32), types(I32), getStringChars),
		fn("ReleaseStringCritical", types(I32, I32, I32), nil, releaseChars),
	}}
}

func stringArg(f *Frame) (*jnivm.Env, *jnivm.String, error) {
	env, err := f.Env()
	if err != nil {
		return nil, nil, err
	}
	s, err := resolveAs[*jnivm.String](env, f.Ref(1), "string")
	if err != nil {
		return nil, nil, err
	}
	return env, s, nil
}

func newString(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	n := f.I32(2)
	if n < 0 {
		return fmt.Errorf("%w: negative string length %d", jnivm.ErrArgumentType, n)
	}
	b, err := readBytes(f.Mem, f.U32(1), uint32(2*n))
	if err != nil {
		return err
	}
	f.Return(uint64(env.NewString(decodeUTF16(b))))
	return nil
}

func getStringLength(_ context.Context, f *Frame) error {
	_, s, err := stringArg(f)
	if err != nil {
		return err
	}
	f.ReturnI32(int32(len(utf16.Encode([]rune(s.Value)))))
	return nil
}

func getStringChars(ctx context.Context, f *Frame) error {
	_, s, err := stringArg(f)
	if err != nil {
		return err
	}
	ptr, err := allocCopy(ctx, f.Mem, encodeUTF16(s.Value))
	if err != nil {
		return err
	}
	if err := writeOptionalBool(f.Mem, f.U32(2), true); err != nil {
		return err
	}
	f.Return(uint64(ptr))
	return nil
}

// releaseChars frees a buffer handed out by one of the Get*Chars functions.
func releaseChars(ctx context.Context, f *Frame) error {
	if ptr := f.U32(2); ptr != 0 {
		return f.Mem.Free(ctx, ptr)
	}
	return nil
}

func newStringUTF(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	if f.U32(1) == 0 {
		f.Return(0)
		return nil
	}
	s, err := readCString(f.Mem, f.U32(1))
	if err != nil {
		return err
	}
	f.Return(uint64(env.NewString(s)))
	return nil
}

func getStringUTFLength(_ context.Context, f *Frame) error {
	_, s, err := stringArg(f)
	if err != nil {
		return err
	}
	f.ReturnI32(int32(len(s.Value)))
	return nil
}

func getStringUTFChars(ctx context.Context, f *Frame) error {
	_, s, err := stringArg(f)
	if err != nil {
		return err
	}
	ptr, err := allocCopy(ctx, f.Mem, append([]byte(s.Value), 0))
	if err != nil {
		return err
	}
	if err := writeOptionalBool(f.Mem, f.U32(2), true); err != nil {
		return err
	}
	f.Return(uint64(ptr))
	return nil
}

// getStringRegion copies UTF-16 units [start, start+len) into buf, either as
// UTF-16 or as NUL-terminated UTF-8.
func getStringRegion(utf8 bool) Handler {
	return func(_ context.Context, f *Frame) error {
		_, s, err := stringArg(f)
		if err != nil {
			return err
		}
		units := utf16.Encode([]rune(s.Value))
		start, n := f.I32(2), f.I32(3)
		if start < 0 || n < 0 || int(start)+int(n) > len(units) {
			return fmt.Errorf("%w: string region [%d, %d) of %d", ErrIndex, start, start+n, len(units))
		}
		region := units[start : start+n]
		var b []byte
		if utf8 {
			b = append([]byte(string(utf16.Decode(region))), 0)
		} else {
			b = unitBytes(region)
		}
		return writeBytes(f.Mem, f.U32(4), b)
	}
}
