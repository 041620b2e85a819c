package hostfuncs

import (
	"context"

	jnivm "github.com/Dadoum/libjnivm"
)

// ClassBundle returns class and object functions: FindClass,
// GetSuperclass, IsAssignableFrom, GetObjectClass, IsInstanceOf, AllocObject
// and the member ID lookups.
func ClassBundle() Bundle {
	return &staticBundle{functions: []Function{
		fn("GetVersion", types(I32), types(I32), getVersion),
		fn("FindClass", types(I32, I32), types(I32), findClass),
		fn("GetSuperclass", types(I32, I32), types(I32), getSuperclass),
		fn("IsAssignableFrom", types(I32, I32, I32), types(I32), isAssignableFrom),
		fn("GetObjectClass", types(I32, I32), types(I32), getObjectClass),
		fn("IsInstanceOf", types(I32, I32, I32), types(I32), isInstanceOf),
		fn("AllocObject", types(I32, I32), types(I32), allocObject),
		fn("GetMethodID", types(I32, I32, I32, I32), types(I32), memberID(true, false)),
		fn("GetStaticMethodID", types(I32, I32, I32, I32), types(I32), memberID(true, true)),
		fn("GetFieldID", types(I32, I32, I32, I32), types(I32), memberID(false, false)),
		fn("GetStaticFieldID", types(I32, I32, I32, I32), types(I32), memberID(false, true)),
	}}
}

func getVersion(_ context.Context, f *Frame) error {
	f.ReturnI32(f.VM.Version())
	return nil
}

func findClass(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	name, err := readCString(f.Mem, f.U32(1))
	if err != nil {
		return err
	}
	c, err := f.VM.FindClass(name)
	if err != nil {
		return err
	}
	f.Return(uint64(env.NewLocalRef(c)))
	return nil
}

func getSuperclass(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	c, err := resolveAs[*jnivm.Class](env, f.Ref(1), "class")
	if err != nil {
		return err
	}
	var super jnivm.Entity
	if s := c.Super(); s != nil {
		super = s
	}
	f.Return(uint64(env.NewLocalRef(super)))
	return nil
}

func isAssignableFrom(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	sub, err := resolveAs[*jnivm.Class](env, f.Ref(1), "class")
	if err != nil {
		return err
	}
	sup, err := resolveAs[*jnivm.Class](env, f.Ref(2), "class")
	if err != nil {
		return err
	}
	boolResult(f, sub.IsSubclassOf(sup))
	return nil
}

func getObjectClass(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	obj, err := resolveAs[jnivm.Entity](env, f.Ref(1), "object")
	if err != nil {
		return err
	}
	var c jnivm.Entity
	if oc := f.VM.ClassOf(obj); oc != nil {
		c = oc
	}
	f.Return(uint64(env.NewLocalRef(c)))
	return nil
}

func isInstanceOf(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	obj, err := env.Resolve(f.Ref(1))
	if err != nil {
		return err
	}
	c, err := resolveAs[*jnivm.Class](env, f.Ref(2), "class")
	if err != nil {
		return err
	}
	// null is an instance of every class.
	boolResult(f, obj == nil || c.IsInstance(obj))
	return nil
}

func allocObject(_ context.Context, f *Frame) error {
	env, err := f.Env()
	if err != nil {
		return err
	}
	c, err := resolveAs[*jnivm.Class](env, f.Ref(1), "class")
	if err != nil {
		return err
	}
	f.Return(uint64(env.NewLocalRef(c.NewInstance())))
	return nil
}

// memberID implements Get[Static]MethodID and Get[Static]FieldID. Members
// missing from the class are declared on demand; IDs are interned global
// references.
func memberID(method, static bool) Handler {
	return func(_ context.Context, f *Frame) error {
		env, err := f.Env()
		if err != nil {
			return err
		}
		c, err := resolveAs[*jnivm.Class](env, f.Ref(1), "class")
		if err != nil {
			return err
		}
		name, err := readCString(f.Mem, f.U32(2))
		if err != nil {
			return err
		}
		sig, err := readCString(f.Mem, f.U32(3))
		if err != nil {
			return err
		}
		var member jnivm.Entity
		if method {
			member = c.GetMethod(name, sig, static)
		} else {
			member = c.GetField(name, sig, static)
		}
		f.Return(uint64(f.VM.InternRef(member)))
		return nil
	}
}
