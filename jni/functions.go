package jni

// Status codes returned by native-interface and invocation functions.
const (
	OK        int32 = 0
	ERR       int32 = -1
	EDETACHED int32 = -2
	EVERSION  int32 = -3
	ENOMEM    int32 = -4
	EEXIST    int32 = -5
	EINVAL    int32 = -6
)

// Interface versions.
const (
	Version1_1 int32 = 0x00010001
	Version1_2 int32 = 0x00010002
	Version1_4 int32 = 0x00010004
	Version1_6 int32 = 0x00010006
	Version1_8 int32 = 0x00010008
	Version9   int32 = 0x00090000
)

// Reference types reported by GetObjectRefType.
const (
	InvalidRefType    int32 = 0
	LocalRefType      int32 = 1
	GlobalRefType     int32 = 2
	WeakGlobalRefType int32 = 3
)

// InvokeFunctionNames is the invocation interface table in slot order.
var InvokeFunctionNames = []string{
	"reserved0",
	"reserved1",
	"reserved2",
	"DestroyJavaVM",
	"AttachCurrentThread",
	"DetachCurrentThread",
	"GetEnv",
	"AttachCurrentThreadAsDaemon",
}

// FunctionNames is the native-interface function table in slot order. Native
// code compiled against the C headers addresses functions by these indices,
// so the order must never change.
var FunctionNames = buildFunctionNames()

// FunctionIndex returns the table slot of a native-interface function, or -1.
func FunctionIndex(name string) int {
	i, ok := functionIndex[name]
	if !ok {
		return -1
	}
	return i
}

var functionIndex = func() map[string]int {
	m := make(map[string]int, len(FunctionNames))
	for i, n := range FunctionNames {
		m[n] = i
	}
	return m
}()

var primitiveNames = []string{"Boolean", "Byte", "Char", "Short", "Int", "Long", "Float", "Double"}

func buildFunctionNames() []string {
	valueTypes := []string{"Object", "Boolean", "Byte", "Char", "Short", "Int", "Long", "Float", "Double"}
	callTypes := append(append([]string{}, valueTypes...), "Void")

	var t []string
	add := func(names ...string) { t = append(t, names...) }
	calls := func(prefix string) {
		for _, ty := range callTypes {
			add(prefix+ty+"Method", prefix+ty+"MethodV", prefix+ty+"MethodA")
		}
	}
	each := func(format func(string) string, types []string) {
		for _, ty := range types {
			add(format(ty))
		}
	}

	add("reserved0", "reserved1", "reserved2", "reserved3")
	add("GetVersion", "DefineClass", "FindClass")
	add("FromReflectedMethod", "FromReflectedField", "ToReflectedMethod")
	add("GetSuperclass", "IsAssignableFrom", "ToReflectedField")
	add("Throw", "ThrowNew", "ExceptionOccurred", "ExceptionDescribe", "ExceptionClear", "FatalError")
	add("PushLocalFrame", "PopLocalFrame")
	add("NewGlobalRef", "DeleteGlobalRef", "DeleteLocalRef", "IsSameObject", "NewLocalRef", "EnsureLocalCapacity")
	add("AllocObject", "NewObject", "NewObjectV", "NewObjectA")
	add("GetObjectClass", "IsInstanceOf")
	add("GetMethodID")
	calls("Call")
	calls("CallNonvirtual")
	add("GetFieldID")
	each(func(ty string) string { return "Get" + ty + "Field" }, valueTypes)
	each(func(ty string) string { return "Set" + ty + "Field" }, valueTypes)
	add("GetStaticMethodID")
	calls("CallStatic")
	add("GetStaticFieldID")
	each(func(ty string) string { return "GetStatic" + ty + "Field" }, valueTypes)
	each(func(ty string) string { return "SetStatic" + ty + "Field" }, valueTypes)
	add("NewString", "GetStringLength", "GetStringChars", "ReleaseStringChars")
	add("NewStringUTF", "GetStringUTFLength", "GetStringUTFChars", "ReleaseStringUTFChars")
	add("GetArrayLength", "NewObjectArray", "GetObjectArrayElement", "SetObjectArrayElement")
	each(func(ty string) string { return "New" + ty + "Array" }, primitiveNames)
	each(func(ty string) string { return "Get" + ty + "ArrayElements" }, primitiveNames)
	each(func(ty string) string { return "Release" + ty + "ArrayElements" }, primitiveNames)
	each(func(ty string) string { return "Get" + ty + "ArrayRegion" }, primitiveNames)
	each(func(ty string) string { return "Set" + ty + "ArrayRegion" }, primitiveNames)
	add("RegisterNatives", "UnregisterNatives")
	add("MonitorEnter", "MonitorExit")
	add("GetJavaVM")
	add("GetStringRegion", "GetStringUTFRegion")
	add("GetPrimitiveArrayCritical", "ReleasePrimitiveArrayCritical")
	add("GetStringCritical", "ReleaseStringCritical")
	add("NewWeakGlobalRef", "DeleteWeakGlobalRef")
	add("ExceptionCheck")
	add("NewDirectByteBuffer", "GetDirectBufferAddress", "GetDirectBufferCapacity")
	add("GetObjectRefType")
	add("GetModule")
	return t
}
