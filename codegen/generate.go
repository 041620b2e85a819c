package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"text/template"
	"unicode"

	"github.com/Dadoum/libjnivm/jni"
)

const goStubs = `// Code generated by jnivm codegen. DO NOT EDIT.

package {{.Package}}

import (
	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/jni"
)

var _ = jni.Null

// Register declares the recorded classes on vm. Non-native methods get
// stub bodies returning the zero value of their return type.
func Register(vm *jnivm.VM) {
{{- range .Classes}}
	register{{ident .Name}}(vm)
{{- end}}
}
{{range .Classes}}
func register{{ident .Name}}(vm *jnivm.VM) {
	{{if or .Methods .Fields}}cls := {{end}}vm.DefineClass({{printf "%q" .Name}}, {{if .Super}}vm.DefineClass({{printf "%q" .Super}}, nil){{else}}nil{{end}})
{{- range .Fields}}
	cls.DefineField({{printf "%q" .Name}}, {{printf "%q" .Signature}}, {{.Static}})
{{- end}}
{{- range .Methods}}
{{- if .Native}}
	cls.DefineNative({{printf "%q" .Name}}, {{printf "%q" .Signature}}, {{.Static}})
{{- else}}
	cls.DefineMethod({{printf "%q" .Name}}, {{printf "%q" .Signature}}, {{.Static}}, func(env *jnivm.Env, recv jnivm.Entity, args []jni.Value) (jni.Value, error) {
		return jni.Value{}, nil
	})
{{- end}}
{{- end}}
}
{{end}}`

const cHeader = `/* Code generated by jnivm codegen. DO NOT EDIT. */

#ifndef {{.Guard}}
#define {{.Guard}}

#include <jni.h>

#ifdef __cplusplus
extern "C" {
#endif
{{range .Natives}}
/* {{.Class}}.{{.Name}}{{.Signature}} */
JNIEXPORT {{ctype (returnType .Signature)}} JNICALL {{symbol .}}(JNIEnv *env, {{if .Static}}jclass clazz{{else}}jobject thiz{{end}}{{range $i, $p := params .Signature}}, {{ctype $p}} arg{{$i}}{{end}});
{{end}}
#ifdef __cplusplus
}
#endif

#endif
`

var funcs = template.FuncMap{
	"ident":      ident,
	"ctype":      ctype,
	"symbol":     symbol,
	"params":     params,
	"returnType": returnType,
}

var (
	goStubsTmpl = template.Must(template.New("stubs").Option("missingkey=error").Funcs(funcs).Parse(goStubs))
	cHeaderTmpl = template.Must(template.New("header").Option("missingkey=error").Funcs(funcs).Parse(cHeader))
)

// GenerateStubs returns gofmt'ed Go source declaring every class of d in a
// Register function of package pkg.
func GenerateStubs(d *Dump, pkg string) ([]byte, error) {
	for _, c := range d.Classes {
		for _, m := range c.Methods {
			if _, err := jni.ParseSignature(m.Signature); err != nil {
				return nil, fmt.Errorf("%s.%s: %w", c.Name, m.Name, err)
			}
		}
	}
	var buf bytes.Buffer
	if err := goStubsTmpl.Execute(&buf, struct {
		Package string
		Classes []ClassDump
	}{pkg, d.Classes}); err != nil {
		return nil, fmt.Errorf("failed to render stubs: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format stubs: %w", err)
	}
	return src, nil
}

// GenerateHeader returns a C header declaring the entry point of every
// native method of d under its short symbol name.
func GenerateHeader(d *Dump, guard string) ([]byte, error) {
	natives := d.Natives()
	for _, n := range natives {
		if _, err := jni.ParseSignature(n.Signature); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", n.Class, n.Name, err)
		}
	}
	var buf bytes.Buffer
	if err := cHeaderTmpl.Execute(&buf, struct {
		Guard   string
		Natives []NativeDump
	}{guard, natives}); err != nil {
		return nil, fmt.Errorf("failed to render header: %w", err)
	}
	return buf.Bytes(), nil
}

// ident turns a class name into an exported Go identifier fragment, e.g.
// "com/example/Foo$Bar" into "ComExampleFooBar".
func ident(class string) string {
	var b strings.Builder
	upper := true
	for _, r := range class {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func symbol(n NativeDump) string {
	return jni.ShortSymbol(n.Class, n.Name)
}

func params(sig string) []jni.Type {
	s, _ := jni.ParseSignature(sig)
	return s.Params
}

func returnType(sig string) jni.Type {
	s, _ := jni.ParseSignature(sig)
	return s.Return
}

var primitiveCTypes = map[jni.Kind]string{
	jni.Boolean: "jboolean",
	jni.Byte:    "jbyte",
	jni.Char:    "jchar",
	jni.Short:   "jshort",
	jni.Int:     "jint",
	jni.Long:    "jlong",
	jni.Float:   "jfloat",
	jni.Double:  "jdouble",
	jni.Void:    "void",
}

var objectCTypes = map[string]string{
	"java/lang/String":    "jstring",
	"java/lang/Class":     "jclass",
	"java/lang/Throwable": "jthrowable",
}

// ctype returns the C type native code receives or returns for t.
func ctype(t jni.Type) string {
	switch t.Kind {
	case jni.Object:
		if c, ok := objectCTypes[t.ClassName()]; ok {
			return c
		}
		return "jobject"
	case jni.Array:
		if len(t.Descriptor) == 2 {
			if c, ok := primitiveCTypes[jni.Kind(t.Descriptor[1])]; ok {
				return c + "Array"
			}
		}
		return "jobjectArray"
	}
	if c, ok := primitiveCTypes[t.Kind]; ok {
		return c
	}
	return "jobject"
}
