package codegen

import (
	"sort"
	"strings"
	"sync"

	jnivm "github.com/Dadoum/libjnivm"
)

// Recorder observes a runtime and keeps every class it sees along with call
// counts for native and unimplemented methods.
type Recorder struct {
	mu            sync.Mutex
	exclude       []string
	classes       map[string]*jnivm.Class
	nativeCalls   map[*jnivm.Method]int
	unimplemented map[*jnivm.Method]int
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithExclude drops classes whose name starts with any of prefixes, e.g.
// "java/" to skip the runtime's own classes.
func WithExclude(prefixes ...string) RecorderOption {
	return func(r *Recorder) {
		r.exclude = append(r.exclude, prefixes...)
	}
}

// NewRecorder creates an empty Recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		classes:       make(map[string]*jnivm.Class),
		nativeCalls:   make(map[*jnivm.Method]int),
		unimplemented: make(map[*jnivm.Method]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) excluded(name string) bool {
	for _, p := range r.exclude {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func (r *Recorder) add(c *jnivm.Class) {
	if c == nil || r.excluded(c.Name()) {
		return
	}
	r.mu.Lock()
	r.classes[c.Name()] = c
	r.mu.Unlock()
}

func (r *Recorder) ClassDeclared(c *jnivm.Class)   { r.add(c) }
func (r *Recorder) MethodDeclared(m *jnivm.Method) { r.add(m.Class()) }
func (r *Recorder) FieldDeclared(f *jnivm.Field)   { r.add(f.Class()) }

func (r *Recorder) NativeCall(m *jnivm.Method) {
	r.add(m.Class())
	r.mu.Lock()
	r.nativeCalls[m]++
	r.mu.Unlock()
}

func (r *Recorder) Unimplemented(m *jnivm.Method) {
	r.add(m.Class())
	r.mu.Lock()
	r.unimplemented[m]++
	r.mu.Unlock()
}

// Dump snapshots the recorded classes, sorted by name with members sorted
// by name and signature.
func (r *Recorder) Dump() *Dump {
	r.mu.Lock()
	classes := make([]*jnivm.Class, 0, len(r.classes))
	for _, c := range r.classes {
		classes = append(classes, c)
	}
	calls := make(map[*jnivm.Method]int, len(r.nativeCalls))
	for m, n := range r.nativeCalls {
		calls[m] = n
	}
	missing := make(map[*jnivm.Method]int, len(r.unimplemented))
	for m, n := range r.unimplemented {
		missing[m] = n
	}
	r.mu.Unlock()

	d := &Dump{Version: DumpVersion}
	for _, c := range classes {
		cd := ClassDump{Name: c.Name(), Implicit: c.Implicit()}
		if s := c.Super(); s != nil {
			cd.Super = s.Name()
		}
		for _, m := range c.Methods() {
			cd.Methods = append(cd.Methods, MethodDump{
				Name:          m.Name(),
				Signature:     m.Signature(),
				Static:        m.IsStatic(),
				Native:        m.IsNative(),
				Calls:         calls[m] + missing[m],
				Unimplemented: missing[m] > 0,
			})
		}
		for _, f := range c.Fields() {
			cd.Fields = append(cd.Fields, FieldDump{
				Name:      f.Name(),
				Signature: f.Signature(),
				Static:    f.IsStatic(),
			})
		}
		sort.Slice(cd.Methods, func(i, j int) bool {
			a, b := cd.Methods[i], cd.Methods[j]
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.Signature < b.Signature
		})
		sort.Slice(cd.Fields, func(i, j int) bool { return cd.Fields[i].Name < cd.Fields[j].Name })
		d.Classes = append(d.Classes, cd)
	}
	sort.Slice(d.Classes, func(i, j int) bool { return d.Classes[i].Name < d.Classes[j].Name })
	return d
}
