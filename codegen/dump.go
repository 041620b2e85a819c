package codegen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// DumpVersion is the format version written by Recorder.Dump.
const DumpVersion = 1

// ErrInvalidDump is returned when a dump does not match its schema.
var ErrInvalidDump = errors.New("invalid class dump")

// Dump is the serialized record of a runtime's classes.
type Dump struct {
	Version int         `yaml:"version" json:"version" jsonschema:"minimum=1,maximum=1"`
	Classes []ClassDump `yaml:"classes" json:"classes,omitempty"`
}

// ClassDump is one recorded class.
type ClassDump struct {
	Name     string       `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Super    string       `yaml:"super,omitempty" json:"super,omitempty"`
	Implicit bool         `yaml:"implicit,omitempty" json:"implicit,omitempty"`
	Methods  []MethodDump `yaml:"methods,omitempty" json:"methods,omitempty"`
	Fields   []FieldDump  `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// MethodDump is one recorded method. Calls counts native dispatches and
// calls to a missing body.
type MethodDump struct {
	Name          string `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Signature     string `yaml:"signature" json:"signature" jsonschema:"pattern=^\\(.*\\).+$"`
	Static        bool   `yaml:"static,omitempty" json:"static,omitempty"`
	Native        bool   `yaml:"native,omitempty" json:"native,omitempty"`
	Calls         int    `yaml:"calls,omitempty" json:"calls,omitempty" jsonschema:"minimum=0"`
	Unimplemented bool   `yaml:"unimplemented,omitempty" json:"unimplemented,omitempty"`
}

// FieldDump is one recorded field.
type FieldDump struct {
	Name      string `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Signature string `yaml:"signature" json:"signature" jsonschema:"minLength=1"`
	Static    bool   `yaml:"static,omitempty" json:"static,omitempty"`
}

// Natives returns the native methods of every class, in dump order.
func (d *Dump) Natives() []NativeDump {
	var out []NativeDump
	for _, c := range d.Classes {
		for _, m := range c.Methods {
			if m.Native {
				out = append(out, NativeDump{Class: c.Name, MethodDump: m})
			}
		}
	}
	return out
}

// NativeDump is a native method with its class.
type NativeDump struct {
	Class string
	MethodDump
}

// Encode writes d as YAML.
func (d *Dump) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode dump: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode dump: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes d as YAML to path.
func (d *Dump) WriteFile(path string) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ParseDump decodes a YAML dump and validates it against DumpSchema.
func ParseDump(data []byte) (*Dump, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse dump: %w", err)
	}
	if err := validateDump(doc); err != nil {
		return nil, err
	}
	var d Dump
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse dump: %w", err)
	}
	return &d, nil
}

// ReadDump reads and parses a YAML dump file.
func ReadDump(path string) (*Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}
	return ParseDump(data)
}

// DumpSchema returns the JSON Schema of Dump.
func DumpSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	data, err := json.MarshalIndent(reflector.Reflect(&Dump{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

func validateDump(doc any) error {
	schema, err := DumpSchema()
	if err != nil {
		return err
	}
	compiler := sjsonschema.NewCompiler()
	if err := compiler.AddResource("dump.json", bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("failed to add dump schema: %w", err)
	}
	sch, err := compiler.Compile("dump.json")
	if err != nil {
		return fmt.Errorf("invalid dump schema: %w", err)
	}

	// Round trip through JSON so the validator sees JSON types.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to prepare dump for validation: %w", err)
	}
	var obj any
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("failed to prepare dump for validation: %w", err)
	}
	if err := sch.Validate(obj); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDump, err)
	}
	return nil
}
