package jnivm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
strict: true
log:
  level: debug
  format: json
classes:
  - name: com/example/Base
  - name: com/example/Impl
    super: com/example/Base
libraries:
  - libplugin.so
  - libmissing.so
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Len(t, cfg.Classes, 2)
	assert.Equal(t, []string{"libplugin.so", "libmissing.so"}, cfg.Libraries)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad level", "log:\n  level: loud\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"class without name", "classes:\n  - super: java/lang/Object\n"},
		{"empty library", "libraries:\n  - \"\"\n"},
		{"not yaml", "strict: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jnivm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Strict)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	loaded := false
	lib, err := NewGoLibrary(map[string]any{
		"JNI_OnLoad": func() int32 { loaded = true; return 0 },
	})
	require.NoError(t, err)

	vm, err := NewFromConfig(ctx, cfg, WithLibraryOpener(StaticOpener{"libplugin.so": lib}))
	require.NoError(t, err)
	assert.True(t, loaded)

	impl, err := vm.FindClass("com/example/Impl")
	require.NoError(t, err)
	assert.Equal(t, "com/example/Base", impl.Super().Name())

	_, err = vm.FindClass("com/example/Other")
	assert.ErrorIs(t, err, ErrClassNotFound)
	assert.Equal(t, []string{"libplugin.so", "libmissing.so"}, vm.Libraries())
}

func TestConfigSchema(t *testing.T) {
	data, err := ConfigSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "strict")
	assert.Contains(t, props, "libraries")
}
