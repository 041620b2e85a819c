package hostfuncs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHostContext(t *testing.T) {
	frame := &Frame{}
	hc := NewHostContext(context.Background(), "FindClass", frame)

	require.NotNil(t, hc)
	assert.Equal(t, "FindClass", hc.FunctionName())
	assert.Same(t, frame, hc.Frame())
}

func TestHostContext_SetGetValue(t *testing.T) {
	hc := NewHostContext(context.Background(), "test_func", nil)

	_, ok := hc.GetValue("key1")
	assert.False(t, ok)

	hc.SetValue("key1", "value1")
	val, ok := hc.GetValue("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", val)

	hc.SetValue("key2", 42)
	val2, ok := hc.GetValue("key2")
	assert.True(t, ok)
	assert.Equal(t, 42, val2)

	val, ok = hc.GetValue("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", val)
}

func TestHostContext_ImplementsContext(t *testing.T) {
	type key struct{}
	parent := context.WithValue(context.Background(), key{}, "parent")
	hc := NewHostContext(parent, "CallIntMethod", nil)

	var ctx context.Context = hc
	assert.NotNil(t, ctx)
	assert.Nil(t, hc.Done())
	assert.Nil(t, hc.Err())
	assert.Equal(t, "parent", hc.Value(key{}))
}

func TestHostContextFrom(t *testing.T) {
	t.Run("wraps plain context", func(t *testing.T) {
		hc := HostContextFrom(context.Background(), "GetFieldID", nil)
		assert.Equal(t, "GetFieldID", hc.FunctionName())
	})

	t.Run("returns existing HostContext unchanged", func(t *testing.T) {
		original := NewHostContext(context.Background(), "original", nil)
		original.SetValue("marker", true)

		returned := HostContextFrom(original, "different", nil)

		assert.Equal(t, "original", returned.FunctionName())
		val, ok := returned.GetValue("marker")
		assert.True(t, ok)
		assert.Equal(t, true, val)
	})
}
