package hostfuncs

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	jnivm "github.com/Dadoum/libjnivm"
	jlog "github.com/Dadoum/libjnivm/log"
)

func TestAndroidLogWrite(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newHarness(t, jnivm.WithLogger(logger))

	code, err := h.raw("__android_log_write", uint64(jlog.PriorityWarn), h.mem.cstring(t, "native"), h.mem.cstring(t, "low disk"))
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), code)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "tag=native")
	assert.Contains(t, buf.String(), `msg="low disk"`)

	buf.Reset()
	_, err = h.raw("__android_log_write", uint64(jlog.PrioritySilent), 0, h.mem.cstring(t, "hidden"))
	assert.NoError(t, err)
	assert.Empty(t, buf.String())

	_, err = h.raw("__android_log_write", uint64(jlog.PriorityInfo), 0, uint64(h.mem.Size()))
	var fatal *FatalError
	assert.ErrorAs(t, err, &fatal)
}
