package logger

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestBuildContextRing(t *testing.T) {
	ctx := NewBuildContext(nil)
	for i := 0; i < MAX_MESSAGES+5; i++ {
		ctx.Progress("msg %d", i)
	}
	assert.Equal(t, MAX_MESSAGES, ctx.GetLogCount())
	assert.Equal(t, 5, ctx.Dropped())
	assert.Equal(t, "msg 5", ctx.GetLogText(0))
	assert.Equal(t, fmt.Sprintf("msg %d", MAX_MESSAGES+4), ctx.GetLogText(MAX_MESSAGES-1))

	ctx.ResetLog()
	assert.Zero(t, ctx.GetLogCount())
}

func TestBuildContextDump(t *testing.T) {
	ctx := NewBuildContext(Nop())
	ctx.Warning("tile %d,%d", 1, 2)
	ctx.Error("boom")
	var buf bytes.Buffer
	ctx.DumpLog(&buf, "Build log")
	assert.Equal(t, "Build log\nwarning: tile 1,2\nerror: boom\n", buf.String())

	assert.NotPanics(t, func() { ctx.DumpLog(failWriter{}, "x") })

	ctx.EnableLog(false)
	ctx.Progress("ignored")
	assert.Equal(t, 2, ctx.GetLogCount())
}

func TestBuildContextTimers(t *testing.T) {
	ctx := NewBuildContext(nil)
	ctx.StartTimer("total")
	ctx.StopTimer("total")
	ctx.StopTimer("missing")
	assert.GreaterOrEqual(t, ctx.GetAccumulatedTime("total").Nanoseconds(), int64(0))
	assert.Zero(t, ctx.GetAccumulatedTime("missing"))
}

func TestLoggerFile(t *testing.T) {
	opts := DefaultOptions()
	opts.Console = false
	opts.File = filepath.Join(t.TempDir(), "build.log")
	l, err := New(opts)
	require.NoError(t, err)
	ctx := NewBuildContext(l)
	ctx.Error("disk full")
	require.NoError(t, l.Close())
	assert.FileExists(t, opts.File)

	_, err = New(Options{Level: "loud"})
	assert.Error(t, err)
}
