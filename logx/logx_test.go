package logx

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(NewHandler(&buf, level, false)), &buf
}

func TestHandlerFormat(t *testing.T) {
	log, buf := newLogger(slog.LevelDebug)

	log.Error("error loading MTL file", "path", "cube.mtl", "err", errors.New("file does not exist"))
	assert.Equal(t, "ERROR error loading MTL file path=cube.mtl err=\"file does not exist\"\n", buf.String())
}

func TestHandlerLevel(t *testing.T) {
	log, buf := newLogger(slog.LevelWarn)

	log.Info("hidden")
	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Equal(t, "WARN shown\n", buf.String())
}

func TestHandlerAttrsAndGroups(t *testing.T) {
	log, buf := newLogger(slog.LevelInfo)

	log.With("model", "cube").WithGroup("load").Info("done", "ms", 12, slog.Group("mesh", "tris", 12))
	assert.Equal(t, "INFO done model=cube load.ms=12 load.mesh.tris=12\n", buf.String())
}

func TestHandlerNoColour(t *testing.T) {
	log, buf := newLogger(slog.LevelDebug)
	log.Error("x")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestSetDefaultLogger(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	UserLevel = slog.LevelDebug
	defer func() { UserLevel = slog.LevelWarn }()

	l := SetDefaultLogger(false)
	assert.Same(t, l, slog.Default())
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))
}
