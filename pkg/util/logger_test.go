package util

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, InfoLevel).Named("discovery").WithError(errors.New("boom"))

	l.Debug("hidden")
	l.Info("peer found", "token", "abc", "port", 12345, "dangling")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "peer found", rec["msg"])
	assert.Equal(t, "discovery", rec["component"])
	assert.Equal(t, "boom", rec["error"])
	assert.Equal(t, "abc", rec["token"])
	assert.Equal(t, float64(12345), rec["port"])
	assert.Equal(t, "(MISSING)", rec["dangling"])
}

func TestConsoleHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	h := &consoleHandler{out: &buf, mu: new(sync.Mutex), level: WarnLevel}
	assert.False(t, h.Enabled(context.Background(), InfoLevel))
	assert.True(t, h.Enabled(context.Background(), ErrorLevel))

	l := &Logger{logger: slog.New(h)}
	l.Info("dropped")
	l.With("peer", "p1").Warn("kept", "port", 1)
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
	assert.Contains(t, buf.String(), "peer=p1")
}
