package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	records *[]slog.Record
	attrs   []slog.Attr
	group   string
}

func (h recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h recordingHandler) Handle(_ context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs...)
	*h.records = append(*h.records, r)
	return nil
}

func (h recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return h
}

func (h recordingHandler) WithGroup(name string) slog.Handler {
	h.group = name
	return h
}

func TestMultiHandler_FansOut(t *testing.T) {
	var first, second []slog.Record
	log := slog.New(NewMultiHandler(
		recordingHandler{records: &first},
		recordingHandler{records: &second},
	)).With("user.id", 7)

	log.Info("Task created", "task.id", 3)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "Task created", first[0].Message)

	attrs := map[string]any{}
	second[0].Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	assert.Equal(t, int64(7), attrs["user.id"])
	assert.Equal(t, int64(3), attrs["task.id"])
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn)

	log.Info("quiet")
	log.Warn("loud", "user.id", 1)

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "msg=loud")
	assert.Contains(t, out, "user.id=1")
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
}
