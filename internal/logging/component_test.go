package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/gravitysim/gravity/internal/dispatcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ dispatcher.Logger = (*ComponentLogger)(nil)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestComponentLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		log   func(*ComponentLogger)
	}{
		{"DEBUG", func(l *ComponentLogger) { l.Debug("queued", "command", ":THRUST:", "depth", 3) }},
		{"INFO", func(l *ComponentLogger) { l.Info("queued", "command", ":THRUST:", "depth", 3) }},
		{"ERROR", func(l *ComponentLogger) { l.Error("queued", "command", ":THRUST:", "depth", 3) }},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			tt.log(NewComponentLogger(logger, "worker"))

			entry := decodeLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "queued", entry["msg"])
			assert.Equal(t, ":THRUST:", entry["command"])
			assert.Equal(t, float64(3), entry["depth"])
			assert.Equal(t, "worker", entry["component"])
		})
	}
}

func TestNewDispatcherLogger_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	dl.Info("registered")

	assert.Equal(t, "dispatcher", decodeLine(t, &buf)["component"])
}

func TestNewComponentLogger_NilFallsBackToDefault(t *testing.T) {
	l := NewComponentLogger(nil, "x")
	require.NotNil(t, l)
	l.Debug("no panic")
}
