package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, parseLevel(tc.in), "parseLevel(%q)", tc.in)
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "info", "json").Info("hello", "list", "dev")
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("{")), "expected JSON, got %q", buf.String())
	assert.Contains(t, buf.String(), `"list":"dev"`)

	buf.Reset()
	newLogger(&buf, "info", "").Info("hello", "list", "dev")
	assert.Contains(t, buf.String(), "list=dev")

	buf.Reset()
	newLogger(&buf, "warn", "text").Info("dropped")
	assert.Zero(t, buf.Len(), "info record should be filtered at warn level")
}
