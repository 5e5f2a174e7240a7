package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.in))
		})
	}
}

func TestStructuredLoggerAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newStructuredLogger(&buf, "craftplan", "v1.2.3", slog.LevelInfo)

	logger.Info("plan built", "item", "gear")
	logger.Debug("dropped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "plan built", entry["msg"])
	assert.Equal(t, "craftplan", entry["module"])
	assert.Equal(t, "v1.2.3", entry["version"])
	assert.Equal(t, "gear", entry["item"])
	assert.NotContains(t, entry, "source")
}

func TestStructuredLoggerDebugSource(t *testing.T) {
	var buf bytes.Buffer
	logger := newStructuredLogger(&buf, "craftplan", "dev", slog.LevelDebug)

	logger.Debug("expanding")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Contains(t, entry, "source")
}
