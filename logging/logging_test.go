package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level        string
		debugEnabled bool
		warnEnabled  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, true},
		{"error", false, false},
		{"bogus", false, true}, // unknown levels fall back to info
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			ctx := context.Background()
			assert.Equal(t, tt.debugEnabled, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.warnEnabled, logger.Enabled(ctx, slog.LevelWarn))
		})
	}
}

func TestNewLoggerWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)

	logger.Info("settings loaded", "path", "/etc/uplink/settings.json")

	out := buf.String()
	assert.Contains(t, out, "settings loaded")
	assert.Contains(t, out, "path=/etc/uplink/settings.json")

	buf.Reset()
	logger.Debug("not visible")
	assert.Empty(t, buf.String())
}
