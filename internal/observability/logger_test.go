package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/wrf-obsprep/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.Config{LogLevel: "info", LogFormat: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("radar stage finished", "stations", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "radar stage finished", entry["msg"])
	assert.InDelta(t, 2, entry["stations"], 0)
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.Config{LogLevel: "debug", LogFormat: "text"}, &buf)

	logger.Debug("cell written", "i", 3)
	assert.Contains(t, buf.String(), "msg=\"cell written\"")
	assert.Contains(t, buf.String(), "i=3")
}

func TestLogOutput(t *testing.T) {
	assert.Equal(t, os.Stdout, logOutput(&config.Config{}))

	path := filepath.Join(t.TempDir(), "obsprep.log")
	w := logOutput(&config.Config{LogFile: path, LogMaxSizeMB: 16, LogMaxBackups: 2, LogCompress: true})
	lj, ok := w.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, path, lj.Filename)
	assert.Equal(t, 16, lj.MaxSize)
	assert.Equal(t, 2, lj.MaxBackups)
	assert.True(t, lj.Compress)

	_, err := lj.Write([]byte("{}\n"))
	require.NoError(t, err)
	require.NoError(t, lj.Close())
	assert.FileExists(t, path)
}
