package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want zapcore.Level
	}{
		{"default", Options{}, zapcore.InfoLevel},
		{"named", Options{Level: "warn"}, zapcore.WarnLevel},
		{"mixed case", Options{Level: " DEBUG "}, zapcore.DebugLevel},
		{"unknown", Options{Level: "chatty"}, zapcore.InfoLevel},
		{"debug flag wins", Options{Level: "error", Debug: true}, zapcore.DebugLevel},
		{"quiet", Options{Level: "info", Quiet: true}, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveLevel(tt.opts))
		})
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "greenstudio.log")

	logger, err := New(Options{File: path})
	require.NoError(t, err)
	logger.Info("hello from test")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Contains(t, string(data), `"level":"info"`)
}
