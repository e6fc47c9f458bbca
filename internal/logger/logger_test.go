package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name          string
		level         Level
		logFunc       func(Logger, string)
		expectedInLog bool
	}{
		{
			name:          "debug message when level is debug",
			level:         LevelDebug,
			logFunc:       func(l Logger, msg string) { l.Debug(msg) },
			expectedInLog: true,
		},
		{
			name:          "debug message when level is info",
			level:         LevelInfo,
			logFunc:       func(l Logger, msg string) { l.Debug(msg) },
			expectedInLog: false,
		},
		{
			name:          "info message when level is info",
			level:         LevelInfo,
			logFunc:       func(l Logger, msg string) { l.Info(msg) },
			expectedInLog: true,
		},
		{
			name:          "warn message when level is error",
			level:         LevelError,
			logFunc:       func(l Logger, msg string) { l.Warn(msg) },
			expectedInLog: false,
		},
		{
			name:          "error message when level is error",
			level:         LevelError,
			logFunc:       func(l Logger, msg string) { l.Error(msg) },
			expectedInLog: true,
		},
		{
			name:          "error message when silent",
			level:         LevelSilent,
			logFunc:       func(l Logger, msg string) { l.Error(msg) },
			expectedInLog: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewLogger(tt.level, buf)

			testMsg := "test message"
			tt.logFunc(logger, testMsg)

			assert.Equal(t, tt.expectedInLog, strings.Contains(buf.String(), testMsg), "output: %s", buf.String())
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(LevelDebug, buf)

	logger.WithFields(F("module", "users")).Info("loaded", F("exports", 3))

	out := buf.String()
	assert.Contains(t, out, "loaded")
	assert.Contains(t, out, "module=users")
	assert.Contains(t, out, "exports=3")
}

func TestLogger_WithFieldsDoesNotLeak(t *testing.T) {
	buf := &bytes.Buffer{}
	parent := NewLogger(LevelDebug, buf)
	_ = parent.WithFields(F("child", true))

	parent.Info("parent only")
	assert.NotContains(t, buf.String(), "child=true")
}

func TestLogger_SetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(LevelError, buf)

	logger.Info("hidden")
	logger.SetLevel(LevelInfo)
	logger.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"silent":  LevelSilent,
	} {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	buf := &bytes.Buffer{}
	SetDefault(NewLogger(LevelInfo, buf))
	Info("via default")
	Debug("too quiet")

	assert.Contains(t, buf.String(), "via default")
	assert.NotContains(t, buf.String(), "too quiet")
}
