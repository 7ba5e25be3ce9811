package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			level, err := ParseLevel(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, level)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("data").
		With("build_id", "b1").
		Warn(context.Background(), errors.New("bad yaml"), "Skipping document", "path", "a/data.yml")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "Skipping document", entry["msg"])
	assert.Equal(t, "data", entry["component"])
	assert.Equal(t, "bad yaml", entry["error"])
	assert.Equal(t, "b1", entry["build_id"])
	assert.Equal(t, "a/data.yml", entry["path"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Output: &buf})

	logger.Debug(context.Background(), "debug message")
	logger.Info(context.Background(), "info message")
	logger.Error(context.Background(), nil, "error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "error message")
}

func TestOddFieldsAreDropped(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})

	logger.Info(context.Background(), "odd", "key", "value", 42, "numeric-key", "dangling")

	out := buf.String()
	assert.Contains(t, out, "key=value")
	assert.False(t, strings.Contains(out, "numeric-key"))
	assert.False(t, strings.Contains(out, "dangling"))
}

func TestOperationLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Output: &buf})

	op := StartOperation(logger, "render-templates")
	op.End(context.Background())
	op.EndWithError(context.Background(), errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "operation=render-templates")
	assert.Contains(t, out, "Operation completed")
	assert.Contains(t, out, "Operation failed")
	assert.Contains(t, out, "error=boom")
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error(context.Background(), errors.New("x"), "discarded")
	})
}
