package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/kanon/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"INFO", InfoLevel},
		{"warn", WarnLevel},
		{"WARN", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"ERROR", ErrorLevel},
		{"invalid", InfoLevel}, // default
		{"", InfoLevel},        // default
	}
	
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseLogLevel(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}
	
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestNewLoggerStdout(t *testing.T) {
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stdout",
	}
	
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	
	assert.Equal(t, InfoLevel, logger.level)
	assert.Equal(t, "text", logger.format)
	assert.Equal(t, os.Stdout, logger.output)
	assert.Nil(t, logger.file)
}

func TestNewLoggerStderr(t *testing.T) {
	cfg := config.LoggingConfig{
		Level:  "debug",
		Format: "json",
		Output: "stderr",
	}
	
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	
	assert.Equal(t, DebugLevel, logger.level)
	assert.Equal(t, "json", logger.format)
	assert.Equal(t, os.Stderr, logger.output)
	assert.True(t, logger.showCaller)
}

func TestNewLoggerFile(t *testing.T) {
	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "test.log")
	
	cfg := config.LoggingConfig{
		Level:  "warn",
		Format: "text",
		Output: "file",
		File:   logFile,
	}
	
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	
	assert.Equal(t, WarnLevel, logger.level)
	assert.Equal(t, "text", logger.format)
	assert.NotNil(t, logger.file)
	
	// Clean up
	logger.Close()
}

func TestNewLoggerFileInvalidPath(t *testing.T) {
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "file",
		File:   "",
	}
	
	logger, err := NewLogger(cfg)
	assert.Error(t, err)
	assert.Nil(t, logger)
	assert.Contains(t, err.Error(), "log file path is required")
}

func TestNewLoggerInvalidOutput(t *testing.T) {
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "invalid",
	}
	
	logger, err := NewLogger(cfg)
	assert.Error(t, err)
	assert.Nil(t, logger)
	assert.Contains(t, err.Error(), "invalid log output")
}

func TestLoggerWithField(t *testing.T) {
	var buf bytes.Buffer
	
	logger := &Logger{
		level:  InfoLevel,
		format: "json",
		output: &buf,
		fields: make(map[string]interface{}),
	}
	
	newLogger := logger.WithField("key", "value")
	newLogger.Info("test message")
	
	var entry LogEntry
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err)
	
	assert.Equal(t, "test message", entry.Message)
	assert.Equal(t, "value", entry.Fields["key"])
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer

	logger := &Logger{
		level:  WarnLevel,
		format: "json",
		output: &buf,
		fields: make(map[string]interface{}),
	}

	// Below threshold, should not be logged
	logger.Info("info message")

	// At or above threshold, should be logged
	logger.Warn("warn message")
	logger.ErrorWithErr("error message", nil)

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")

	// Should only have 2 lines (warn and error)
	assert.Len(t, lines, 2)

	// Check warn message
	var warnEntry LogEntry
	err := json.Unmarshal([]byte(lines[0]), &warnEntry)
	require.NoError(t, err)
	assert.Equal(t, "WARN", warnEntry.Level)
	assert.Equal(t, "warn message", warnEntry.Message)

	// Check error message
	var errorEntry LogEntry
	err = json.Unmarshal([]byte(lines[1]), &errorEntry)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", errorEntry.Level)
	assert.Equal(t, "error message", errorEntry.Message)
}

func TestLoggerFormattedMessages(t *testing.T) {
	var buf bytes.Buffer
	
	logger := &Logger{
		level:  InfoLevel,
		format: "json",
		output: &buf,
		fields: make(map[string]interface{}),
	}
	
	logger.Infof("formatted message: %s %d", "test", 42)
	
	var entry LogEntry
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err)
	
	assert.Equal(t, "formatted message: test 42", entry.Message)
}

func TestLoggerErrorWithErr(t *testing.T) {
	var buf bytes.Buffer
	
	logger := &Logger{
		level:  InfoLevel,
		format: "json",
		output: &buf,
		fields: make(map[string]interface{}),
	}
	
	testErr := assert.AnError
	logger.ErrorWithErr("operation failed", testErr)
	
	var entry LogEntry
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err)
	
	assert.Equal(t, "operation failed", entry.Message)
	assert.Equal(t, testErr.Error(), entry.Error)
}

func TestLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	
	logger := &Logger{
		level:      InfoLevel,
		format:     "text",
		output:     &buf,
		fields:     map[string]interface{}{"key": "value"},
		showCaller: false,
	}
	
	logger.Info("test message")
	
	output := buf.String()
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key=value")
}

func TestLoggerTextFormatWithCaller(t *testing.T) {
	var buf bytes.Buffer
	
	logger := &Logger{
		level:      InfoLevel,
		format:     "text",
		output:     &buf,
		fields:     make(map[string]interface{}),
		showCaller: true,
	}
	
	logger.Info("test message")
	
	output := buf.String()
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "logger_test.go:")
}

func TestLoggerClose(t *testing.T) {
	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "test.log")
	
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "file",
		File:   logFile,
	}
	
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	
	logger.Info("test message")
	
	err = logger.Close()
	assert.NoError(t, err)
	
	// Verify file was written
	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "test message")
}

func TestInitializeLogger(t *testing.T) {
	cfg := config.LoggingConfig{
		Level:  "debug",
		Format: "json",
		Output: "stderr",
	}

	err := InitializeLogger(cfg)
	assert.NoError(t, err)

	// Test that a global function works
	Info("test global info")
}

func TestGlobalLoggingFunctions(t *testing.T) {
	var buf bytes.Buffer

	// Set up global logger
	globalLogger = &Logger{
		level:  InfoLevel,
		format: "json",
		output: &buf,
		fields: make(map[string]interface{}),
	}

	Info("info message")
	Warn("warn message")
	ErrorWithErr("error message", nil)

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	assert.Len(t, lines, 3)

	// Verify each message
	for i, expectedLevel := range []string{"INFO", "WARN", "ERROR"} {
		var entry LogEntry
		err := json.Unmarshal([]byte(lines[i]), &entry)
		require.NoError(t, err)
		assert.Equal(t, expectedLevel, entry.Level)
	}
}