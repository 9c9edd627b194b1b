package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ParseError, "test error message")

	assert.Equal(t, ParseError, err.Type)
	assert.Equal(t, "test error message", err.Message)
	assert.NoError(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(IoError, "failed to open %s", "table.csv")

	assert.Equal(t, IoError, err.Type)
	assert.Equal(t, "failed to open table.csv", err.Message)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, IoError, "read operation failed")

	assert.Equal(t, IoError, wrappedErr.Type)
	assert.Equal(t, "read operation failed", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("unexpected token")
	wrappedErr := Wrapf(
		originalErr,
		ParseError,
		"failed to parse line %d of %s",
		12,
		"domains.txt",
	)

	assert.Equal(t, ParseError, wrappedErr.Type)
	assert.Equal(t, "failed to parse line 12 of domains.txt", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "error without cause",
			err: &Error{
				Type:    ParseError,
				Message: "invalid input",
			},
			expected: "parse: invalid input",
		},
		{
			name: "error with cause",
			err: &Error{
				Type:    IoError,
				Message: "read failed",
				Cause:   errors.New("file not found"),
			},
			expected: "io: read failed (caused by: file not found)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, IoError, "wrapped error")

	assert.Equal(t, originalErr, wrappedErr.Unwrap())
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrTypeConfig, "invalid mode")
	err = err.WithSuggestion("Use --mode=mg or --mode=ga")
	err = err.WithSuggestion("Run with --help for usage")

	assert.Len(t, err.Suggestions, 2)
	assert.Contains(t, err.Suggestions, "Use --mode=mg or --mode=ga")
	assert.Contains(t, err.Suggestions, "Run with --help for usage")
}

func TestIsType(t *testing.T) {
	structErr := New(ParseError, "parse error")
	regularErr := errors.New("regular error")

	assert.True(t, IsType(structErr, ParseError))
	assert.False(t, IsType(structErr, IoError))
	assert.False(t, IsType(regularErr, ParseError))
}

func TestGetType(t *testing.T) {
	structErr := New(CacheCollision, "collision")
	regularErr := errors.New("regular error")

	assert.Equal(t, CacheCollision, GetType(structErr))
	assert.Equal(t, ErrTypeInternal, GetType(regularErr))
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("invalid value", "log_level")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Contains(t, err.Message, "invalid value")
	assert.Contains(t, err.Message, "log_level")
	assert.Contains(t, err.Suggestions, "Check your configuration file syntax")
	assert.Contains(t, err.Suggestions, "Run with --help to see valid configuration options")
}

func TestNewConfigErrorEmptyField(t *testing.T) {
	err := NewConfigError("failed to load", "")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Equal(t, "failed to load", err.Message)
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected string
	}{
		{IoError, "io"},
		{ParseError, "parse"},
		{ErrTypeConfig, "config"},
		{CacheCollision, "cache_collision"},
		{InvalidMutation, "invalid_mutation"},
		{OutOfBounds, "out_of_bounds"},
		{ErrTypeInternal, "internal"},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}
