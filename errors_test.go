package uplink

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omaciel/uplink/exitcodes"
)

func TestRuntimeError(t *testing.T) {
	underlying := errors.New("settings file is unreadable")
	err := NewRuntimeError(underlying)

	assert.Equal(t, "runtime error: settings file is unreadable", err.Error())
	assert.Equal(t, underlying, errors.Unwrap(err))
	assert.True(t, IsRuntimeError(err))
	assert.False(t, IsTestFailureError(err))

	// Detection survives wrapping
	wrapped := fmt.Errorf("starting harness: %w", err)
	assert.True(t, IsRuntimeError(wrapped))
}

func TestTestFailureError(t *testing.T) {
	err := NewTestFailureError("2 of 5 tests failed")

	assert.Equal(t, "test failure: 2 of 5 tests failed", err.Error())
	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))
}

func TestIsHelpersRejectNil(t *testing.T) {
	assert.False(t, IsRuntimeError(nil))
	assert.False(t, IsTestFailureError(nil))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, exitcodes.Success},
		{"runtime error", NewRuntimeError(errors.New("boom")), exitcodes.RuntimeErr},
		{"wrapped runtime error", fmt.Errorf("outer: %w", NewRuntimeError(errors.New("boom"))), exitcodes.RuntimeErr},
		{"test failure", NewTestFailureError("failures"), exitcodes.TestFailure},
		{"plain error", errors.New("anything else"), exitcodes.TestFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCode(tt.err))
		})
	}
}
