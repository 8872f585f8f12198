package uplink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeyErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "precondition not met",
			err:      errors.New("exit status 1\nfeature_test.go:185: precondition not met: no reachable pulp server at pulp.example.com"),
			expected: "precondition not met: no reachable pulp server at pulp.example.com",
		},
		{
			name:     "assertion failure",
			err:      errors.New("exit status 1\nassertion failed: repository count mismatch\ngoroutine dump follows"),
			expected: "assertion failed: repository count mismatch",
		},
		{
			name:     "panic message",
			err:      errors.New("exit status 2\npanic: runtime error: invalid memory address or nil pointer dereference"),
			expected: "panic: runtime error: invalid memory address or nil pointer dereference",
		},
		{
			name:     "expected vs got with file prefix stripped",
			err:      errors.New("exit status 1\n    feature_test.go:123: expected \"published\", got: \"failed\""),
			expected: "expected \"published\", got: \"failed\"",
		},
		{
			name:     "testify error line",
			err:      errors.New("exit status 1\n    feature_test.go:88: Error: Received unexpected error:"),
			expected: "Error: Received unexpected error:",
		},
		{
			name:     "simple error message",
			err:      errors.New("connection refused"),
			expected: "connection refused",
		},
		{
			name:     "multiline falls back to first line",
			err:      errors.New("first line of the error\nsecond line with more detail"),
			expected: "first line of the error",
		},
		{
			name:     "long message truncated",
			err:      errors.New("this is a very long error message that should be truncated because it exceeds the maximum length"),
			expected: "this is a very long error message that should be truncated because it ...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractKeyErrorMessage(tt.err))
		})
	}
}
