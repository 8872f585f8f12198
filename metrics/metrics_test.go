package metrics

import (
	"errors"
	"testing"

	"github.com/omaciel/uplink/types"
	"github.com/stretchr/testify/assert"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil error", nil, "nil"},
		{"plain words", errors.New("connection refused"), "connection_refused"},
		{"punctuation dropped", errors.New("dial tcp 10.0.0.1:443: timeout"), "dial_tcp_timeout"},
		{"quotes dropped", errors.New(`unknown broker "mosquitto"`), "unknown_broker_mosquitto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errToLabel(tt.err))
		})
	}
}

func TestIsValidResult(t *testing.T) {
	assert.True(t, isValidResult(types.TestStatusPass))
	assert.True(t, isValidResult(types.TestStatusFail))
	assert.True(t, isValidResult(types.TestStatusSkip))
	assert.False(t, isValidResult(types.TestStatusError))
	assert.False(t, isValidResult(types.TestStatus("bogus")))
}

func TestRecordCheckIgnoresInvalidResult(t *testing.T) {
	// Must not panic or register a bogus label value
	RecordCheck("pulp.example.com", "run-1", "TestServerStatus", "test", types.TestStatus("bogus"))
	RecordCheck("pulp.example.com", "run-1", "TestServerStatus", "test", types.TestStatusPass)
}
