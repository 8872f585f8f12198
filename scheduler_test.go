package uplink

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaciel/uplink/logging"
)

func TestDefaultTestScheduler_RunOnce(t *testing.T) {
	logger := logging.NewLogger("error", io.Discard)
	callCount := 0

	scheduler := NewDefaultTestScheduler(100*time.Millisecond, true, logger)
	scheduler.RegisterCallback(func() error {
		callCount++
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := scheduler.Start(ctx)
	require.NoError(t, err)

	// In run-once mode the callback runs exactly once, immediately
	assert.Equal(t, 1, callCount, "Expected callback to be called exactly once")

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, callCount, "Expected callback to be called exactly once")
}

func TestDefaultTestScheduler_Periodic(t *testing.T) {
	logger := logging.NewLogger("error", io.Discard)

	callChan := make(chan struct{}, 10)
	expectedCalls := 4

	scheduler := NewDefaultTestScheduler(10*time.Millisecond, false, logger)
	scheduler.RegisterCallback(func() error {
		callChan <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := scheduler.Start(ctx)
	require.NoError(t, err)

	for i := 0; i < expectedCalls; i++ {
		select {
		case <-callChan:
		case <-time.After(1 * time.Second):
			t.Fatalf("Timed out waiting for callback execution %d/%d", i+1, expectedCalls)
		}
	}

	err = scheduler.Stop()
	require.NoError(t, err)

	// Catch any call that slips in after the stop
	extraCallCount := 0
	select {
	case <-callChan:
		extraCallCount++
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 0, extraCallCount, "Expected no more calls after stopping")

	err = scheduler.WaitForShutdown(ctx)
	assert.NoError(t, err)
}

func TestDefaultTestScheduler_CallbackError(t *testing.T) {
	logger := logging.NewLogger("error", io.Discard)
	expectedError := errors.New("test callback error")

	scheduler := NewDefaultTestScheduler(100*time.Millisecond, true, logger)
	scheduler.RegisterCallback(func() error {
		return expectedError
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// The error from the first run surfaces through Start
	err := scheduler.Start(ctx)
	assert.Error(t, err)
	assert.Equal(t, expectedError, err)
}

func TestDefaultTestScheduler_NoCallback(t *testing.T) {
	logger := logging.NewLogger("error", io.Discard)

	scheduler := NewDefaultTestScheduler(100*time.Millisecond, true, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := scheduler.Start(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "callback must be registered")
}

func TestDefaultTestScheduler_AlreadyStopped(t *testing.T) {
	logger := logging.NewLogger("error", io.Discard)

	scheduler := NewDefaultTestScheduler(100*time.Millisecond, true, logger)
	scheduler.RegisterCallback(func() error {
		return nil
	})

	err := scheduler.Stop()
	assert.NoError(t, err, "Stop should be idempotent")

	err = scheduler.Stop()
	assert.NoError(t, err, "Second stop should also succeed")
}

func TestDefaultTestScheduler_WaitForShutdown(t *testing.T) {
	logger := logging.NewLogger("error", io.Discard)

	scheduler := NewDefaultTestScheduler(100*time.Millisecond, false, logger)
	scheduler.RegisterCallback(func() error {
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := scheduler.Start(ctx)
	require.NoError(t, err)

	err = scheduler.Stop()
	require.NoError(t, err)

	err = scheduler.WaitForShutdown(ctx)
	assert.NoError(t, err, "WaitForShutdown should succeed after stopping")
}
