package uplink

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/omaciel/uplink/logging"
	"github.com/omaciel/uplink/runner"
	"github.com/omaciel/uplink/types"
)

// MockExecutorRunner is a mock implementation of the TestRunner interface for testing the executor
type MockExecutorRunner struct {
	mock.Mock
}

func (m *MockExecutorRunner) RunAllTests(ctx context.Context) (*runner.RunnerResult, error) {
	args := m.Called(ctx)
	result := args.Get(0)
	err := args.Error(1)
	if result == nil {
		return nil, err
	}
	return result.(*runner.RunnerResult), err
}

func (m *MockExecutorRunner) RunTest(ctx context.Context, metadata types.TestMetadata) (*types.TestResult, error) {
	args := m.Called(ctx, metadata)
	result := args.Get(0)
	err := args.Error(1)
	if result == nil {
		return nil, err
	}
	return result.(*types.TestResult), err
}

func TestDefaultTestExecutor_RunTests_Success(t *testing.T) {
	mockRunner := new(MockExecutorRunner)

	expectedResult := &runner.RunnerResult{
		RunID:  "test-run-1",
		Status: types.TestStatusPass,
		Stats: runner.ResultStats{
			Total:   5,
			Passed:  5,
			Failed:  0,
			Skipped: 0,
		},
	}

	mockRunner.On("RunAllTests", mock.Anything).Return(expectedResult, nil)

	executor := NewDefaultTestExecutor(mockRunner, logging.NewLogger("error", io.Discard))

	result, err := executor.RunTests(context.Background())

	mockRunner.AssertExpectations(t)
	assert.NoError(t, err)
	assert.Equal(t, expectedResult, result)
}

func TestDefaultTestExecutor_RunTests_Error(t *testing.T) {
	mockRunner := new(MockExecutorRunner)

	expectedError := errors.New("test runner error")
	mockRunner.On("RunAllTests", mock.Anything).Return(nil, expectedError)

	executor := NewDefaultTestExecutor(mockRunner, logging.NewLogger("error", io.Discard))

	result, err := executor.RunTests(context.Background())

	mockRunner.AssertExpectations(t)
	assert.Error(t, err)
	assert.Equal(t, expectedError, err)
	assert.Nil(t, result)
}
