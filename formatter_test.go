package uplink

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaciel/uplink/logging"
	"github.com/omaciel/uplink/runner"
	"github.com/omaciel/uplink/types"
)

func TestConsoleResultFormatter_FormatResults(t *testing.T) {
	result := createSampleResult()

	var out bytes.Buffer
	formatter := &ConsoleResultFormatter{
		logger: logging.NewLogger("error", io.Discard),
		out:    &out,
	}

	err := formatter.FormatResults(result)
	require.NoError(t, err)

	rendered := out.String()
	assert.Contains(t, rendered, "Uplink Test Results")
	assert.Contains(t, rendered, "smoke")
	assert.Contains(t, rendered, "repos")
	assert.Contains(t, rendered, "TestServerStatus")
	assert.Contains(t, rendered, "TOTAL")
	assert.Contains(t, rendered, "sync returned 500")

	// A failing run ends with the banner
	assert.Contains(t, rendered, "SOME TESTS FAILED")
}

func TestConsoleResultFormatter_FormatResults_EmptyResult(t *testing.T) {
	result := &runner.RunnerResult{
		RunID:    "empty-run",
		Status:   types.TestStatusPass,
		Duration: 100 * time.Millisecond,
		Plans:    make(map[string]*runner.PlanResult),
		Stats: runner.ResultStats{
			Total:  0,
			Passed: 0,
			Failed: 0,
		},
	}

	var out bytes.Buffer
	formatter := &ConsoleResultFormatter{
		logger: logging.NewLogger("error", io.Discard),
		out:    &out,
	}

	err := formatter.FormatResults(result)
	require.NoError(t, err)

	rendered := out.String()
	assert.Contains(t, rendered, "Uplink Test Results")
	assert.Contains(t, rendered, "TOTAL")
	assert.NotContains(t, rendered, "SOME TESTS FAILED")
}

// createSampleResult builds a run with a passing direct test, plus a suite
// holding one pass and one failure.
func createSampleResult() *runner.RunnerResult {
	statusTest := &types.TestResult{
		Status:   types.TestStatusPass,
		Duration: 50 * time.Millisecond,
		Metadata: types.TestMetadata{
			ID:       "TestServerStatus",
			FuncName: "TestServerStatus",
			Package:  "./feature",
		},
	}

	createTest := &types.TestResult{
		Status:   types.TestStatusPass,
		Duration: 75 * time.Millisecond,
		Metadata: types.TestMetadata{
			ID:       "TestRepoCreate",
			FuncName: "TestRepoCreate",
			Package:  "./feature",
		},
	}

	syncTest := &types.TestResult{
		Status:   types.TestStatusFail,
		Duration: 10 * time.Millisecond,
		Error:    errors.New("sync returned 500"),
		Metadata: types.TestMetadata{
			ID:       "TestRepoSync",
			FuncName: "TestRepoSync",
			Package:  "./feature",
		},
	}

	suiteResult := &runner.SuiteResult{
		ID: "repos",
		Tests: map[string]*types.TestResult{
			"TestRepoCreate": createTest,
			"TestRepoSync":   syncTest,
		},
		Status:   types.TestStatusFail,
		Duration: 85 * time.Millisecond,
		Stats: runner.ResultStats{
			Total:  2,
			Passed: 1,
			Failed: 1,
		},
	}

	planResult := &runner.PlanResult{
		ID:       "smoke",
		Tests:    map[string]*types.TestResult{"TestServerStatus": statusTest},
		Suites:   map[string]*runner.SuiteResult{"repos": suiteResult},
		Status:   types.TestStatusFail,
		Duration: 135 * time.Millisecond,
		Stats: runner.ResultStats{
			Total:  3,
			Passed: 2,
			Failed: 1,
		},
	}

	return &runner.RunnerResult{
		RunID:    "test-run-1",
		Plans:    map[string]*runner.PlanResult{"smoke": planResult},
		Status:   types.TestStatusFail,
		Duration: 135 * time.Millisecond,
		Stats: runner.ResultStats{
			Total:  3,
			Passed: 2,
			Failed: 1,
		},
	}
}
