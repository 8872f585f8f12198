package uplink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/omaciel/uplink/runner"
	"github.com/omaciel/uplink/types"
)

func TestDefaultMetricsReporter_ReportResults(t *testing.T) {
	result := &runner.RunnerResult{
		RunID:    "test-run-1",
		Status:   types.TestStatusPass,
		Duration: 100 * time.Millisecond,
		Stats: runner.ResultStats{
			Total:   5,
			Passed:  5,
			Failed:  0,
			Skipped: 0,
		},
	}

	reporter := NewDefaultMetricsReporter("pulp.example.com")

	// Recording must not panic; the metric values themselves are
	// covered by the metrics package tests.
	reporter.ReportResults(result.RunID, result)
}

func TestDefaultMetricsReporter_ReportResults_FailedTests(t *testing.T) {
	result := &runner.RunnerResult{
		RunID:    "test-run-2",
		Status:   types.TestStatusFail,
		Duration: 150 * time.Millisecond,
		Stats: runner.ResultStats{
			Total:   10,
			Passed:  7,
			Failed:  3,
			Skipped: 0,
		},
	}

	reporter := NewDefaultMetricsReporter("pulp.example.com")
	reporter.ReportResults(result.RunID, result)
}

func TestNewDefaultMetricsReporter_DefaultsHostname(t *testing.T) {
	reporter := NewDefaultMetricsReporter("")
	assert.Equal(t, "unknown", reporter.hostname)
}
