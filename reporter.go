package uplink

import (
	"github.com/omaciel/uplink/metrics"
	"github.com/omaciel/uplink/runner"
)

// MetricsReporter is responsible for reporting metrics from test results.
type MetricsReporter interface {
	ReportResults(runID string, result *runner.RunnerResult)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
// Results are labelled with the hostname of the system under test.
type DefaultMetricsReporter struct {
	hostname string
}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter(hostname string) *DefaultMetricsReporter {
	if hostname == "" {
		hostname = "unknown"
	}
	return &DefaultMetricsReporter{hostname: hostname}
}

// ReportResults reports the test results to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(runID string, result *runner.RunnerResult) {
	metrics.RecordRunResults(
		r.hostname,
		runID,
		string(result.Status),
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Failed,
		result.Duration,
	)
}
