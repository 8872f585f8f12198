package types

import (
	"strings"
	"time"
)

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusSkip  TestStatus = "skip"
	TestStatusError TestStatus = "error"
)

// TestResult captures the outcome of a single test run
type TestResult struct {
	Metadata TestMetadata
	Status   TestStatus
	Error    error
	Duration time.Duration          // Wall-clock execution time
	SubTests map[string]*TestResult // Individual results when running a whole package
	Stdout   string                 // Captured stdout for failing tests
	TimedOut bool                   // Whether the test hit its timeout
}

// TestConfig represents one test entry in a plans file
type TestConfig struct {
	Name    string         `yaml:"name,omitempty"`
	Package string         `yaml:"package"`
	RunAll  bool           `yaml:"run_all,omitempty"`
	Timeout *time.Duration `yaml:"timeout,omitempty"`
}

// GetTestDisplayName returns a formatted display name for a test based on its name and metadata.
// If the test name is empty but a package is specified, the last package path element is used.
func GetTestDisplayName(testName string, metadata TestMetadata) string {
	displayName := testName
	if displayName == "" && metadata.Package != "" {
		pkgParts := strings.Split(metadata.Package, "/")
		displayName = pkgParts[len(pkgParts)-1] + " (package)"
	}
	return displayName
}
