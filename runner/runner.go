// Package runner executes the tests a plan selects by shelling out to
// `go test -json` and parsing the event stream into structured results.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/omaciel/uplink/logging"
	"github.com/omaciel/uplink/metrics"
	"github.com/omaciel/uplink/registry"
	"github.com/omaciel/uplink/settings"
	"github.com/omaciel/uplink/testlist"
	"github.com/omaciel/uplink/types"
)

// Go test2json action constants for JSON test output
// See https://cs.opensource.google/go/go/+/master:src/cmd/test2json/main.go
const (
	ActionStart  = "start"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionSkip   = "skip"
	ActionOutput = "output"
)

// EnvExpectReachable tells test helpers to fail instead of skip when the
// system under test does not satisfy their preconditions.
const EnvExpectReachable = "UPLINK_EXPECT_REACHABLE"

// SuiteResult captures aggregated results for a test suite
type SuiteResult struct {
	ID          string
	Description string
	Tests       map[string]*types.TestResult
	Status      types.TestStatus
	Duration    time.Duration
	Stats       ResultStats
}

// PlanResult captures aggregated results for a plan
type PlanResult struct {
	ID          string
	Description string
	Tests       map[string]*types.TestResult
	Suites      map[string]*SuiteResult
	Status      types.TestStatus
	Duration    time.Duration
	Stats       ResultStats
	Inherited   []string
}

// RunnerResult captures the complete test run results
type RunnerResult struct {
	Plans    map[string]*PlanResult
	Status   types.TestStatus
	Duration time.Duration
	Stats    ResultStats
	RunID    string
}

// ResultStats tracks test statistics at each level
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	StartTime time.Time
	EndTime   time.Time
}

// TestRunner defines the interface for running plan tests
type TestRunner interface {
	RunAllTests(ctx context.Context) (*RunnerResult, error)
	RunTest(ctx context.Context, metadata types.TestMetadata) (*types.TestResult, error)
}

// TestRunnerWithFileLogger extends the TestRunner interface with a method
// to set the file logger after creation
type TestRunnerWithFileLogger interface {
	TestRunner
	SetFileLogger(logger *logging.FileLogger)
}

// runner struct implements TestRunner interface
type runner struct {
	registry     *registry.Registry
	tests        []types.TestMetadata
	workDir      string // Directory for running tests
	log          *slog.Logger
	runID        string
	goBinary     string              // Path to the Go binary
	allowSkips   bool                // Whether tests may skip when preconditions are not met
	fileLogger   *logging.FileLogger // Logger for storing test results
	hostname     string              // Hostname of the system under test
	settingsPath string              // Settings file handed to test processes
	tracer       trace.Tracer
}

// Config holds configuration for creating a new runner
type Config struct {
	Registry     *registry.Registry
	TargetPlan   string
	WorkDir      string
	Log          *slog.Logger
	GoBinary     string              // path to the Go binary
	AllowSkips   bool                // Whether tests may skip when preconditions are not met
	ValidateSet  bool                // Verify that the plan names real test functions
	FileLogger   *logging.FileLogger // Logger for storing test results
	Hostname     string              // Hostname of the system under test
	SettingsPath string              // Settings file handed to test processes
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
		cfg.Log.Error("No logger provided, using default")
	}

	var tests []types.TestMetadata
	if len(cfg.TargetPlan) > 0 {
		tests = cfg.Registry.GetTestsByPlan(cfg.TargetPlan)
	} else {
		tests = cfg.Registry.GetTests()
	}
	if len(tests) == 0 {
		if cfg.TargetPlan != "" {
			return nil, fmt.Errorf("no tests found for plan %q", cfg.TargetPlan)
		}
		return nil, fmt.Errorf("no tests found")
	}

	if cfg.GoBinary == "" {
		cfg.GoBinary = "go" // Default to "go" if not specified
	}

	hostname := cfg.Hostname
	if hostname == "" {
		hostname = "unknown"
	}

	if cfg.ValidateSet {
		if err := validateTestNames(tests, cfg.WorkDir); err != nil {
			return nil, err
		}
	}

	cfg.Log.Debug("NewTestRunner()", "targetPlan", cfg.TargetPlan, "workDir", cfg.WorkDir,
		"allowSkips", cfg.AllowSkips, "goBinary", cfg.GoBinary, "hostname", hostname)

	return &runner{
		registry:     cfg.Registry,
		tests:        tests,
		workDir:      cfg.WorkDir,
		log:          cfg.Log,
		goBinary:     cfg.GoBinary,
		allowSkips:   cfg.AllowSkips,
		fileLogger:   cfg.FileLogger,
		hostname:     hostname,
		settingsPath: cfg.SettingsPath,
		tracer:       otel.Tracer("test runner"),
	}, nil
}

// validateTestNames checks that every named test a plan references is
// declared in its package, so typos surface before any test binary is built.
func validateTestNames(tests []types.TestMetadata, workDir string) error {
	discovered := make(map[string][]string)
	var problems []string

	for _, metadata := range tests {
		if metadata.RunAll || metadata.FuncName == "" {
			continue
		}

		names, ok := discovered[metadata.Package]
		if !ok {
			var err error
			names, err = testlist.FindTestFunctions(metadata.Package, workDir)
			if err != nil {
				return fmt.Errorf("discovering tests in package %s: %w", metadata.Package, err)
			}
			discovered[metadata.Package] = names
		}

		if !slices.Contains(names, metadata.FuncName) {
			problems = append(problems, fmt.Sprintf("test %s not found in package %s", metadata.FuncName, metadata.Package))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("plan references unknown tests:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

// RunAllTests implements the TestRunner interface
func (r *runner) RunAllTests(ctx context.Context) (*RunnerResult, error) {
	// Use fileLogger's runID if available, otherwise generate new
	if r.fileLogger != nil {
		r.runID = r.fileLogger.GetRunID()
	} else {
		r.runID = uuid.New().String()
	}

	defer func() {
		r.runID = ""
	}()
	start := time.Now()
	r.log.Debug("Running all tests", "run_id", r.runID)

	result := &RunnerResult{
		Plans: make(map[string]*PlanResult),
		Stats: ResultStats{StartTime: start},
	}

	if err := r.processAllPlans(ctx, result); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	result.Status = determineRunnerStatus(result)
	result.Stats.EndTime = time.Now()
	result.RunID = r.runID
	return result, nil
}

// processAllPlans handles the execution of all plans
func (r *runner) processAllPlans(ctx context.Context, result *RunnerResult) error {
	planTests := r.groupTestsByPlan()

	for planName, tests := range planTests {
		if err := r.processPlan(ctx, planName, tests, result); err != nil {
			return fmt.Errorf("processing plan %s: %w", planName, err)
		}
	}
	return nil
}

// groupTestsByPlan organizes test entries into their respective plans
func (r *runner) groupTestsByPlan() map[string][]types.TestMetadata {
	planTests := make(map[string][]types.TestMetadata)
	for _, metadata := range r.tests {
		planTests[metadata.Plan] = append(planTests[metadata.Plan], metadata)
	}
	return planTests
}

// processPlan handles the execution of a single plan and its tests
func (r *runner) processPlan(ctx context.Context, planName string, tests []types.TestMetadata, result *RunnerResult) error {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("plan %s", planName))
	defer span.End()

	planStart := time.Now()
	planResult := &PlanResult{
		ID:     planName,
		Tests:  make(map[string]*types.TestResult),
		Suites: make(map[string]*SuiteResult),
		Stats:  ResultStats{StartTime: planStart},
	}
	result.Plans[planName] = planResult

	suiteTests, directTests := r.categorizeTests(tests)

	// Process suites first
	if err := r.processSuites(ctx, suiteTests, planResult, result); err != nil {
		return err
	}

	// Then process direct plan tests
	if err := r.processDirectTests(ctx, directTests, planResult, result); err != nil {
		return err
	}

	planResult.Duration = time.Since(planStart)
	planResult.Status = determinePlanStatus(planResult)
	planResult.Stats.EndTime = time.Now()

	return nil
}

// categorizeTests splits entries into suite tests and direct plan tests
func (r *runner) categorizeTests(tests []types.TestMetadata) (map[string][]types.TestMetadata, []types.TestMetadata) {
	suiteTests := make(map[string][]types.TestMetadata)
	var directTests []types.TestMetadata

	for _, metadata := range tests {
		if metadata.Suite != "" {
			suiteTests[metadata.Suite] = append(suiteTests[metadata.Suite], metadata)
		} else {
			directTests = append(directTests, metadata)
		}
	}
	return suiteTests, directTests
}

// processSuites handles the execution of all suites in a plan
func (r *runner) processSuites(ctx context.Context, suiteTests map[string][]types.TestMetadata, planResult *PlanResult, result *RunnerResult) error {
	for suiteName, tests := range suiteTests {
		if err := r.processSuite(ctx, suiteName, tests, planResult, result); err != nil {
			return fmt.Errorf("processing suite %s: %w", suiteName, err)
		}
	}
	return nil
}

// processSuite handles the execution of a single suite
func (r *runner) processSuite(ctx context.Context, suiteName string, suiteTests []types.TestMetadata, planResult *PlanResult, result *RunnerResult) error {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("suite %s", suiteName))
	defer span.End()

	suiteStart := time.Now()
	suiteResult := &SuiteResult{
		ID:    suiteName,
		Tests: make(map[string]*types.TestResult),
		Stats: ResultStats{StartTime: suiteStart},
	}
	planResult.Suites[suiteName] = suiteResult

	for _, metadata := range suiteTests {
		if err := r.processTestAndAddToResults(ctx, metadata, planResult, suiteResult, result); err != nil {
			return err
		}
	}

	suiteResult.Duration = time.Since(suiteStart)
	suiteResult.Status = determineSuiteStatus(suiteResult)
	suiteResult.Stats.EndTime = time.Now()

	return nil
}

// processDirectTests handles the execution of direct plan tests
func (r *runner) processDirectTests(ctx context.Context, directTests []types.TestMetadata, planResult *PlanResult, result *RunnerResult) error {
	for _, metadata := range directTests {
		if err := r.processTestAndAddToResults(ctx, metadata, planResult, nil, result); err != nil {
			return err
		}
	}
	return nil
}

// processTestAndAddToResults runs a single test and adds its results to the
// appropriate result containers
func (r *runner) processTestAndAddToResults(ctx context.Context, metadata types.TestMetadata, planResult *PlanResult, suiteResult *SuiteResult, result *RunnerResult) error {
	testResult, err := r.RunTest(ctx, metadata)
	if err != nil {
		return fmt.Errorf("running test %s: %w", metadata.ID, err)
	}

	testKey := r.getTestKey(metadata)

	// Add to suite if provided, otherwise to the plan directly
	if suiteResult != nil {
		suiteResult.Tests[testKey] = testResult
	} else {
		planResult.Tests[testKey] = testResult
	}

	result.updateStats(planResult, suiteResult, testResult)

	return nil
}

// getTestKey returns the appropriate key to use for a test in result maps
func (r *runner) getTestKey(metadata types.TestMetadata) string {
	if metadata.RunAll {
		// For package tests that use RunAll, use the package as the key
		return metadata.Package
	}
	return metadata.FuncName
}

// RunTest implements the TestRunner interface
func (r *runner) RunTest(ctx context.Context, metadata types.TestMetadata) (result *types.TestResult, err error) {
	// Convert panics into a failing result rather than tearing down the run
	defer func() {
		if rec := recover(); rec != nil {
			errMsg := fmt.Sprintf("runtime error: %v", rec)
			r.log.Error("Panic in RunTest", "error", errMsg, "test", metadata.FuncName)

			if result == nil {
				result = &types.TestResult{
					Metadata: metadata,
					Status:   types.TestStatusFail,
					Error:    fmt.Errorf("%s", errMsg),
				}
			} else {
				result.Status = types.TestStatusFail
				result.Error = fmt.Errorf("%s", errMsg)
			}

			err = fmt.Errorf("%s", errMsg)
		}
	}()

	r.log.Info("Running check", "check", metadata.ID)
	start := time.Now()
	if metadata.RunAll {
		result, err = r.runAllTestsInPackage(ctx, metadata)
	} else {
		result, err = r.runSingleTest(ctx, metadata)
	}

	var status types.TestStatus
	if result != nil {
		result.Duration = time.Since(start)
		status = result.Status
	} else {
		status = types.TestStatusError
	}
	metrics.RecordCheck(r.hostname, r.runID, metadata.ID, metadata.Type.String(), status)

	return result, err
}

// runAllTestsInPackage discovers and runs all tests in a package
func (r *runner) runAllTestsInPackage(ctx context.Context, metadata types.TestMetadata) (*types.TestResult, error) {
	testNames, err := r.listTestsInPackage(metadata.Package)
	if err != nil {
		return nil, fmt.Errorf("listing tests in package %s: %w", metadata.Package, err)
	}

	r.log.Debug("Found tests in package",
		"package", metadata.Package,
		"count", len(testNames),
		"tests", strings.Join(testNames, ", "))

	return r.runTestList(ctx, metadata, testNames)
}

// listTestsInPackage returns all test names in a package
func (r *runner) listTestsInPackage(pkg string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	listCmd := r.testCommandContext(ctx, r.goBinary, "test", pkg, "-list", "^Test")

	var listOut, listOutErr bytes.Buffer
	listCmd.Stdout = &listOut
	listCmd.Stderr = &listOutErr

	r.log.Debug("Listing tests in package",
		"package", pkg,
		"command", listCmd.String())

	if err := listCmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("listing tests timed out after 30s")
		}
		return nil, fmt.Errorf("command error: %w\nstderr: %s", err, listOutErr.String())
	}

	return parseTestListOutput(listOut.Bytes()), nil
}

// parseTestListOutput extracts valid test names from go test -list output
func parseTestListOutput(output []byte) []string {
	var testNames []string

	for _, line := range bytes.Split(output, []byte("\n")) {
		testName := string(bytes.TrimSpace(line))
		if isValidTestName(testName) {
			testNames = append(testNames, testName)
		}
	}

	return testNames
}

// isValidTestName returns true if the name represents a valid test
func isValidTestName(name string) bool {
	if name == "" || name == "ok" || strings.HasPrefix(name, "?") {
		return false
	}

	// Filter out the trailing summary line, e.g.
	// "ok github.com/omaciel/pulp-checks/repos 0.335s"
	if strings.HasPrefix(name, "ok ") && strings.Contains(name, ".") && strings.HasSuffix(name, "s") {
		return false
	}

	return true
}

// runTestList runs a list of tests and aggregates their results
func (r *runner) runTestList(ctx context.Context, metadata types.TestMetadata, testNames []string) (*types.TestResult, error) {
	if len(testNames) == 0 {
		r.log.Warn("No tests found to run in package", "package", metadata.Package)
		return &types.TestResult{
			Metadata: metadata,
			Status:   types.TestStatusSkip,
			Duration: 0,
			SubTests: make(map[string]*types.TestResult),
		}, nil
	}

	var status types.TestStatus = types.TestStatusPass
	var testErrors []error
	var totalDuration time.Duration
	testResults := make(map[string]*types.TestResult)
	var failedTestsStdout strings.Builder

	for _, testName := range testNames {
		testMetadata := metadata
		testMetadata.RunAll = false
		testMetadata.FuncName = testName

		testResult, err := r.runSingleTest(ctx, testMetadata)
		if err != nil {
			return nil, fmt.Errorf("running test %s: %w", testName, err)
		}

		testResults[testName] = testResult
		totalDuration += testResult.Duration

		if testResult.Status == types.TestStatusFail {
			status = types.TestStatusFail
			if testResult.Error != nil {
				testErrors = append(testErrors, fmt.Errorf("%s: %w", testName, testResult.Error))
			}

			if testResult.Stdout != "" {
				failedTestsStdout.WriteString(fmt.Sprintf("\n--- Test: %s ---\n", testName))
				failedTestsStdout.WriteString(testResult.Stdout)
			}
		}
	}

	failedStdout := failedTestsStdout.String()
	if status == types.TestStatusFail && failedStdout != "" {
		r.log.Debug("Package test failed",
			"package", metadata.Package,
			"stdout_from_failed_tests", failedStdout)
	}

	return &types.TestResult{
		Metadata: metadata,
		Status:   status,
		Error:    errors.Join(testErrors...),
		Duration: totalDuration,
		SubTests: testResults,
		Stdout:   failedStdout,
	}, nil
}

// TestEvent represents a single event from the go test JSON output
type TestEvent struct {
	Time    time.Time // Time the event occurred
	Action  string    // The action taken (run, pause, cont, pass, fail, skip, output)
	Package string    // The package being tested
	Test    string    // The test function name (may be empty for package events)
	Output  string    // Output text (may be empty)
	Elapsed float64   // Elapsed time in seconds for the specific action
}

// runSingleTest runs a specific test
func (r *runner) runSingleTest(ctx context.Context, metadata types.TestMetadata) (*types.TestResult, error) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("test %s", metadata.FuncName))
	defer span.End()

	if metadata.Timeout != 0 {
		var cancel func()
		// The -timeout flag makes the child enforce the limit itself; the
		// extra 200ms lets it fire before the parent kills the process.
		ctx, cancel = context.WithTimeout(ctx, metadata.Timeout+200*time.Millisecond)
		defer cancel()
	}

	args := r.buildTestArgs(metadata)
	cmd := r.testCommandContext(ctx, r.goBinary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Info("Running test", "test", metadata.FuncName)
	r.log.Debug("Running test command",
		"dir", cmd.Dir,
		"package", metadata.Package,
		"test", metadata.FuncName,
		"command", cmd.String(),
		"timeout", metadata.Timeout,
		"allowSkips", r.allowSkips)

	err := cmd.Run()

	// Preserve the raw JSON stream for the RawJSONSink
	if r.fileLogger != nil {
		if sink, ok := r.fileLogger.GetSinkByType("RawJSONSink"); ok {
			if rawSink, ok := sink.(*logging.RawJSONSink); ok {
				if storeErr := rawSink.StoreRawJSON(metadata.ID, stdout.Bytes()); storeErr != nil {
					r.log.Error("Failed to store raw JSON output", "error", storeErr)
				}
			} else {
				r.log.Error("Failed to get RawJSONSink: wrong type", "type", fmt.Sprintf("%T", sink))
			}
		} else {
			r.log.Error("Failed to get RawJSONSink")
		}
	} else {
		r.log.Debug("No file logger available, not storing raw JSON output")
	}

	// Check for timeout first
	if ctx.Err() == context.DeadlineExceeded {
		return &types.TestResult{
			Metadata: metadata,
			Status:   types.TestStatusFail,
			Error:    fmt.Errorf("test timed out after %v", metadata.Timeout),
			TimedOut: true,
			Stdout:   stdout.String(),
		}, nil
	}

	parsedResult := r.parseTestOutput(stdout.Bytes(), metadata)

	// If we couldn't parse the output for some reason, create a minimal failing result
	if parsedResult == nil {
		parsedResult = &types.TestResult{
			Metadata: metadata,
			Status:   types.TestStatusFail,
			Error:    fmt.Errorf("failed to parse test output"),
		}
	}

	// Capture stdout in the test result when failing
	if (parsedResult.Status == types.TestStatusFail || parsedResult.Status == types.TestStatusSkip) && stdout.Len() > 0 {
		parsedResult.Stdout = stdout.String()
	}

	// Add any stderr output to the error
	if err != nil && stderr.Len() > 0 {
		if parsedResult.Error != nil {
			parsedResult.Error = fmt.Errorf("%w\nstderr: %s", parsedResult.Error, stderr.String())
		} else {
			parsedResult.Error = fmt.Errorf("stderr: %s", stderr.String())
		}
	}

	return parsedResult, nil
}

// parseTestOutput parses the JSON test output and extracts test result information
func (r *runner) parseTestOutput(output []byte, metadata types.TestMetadata) *types.TestResult {
	if len(output) == 0 {
		r.log.Debug("Empty test output", "test", metadata.FuncName, "package", metadata.Package)
		return newFailedTestResult(metadata, fmt.Errorf("empty test output"))
	}

	result := &types.TestResult{
		Metadata: metadata,
		Status:   types.TestStatusPass, // Default to pass unless determined otherwise
		SubTests: make(map[string]*types.TestResult),
	}

	var testStart, testEnd time.Time
	var errorMsg strings.Builder
	var hasSkip bool
	var hasAnyValidEvent bool

	subTestStartTimes := make(map[string]time.Time)

	for _, line := range bytes.Split(output, []byte("\n")) {
		if len(line) == 0 {
			continue
		}

		event, err := parseTestEvent(line)
		if err != nil {
			r.log.Debug("Failed to parse test JSON output line", "error", err, "line", string(line))
			continue
		}

		hasAnyValidEvent = true

		if isMainTestEvent(event, metadata.FuncName) {
			processMainTestEvent(event, result, &testStart, &testEnd, &errorMsg, &hasSkip)
		} else {
			processSubTestEvent(event, result, subTestStartTimes, &hasSkip)
		}
	}

	if !hasAnyValidEvent {
		return newFailedTestResult(metadata, fmt.Errorf("no valid JSON output from test"))
	}

	result.Duration = calculateTestDuration(testStart, testEnd)

	if errorMsg.Len() > 0 {
		result.Error = fmt.Errorf("%s", errorMsg.String())
	}

	// Final check for skipped tests
	if hasSkip && result.Status != types.TestStatusFail && len(result.SubTests) == 0 {
		result.Status = types.TestStatusSkip
	}

	r.log.Debug("Parsed test output",
		"test", metadata.FuncName,
		"package", metadata.Package,
		"status", result.Status,
		"subtests", len(result.SubTests),
		"hasError", result.Error != nil)

	return result
}

// parseTestEvent parses a single line of test output into a TestEvent
func parseTestEvent(line []byte) (TestEvent, error) {
	var event TestEvent
	err := json.Unmarshal(line, &event)
	return event, err
}

// isMainTestEvent checks if the event belongs to the main test or package
func isMainTestEvent(event TestEvent, mainTestName string) bool {
	return event.Test == "" || event.Test == mainTestName
}

// processMainTestEvent handles events for the main test
func processMainTestEvent(event TestEvent, result *types.TestResult, testStart, testEnd *time.Time,
	errorMsg *strings.Builder, hasSkip *bool) {
	switch event.Action {
	case ActionStart:
		*testStart = event.Time
	case ActionPass:
		*testEnd = event.Time
		result.Status = types.TestStatusPass
	case ActionFail:
		*testEnd = event.Time
		result.Status = types.TestStatusFail
	case ActionSkip:
		*testEnd = event.Time
		result.Status = types.TestStatusSkip
		*hasSkip = true
	case ActionOutput:
		if event.Output != "" {
			errorMsg.WriteString(event.Output)
		}
	}
}

// processSubTestEvent handles events for subtests
func processSubTestEvent(event TestEvent, result *types.TestResult,
	subTestStartTimes map[string]time.Time, hasSkip *bool) {
	subTest, exists := result.SubTests[event.Test]
	if !exists {
		subTest = &types.TestResult{
			Metadata: types.TestMetadata{
				FuncName: event.Test,
				Package:  result.Metadata.Package,
			},
			Status: types.TestStatusPass, // Default to pass
		}
		result.SubTests[event.Test] = subTest
	}

	switch event.Action {
	case ActionStart:
		subTestStartTimes[event.Test] = event.Time
	case ActionPass:
		subTest.Status = types.TestStatusPass
		calculateSubTestDuration(subTest, event, subTestStartTimes)
	case ActionFail:
		subTest.Status = types.TestStatusFail
		// A failing subtest means the main test fails too
		result.Status = types.TestStatusFail
		calculateSubTestDuration(subTest, event, subTestStartTimes)
	case ActionSkip:
		subTest.Status = types.TestStatusSkip
		*hasSkip = true
		calculateSubTestDuration(subTest, event, subTestStartTimes)
	case ActionOutput:
		updateSubTestError(subTest, event.Output)
	}
}

// calculateSubTestDuration sets the duration for a subtest based on the
// tracked start time or the event's elapsed field
func calculateSubTestDuration(subTest *types.TestResult, event TestEvent, subTestStartTimes map[string]time.Time) {
	startTime, hasStartTime := subTestStartTimes[event.Test]
	if hasStartTime {
		subTest.Duration = event.Time.Sub(startTime)
	} else if event.Elapsed > 0 {
		subTest.Duration = time.Duration(event.Elapsed * float64(time.Second))
	}
}

// updateSubTestError updates a subtest's error message
func updateSubTestError(subTest *types.TestResult, output string) {
	if output == "" {
		return
	}

	if subTest.Error == nil {
		subTest.Error = fmt.Errorf("%s", output)
	} else {
		subTest.Error = fmt.Errorf("%s\n%s", subTest.Error.Error(), output)
	}
}

// calculateTestDuration calculates the duration of a test
func calculateTestDuration(start, end time.Time) time.Duration {
	if !start.IsZero() && !end.IsZero() {
		return end.Sub(start)
	} else if !start.IsZero() {
		return time.Since(start)
	}
	return 0
}

// newFailedTestResult creates a new failed test result
func newFailedTestResult(metadata types.TestMetadata, err error) *types.TestResult {
	return &types.TestResult{
		Metadata: metadata,
		Status:   types.TestStatusFail,
		Error:    err,
		SubTests: make(map[string]*types.TestResult),
	}
}

// buildTestArgs constructs the command line arguments for running a test
func (r *runner) buildTestArgs(metadata types.TestMetadata) []string {
	args := []string{"test"}

	if metadata.Package != "" {
		args = append(args, metadata.Package)
	} else {
		// If no package specified, run in all packages
		args = append(args, "./...")
	}

	if !metadata.RunAll && metadata.FuncName != "" {
		args = append(args, "-run", fmt.Sprintf("^%s$", metadata.FuncName))
	}

	// Always disable caching
	args = append(args, "-count", "1")

	if metadata.Timeout != 0 {
		args = append(args, "-timeout", metadata.Timeout.String())
	}

	// Verbose JSON output for reliable parsing
	args = append(args, "-v")
	args = append(args, "-json")

	return args
}

// RunPlan runs all tests in a specific plan
func (r *runner) RunPlan(ctx context.Context, plan string) error {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("plan %s", plan))
	defer span.End()

	var planTests []types.TestMetadata
	for _, metadata := range r.registry.GetTests() {
		if metadata.Plan == plan && metadata.Type == types.TestTypeTest {
			planTests = append(planTests, metadata)
		}
	}

	if len(planTests) == 0 {
		return fmt.Errorf("no tests found for plan %s", plan)
	}

	result, err := r.RunAllTests(ctx)
	if err != nil {
		return err
	}

	for _, p := range result.Plans {
		if p.ID == plan {
			if p.Status != types.TestStatusPass {
				return fmt.Errorf("plan %s failed", plan)
			}
			return nil
		}
	}

	return fmt.Errorf("plan %s not found in results", plan)
}

// GetTests returns the metadata of every test in the run results
func (r *RunnerResult) GetTests() []types.TestMetadata {
	var tests []types.TestMetadata
	for _, plan := range r.Plans {
		for _, test := range plan.Tests {
			tests = append(tests, test.Metadata)
		}
		for _, suite := range plan.Suites {
			for _, test := range suite.Tests {
				tests = append(tests, test.Metadata)
			}
		}
	}
	return tests
}

// formatDuration formats the duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// String returns a formatted string representation of the test results
func (r *RunnerResult) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Test Run Results (%s):\n", formatDuration(r.Duration)))
	b.WriteString(fmt.Sprintf("Total: %d, Passed: %d, Failed: %d, Skipped: %d\n",
		r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Skipped))

	for planName, plan := range r.Plans {
		b.WriteString(fmt.Sprintf("\nPlan: %s (%s)\n", planName, formatDuration(plan.Duration)))
		b.WriteString(fmt.Sprintf("├── Status: %s\n", plan.Status))
		b.WriteString(fmt.Sprintf("├── Tests: %d passed, %d failed, %d skipped\n",
			plan.Stats.Passed, plan.Stats.Failed, plan.Stats.Skipped))

		for testName, test := range plan.Tests {
			writeTestLine(&b, "├── ", "│       ", testName, test)
		}

		for suiteName, suite := range plan.Suites {
			b.WriteString(fmt.Sprintf("└── Suite: %s (%s)\n", suiteName, formatDuration(suite.Duration)))
			b.WriteString(fmt.Sprintf("    ├── Status: %s\n", suite.Status))
			b.WriteString(fmt.Sprintf("    ├── Tests: %d passed, %d failed, %d skipped\n",
				suite.Stats.Passed, suite.Stats.Failed, suite.Stats.Skipped))

			for testName, test := range suite.Tests {
				writeTestLine(&b, "    ├── ", "    │       ", testName, test)
			}
		}
	}
	return b.String()
}

// writeTestLine renders one test and its subtests into the results tree
func writeTestLine(b *strings.Builder, prefix, subPrefix, testName string, test *types.TestResult) {
	displayName := types.GetTestDisplayName(testName, test.Metadata)

	b.WriteString(fmt.Sprintf("%sTest: %s (%s) [status=%s]\n",
		prefix, displayName, formatDuration(test.Duration), test.Status))
	if test.Error != nil {
		b.WriteString(fmt.Sprintf("%s└── Error: %s\n", subPrefix, test.Error.Error()))
	}

	if len(test.SubTests) > 0 {
		i := 0
		for subTestName, subTest := range test.SubTests {
			connector := "├──"
			if i == len(test.SubTests)-1 {
				connector = "└──"
			}
			b.WriteString(fmt.Sprintf("%s%s Test: %s (%s) [status=%s]\n",
				subPrefix, connector, subTestName, formatDuration(subTest.Duration), subTest.Status))
			if subTest.Error != nil {
				b.WriteString(fmt.Sprintf("%s│       └── Error: %s\n", subPrefix, subTest.Error.Error()))
			}
			i++
		}
	}
}

// updateStats updates statistics at all levels
func (r *RunnerResult) updateStats(plan *PlanResult, suite *SuiteResult, test *types.TestResult) {
	if suite != nil {
		suite.Stats.addResult(test.Status)
		suite.Duration += test.Duration
	}

	plan.Stats.addResult(test.Status)
	plan.Duration += test.Duration

	r.Stats.addResult(test.Status)
	r.Duration += test.Duration

	// Subtests count towards the totals as well
	for _, subTest := range test.SubTests {
		r.Stats.addResult(subTest.Status)
		r.Duration += subTest.Duration

		plan.Stats.addResult(subTest.Status)
		plan.Duration += subTest.Duration

		if suite != nil {
			suite.Stats.addResult(subTest.Status)
			suite.Duration += subTest.Duration
		}
	}
}

// addResult folds a single test status into the counters
func (s *ResultStats) addResult(status types.TestStatus) {
	s.Total++
	switch status {
	case types.TestStatusPass:
		s.Passed++
	case types.TestStatusFail:
		s.Failed++
	case types.TestStatusSkip:
		s.Skipped++
	}
}

// determinePlanStatus determines the overall status of a plan based on its
// tests and suites
func determinePlanStatus(plan *PlanResult) types.TestStatus {
	if len(plan.Tests) == 0 && len(plan.Suites) == 0 {
		return types.TestStatusSkip
	}

	allSkipped := true
	anyFailed := false

	for _, test := range plan.Tests {
		if test.Status != types.TestStatusSkip {
			allSkipped = false
		}
		if test.Status == types.TestStatusFail {
			anyFailed = true
		}
	}

	for _, suite := range plan.Suites {
		if suite.Status != types.TestStatusSkip {
			allSkipped = false
		}
		if suite.Status == types.TestStatusFail {
			anyFailed = true
		}
	}

	return determineStatusFromFlags(allSkipped, anyFailed)
}

// determineRunnerStatus determines the overall status of the test run
func determineRunnerStatus(result *RunnerResult) types.TestStatus {
	if len(result.Plans) == 0 {
		return types.TestStatusSkip
	}

	allSkipped := true
	anyFailed := false

	for _, plan := range result.Plans {
		if plan.Status != types.TestStatusSkip {
			allSkipped = false
		}
		if plan.Status == types.TestStatusFail {
			anyFailed = true
		}
	}

	return determineStatusFromFlags(allSkipped, anyFailed)
}

// determineStatusFromFlags is a helper that returns a status based on common flag logic
func determineStatusFromFlags(allSkipped, anyFailed bool) types.TestStatus {
	if allSkipped {
		return types.TestStatusSkip
	}
	if anyFailed {
		return types.TestStatusFail
	}
	return types.TestStatusPass
}

// determineSuiteStatus determines the overall status of a suite based on its tests
func determineSuiteStatus(suite *SuiteResult) types.TestStatus {
	if len(suite.Tests) == 0 {
		return types.TestStatusSkip
	}

	allSkipped := true
	anyFailed := false

	for _, test := range suite.Tests {
		if test.Status != types.TestStatusSkip {
			allSkipped = false
		}
		if test.Status == types.TestStatusFail {
			anyFailed = true
		}
	}

	return determineStatusFromFlags(allSkipped, anyFailed)
}

// formatErrors combines multiple test errors into a single error message
func (r *runner) formatErrors(errors []string) string {
	if len(errors) == 0 {
		return ""
	}
	return fmt.Sprintf("Failed tests:\n%s", strings.Join(errors, "\n"))
}

// SetFileLogger sets the file logger for the runner
func (r *runner) SetFileLogger(logger *logging.FileLogger) {
	r.fileLogger = logger
}

// testCommandContext prepares a go command running in the work directory
// with the environment the test processes expect.
func (r *runner) testCommandContext(ctx context.Context, name string, arg ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Dir = r.workDir

	env := os.Environ()
	if r.settingsPath != "" {
		// Point every test process at the settings file the harness
		// resolved, regardless of what the inherited environment says.
		env = append(env, fmt.Sprintf("%s=%s", settings.EnvConfigFile, r.settingsPath))
	}
	if !r.allowSkips {
		env = append(env, fmt.Sprintf("%s=true", EnvExpectReachable))
	}
	cmd.Env = env

	return cmd
}

// Make sure the runner type implements both interfaces
var _ TestRunner = &runner{}
var _ TestRunnerWithFileLogger = &runner{}
