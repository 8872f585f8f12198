// Package uplink drives functional test runs against a Pulp deployment.
// It loads the settings file the tests depend on, discovers the tests a
// plan selects, runs them through the go toolchain and reports the results
// to the console, the log directory and Prometheus.
package uplink

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/omaciel/uplink/exitcodes"
	"github.com/omaciel/uplink/logging"
	"github.com/omaciel/uplink/registry"
	"github.com/omaciel/uplink/runner"
	"github.com/omaciel/uplink/settings"
	"github.com/omaciel/uplink/types"
)

// Lifecycle is the surface the CLI uses to drive the harness.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Stopped() bool
}

// uplink implements the Lifecycle interface.
var _ Lifecycle = &uplink{}

// uplink runs plan tests against a deployment, once or periodically.
type uplink struct {
	ctx      context.Context
	config   *Config
	version  string
	registry *registry.Registry
	runner   runner.TestRunner
	result   *runner.RunnerResult

	scheduler TestScheduler
	executor  TestExecutor
	reporter  MetricsReporter
	formatter ResultFormatter

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*uplink, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating uplink with config",
		"testDir", config.TestDir,
		"plansFile", config.PlansFile,
		"targetPlan", config.TargetPlan,
		"settingsFile", config.SettingsFile,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"allowSkips", config.AllowSkips)

	// Load the settings up front so a bad or missing file fails the run
	// before any test process starts.
	cfg, err := settings.Load(config.SettingsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	hostname := "unknown"
	if len(cfg.Systems) > 0 {
		hostname = cfg.Systems[0].Hostname
	}

	reg, err := registry.NewRegistry(registry.Config{
		Log:            config.Log,
		PlansFile:      config.PlansFile,
		DefaultTimeout: config.DefaultTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		Registry:     reg,
		TargetPlan:   config.TargetPlan,
		WorkDir:      config.TestDir,
		Log:          config.Log,
		GoBinary:     config.GoBinary,
		AllowSkips:   config.AllowSkips,
		ValidateSet:  true,
		Hostname:     hostname,
		SettingsPath: config.SettingsFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}
	config.Log.Info("uplink.New: created registry and test runner", "hostname", hostname)

	u := &uplink{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		runner:           testRunner,
		scheduler:        NewDefaultTestScheduler(config.RunInterval, config.RunOnce, config.Log),
		executor:         NewDefaultTestExecutor(testRunner, config.Log),
		reporter:         NewDefaultMetricsReporter(hostname),
		formatter:        NewConsoleResultFormatter(config.Log),
		shutdownCallback: shutdownCallback,
	}
	u.scheduler.RegisterCallback(u.runTests)
	return u, nil
}

// Start runs the tests, immediately and then at the configured interval.
// Start implements the Lifecycle interface.
func (u *uplink) Start(ctx context.Context) error {
	// Make sure runtime panics exit with code 2
	defer func() {
		if r := recover(); r != nil {
			u.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	u.ctx = ctx

	if u.config.RunOnce {
		u.config.Log.Info("Starting uplink in run-once mode", "version", u.version)
	} else {
		u.config.Log.Info("Starting uplink in continuous mode",
			"version", u.version, "interval", u.config.RunInterval)
	}

	if err := u.scheduler.Start(ctx); err != nil {
		// The first run already failed for operational reasons
		u.config.Log.Error("Runtime error running tests", "error", err)
		return cli.Exit(err.Error(), exitcodes.RuntimeErr)
	}

	if u.config.RunOnce {
		u.config.Log.Info("Tests completed, exiting (run-once mode)")

		if u.result != nil && u.result.Status == types.TestStatusFail {
			u.config.Log.Warn("Run-once test run completed with failures, returning exit code 1")
			return NewTestFailureError(u.result.String())
		}

		// Only needed in run-once mode when all tests passed
		go func() {
			u.shutdownCallback(nil)
		}()
		return nil
	}

	u.config.Log.Debug("uplink started successfully")
	return nil
}

// runTests runs all tests once and processes the results
func (u *uplink) runTests() error {
	runID := uuid.New().String()
	fileLogger, err := logging.NewFileLogger(u.config.LogDir, runID)
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to create file logger: %w", err))
	}
	if withLogger, ok := u.runner.(runner.TestRunnerWithFileLogger); ok {
		withLogger.SetFileLogger(fileLogger)
	}

	result, err := u.executor.RunTests(u.ctx)
	if err != nil {
		// This is a runtime error, not a test failure
		return NewRuntimeError(err)
	}
	u.result = result

	u.saveResults(fileLogger, result)

	if err := u.formatter.FormatResults(result); err != nil {
		u.config.Log.Error("Error formatting results", "error", err)
	}
	u.reporter.ReportResults(result.RunID, result)

	u.config.Log.Info("Test run completed",
		"run_id", result.RunID,
		"status", result.Status,
		"logs", fileLogger.GetBaseDir())
	return nil
}

// saveResults writes every test result and the run summary through the
// file logger, then closes it.
func (u *uplink) saveResults(fileLogger *logging.FileLogger, result *runner.RunnerResult) {
	logResult := func(test *types.TestResult) {
		if err := fileLogger.LogTestResult(test, result.RunID); err != nil {
			u.config.Log.Error("Error logging test result",
				"test", test.Metadata.GetName(), "error", err)
		}
	}

	for _, plan := range result.Plans {
		for _, test := range plan.Tests {
			logResult(test)
		}
		for _, suite := range plan.Suites {
			for _, test := range suite.Tests {
				logResult(test)
			}
		}
	}

	if err := fileLogger.LogSummary(result.String(), result.RunID); err != nil {
		u.config.Log.Error("Error logging run summary", "error", err)
	}
	if err := fileLogger.Complete(result.RunID); err != nil {
		u.config.Log.Error("Error completing file logger", "error", err)
	}
}

// Stop stops the uplink service.
// Stop implements the Lifecycle interface.
func (u *uplink) Stop(ctx context.Context) error {
	u.config.Log.Info("Stopping uplink")

	if u.scheduler.Stopped() {
		u.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}

	if err := u.scheduler.Stop(); err != nil {
		return err
	}

	u.config.Log.Info("uplink stopped successfully")
	return nil
}

// Stopped returns true if the uplink service is stopped.
// Stopped implements the Lifecycle interface.
func (u *uplink) Stopped() bool {
	return u.scheduler.Stopped()
}

// WaitForShutdown blocks until all background goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving on.
func (u *uplink) WaitForShutdown(ctx context.Context) error {
	return u.scheduler.WaitForShutdown(ctx)
}
