package uplink

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/omaciel/uplink/flags"
	"github.com/omaciel/uplink/settings"
)

// Config holds the application configuration
type Config struct {
	TestDir        string
	PlansFile      string
	TargetPlan     string
	SettingsFile   string        // Path to the settings file handed to test processes
	GoBinary       string        // Path to the Go binary used to run tests
	RunInterval    time.Duration // Interval between test runs
	RunOnce        bool          // Indicates if the service should exit after one test run
	AllowSkips     bool          // Allow tests to be skipped instead of failing when preconditions are not met
	DefaultTimeout time.Duration // Default timeout for individual tests, can be overridden per test
	LogDir         string        // Directory to store test run artifacts
	Log            *slog.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log *slog.Logger, testDir string, plansFile string, plan string) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	if testDir == "" {
		return nil, errors.New("test directory is required")
	}
	if plansFile == "" {
		return nil, errors.New("plan file is required")
	}

	absTestDir, err := filepath.Abs(testDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for test directory '%s': %w", testDir, err)
	}
	absPlansFile, err := filepath.Abs(plansFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for plan file '%s': %w", plansFile, err)
	}

	// The settings file may come from the flag or from the usual search
	// path. Either way the tests need an existing file, so resolve it now
	// and fail before any test process starts.
	settingsFile := ctx.String(flags.SettingsFile.Name)
	if settingsFile == "" {
		settingsFile, err = settings.Locate()
		if err != nil {
			return nil, fmt.Errorf("%w. Use `uplink settings create` to create a settings file", err)
		}
	} else {
		settingsFile, err = filepath.Abs(settingsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for settings file: %w", err)
		}
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	return &Config{
		TestDir:        absTestDir,
		PlansFile:      absPlansFile,
		TargetPlan:     plan,
		SettingsFile:   settingsFile,
		GoBinary:       ctx.String(flags.GoBinary.Name),
		RunInterval:    runInterval,
		RunOnce:        runOnce,
		AllowSkips:     ctx.Bool(flags.AllowSkips.Name),
		DefaultTimeout: ctx.Duration(flags.DefaultTimeout.Name),
		LogDir:         logDir,
		Log:            log,
	}, nil
}
