package flags

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "UPLINK"

// prefixEnvVars derives the single environment variable for a flag.
func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Plans = &cli.StringFlag{
		Name:    "plans",
		Value:   "",
		EnvVars: prefixEnvVars("PLANS"),
		Usage:   "Path to the test plan file (eg. 'plans.yaml')",
	}
	Plan = &cli.StringFlag{
		Name:    "plan",
		Value:   "",
		EnvVars: prefixEnvVars("PLAN"),
		Usage:   "Plan to run (eg. 'smoke')",
	}
	TestDir = &cli.StringFlag{
		Name:    "testdir",
		Value:   "",
		EnvVars: prefixEnvVars("TESTDIR"),
		Usage:   "Path to the test directory from which to discover tests",
	}
	SettingsFile = &cli.StringFlag{
		Name:    "settings",
		Value:   "",
		EnvVars: prefixEnvVars("SETTINGS"),
		Usage:   "Path to the settings file. Defaults to searching the XDG config directories.",
	}
	GoBinary = &cli.StringFlag{
		Name:    "go-binary",
		Value:   "go",
		EnvVars: prefixEnvVars("GO_BINARY"),
		Usage:   "Path to the Go binary to use for running tests",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	AllowSkips = &cli.BoolFlag{
		Name:    "allow-skips",
		Value:   false,
		EnvVars: prefixEnvVars("ALLOW_SKIPS"),
		Usage:   "Allow tests to be skipped when preconditions aren't met",
	}
	DefaultTimeout = &cli.DurationFlag{
		Name:    "default-timeout",
		Value:   5 * time.Minute,
		EnvVars: prefixEnvVars("DEFAULT_TIMEOUT"),
		Usage:   "Default timeout for individual tests. Can be overridden per test in the plan file.",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOGDIR"),
		Usage:   "Directory to store test run artifacts",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level: debug, info, warn or error",
	}
)

var requiredFlags = []cli.Flag{
	Plans,
	TestDir,
}

var optionalFlags = []cli.Flag{
	Plan,
	SettingsFile,
	GoBinary,
	RunInterval,
	AllowSkips,
	DefaultTimeout,
	LogDir,
	LogLevel,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

// CheckRequired verifies that every required flag was set, either on the
// command line or through its environment variable.
func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}

// FlagNameToEnvVarName converts a flag name to the env var that backs it.
func FlagNameToEnvVarName(name string) string {
	return EnvVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
