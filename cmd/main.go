package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	uplink "github.com/omaciel/uplink"
	"github.com/omaciel/uplink/exitcodes"
	"github.com/omaciel/uplink/flags"
	"github.com/omaciel/uplink/logging"
	"github.com/omaciel/uplink/registry"
	"github.com/omaciel/uplink/service"
	"github.com/omaciel/uplink/settings"
	"github.com/omaciel/uplink/telemetry"
	"github.com/omaciel/uplink/testlist"
	"github.com/omaciel/uplink/types"
	"github.com/omaciel/uplink/wizard"
)

var (
	Version   = "v0.9.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "uplink"
	app.Usage = "Functional test harness for Pulp deployments"
	app.Description = "uplink runs the functional tests a plan selects against " +
		"the deployment described by the settings file"
	app.Flags = flags.Flags
	app.Commands = []*cli.Command{settingsCommand(), listCommand()}
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if uplink.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if uplink.IsTestFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			} else {
				// Unspecified errors count as test run failures
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			}
		}
	}

	// Telemetry is a no-op unless an OTLP endpoint is configured
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up telemetry: %v\n", err)
		os.Exit(exitcodes.RuntimeErr)
	}
	defer shutdown()

	if err := app.RunContext(ctx, os.Args); err != nil {
		// Errors are mapped to exit codes by the ExitErrHandler; anything
		// arriving here slipped past it.
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(exitcodes.RuntimeErr)
	}
}

func run(cliCtx *cli.Context) error {
	log := logging.NewLogger(cliCtx.String(flags.LogLevel.Name), os.Stdout)

	cfg, err := uplink.NewConfig(
		cliCtx,
		log,
		cliCtx.String(flags.TestDir.Name),
		cliCtx.String(flags.Plans.Name),
		cliCtx.String(flags.Plan.Name),
	)
	if err != nil {
		return uplink.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	ctx, stop := signal.NotifyContext(cliCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Healthz and metrics endpoints only matter while the harness stays
	// resident; a run-once invocation is done before anyone could scrape.
	if !cfg.RunOnce {
		svc := service.New(log)
		svc.Start(ctx)
		defer svc.Shutdown()
	}

	harness, err := uplink.New(ctx, cfg, Version, func(err error) {
		if err != nil {
			log.Error("Shutting down after fatal error", "error", err)
		}
		stop()
	})
	if err != nil {
		return uplink.NewRuntimeError(fmt.Errorf("failed to create uplink: %w", err))
	}

	if err := harness.Start(ctx); err != nil {
		return err
	}
	if cfg.RunOnce {
		return nil
	}

	<-ctx.Done()
	log.Info("Shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := harness.Stop(stopCtx); err != nil {
		return uplink.NewRuntimeError(fmt.Errorf("failed to stop uplink: %w", err))
	}
	return nil
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Manage the deployment settings file",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a settings file by answering a few questions",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing settings file without asking",
					},
				},
				Action: settingsCreate,
			},
			{
				Name:   "show",
				Usage:  "Print the settings file contents",
				Action: settingsShow,
			},
			{
				Name:   "validate",
				Usage:  "Check the settings file for problems",
				Action: settingsValidate,
			},
			{
				Name:   "path",
				Usage:  "Print the path of the settings file in use",
				Action: settingsPath,
			},
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the tests the plans select, without running them",
		Flags: []cli.Flag{
			flags.Plans,
			flags.Plan,
			flags.TestDir,
			flags.DefaultTimeout,
			flags.LogLevel,
		},
		Action: runList,
	}
}

func runList(cliCtx *cli.Context) error {
	if err := flags.CheckRequired(cliCtx); err != nil {
		return cli.Exit(fmt.Sprintf("missing required flags: %v", err), exitcodes.RuntimeErr)
	}
	log := logging.NewLogger(cliCtx.String(flags.LogLevel.Name), os.Stderr)

	plansFile, err := filepath.Abs(cliCtx.String(flags.Plans.Name))
	if err != nil {
		return uplink.NewRuntimeError(fmt.Errorf("resolving plans file path: %w", err))
	}
	testDir, err := filepath.Abs(cliCtx.String(flags.TestDir.Name))
	if err != nil {
		return uplink.NewRuntimeError(fmt.Errorf("resolving test directory path: %w", err))
	}

	reg, err := registry.NewRegistry(registry.Config{
		Log:            log,
		PlansFile:      plansFile,
		DefaultTimeout: cliCtx.Duration(flags.DefaultTimeout.Name),
	})
	if err != nil {
		return uplink.NewRuntimeError(fmt.Errorf("failed to create registry: %w", err))
	}

	targetPlan := cliCtx.String(flags.Plan.Name)
	var tests []types.TestMetadata
	if targetPlan != "" {
		tests = reg.GetTestsByPlan(targetPlan)
		if len(tests) == 0 {
			return cli.Exit(fmt.Sprintf("no tests found for plan %q", targetPlan), exitcodes.RuntimeErr)
		}
	} else {
		tests = reg.GetTests()
	}

	printTestList(cliCtx.App.Writer, testDir, tests)
	return nil
}

// printTestList renders the selected tests grouped by plan, expanding
// run-all packages through static discovery so the output names every
// test function a run would execute.
func printTestList(w io.Writer, testDir string, tests []types.TestMetadata) {
	var planOrder []string
	byPlan := make(map[string][]types.TestMetadata)
	for _, metadata := range tests {
		if _, ok := byPlan[metadata.Plan]; !ok {
			planOrder = append(planOrder, metadata.Plan)
		}
		byPlan[metadata.Plan] = append(byPlan[metadata.Plan], metadata)
	}

	total := 0
	for _, plan := range planOrder {
		fmt.Fprintf(w, "Plan: %s\n", plan)
		for _, metadata := range byPlan[plan] {
			names := []string{metadata.FuncName}
			if metadata.RunAll {
				found, err := testlist.FindTestFunctions(metadata.Package, testDir)
				if err != nil {
					fmt.Fprintf(w, "  %s: cannot discover tests: %v\n", metadata.Package, err)
					continue
				}
				names = found
			}
			for _, name := range names {
				if metadata.Suite != "" {
					fmt.Fprintf(w, "  %s: %s (%s)\n", metadata.Suite, name, metadata.Package)
				} else {
					fmt.Fprintf(w, "  %s (%s)\n", name, metadata.Package)
				}
				total++
			}
		}
	}
	fmt.Fprintf(w, "\n%d tests selected\n", total)
}

func settingsCreate(cliCtx *cli.Context) error {
	existing, err := settings.Locate()
	if err != nil && !settings.IsNotFoundError(err) {
		return uplink.NewRuntimeError(err)
	}
	if cliCtx.Bool("force") {
		// Skip the overwrite confirmation step
		existing = ""
	}

	result, err := wizard.Run(cliCtx.Context, existing)
	if err != nil {
		if errors.Is(err, wizard.ErrAborted) {
			return cli.Exit("Settings file creation aborted.", exitcodes.RuntimeErr)
		}
		return uplink.NewRuntimeError(err)
	}

	path := existing
	if path == "" {
		if path, err = settings.DefaultPath(); err != nil {
			return uplink.NewRuntimeError(err)
		}
	}

	out := cliCtx.App.Writer
	fmt.Fprintf(out, "Creating the settings file at %s...\n", path)
	if err := result.Settings.Save(path); err != nil {
		return uplink.NewRuntimeError(fmt.Errorf("failed to save settings: %w", err))
	}

	if result.SSHUser != "" {
		fmt.Fprintln(out, wizard.SSHConfigHint(result.Settings.Systems[0].Hostname, result.SSHUser))
	}
	fmt.Fprintln(out, "Settings file created, run `uplink settings show` to show its contents.")
	return nil
}

func settingsShow(cliCtx *cli.Context) error {
	path, err := locateSettings()
	if err != nil {
		return err
	}
	cfg, err := settings.Load(path)
	if err != nil {
		return uplink.NewRuntimeError(err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return uplink.NewRuntimeError(err)
	}
	fmt.Fprintf(cliCtx.App.Writer, "Showing settings file %s\n", path)
	fmt.Fprintln(cliCtx.App.Writer, string(data))
	return nil
}

func settingsValidate(cliCtx *cli.Context) error {
	path, err := locateSettings()
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return uplink.NewRuntimeError(err)
	}

	if oldFormat(raw) {
		return cli.Exit(fmt.Sprintf(
			"the settings file at %s uses the old single-server format. "+
				"Recreate it with `uplink settings create`.", path),
			exitcodes.RuntimeErr)
	}

	// Parse validates as well, so one call surfaces every problem
	if _, err := settings.Parse(raw); err != nil {
		var vErr *settings.ValidationError
		if errors.As(err, &vErr) {
			out := cliCtx.App.Writer
			fmt.Fprintf(out, "Found %d issue(s) with %s:\n", len(vErr.Messages), path)
			for _, msg := range vErr.Messages {
				fmt.Fprintf(out, "  - %s\n", msg)
			}
			return cli.Exit("settings file is invalid", exitcodes.RuntimeErr)
		}
		return uplink.NewRuntimeError(err)
	}

	fmt.Fprintf(cliCtx.App.Writer, "No issues found with %s\n", path)
	return nil
}

func settingsPath(cliCtx *cli.Context) error {
	path, err := locateSettings()
	if err != nil {
		return err
	}
	fmt.Fprintln(cliCtx.App.Writer, path)
	return nil
}

// locateSettings resolves the settings file in use, turning an absent file
// into the message the original CLI printed.
func locateSettings() (string, error) {
	path, err := settings.Locate()
	if err != nil {
		if settings.IsNotFoundError(err) {
			return "", cli.Exit(
				"there is no settings file. Use `uplink settings create` to create one.",
				exitcodes.RuntimeErr)
		}
		return "", uplink.NewRuntimeError(err)
	}
	return path, nil
}

// oldFormat reports whether raw looks like a settings file written before
// the systems list existed.
func oldFormat(raw []byte) bool {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return false
	}
	_, hasSystems := top["systems"]
	_, hasPulp := top["pulp"]
	return hasPulp && !hasSystems
}
