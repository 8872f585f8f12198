package uplink

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/omaciel/uplink/runner"
	"github.com/omaciel/uplink/types"
)

// ResultFormatter is responsible for formatting and displaying test results.
type ResultFormatter interface {
	FormatResults(result *runner.RunnerResult) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct {
	logger *slog.Logger
	out    io.Writer
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter that
// writes to stdout.
func NewConsoleResultFormatter(logger *slog.Logger) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		logger: logger,
		out:    os.Stdout,
	}
}

// FormatResults renders the run as a table followed by the results tree.
func (f *ConsoleResultFormatter) FormatResults(result *runner.RunnerResult) error {
	f.logger.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Uplink Test Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Tests", "Passed", "Failed", "Skipped", "Status", "Error",
	})

	// Set column configurations for better readability
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, plan := range result.Plans {
		// Plan row carries the aggregated counts, not a "1" in Tests
		t.AppendRow(table.Row{
			"Plan",
			plan.ID,
			formatDuration(plan.Duration),
			"-",
			plan.Stats.Passed,
			plan.Stats.Failed,
			plan.Stats.Skipped,
			getResultString(plan.Status),
			"",
		})

		for suiteName, suite := range plan.Suites {
			t.AppendRow(table.Row{
				"Suite",
				fmt.Sprintf("├── %s", suiteName),
				formatDuration(suite.Duration),
				"-",
				suite.Stats.Passed,
				suite.Stats.Failed,
				suite.Stats.Skipped,
				getResultString(suite.Status),
				"",
			})

			i := 0
			for testName, test := range suite.Tests {
				prefix := "│   ├──"
				if i == len(suite.Tests)-1 {
					prefix = "│   └──"
				}
				f.appendTestRows(t, prefix, "│   │   ", testName, test)
				i++
			}
		}

		i := 0
		for testName, test := range plan.Tests {
			prefix := "├──"
			if i == len(plan.Tests)-1 && len(plan.Suites) == 0 {
				prefix = "└──"
			}
			f.appendTestRows(t, prefix, "    ", testName, test)
			i++
		}

		t.AppendSeparator()
	}

	// Color the table by overall outcome
	if result.Status == types.TestStatusPass {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else if result.Status == types.TestStatusSkip {
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(result.Duration),
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Failed,
		result.Stats.Skipped,
		getResultString(result.Status),
		"",
	})

	t.Render()

	fmt.Fprintln(f.out, result.String())
	if result.Status == types.TestStatusFail {
		printFailureBanner(f.out)
	}

	return nil
}

// appendTestRows adds one test row plus a row per subtest.
func (f *ConsoleResultFormatter) appendTestRows(t table.Writer, prefix, subIndent, testName string, test *types.TestResult) {
	displayName := types.GetTestDisplayName(testName, test.Metadata)

	t.AppendRow(table.Row{
		"Test",
		fmt.Sprintf("%s %s", prefix, displayName),
		formatDuration(test.Duration),
		"1",
		boolToInt(test.Status == types.TestStatusPass),
		boolToInt(test.Status == types.TestStatusFail),
		boolToInt(test.Status == types.TestStatusSkip),
		getResultString(test.Status),
		extractKeyErrorMessage(test.Error),
	})

	j := 0
	for subTestName, subTest := range test.SubTests {
		subPrefix := subIndent + "├──"
		if j == len(test.SubTests)-1 {
			subPrefix = subIndent + "└──"
		}

		t.AppendRow(table.Row{
			"",
			fmt.Sprintf("%s %s", subPrefix, subTestName),
			formatDuration(subTest.Duration),
			"1",
			boolToInt(subTest.Status == types.TestStatusPass),
			boolToInt(subTest.Status == types.TestStatusFail),
			boolToInt(subTest.Status == types.TestStatusSkip),
			getResultString(subTest.Status),
			extractKeyErrorMessage(subTest.Error),
		})
		j++
	}
}
