package uplink

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/omaciel/uplink/logging"
	"github.com/omaciel/uplink/types"
)

// Helper function to convert bool to int
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// getResultString returns a short marker string for a test result
func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusSkip:
		return "- skip"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// extractKeyErrorMessage pulls the most useful line out of a test error for
// the narrow Error column of the results table.
func extractKeyErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()

	// Messages worth surfacing verbatim, highest priority first
	for _, marker := range []string{"precondition not met:", "assertion failed:", "panic:"} {
		if idx := strings.Index(errStr, marker); idx != -1 {
			return lineFrom(errStr, idx)
		}
	}

	// A bare "exit status 1" says nothing; dig for the go test failure line
	if strings.Contains(errStr, "exit status") {
		patterns := []string{
			"expected",
			"Expected",
			"got:",
			"want:",
			"Error:",
			"Fatal:",
			"Failed:",
		}
		for _, pattern := range patterns {
			if idx := strings.Index(errStr, pattern); idx != -1 {
				return logging.CleanLogOutput(wholeLine(errStr, idx), true, true)
			}
		}
	}

	// Fall back to the first line, capped for the table
	if idx := strings.Index(errStr, "\n"); idx != -1 {
		errStr = errStr[:idx]
	}
	if len(errStr) > 80 {
		return errStr[:70] + "..."
	}
	return errStr
}

// lineFrom returns s from idx to the end of that line.
func lineFrom(s string, idx int) string {
	end := len(s)
	if nl := strings.Index(s[idx:], "\n"); nl != -1 {
		end = idx + nl
	}
	return s[idx:end]
}

// wholeLine returns the full line containing idx.
func wholeLine(s string, idx int) string {
	start := idx
	for start > 0 && s[start-1] != '\n' {
		start--
	}
	return lineFrom(s, start)
}

// printFailureBanner makes a failed run hard to miss in scrollback.
func printFailureBanner(w io.Writer) {
	fmt.Fprintln(w, `
╔══════════════════════════════════════╗
║           SOME TESTS FAILED          ║
╚══════════════════════════════════════╝`)
}
