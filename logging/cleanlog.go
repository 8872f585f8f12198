package logging

import (
	"regexp"
	"strings"

	"github.com/acarl005/stripansi"
)

var (
	// Matches the "file_test.go:42: " prefix testing.T puts in front of
	// logged output. Anchored so mid-line occurrences are left alone.
	fileLinePrefixRegex = regexp.MustCompile(`^\s*[A-Za-z0-9_-]+\.go:\d+: `)

	multipleWhitespaceRegex = regexp.MustCompile(`\s+`)
)

// stripANSIEscapeSequences removes terminal color and formatting codes from
// test output. Only real escape bytes are stripped; text that merely spells
// out an escape sequence is preserved.
func stripANSIEscapeSequences(s string) string {
	return stripansi.Strip(s)
}

// CleanLogOutput normalizes a chunk of test output for single-line display.
// ANSI escape codes are removed when stripANSI is set, a leading testing.T
// file:line prefix is removed when stripFilePrefix is set, and whitespace
// runs collapse to single spaces.
func CleanLogOutput(output string, stripFilePrefix, stripANSI bool) string {
	if stripANSI {
		output = stripANSIEscapeSequences(output)
	}
	if stripFilePrefix {
		output = fileLinePrefixRegex.ReplaceAllString(output, "")
	}
	output = multipleWhitespaceRegex.ReplaceAllString(output, " ")
	return strings.TrimSpace(output)
}
