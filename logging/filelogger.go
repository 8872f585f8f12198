package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/omaciel/uplink/types"
)

// RunDirectoryPrefix is prepended to every run directory created under the
// log directory, so artifacts from different runs stay distinguishable.
const RunDirectoryPrefix = "testrun-"

// ResultSink is an interface for different ways of consuming test results
type ResultSink interface {
	// Consume processes a single test result
	Consume(result *types.TestResult, runID string) error
	// Complete is called when all results have been consumed
	Complete(runID string) error
}

// FileLogger handles writing test output to files
type FileLogger struct {
	baseDir      string                // Base directory for logs
	logDir       string                // Directory for the current run
	failedDir    string                // Directory for failed tests
	summaryFile  string                // Path to the summary file
	allLogsFile  string                // Path to the combined log file
	mu           sync.Mutex            // Protects concurrent file operations
	sinks        []ResultSink          // Collection of result consumers
	asyncWriters map[string]*AsyncFile // Map of async file writers
	runID        string                // Current run ID
}

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewAsyncFile creates a new AsyncFile for non-blocking writes
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100), // Buffer channel to reduce blocking
	}

	af.wg.Add(1)
	go af.processQueue()

	return af, nil
}

// Write queues data to be written asynchronously
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return fmt.Errorf("async file is closed")
	}

	// The caller may reuse its buffer, so queue a copy
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	af.queue <- dataCopy
	return nil
}

// processQueue processes the write queue in the background
func (af *AsyncFile) processQueue() {
	defer af.wg.Done()

	for data := range af.queue {
		_, err := af.file.Write(data)
		if err != nil {
			// Log the error but continue processing
			fmt.Fprintf(os.Stderr, "Error writing to file: %v\n", err)
		}
	}
}

// Close stops the async writer and closes the file
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	// Wait for all writes to complete
	af.wg.Wait()
	return af.file.Close()
}

// asyncFileWriterAdapter lets an AsyncFile stand in for an io.Writer.
type asyncFileWriterAdapter struct {
	writer *AsyncFile
}

func (a asyncFileWriterAdapter) Write(p []byte) (int, error) {
	if err := a.writer.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// NewFileLogger creates a new FileLogger writing under baseDir for the given run
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	failedDir := filepath.Join(logDir, "failed")
	summaryFile := filepath.Join(logDir, "summary.log")
	allLogsFile := filepath.Join(logDir, "all.log")

	dirs := []string{
		baseDir,
		logDir,
		failedDir,
		filepath.Join(logDir, "passed"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	logger := &FileLogger{
		baseDir:      baseDir,
		logDir:       logDir,
		failedDir:    failedDir,
		summaryFile:  summaryFile,
		allLogsFile:  allLogsFile,
		sinks:        make([]ResultSink, 0),
		asyncWriters: make(map[string]*AsyncFile),
		runID:        runID,
	}

	logger.sinks = append(logger.sinks, &AllLogsFileSink{logger: logger})
	logger.sinks = append(logger.sinks, &PerTestFileSink{
		logger:         logger,
		processedTests: make(map[string]bool),
	})
	logger.sinks = append(logger.sinks, &RawJSONSink{logger: logger})

	return logger, nil
}

// getAsyncWriter gets or creates an AsyncFile for the given path
func (l *FileLogger) getAsyncWriter(path string) (*AsyncFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if writer, exists := l.asyncWriters[path]; exists {
		return writer, nil
	}

	writer, err := NewAsyncFile(path)
	if err != nil {
		return nil, err
	}

	l.asyncWriters[path] = writer
	return writer, nil
}

// closeAllWriters closes all async writers
func (l *FileLogger) closeAllWriters() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, writer := range l.asyncWriters {
		_ = writer.Close() // Ignore errors on close
	}
	l.asyncWriters = make(map[string]*AsyncFile)
}

// GetDirectoryForRunID returns the path for a specific runID.
// The runID must be provided, otherwise an error is returned.
func (l *FileLogger) GetDirectoryForRunID(runID string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("runID cannot be empty")
	}
	if runID == l.runID {
		return l.logDir, nil
	}
	return filepath.Join(l.baseDir, RunDirectoryPrefix+runID), nil
}

// LogTestResult processes a test result through all registered sinks
func (l *FileLogger) LogTestResult(result *types.TestResult, runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	for _, sink := range l.sinks {
		if err := sink.Consume(result, runID); err != nil {
			return fmt.Errorf("error in sink: %w", err)
		}
	}

	return nil
}

// LogSummary writes a summary of the test run to a file
func (l *FileLogger) LogSummary(summary string, runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	summaryFile, err := l.GetSummaryFileForRunID(runID)
	if err != nil {
		return err
	}

	writer, err := l.getAsyncWriter(summaryFile)
	if err != nil {
		return err
	}

	return writer.Write([]byte(summary))
}

// Complete finalizes all sinks and closes all file writers
func (l *FileLogger) Complete(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	for _, sink := range l.sinks {
		if err := sink.Complete(runID); err != nil {
			return fmt.Errorf("error completing sink: %w", err)
		}
	}

	l.closeAllWriters()

	return nil
}

// GetRunID returns the current runID
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// GetBaseDir returns the directory for the current run
func (l *FileLogger) GetBaseDir() string {
	return l.logDir
}

// GetFailedDir returns the directory containing logs for failed tests
func (l *FileLogger) GetFailedDir() string {
	return l.failedDir
}

// GetSummaryFile returns the path to the summary file
func (l *FileLogger) GetSummaryFile() string {
	return l.summaryFile
}

// GetAllLogsFile returns the path to the all logs file
func (l *FileLogger) GetAllLogsFile() string {
	return l.allLogsFile
}

// GetFailedDirForRunID returns the failed directory for a specific runID
func (l *FileLogger) GetFailedDirForRunID(runID string) (string, error) {
	baseDir, err := l.GetDirectoryForRunID(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, "failed"), nil
}

// GetSummaryFileForRunID returns the summary file for a specific runID
func (l *FileLogger) GetSummaryFileForRunID(runID string) (string, error) {
	baseDir, err := l.GetDirectoryForRunID(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, "summary.log"), nil
}

// GetAllLogsFileForRunID returns the path to the all.log file for the given runID
func (l *FileLogger) GetAllLogsFileForRunID(runID string) (string, error) {
	baseDir, err := l.GetDirectoryForRunID(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, "all.log"), nil
}

// GetRawEventsFileForRunID returns the path to the raw_go_events.log file for the given runID
func (l *FileLogger) GetRawEventsFileForRunID(runID string) (string, error) {
	baseDir, err := l.GetDirectoryForRunID(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, rawGoEventsLog), nil
}

// GetSinkByType returns a sink of the specified type if it exists.
// The type is determined by the name of the sink's struct.
func (l *FileLogger) GetSinkByType(sinkType string) (ResultSink, bool) {
	for _, sink := range l.sinks {
		typeName := fmt.Sprintf("%T", sink)
		if idx := strings.LastIndex(typeName, "."); idx >= 0 {
			typeName = typeName[idx+1:]
		}
		typeName = strings.TrimPrefix(typeName, "*")

		if typeName == sinkType {
			return sink, true
		}
	}
	return nil, false
}

// safeFilename converts a string to a safe filename by replacing problematic characters
func safeFilename(s string) string {
	for _, c := range []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "} {
		s = strings.ReplaceAll(s, c, "_")
	}
	return strings.ReplaceAll(s, "...", "")
}

// getReadableTestFilename generates a user-friendly filename for a test.
// Package names are shortened to their basename and the plan/suite are
// prefixed for context when they add information.
func getReadableTestFilename(metadata types.TestMetadata) string {
	fileName := metadata.FuncName
	if fileName == "" {
		if metadata.RunAll {
			fileName = packageBasename(metadata.Package)
			if fileName == "" {
				fileName = "PackageSuite"
			}
		} else {
			fileName = metadata.ID
		}
	}

	pkgName := packageBasename(metadata.Package)

	prefix := ""
	switch {
	case metadata.Plan != "" && metadata.Suite != "":
		prefix = fmt.Sprintf("%s-%s", metadata.Plan, metadata.Suite)
	case metadata.Plan != "":
		prefix = metadata.Plan
	case metadata.Suite != "":
		prefix = metadata.Suite
	}

	// Assemble the parts, skipping any that would duplicate a neighbor
	var nameBuilder strings.Builder
	if prefix != "" && prefix != pkgName {
		nameBuilder.WriteString(prefix)
		nameBuilder.WriteString("_")
	}
	if pkgName != "" && pkgName != prefix && pkgName != fileName {
		nameBuilder.WriteString(pkgName)
		nameBuilder.WriteString("_")
	}
	nameBuilder.WriteString(fileName)

	return safeFilename(nameBuilder.String())
}

// packageBasename returns the last non-empty path element of a package path
func packageBasename(pkg string) string {
	parts := strings.Split(pkg, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}

// AllLogsFileSink writes all test results to a single "all.log" file
type AllLogsFileSink struct {
	logger *FileLogger
}

// Consume writes a test result to the all.log file
func (s *AllLogsFileSink) Consume(result *types.TestResult, runID string) error {
	allLogsFile, err := s.logger.GetAllLogsFileForRunID(runID)
	if err != nil {
		return err
	}

	writer, err := s.logger.getAsyncWriter(allLogsFile)
	if err != nil {
		return err
	}

	var content strings.Builder

	// A visually distinct header keeps large combined logs navigable
	fmt.Fprintf(&content, "\n")
	fmt.Fprintf(&content, "┌─────────────────────────────────────────────────────────────────────┐\n")
	fmt.Fprintf(&content, "│ TEST: %-64s │\n", truncateString(result.Metadata.GetName(), 64))
	fmt.Fprintf(&content, "├─────────────────────────────────────────────────────────────────────┤\n")
	fmt.Fprintf(&content, "│ Status:   %-62s │\n", result.Status)
	fmt.Fprintf(&content, "│ Package:  %-62s │\n", truncateString(result.Metadata.Package, 62))
	fmt.Fprintf(&content, "│ Plan:     %-62s │\n", truncateString(result.Metadata.Plan, 62))
	fmt.Fprintf(&content, "│ Suite:    %-62s │\n", truncateString(result.Metadata.Suite, 62))
	fmt.Fprintf(&content, "│ Duration: %-62s │\n", result.Duration)
	fmt.Fprintf(&content, "│ Time:     %-62s │\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&content, "└─────────────────────────────────────────────────────────────────────┘\n\n")

	if result.Error != nil {
		fmt.Fprintf(&content, "ERROR:\n")
		fmt.Fprintf(&content, "~~~~~~\n")
		fmt.Fprintf(&content, "%s\n\n", result.Error.Error())
	}

	if result.Stdout != "" {
		fmt.Fprintf(&content, "STDOUT:\n")
		fmt.Fprintf(&content, "~~~~~~~\n")
		fmt.Fprintf(&content, "%s\n", indentText(result.Stdout, "  "))
	}

	fmt.Fprintf(&content, "\n")

	return writer.Write([]byte(content.String()))
}

// Complete is a no-op for AllLogsFileSink
func (s *AllLogsFileSink) Complete(runID string) error {
	return nil
}

// indentText adds indentation to each line of text for better readability
func indentText(text, indent string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}

// truncateString truncates a string to the specified max length
// and adds an ellipsis if needed
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// PerTestFileSink creates dedicated log files for each test in passed/failed
// directories, containing the complete go test output for that test
type PerTestFileSink struct {
	logger         *FileLogger
	processedTests map[string]bool // Track which test files we've already written
	mu             sync.Mutex      // Protect the processedTests map
}

// Consume writes a complete test result to a dedicated file in the passed or failed directory
func (s *PerTestFileSink) Consume(result *types.TestResult, runID string) error {
	baseDir, err := s.logger.GetDirectoryForRunID(runID)
	if err != nil {
		return err
	}

	passedDir := filepath.Join(baseDir, "passed")
	failedDir := filepath.Join(baseDir, "failed")

	for _, dir := range []string{baseDir, passedDir, failedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := s.createTestLogFileOnce(result, passedDir, failedDir); err != nil {
		return fmt.Errorf("failed to create main test log file: %w", err)
	}

	// Subtests get their own files, carrying the parent's plan, suite and package
	for subTestName, subTest := range result.SubTests {
		subTestResult := &types.TestResult{
			Metadata: types.TestMetadata{
				ID:       subTest.Metadata.ID,
				Plan:     result.Metadata.Plan,
				Suite:    result.Metadata.Suite,
				FuncName: subTestName,
				Package:  result.Metadata.Package,
			},
			Status:   subTest.Status,
			Error:    subTest.Error,
			Duration: subTest.Duration,
			Stdout:   subTest.Stdout,
		}

		if err := s.createTestLogFileOnce(subTestResult, passedDir, failedDir); err != nil {
			return fmt.Errorf("failed to create subtest log file for %s: %w", subTestName, err)
		}
	}

	return nil
}

// Complete is a no-op for PerTestFileSink
func (s *PerTestFileSink) Complete(runID string) error {
	return nil
}

// createTestLogFileOnce creates a log file for a single test result, but only
// once per unique file path
func (s *PerTestFileSink) createTestLogFileOnce(result *types.TestResult, passedDir, failedDir string) error {
	filename := getReadableTestFilename(result.Metadata)

	targetDir := passedDir
	if result.Status == types.TestStatusFail || result.Status == types.TestStatusError {
		targetDir = failedDir
	}

	testFilePath := filepath.Join(targetDir, filename+".log")

	s.mu.Lock()
	if s.processedTests[testFilePath] {
		s.mu.Unlock()
		return nil // Already processed, skip
	}
	s.processedTests[testFilePath] = true
	s.mu.Unlock()

	return s.createTestLogFile(result, testFilePath)
}

// createTestLogFile writes the log file contents for a single test result
func (s *PerTestFileSink) createTestLogFile(result *types.TestResult, testFilePath string) error {
	writer, err := s.logger.getAsyncWriter(testFilePath)
	if err != nil {
		return err
	}

	failed := result.Status == types.TestStatusFail || result.Status == types.TestStatusError
	isTimeout := result.TimedOut

	var content strings.Builder

	if failed {
		fmt.Fprintf(&content, "\n%s\n", strings.Repeat("-", 80))
		if isTimeout {
			fmt.Fprintf(&content, "TIMEOUT ERROR SUMMARY:\n")
			fmt.Fprintf(&content, "======================\n\n")
			fmt.Fprintf(&content, "This test failed due to timeout!\n")
			fmt.Fprintf(&content, "Timeout Duration: %v\n", result.Metadata.Timeout)
			fmt.Fprintf(&content, "Error: %s\n\n", result.Error.Error())
		} else {
			fmt.Fprintf(&content, "ERROR SUMMARY:\n")
			fmt.Fprintf(&content, "=============\n\n")
		}
	}

	// Recover the plaintext output from the JSON event stream
	plaintext := extractPlainText(result.Stdout)

	fmt.Fprintf(&content, "PLAINTEXT OUTPUT:\n")
	fmt.Fprintf(&content, "================\n\n")

	if isTimeout {
		fmt.Fprintf(&content, "*** TIMEOUT ERROR ***\n")
		fmt.Fprintf(&content, "%s\n", result.Error.Error())
		fmt.Fprintf(&content, "*** END TIMEOUT ERROR ***\n\n")

		if plaintext != "" {
			fmt.Fprintf(&content, "PARTIAL OUTPUT BEFORE TIMEOUT:\n")
			fmt.Fprintf(&content, "------------------------------\n")
			fmt.Fprintf(&content, "%s\n", plaintext)
		} else {
			fmt.Fprintf(&content, "No output captured before timeout occurred.\n")
		}
	} else if plaintext != "" {
		fmt.Fprintf(&content, "%s\n", plaintext)
	} else {
		fmt.Fprintf(&content, "No output captured.\n")
	}

	fmt.Fprintf(&content, "\n%s\n", strings.Repeat("-", 80))
	fmt.Fprintf(&content, "JSON OUTPUT:\n")
	fmt.Fprintf(&content, "============\n\n")

	if result.Stdout != "" {
		if isTimeout {
			fmt.Fprintf(&content, "PARTIAL JSON OUTPUT (BEFORE TIMEOUT):\n")
			fmt.Fprintf(&content, "-------------------------------------\n")
		}
		fmt.Fprintf(&content, "%s\n", result.Stdout)
	} else if isTimeout {
		fmt.Fprintf(&content, "No JSON output captured before timeout.\n")
	} else {
		fmt.Fprintf(&content, "No JSON output available.\n")
	}

	if failed {
		if !isTimeout {
			errorInfo := extractErrorData(result.Stdout)

			if errorInfo.TestName != "" {
				fmt.Fprintf(&content, "Test:       %s\n", errorInfo.TestName)
			}
			if errorInfo.ErrorMessage != "" {
				fmt.Fprintf(&content, "Error:      %s\n", errorInfo.ErrorMessage)
			}
			if errorInfo.Expected != "" && errorInfo.Actual != "" {
				fmt.Fprintf(&content, "Expected:   %s\n", errorInfo.Expected)
				fmt.Fprintf(&content, "Actual:     %s\n", errorInfo.Actual)
			}
			if errorInfo.Messages != "" {
				fmt.Fprintf(&content, "Message:    %s\n", errorInfo.Messages)
			}
			if errorInfo.ErrorTrace != "" {
				fmt.Fprintf(&content, "\nError Trace:\n%s\n", errorInfo.ErrorTrace)
			}
		}
	} else {
		fmt.Fprintf(&content, "\n%s\n", strings.Repeat("-", 80))
		fmt.Fprintf(&content, "RESULT SUMMARY:\n")
		fmt.Fprintf(&content, "===============\n\n")
		fmt.Fprintf(&content, "Test passed: %s\n", result.Metadata.GetName())
		fmt.Fprintf(&content, "Duration:    %s\n", formatDuration(result.Duration))
	}

	return writer.Write([]byte(content.String()))
}

// JSONOutputParser processes 'go test -json' output streams, converting them
// into structured data
type JSONOutputParser struct {
	reader io.Reader
}

// NewJSONOutputParser creates a new JSON parser from a string input
func NewJSONOutputParser(input string) *JSONOutputParser {
	return &JSONOutputParser{reader: strings.NewReader(input)}
}

// NewJSONOutputParserFromReader creates a new JSON parser from an io.Reader
func NewJSONOutputParserFromReader(reader io.Reader) *JSONOutputParser {
	return &JSONOutputParser{reader: reader}
}

// ProcessJSONOutput applies the handler to each JSON line with an "output"
// action, passing the decoded line and its output text
func (p *JSONOutputParser) ProcessJSONOutput(handler func(jsonData map[string]interface{}, outputText string)) {
	scanner := bufio.NewScanner(p.reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			continue
		}

		var jsonData map[string]interface{}
		if err := json.Unmarshal([]byte(line), &jsonData); err != nil {
			continue
		}

		action, ok := jsonData["Action"].(string)
		if !ok || action != "output" {
			continue
		}

		outputText, ok := jsonData["Output"].(string)
		if !ok || outputText == "" {
			continue
		}

		handler(jsonData, outputText)
	}
}

// GetOutputAsString extracts and concatenates all "Output" fields from the
// JSON stream into a single string
func (p *JSONOutputParser) GetOutputAsString() string {
	var outputBuilder strings.Builder
	p.ProcessJSONOutput(func(_ map[string]interface{}, outputText string) {
		outputBuilder.WriteString(outputText)
	})
	return outputBuilder.String()
}

// ErrorInfo holds extracted error information from test output
type ErrorInfo struct {
	TestName     string
	ErrorMessage string
	Expected     string
	Actual       string
	Messages     string
	ErrorTrace   string
}

// GetErrorInfo parses the JSON output to extract error information
func (p *JSONOutputParser) GetErrorInfo() ErrorInfo {
	var info ErrorInfo

	p.ProcessJSONOutput(func(jsonData map[string]interface{}, outputText string) {
		if testName, ok := jsonData["Test"].(string); ok && testName != "" {
			info.TestName = testName
		}

		if trace, ok := sectionAfter(outputText, "Error Trace:"); ok {
			if endIdx := strings.Index(trace, "Error:"); endIdx > 0 {
				trace = trace[:endIdx]
			}
			info.ErrorTrace = trace
		}
		if msg, ok := firstLineAfter(outputText, "Error:"); ok {
			info.ErrorMessage = msg
		}
		if expected, ok := firstLineAfter(outputText, "expected:"); ok {
			info.Expected = expected
		}
		if actual, ok := firstLineAfter(outputText, "actual"); ok {
			info.Actual = actual
		}
		if message, ok := firstLineAfter(outputText, "Messages:"); ok {
			info.Messages += message + "\n"
		}
	})

	return info
}

// sectionAfter returns the trimmed text following the first occurrence of
// marker, reporting whether the marker was present.
func sectionAfter(text, marker string) (string, bool) {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(text[idx+len(marker):]), true
}

// firstLineAfter returns the first line of the text following marker.
func firstLineAfter(text, marker string) (string, bool) {
	section, ok := sectionAfter(text, marker)
	if !ok {
		return "", false
	}
	if endIdx := strings.Index(section, "\n"); endIdx > 0 {
		section = section[:endIdx]
	}
	return section, true
}

// extractPlainText returns all output text from JSON as a string
func extractPlainText(input string) string {
	if input == "" {
		return ""
	}
	return NewJSONOutputParser(input).GetOutputAsString()
}

// extractErrorData extracts error information from JSON output
func extractErrorData(input string) ErrorInfo {
	if input == "" {
		return ErrorInfo{}
	}
	return NewJSONOutputParser(input).GetErrorInfo()
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
