package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/omaciel/uplink/types"
)

const rawGoEventsLog = "raw_go_events.log"

// RawJSONSink preserves the raw `go test -json` output for a run in the
// raw_go_events.log file, in the format tools like gotestsum expect.
type RawJSONSink struct {
	logger *FileLogger

	// Raw output is spooled to temp files rather than held in memory.
	mu            sync.Mutex
	rawJSONEvents map[string]string // Map of [test-id] -> temp file path with raw JSON events
}

// Consume appends the stored raw JSON output for a test to the raw_go_events.log file
func (s *RawJSONSink) Consume(result *types.TestResult, runID string) error {
	baseDir, err := s.logger.GetDirectoryForRunID(runID)
	if err != nil {
		return err
	}

	rawEventsFile := filepath.Join(baseDir, rawGoEventsLog)

	writer, err := s.logger.getAsyncWriter(rawEventsFile)
	if err != nil {
		return err
	}

	path := s.getPath(result.Metadata.ID)
	if path == "" {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open raw JSON file %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := io.Copy(asyncFileWriterAdapter{writer: writer}, file); err != nil {
		return fmt.Errorf("failed to write raw JSON events: %w", err)
	}

	return nil
}

// Complete removes the spooled temp files for this run
func (s *RawJSONSink) Complete(runID string) error {
	s.cleanupStoredFiles()
	return nil
}

// StoreRawJSON stores the raw JSON output for a test. The test runner must
// call this before the result is logged so Consume can find the data.
func (s *RawJSONSink) StoreRawJSON(testID string, rawJSON []byte) error {
	if len(rawJSON) == 0 {
		return nil
	}

	tmpFile, err := s.createTempRawFile(testID)
	if err != nil {
		return err
	}

	if _, err := tmpFile.Write(rawJSON); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("failed to write raw JSON: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("failed to close raw JSON file: %w", err)
	}

	s.storePath(testID, tmpFile.Name())
	return nil
}

// GetRawJSON retrieves the raw JSON output for a test ID.
// Returns the raw JSON bytes and whether the test ID was found.
func (s *RawJSONSink) GetRawJSON(testID string) ([]byte, bool) {
	path := s.getPath(testID)
	if path == "" {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (s *RawJSONSink) createTempRawFile(testID string) (*os.File, error) {
	prefix := fmt.Sprintf("raw-json-%s-", safeFilename(testID))
	tmpFile, err := os.CreateTemp("", prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp raw JSON file: %w", err)
	}
	return tmpFile, nil
}

func (s *RawJSONSink) storePath(testID, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rawJSONEvents == nil {
		s.rawJSONEvents = make(map[string]string)
	}
	s.rawJSONEvents[testID] = path
}

func (s *RawJSONSink) getPath(testID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rawJSONEvents[testID]
}

func (s *RawJSONSink) cleanupStoredFiles() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for testID, path := range s.rawJSONEvents {
		_ = os.Remove(path)
		delete(s.rawJSONEvents, testID)
	}
}
