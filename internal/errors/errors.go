package errors

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"
)

// FileError is one error reported for an output file. Line and Column are
// one-based and zero when unknown.
type FileError struct {
	File      string
	Line      int
	Column    int
	Message   string
	Timestamp time.Time
}

// Error implements the error interface
func (fe *FileError) Error() string {
	if fe.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", fe.File, fe.Line, fe.Column, fe.Message)
	}
	return fmt.Sprintf("%s: %s", fe.File, fe.Message)
}

var positionPattern = regexp.MustCompile(`^\[(\d+),(\d+)\] ([\s\S]*)$`)

// ParseDiagnostic reads a "[line,column] message" string as produced by the
// language service. Strings without a position keep the whole text as the
// message.
func ParseDiagnostic(file, diagnostic string) FileError {
	m := positionPattern.FindStringSubmatch(diagnostic)
	if m == nil {
		return FileError{File: file, Message: diagnostic}
	}
	line, _ := strconv.Atoi(m[1])
	column, _ := strconv.Atoi(m[2])
	return FileError{File: file, Line: line, Column: column, Message: m[3]}
}

// ErrorCollector collects the errors reported for output files.
type ErrorCollector struct {
	fileErrors []FileError
	mutex      sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		fileErrors: make([]FileError, 0),
	}
}

// Add adds a file error to the collector
func (ec *ErrorCollector) Add(err FileError) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	err.Timestamp = time.Now()
	ec.fileErrors = append(ec.fileErrors, err)
}

// AddDiagnostics records each diagnostic string reported for file.
func (ec *ErrorCollector) AddDiagnostics(file string, diagnostics []string) {
	for _, d := range diagnostics {
		ec.Add(ParseDiagnostic(file, d))
	}
}

// GetErrors returns all collected file errors
func (ec *ErrorCollector) GetErrors() []FileError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]FileError, len(ec.fileErrors))
	copy(result, ec.fileErrors)
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.fileErrors) > 0
}

// Files returns the sorted names of files with errors.
func (ec *ErrorCollector) Files() []string {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	seen := make(map[string]bool)
	files := make([]string, 0)
	for _, err := range ec.fileErrors {
		if !seen[err.File] {
			seen[err.File] = true
			files = append(files, err.File)
		}
	}
	sort.Strings(files)
	return files
}

// GetErrorsByFile returns errors for a specific file
func (ec *ErrorCollector) GetErrorsByFile(file string) []FileError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var fileErrors []FileError
	for _, err := range ec.fileErrors {
		if err.File == file {
			fileErrors = append(fileErrors, err)
		}
	}
	return fileErrors
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.fileErrors = ec.fileErrors[:0]
}
