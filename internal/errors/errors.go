// Package errors defines the failure taxonomy shared by the detector, its
// tool backends and the CLI.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// DetectorFailure is implemented by every error type in this package.
type DetectorFailure interface {
	error
	IsDetectorFailure() bool
}

var (
	_ DetectorFailure = (*ConfigurationError)(nil)
	_ DetectorFailure = (*InitializationError)(nil)
	_ DetectorFailure = (*DetectorError)(nil)
	_ DetectorFailure = (*ToolNotFoundError)(nil)
)

// Sentinel errors for misuse of the detector API.
var (
	// ErrNotRun indicates a verdict accessor was called before Run.
	ErrNotRun = errors.New("detector has not been run")

	// ErrGitMode indicates a lock-file-only operation was invoked in git mode.
	ErrGitMode = errors.New("operation requires lock file mode, detector is running in git mode")
)

// ConfigurationError reports an invalid detector configuration. It is raised
// at construction time and the detector is never partially built.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IsDetectorFailure implements DetectorFailure.
func (e *ConfigurationError) IsDetectorFailure() bool { return true }

// InitializationError reports a failed dependency pull or lock materialization.
type InitializationError struct {
	Step     string
	ExitCode int
	Stdout   []string
	Stderr   []string
	Err      error
}

func (e *InitializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("error running %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("error running %s: exit status code %d | stdout: %s | stderr: %s",
		e.Step, e.ExitCode, strings.Join(e.Stdout, "\n"), strings.Join(e.Stderr, "\n"))
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// IsDetectorFailure implements DetectorFailure.
func (e *InitializationError) IsDetectorFailure() bool { return true }

// DetectorError reports API misuse or a tool-level failure during a check.
type DetectorError struct {
	Op  string
	Err error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DetectorError) Unwrap() error {
	return e.Err
}

// IsDetectorFailure implements DetectorFailure.
func (e *DetectorError) IsDetectorFailure() bool { return true }

// ToolNotFoundError indicates the external schema tool binary was not found.
type ToolNotFoundError struct {
	Tool          string
	SearchedPaths []string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s not found in: %v", e.Tool, e.SearchedPaths)
}

// IsDetectorFailure implements DetectorFailure.
func (e *ToolNotFoundError) IsDetectorFailure() bool { return true }

// ToolOutputError carries the stderr text reported by the tool during a check.
type ToolOutputError struct {
	Tool   string
	Stderr string
}

func (e *ToolOutputError) Error() string {
	return fmt.Sprintf("error from %s: %s", e.Tool, e.Stderr)
}

// Configuration returns a ConfigurationError for the given field.
func Configuration(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
