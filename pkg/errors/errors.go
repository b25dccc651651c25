package errors

import (
	"fmt"
)

// ParseError represents a document parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures bad input: unknown setting ids, malformed script
// specs or profiles. Surfaced immediately, never retried.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a command that ran and failed. Stderr is kept
// verbatim; callers surface it and never auto-retry mutating commands.
type ExecutionError struct {
	SettingID string
	Stderr    string
	Err       error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(settingID string, stderr string, err error) error {
	return &ExecutionError{SettingID: settingID, Stderr: stderr, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.SettingID != "" {
		return fmt.Sprintf("execution error on setting %s: %v", e.SettingID, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ElevationDeclinedError marks a refused elevation request. It is routed
// differently from ExecutionError: the recovery path is re-authentication or
// a generated manual script, not a command retry.
type ElevationDeclinedError struct {
	Method string
	Reason string
}

// NewElevationDeclinedError constructs an ElevationDeclinedError.
func NewElevationDeclinedError(method, reason string) error {
	return &ElevationDeclinedError{Method: method, Reason: reason}
}

func (e *ElevationDeclinedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Reason != "" {
		return fmt.Sprintf("elevation declined (%s): %s", e.Method, e.Reason)
	}
	return fmt.Sprintf("elevation declined (%s)", e.Method)
}

// PartialSuccessError reports a two-step external sequence that completed
// its first step and failed its second. Step always names the failing step.
type PartialSuccessError struct {
	Operation string
	Step      string
	Err       error
}

// NewPartialSuccessError constructs a PartialSuccessError.
func NewPartialSuccessError(operation, step string, err error) error {
	return &PartialSuccessError{Operation: operation, Step: step, Err: err}
}

func (e *PartialSuccessError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s partially succeeded: step %q failed: %v", e.Operation, e.Step, e.Err)
}

// Unwrap exposes the underlying error.
func (e *PartialSuccessError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NotFoundError marks a missing resource, such as a bundle executable or a
// descriptor file.
type NotFoundError struct {
	Kind string
	Name string
}

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// MetadataError indicates an application bundle whose embedded metadata
// could not be read or parsed.
type MetadataError struct {
	BundlePath string
	Err        error
}

// NewMetadataError constructs a MetadataError.
func NewMetadataError(bundlePath string, err error) error {
	return &MetadataError{BundlePath: bundlePath, Err: err}
}

func (e *MetadataError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("bundle metadata unreadable: %s: %v", e.BundlePath, e.Err)
}

// Unwrap exposes the underlying error.
func (e *MetadataError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
