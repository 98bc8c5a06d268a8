package errors

import (
	"errors"
	"fmt"
)

// Exit codes for harbor-ctl
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitNoRuntime       = 2
	ExitRuntimeNotFound = 3
	ExitDetectionFailed = 4
	ExitPollingFailed   = 5
	ExitConfigError     = 6
)

// HarborError is the base error type for harbor-ctl
type HarborError struct {
	Code    int
	Message string
	Cause   error
}

func (e *HarborError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *HarborError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *HarborError) ExitCode() int {
	return e.Code
}

// New creates a new HarborError
func New(code int, message string) *HarborError {
	return &HarborError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a HarborError
func Wrap(code int, message string, cause error) *HarborError {
	return &HarborError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NoRuntimeFound returns an error when detection found no usable runtime
func NoRuntimeFound() *HarborError {
	return New(ExitNoRuntime, "no container runtime detected (tried: docker, podman)")
}

// RuntimeNotFound returns an error for an unknown runtime id
func RuntimeNotFound(id string) *HarborError {
	return New(ExitRuntimeNotFound, fmt.Sprintf("runtime not found: %s", id))
}

// DetectionFailed returns an error for a detection pass that could not run
func DetectionFailed(kind string, cause error) *HarborError {
	return Wrap(ExitDetectionFailed, fmt.Sprintf("%s detection failed", kind), cause)
}

// PollingFailed returns an error for status polling lifecycle failures
func PollingFailed(cause error) *HarborError {
	return Wrap(ExitPollingFailed, "status polling failed", cause)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *HarborError {
	return Wrap(ExitConfigError, message, cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *HarborError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var harborErr *HarborError
	if errors.As(err, &harborErr) {
		return harborErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
