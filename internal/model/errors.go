package model

import (
	"errors"
	"fmt"
)

// ExitCode defines the process exit codes of the CLI.
// Scripts and CI jobs can use them to tell failure classes apart.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigInvalid indicates the configuration file could not be
	// parsed or failed validation.
	ExitConfigInvalid ExitCode = 2

	// ExitPythonNotFound indicates no usable Python interpreter was found.
	ExitPythonNotFound ExitCode = 3

	// ExitDependencyFailed indicates a packaging dependency is missing and
	// could not be installed.
	ExitDependencyFailed ExitCode = 4

	// ExitPackagingFailed indicates the packaging tool exited non-zero.
	ExitPackagingFailed ExitCode = 5

	// ExitResourceMissing indicates the entry script or a required resource
	// file does not exist.
	ExitResourceMissing ExitCode = 6

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ExitCodeOf returns the exit code carried by err, searching the wrap
// chain. Errors without a CLIError map to ExitGeneralError, nil to ExitSuccess.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitGeneralError
}

// PackagingError reports a packaging tool run that exited non-zero.
type PackagingError struct {
	// ExitCode is the packaging tool's own exit status.
	ExitCode int
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging tool exited with code %d", e.ExitCode)
}
