// Package cli provides shared configuration and utilities for the ownership CLI.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

// Exit codes.
const (
	ExitSuccess       = 0
	ExitGeneral       = 1
	ExitConfig        = 2
	ExitSnapshotParse = 3
	ExitStoreConnect  = 4
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for err.
// Snapshot parse errors that were not wrapped in an ExitError still map to
// ExitSnapshotParse.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if snapshot.IsParseErr(err) {
		return ExitSnapshotParse
	}
	return ExitGeneral
}

// ExitWithError prints the error and exits with the appropriate code.
func ExitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(ExitCode(err))
}

// ConfigError creates an ExitError with ExitConfig code.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// SnapshotParseError creates an ExitError with ExitSnapshotParse code.
func SnapshotParseError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitSnapshotParse, Message: msg, Err: err}
}

// StoreConnectError creates an ExitError with ExitStoreConnect code.
func StoreConnectError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitStoreConnect, Message: msg, Err: err}
}

// GeneralError creates an ExitError with ExitGeneral code.
func GeneralError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Message: msg, Err: err}
}
