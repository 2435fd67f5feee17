// Package exitcode maps run errors to process exit codes
package exitcode

import (
	"strings"

	apperrors "dbdump/internal/errors"
)

// Standard exit codes following BSD sysexits.h conventions
// See: https://man.freebsd.org/cgi/man.cgi?query=sysexits
const (
	// Success - operation completed successfully
	Success = 0

	// General - general error (fallback)
	General = 1

	// UsageError - command line usage error
	UsageError = 2

	// NoInput - input file did not exist or was not readable
	NoInput = 66

	// Unavailable - service unavailable (database unreachable)
	Unavailable = 69

	// Software - internal software error
	Software = 70

	// OSFile - critical OS file missing (dump tool not installed)
	OSFile = 72

	// IOError - error during I/O operation
	IOError = 74

	// NoPerm - permission denied
	NoPerm = 77

	// Config - configuration error
	Config = 78

	// Timeout - operation timeout
	Timeout = 124

	// Cancelled - operation cancelled by user (Ctrl+C)
	Cancelled = 130
)

// ExitWithCode returns the exit code for err. Structured errors map by
// category; process failures and plain errors fall back to the message.
func ExitWithCode(err error) int {
	if err == nil {
		return Success
	}

	switch apperrors.GetCategory(err) {
	case apperrors.CategoryConfig:
		return Config
	case apperrors.CategoryUnsupported:
		return UsageError
	case apperrors.CategoryEnvironment:
		return OSFile
	case apperrors.CategoryCancelled:
		return Cancelled
	case apperrors.CategoryInternal:
		return Software
	}

	errMsg := err.Error()

	if contains(errMsg, "permission denied", "access denied", "authentication failed", "FATAL: password authentication") {
		return NoPerm
	}
	if contains(errMsg, "connection refused", "could not connect", "no such host", "unknown host", "failed to ping database") {
		return Unavailable
	}
	if contains(errMsg, "no such file", "file not found", "does not exist") {
		return NoInput
	}
	if contains(errMsg, "no space left", "disk full", "i/o error", "read-only file system") {
		return IOError
	}
	if contains(errMsg, "timeout", "timed out", "deadline exceeded") {
		return Timeout
	}
	if contains(errMsg, "context canceled", "operation canceled") {
		return Cancelled
	}

	return General
}

// contains checks if str contains any of the given substrings
func contains(str string, substrs ...string) bool {
	for _, substr := range substrs {
		if strings.Contains(str, substr) {
			return true
		}
	}
	return false
}
