// Package errors provides structured error types for dbdump
// with error codes, categories, and remediation guidance
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error codes for dbdump
// Format: DBDUMP-<CATEGORY><NUMBER>
// Categories: C=Config, U=Unsupported, E=Environment, P=Process, X=Cancelled, B=Bug
const (
	ErrCodeInvalidConfig ErrorCode = "DBDUMP-C001"
	ErrCodeMissingConfig ErrorCode = "DBDUMP-C002"
	ErrCodeInvalidOption ErrorCode = "DBDUMP-C003"

	ErrCodeUnsupported ErrorCode = "DBDUMP-U001"

	ErrCodeToolMissing ErrorCode = "DBDUMP-E001"
	ErrCodeNoExecutor  ErrorCode = "DBDUMP-E002"

	ErrCodeProcessFailed ErrorCode = "DBDUMP-P001"
	ErrCodeSQLFailed     ErrorCode = "DBDUMP-P002"
	ErrCodeStartFailed   ErrorCode = "DBDUMP-P003"

	ErrCodeCancelled ErrorCode = "DBDUMP-X001"

	ErrCodeInvalidState ErrorCode = "DBDUMP-B001"
)

// Category represents error categories
type Category string

const (
	CategoryConfig      Category = "configuration"
	CategoryUnsupported Category = "unsupported"
	CategoryEnvironment Category = "environment"
	CategoryProcess     Category = "process"
	CategoryCancelled   Category = "cancelled"
	CategoryInternal    Category = "internal"
)

// BackupError is a structured error with code, category, and remediation
type BackupError struct {
	Code        ErrorCode
	Category    Category
	Message     string
	Details     string
	Remediation string
	Cause       error

	// ExitCode is the tool's exit status for process failures, -1 otherwise
	ExitCode int
}

// Error implements error interface
func (e *BackupError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (%v)", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for error comparison
func (e *BackupError) Is(target error) bool {
	if t, ok := target.(*BackupError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetails adds details to an error
func (e *BackupError) WithDetails(details string) *BackupError {
	e.Details = details
	return e
}

// WithCause adds an underlying cause
func (e *BackupError) WithCause(cause error) *BackupError {
	e.Cause = cause
	return e
}

// NewConfigError creates a configuration error
func NewConfigError(code ErrorCode, message string, remediation string) *BackupError {
	return &BackupError{
		Code:        code,
		Category:    CategoryConfig,
		Message:     message,
		Remediation: remediation,
		ExitCode:    -1,
	}
}

// MissingSetting reports a required job setting that is empty
func MissingSetting(setting string) *BackupError {
	return NewConfigError(ErrCodeMissingConfig,
		fmt.Sprintf("required setting %q is not set", setting),
		fmt.Sprintf("Set %q in the job configuration", setting))
}

// InvalidSetting reports a job setting whose value cannot be used
func InvalidSetting(setting string, value interface{}, reason string) *BackupError {
	return NewConfigError(ErrCodeInvalidOption,
		fmt.Sprintf("invalid value %v for setting %q", value, setting),
		"").WithDetails(reason)
}

// Unsupported creates an error for an operation the engine cannot perform
func Unsupported(engine, operation string) *BackupError {
	return &BackupError{
		Code:     ErrCodeUnsupported,
		Category: CategoryUnsupported,
		Message:  fmt.Sprintf("%s is not supported for %s", operation, engine),
		ExitCode: -1,
	}
}

// ToolMissing creates a missing tool error
func ToolMissing(tool string, cause error) *BackupError {
	return &BackupError{
		Code:     ErrCodeToolMissing,
		Category: CategoryEnvironment,
		Message:  fmt.Sprintf("required tool not found: %s", tool),
		Remediation: fmt.Sprintf("Install %s or set dumpToolPath to its location",
			PackageFor(tool)),
		Cause:    cause,
		ExitCode: -1,
	}
}

// ProcessFailed creates an error for a tool that exited unsuccessfully
func ProcessFailed(program string, exitCode int, lastLine string, cause error) *BackupError {
	e := &BackupError{
		Code:     ErrCodeProcessFailed,
		Category: CategoryProcess,
		Message:  fmt.Sprintf("%s exited with status %d", program, exitCode),
		Details:  lastLine,
		Cause:    cause,
		ExitCode: exitCode,
	}
	return e
}

// StartFailed creates an error for a tool that could not be started
func StartFailed(program string, cause error) *BackupError {
	return &BackupError{
		Code:     ErrCodeStartFailed,
		Category: CategoryProcess,
		Message:  fmt.Sprintf("failed to start %s", program),
		Cause:    cause,
		ExitCode: -1,
	}
}

// SQLFailed creates an error for a statement rejected by the server
func SQLFailed(cause error) *BackupError {
	return &BackupError{
		Code:     ErrCodeSQLFailed,
		Category: CategoryProcess,
		Message:  "statement failed",
		Cause:    cause,
		ExitCode: -1,
	}
}

// NoExecutor reports a SQL step with no live connection to run it on
func NoExecutor() *BackupError {
	return &BackupError{
		Code:        ErrCodeNoExecutor,
		Category:    CategoryEnvironment,
		Message:     "no database connection available for SQL step",
		Remediation: "Open the connection before running a SQL Server backup or restore",
		ExitCode:    -1,
	}
}

// Cancelled creates an error for a run stopped by the user
func Cancelled(cause error) *BackupError {
	return &BackupError{
		Code:     ErrCodeCancelled,
		Category: CategoryCancelled,
		Message:  "operation cancelled",
		Cause:    cause,
		ExitCode: -1,
	}
}

// InvalidState creates an error for a call made in the wrong builder state
func InvalidState(message string) *BackupError {
	return &BackupError{
		Code:     ErrCodeInvalidState,
		Category: CategoryInternal,
		Message:  message,
		ExitCode: -1,
	}
}

// PackageFor returns the package that usually ships tool
func PackageFor(tool string) string {
	packages := map[string]string{
		"pg_dump":      "postgresql-client",
		"pg_restore":   "postgresql-client",
		"psql":         "postgresql-client",
		"mysqldump":    "mysql-client",
		"mysql":        "mysql-client",
		"mariadb-dump": "mariadb-client",
		"mariadb":      "mariadb-client",
		"sqlite3":      "sqlite3",
		"docker":       "docker",
	}
	if pkg, ok := packages[tool]; ok {
		return pkg
	}
	return tool
}

// GetCategory returns the error category if available
func GetCategory(err error) Category {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		return backupErr.Category
	}
	return ""
}

// GetCode returns the error code if available
func GetCode(err error) ErrorCode {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		return backupErr.Code
	}
	return ""
}

// IsConfiguration reports whether err is a job configuration error
func IsConfiguration(err error) bool { return GetCategory(err) == CategoryConfig }

// IsUnsupported reports whether err comes from an unsupported operation
func IsUnsupported(err error) bool { return GetCategory(err) == CategoryUnsupported }

// IsProcessFailure reports whether err is a failed tool run or statement
func IsProcessFailure(err error) bool { return GetCategory(err) == CategoryProcess }

// IsCancelled reports whether err comes from a user cancellation
func IsCancelled(err error) bool { return GetCategory(err) == CategoryCancelled }
