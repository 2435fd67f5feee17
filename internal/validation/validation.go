// Package validation checks user-provided connection and path parameters
// before any command is built from them
package validation

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"dbdump/internal/job"

	"github.com/hashicorp/go-multierror"
)

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// ValidatePort validates port numbers
func ValidatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{
			Field:   field,
			Value:   fmt.Sprintf("%d", port),
			Message: "must be between 1 and 65535",
		}
	}
	return nil
}

// pathTraversalPatterns indicate path traversal or shell expansion attempts
var pathTraversalPatterns = []string{"..", "~", "$", "`", "|", ";", "&", ">", "<"}

// dangerousPaths should never receive backup files
var dangerousPaths = []string{
	"/", "/etc", "/var", "/usr", "/bin", "/sbin", "/lib", "/lib64",
	"/boot", "/dev", "/proc", "/sys", "/run", "/root", "/home",
}

// ValidateBackupDir validates the default output directory
func ValidateBackupDir(path string) error {
	if path == "" {
		return &ValidationError{Field: "backup-dir", Value: path, Message: "cannot be empty"}
	}
	for _, pattern := range pathTraversalPatterns {
		if strings.Contains(path, pattern) {
			return &ValidationError{
				Field:   "backup-dir",
				Value:   path,
				Message: fmt.Sprintf("contains dangerous pattern %q", pattern),
			}
		}
	}

	clean := filepath.Clean(path)
	for _, dangerous := range dangerousPaths {
		if clean == dangerous {
			return &ValidationError{
				Field:   "backup-dir",
				Value:   path,
				Message: fmt.Sprintf("cannot use system directory %q", dangerous),
			}
		}
	}

	// Linux PATH_MAX
	if len(path) > 4096 {
		return &ValidationError{
			Field:   "backup-dir",
			Value:   path[:50] + "...",
			Message: "path exceeds maximum length of 4096 characters",
		}
	}
	return nil
}

const (
	maxPostgreSQLIdentifierLength = 63
	maxMySQLIdentifierLength      = 64
	maxSQLServerIdentifierLength  = 128
)

// ValidateDatabaseName validates a database name for the given engine
func ValidateDatabaseName(name, engine string) error {
	if name == "" {
		return &ValidationError{Field: "database", Value: name, Message: "cannot be empty"}
	}

	maxLen := maxPostgreSQLIdentifierLength
	switch engine {
	case "mysql", "mariadb":
		maxLen = maxMySQLIdentifierLength
	case "sqlserver", "mssql":
		maxLen = maxSQLServerIdentifierLength
	}
	if len(name) > maxLen {
		return &ValidationError{
			Field:   "database",
			Value:   name,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", maxLen),
		}
	}
	if strings.ContainsRune(name, 0) {
		return &ValidationError{Field: "database", Value: name, Message: "cannot contain null bytes"}
	}
	// The name becomes part of generated file names
	if strings.ContainsAny(name, `/\`) {
		return &ValidationError{Field: "database", Value: name, Message: "cannot contain path separators"}
	}
	return nil
}

// ValidateHost validates a database host name or address
func ValidateHost(host string) error {
	if host == "" {
		return &ValidationError{Field: "host", Value: host, Message: "cannot be empty"}
	}

	if strings.HasPrefix(host, "[") {
		end := strings.Index(host, "]")
		if end == -1 {
			return &ValidationError{Field: "host", Value: host, Message: "invalid IPv6 address format (missing closing bracket)"}
		}
		if net.ParseIP(host[1:end]) == nil {
			return &ValidationError{Field: "host", Value: host, Message: "invalid IPv6 address"}
		}
		return nil
	}
	if net.ParseIP(host) != nil {
		return nil
	}

	if len(host) > 253 {
		return &ValidationError{Field: "host", Value: host, Message: "hostname exceeds maximum length of 253 characters"}
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return &ValidationError{Field: "host", Value: host, Message: "hostname contains empty label"}
		}
		if len(label) > 63 {
			return &ValidationError{Field: "host", Value: host, Message: "hostname label exceeds maximum length of 63 characters"}
		}
		if !isAlphanumeric(rune(label[0])) || !isAlphanumeric(rune(label[len(label)-1])) {
			return &ValidationError{Field: "host", Value: host, Message: "hostname labels must start and end with alphanumeric characters"}
		}
		for _, c := range label {
			// SQL Server named instances use host\instance
			if !isAlphanumeric(c) && c != '-' && c != '_' && c != '\\' {
				return &ValidationError{Field: "host", Value: host, Message: fmt.Sprintf("hostname contains invalid character %q", c)}
			}
		}
	}
	return nil
}

// ValidateSocket checks that a Unix socket path exists
func ValidateSocket(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &ValidationError{Field: "socketPath", Value: path, Message: "Unix socket does not exist"}
	}
	return nil
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Connection validates the connection section of a job. Unset fields are
// left to the builders, which report missing settings themselves.
func Connection(conn job.Connection) error {
	var result *multierror.Error
	add := func(err error) {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	if conn.Port != 0 {
		add(ValidatePort("port", conn.Port))
	}
	if conn.UsesSocket() {
		add(ValidateSocket(conn.SocketPath))
	} else if conn.Host != "" {
		add(ValidateHost(conn.Host))
	}
	if conn.TunnelActive {
		if conn.TunnelLocalHost != "" {
			add(ValidateHost(conn.TunnelLocalHost))
		}
		add(ValidatePort("tunnelLocalPort", conn.TunnelLocalPort))
	}
	if conn.Database != "" {
		add(ValidateDatabaseName(conn.Database, strings.ToLower(conn.Engine)))
	}
	if conn.SSL {
		for field, path := range map[string]string{
			"sslCaFile":   conn.SSLCAFile,
			"sslCertFile": conn.SSLCertFile,
			"sslKeyFile":  conn.SSLKeyFile,
		} {
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				add(&ValidationError{Field: field, Value: path, Message: "file is not readable"})
			}
		}
	}

	return result.ErrorOrNil()
}
