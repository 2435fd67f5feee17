package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"dbdump/internal/logger"
	"dbdump/internal/notify"
	"dbdump/internal/validation"

	"github.com/hashicorp/go-multierror"
)

// Config holds the process configuration shared by all commands
type Config struct {
	// Version information
	Version   string
	BuildTime string
	GitCommit string

	// Job file path (--job flag)
	JobPath string
	// Engine overrides the engine named in the job file
	Engine string

	BackupDir string
	WorkDir   string // scratch log directory (default: system temp)

	// Output options
	NoColor   bool
	Debug     bool
	LogLevel  string
	LogFormat string

	// Locate the dump tool before running
	FindTool bool

	// Notification options
	NotifyOnSuccess     bool
	NotifyOnFailure     bool
	NotifyMinSeverity   string
	NotifyWebhookURL    string
	NotifyWebhookMethod string
	NotifyWebhookSecret string
	NotifyRetries       int
	NotifyRetryDelay    time.Duration
}

// New creates a configuration with defaults taken from DBDUMP_* variables
func New() *Config {
	return &Config{
		BackupDir: getEnvString("DBDUMP_BACKUP_DIR", getDefaultBackupDir()),
		WorkDir:   getEnvString("DBDUMP_WORK_DIR", ""),

		NoColor:   getEnvBool("NO_COLOR", false),
		Debug:     getEnvBool("DBDUMP_DEBUG", false),
		LogLevel:  getEnvString("DBDUMP_LOG_LEVEL", "info"),
		LogFormat: getEnvString("DBDUMP_LOG_FORMAT", "text"),

		FindTool: getEnvBool("DBDUMP_FIND_TOOL", true),

		NotifyOnSuccess:     getEnvBool("DBDUMP_NOTIFY_ON_SUCCESS", true),
		NotifyOnFailure:     getEnvBool("DBDUMP_NOTIFY_ON_FAILURE", true),
		NotifyMinSeverity:   getEnvString("DBDUMP_NOTIFY_MIN_SEVERITY", string(notify.SeverityInfo)),
		NotifyWebhookURL:    getEnvString("DBDUMP_NOTIFY_WEBHOOK_URL", ""),
		NotifyWebhookMethod: getEnvString("DBDUMP_NOTIFY_WEBHOOK_METHOD", "POST"),
		NotifyWebhookSecret: getEnvString("DBDUMP_NOTIFY_WEBHOOK_SECRET", ""),
		NotifyRetries:       getEnvInt("DBDUMP_NOTIFY_RETRIES", 3),
		NotifyRetryDelay:    getEnvDuration("DBDUMP_NOTIFY_RETRY_DELAY", 2*time.Second),
	}
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var result *multierror.Error

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		result = multierror.Append(result, &ConfigError{Field: "log-format", Value: c.LogFormat, Message: "must be 'text' or 'json'"})
	}
	if _, ok := notify.ParseSeverity(c.NotifyMinSeverity); !ok {
		result = multierror.Append(result, &ConfigError{Field: "notify-min-severity", Value: c.NotifyMinSeverity, Message: "must be info, success, warning or error"})
	}
	if c.NotifyRetries < 0 {
		result = multierror.Append(result, &ConfigError{Field: "notify-retries", Value: strconv.Itoa(c.NotifyRetries), Message: "must not be negative"})
	}
	if c.NotifyWebhookURL != "" &&
		!strings.HasPrefix(c.NotifyWebhookURL, "http://") && !strings.HasPrefix(c.NotifyWebhookURL, "https://") {
		result = multierror.Append(result, &ConfigError{Field: "notify-webhook-url", Value: c.NotifyWebhookURL, Message: "must be an http or https URL"})
	}
	if c.BackupDir != "" {
		var verr *validation.ValidationError
		if err := validation.ValidateBackupDir(c.BackupDir); errors.As(err, &verr) {
			result = multierror.Append(result, &ConfigError{Field: "backup-dir", Value: c.BackupDir, Message: verr.Message})
		}
	}
	switch strings.ToUpper(c.NotifyWebhookMethod) {
	case "POST", "PUT":
	default:
		result = multierror.Append(result, &ConfigError{Field: "notify-webhook-method", Value: c.NotifyWebhookMethod, Message: "must be POST or PUT"})
	}

	return result.ErrorOrNil()
}

// Logger creates the process logger
func (c *Config) Logger() logger.Logger {
	level := c.LogLevel
	if c.Debug {
		level = "debug"
	}
	return logger.New(level, c.LogFormat)
}

// NotifyConfig converts the notification options for notify.NewManager
func (c *Config) NotifyConfig() notify.Config {
	nc := notify.DefaultConfig()
	nc.WebhookEnabled = c.NotifyWebhookURL != ""
	nc.WebhookURL = c.NotifyWebhookURL
	nc.WebhookMethod = strings.ToUpper(c.NotifyWebhookMethod)
	nc.WebhookSecret = c.NotifyWebhookSecret
	nc.OnSuccess = c.NotifyOnSuccess
	nc.OnFailure = c.NotifyOnFailure
	if sev, ok := notify.ParseSeverity(c.NotifyMinSeverity); ok {
		nc.MinSeverity = sev
	}
	nc.Retries = c.NotifyRetries
	nc.RetryDelay = c.NotifyRetryDelay
	return nc
}

// GetEffectiveWorkDir returns the configured WorkDir or system temp as fallback
func (c *Config) GetEffectiveWorkDir() string {
	if c.WorkDir != "" {
		return c.WorkDir
	}
	return os.TempDir()
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Value   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%s': %s", e.Field, e.Value, e.Message)
}

// Helper functions
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getDefaultBackupDir() string {
	homeDir, _ := os.UserHomeDir()
	if homeDir != "" {
		return filepath.Join(homeDir, "db_backups")
	}

	if runtime.GOOS == "windows" {
		return "C:\\db_backups"
	}
	return filepath.Join(os.TempDir(), "db_backups")
}
