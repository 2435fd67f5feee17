// Package notify provides notification capabilities for backup and restore runs
package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// EventType represents the type of notification event
type EventType string

const (
	EventBackupStarted    EventType = "backup_started"
	EventBackupCompleted  EventType = "backup_completed"
	EventBackupFailed     EventType = "backup_failed"
	EventBackupCancelled  EventType = "backup_cancelled"
	EventRestoreStarted   EventType = "restore_started"
	EventRestoreCompleted EventType = "restore_completed"
	EventRestoreFailed    EventType = "restore_failed"
	EventRestoreCancelled EventType = "restore_cancelled"
	EventToolFound        EventType = "tool_found"
	EventToolMissing      EventType = "tool_missing"
)

// Severity represents the severity level of a notification
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity returns the severity named s
func ParseSeverity(s string) (Severity, bool) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return sev, true
	}
	return "", false
}

func severityOrder(s Severity) int {
	switch s {
	case SeveritySuccess:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	default:
		return 0
	}
}

// Event represents a notification event
type Event struct {
	Type       EventType         `json:"type"`
	Severity   Severity          `json:"severity"`
	Timestamp  time.Time         `json:"timestamp"`
	Engine     string            `json:"engine,omitempty"`
	Database   string            `json:"database,omitempty"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Error      string            `json:"error,omitempty"`
	Duration   time.Duration     `json:"duration,omitempty"`
	BackupFile string            `json:"backup_file,omitempty"`
	BackupSize int64             `json:"backup_size,omitempty"`
	Hostname   string            `json:"hostname,omitempty"`
}

// NewEvent creates a new notification event
func NewEvent(eventType EventType, severity Severity, message string) *Event {
	return &Event{
		Type:      eventType,
		Severity:  severity,
		Timestamp: time.Now(),
		Message:   message,
		Details:   make(map[string]string),
	}
}

// WithEngine adds the engine key to the event
func (e *Event) WithEngine(engine string) *Event {
	e.Engine = engine
	return e
}

// WithDatabase adds database name to the event
func (e *Event) WithDatabase(db string) *Event {
	e.Database = db
	return e
}

// WithError adds error information to the event
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration adds duration to the event
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithBackupInfo adds backup file and size information
func (e *Event) WithBackupInfo(file string, size int64) *Event {
	e.BackupFile = file
	e.BackupSize = size
	return e
}

// WithDetail adds a custom detail to the event
func (e *Event) WithDetail(key, value string) *Event {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Notifier is the interface that all notification backends must implement
type Notifier interface {
	Name() string
	Send(ctx context.Context, event *Event) error
	IsEnabled() bool
}

// Func adapts a function to the Notifier interface
type Func func(event *Event)

func (f Func) Name() string    { return "func" }
func (f Func) IsEnabled() bool { return f != nil }

func (f Func) Send(_ context.Context, event *Event) error {
	f(event)
	return nil
}

// Config holds configuration for notification backends
type Config struct {
	WebhookEnabled bool
	WebhookURL     string
	WebhookMethod  string
	WebhookHeaders map[string]string
	WebhookSecret  string

	OnSuccess   bool
	OnFailure   bool
	MinSeverity Severity
	Retries     int
	RetryDelay  time.Duration
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		WebhookMethod: "POST",
		OnSuccess:     true,
		OnFailure:     true,
		MinSeverity:   SeverityInfo,
		Retries:       3,
		RetryDelay:    2 * time.Second,
	}
}

// FormatEventSubject generates a subject line for notifications
func FormatEventSubject(event *Event) string {
	verb := "Event"
	switch event.Type {
	case EventBackupStarted:
		verb = "Backup Started"
	case EventBackupCompleted:
		verb = "Backup Completed"
	case EventBackupFailed:
		verb = "Backup Failed"
	case EventBackupCancelled:
		verb = "Backup Cancelled"
	case EventRestoreStarted:
		verb = "Restore Started"
	case EventRestoreCompleted:
		verb = "Restore Completed"
	case EventRestoreFailed:
		verb = "Restore Failed"
	case EventRestoreCancelled:
		verb = "Restore Cancelled"
	case EventToolFound:
		verb = "Dump Tool Found"
	case EventToolMissing:
		verb = "Dump Tool Missing"
	}

	if event.Database != "" {
		return fmt.Sprintf("[dbdump] %s: %s", verb, event.Database)
	}
	return fmt.Sprintf("[dbdump] %s", verb)
}

// FormatEventBody generates a message body for notifications
func FormatEventBody(event *Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", event.Message)
	fmt.Fprintf(&b, "Time: %s\n", event.Timestamp.Format(time.RFC3339))

	if event.Engine != "" {
		fmt.Fprintf(&b, "Engine: %s\n", event.Engine)
	}
	if event.Database != "" {
		fmt.Fprintf(&b, "Database: %s\n", event.Database)
	}
	if event.Hostname != "" {
		fmt.Fprintf(&b, "Host: %s\n", event.Hostname)
	}
	if event.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %s\n", event.Duration.Round(time.Second))
	}
	if event.BackupFile != "" {
		fmt.Fprintf(&b, "Backup File: %s\n", event.BackupFile)
	}
	if event.BackupSize > 0 {
		fmt.Fprintf(&b, "Backup Size: %s\n", humanize.IBytes(uint64(event.BackupSize)))
	}
	if event.Error != "" {
		fmt.Fprintf(&b, "\nError: %s\n", event.Error)
	}

	if len(event.Details) > 0 {
		keys := make([]string, 0, len(event.Details))
		for k := range event.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nDetails:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, event.Details[k])
		}
	}

	return b.String()
}
