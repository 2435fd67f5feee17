package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Color printers shared by the CLI output
var (
	SuccessColor = color.New(color.FgGreen, color.Bold)
	ErrorColor   = color.New(color.FgRed, color.Bold)
	WarnColor    = color.New(color.FgYellow, color.Bold)
	DebugColor   = color.New(color.FgWhite)
	DimColor     = color.New(color.FgHiBlack)
)

// Logger defines the interface for logging
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	WithFields(fields map[string]interface{}) Logger
	WithField(key string, value interface{}) Logger

	// StartOperation returns a logger that reports elapsed time for a run
	StartOperation(name string) OperationLogger
}

// OperationLogger tracks timing for one operation
type OperationLogger interface {
	Update(msg string, args ...any)
	Complete(msg string, args ...any)
	Fail(msg string, args ...any)
}

type logger struct {
	entry *logrus.Entry
}

type operationLogger struct {
	name      string
	startTime time.Time
	parent    Logger
}

// ParseLevel maps a level name to a logrus level, defaulting to info
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// New creates a logger writing to stderr
func New(level, format string) Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, level, format string) Logger {
	l := logrus.New()
	l.SetLevel(ParseLevel(level))
	l.SetOutput(w)

	switch strings.ToLower(format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&CleanFormatter{})
	}

	return &logger{entry: logrus.NewEntry(l)}
}

func (l *logger) Debug(msg string, args ...any) {
	l.logWithFields(logrus.DebugLevel, msg, args...)
}

func (l *logger) Info(msg string, args ...any) {
	l.logWithFields(logrus.InfoLevel, msg, args...)
}

func (l *logger) Warn(msg string, args ...any) {
	l.logWithFields(logrus.WarnLevel, msg, args...)
}

func (l *logger) Error(msg string, args ...any) {
	l.logWithFields(logrus.ErrorLevel, msg, args...)
}

func (l *logger) StartOperation(name string) OperationLogger {
	return &operationLogger{
		name:      name,
		startTime: time.Now(),
		parent:    l,
	}
}

// WithFields creates a logger carrying structured fields
func (l *logger) WithFields(fields map[string]interface{}) Logger {
	return &logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithField creates a logger carrying a single structured field
func (l *logger) WithField(key string, value interface{}) Logger {
	return &logger{entry: l.entry.WithField(key, value)}
}

func (ol *operationLogger) Update(msg string, args ...any) {
	ol.parent.Info(fmt.Sprintf("[%s] %s", ol.name, msg),
		append(args, "elapsed", time.Since(ol.startTime).String())...)
}

func (ol *operationLogger) Complete(msg string, args ...any) {
	ol.parent.Info(fmt.Sprintf("[%s] COMPLETED: %s", ol.name, msg),
		append(args, "duration", FormatDuration(time.Since(ol.startTime)))...)
}

func (ol *operationLogger) Fail(msg string, args ...any) {
	ol.parent.Error(fmt.Sprintf("[%s] FAILED: %s", ol.name, msg),
		append(args, "duration", FormatDuration(time.Since(ol.startTime)))...)
}

// logWithFields forwards a message and key/value pairs to logrus.
// Disabled levels return before any field allocation.
func (l *logger) logWithFields(level logrus.Level, msg string, args ...any) {
	if l == nil || l.entry == nil {
		return
	}
	if !l.entry.Logger.IsLevelEnabled(level) {
		return
	}

	entry := l.entry
	if fields := fieldsFromArgs(args...); fields != nil {
		entry = entry.WithFields(fields)
	}

	switch level {
	case logrus.DebugLevel:
		entry.Debug(msg)
	case logrus.WarnLevel:
		entry.Warn(msg)
	case logrus.ErrorLevel:
		entry.Error(msg)
	default:
		entry.Info(msg)
	}
}

// fieldsFromArgs converts variadic key/value pairs into logrus fields
func fieldsFromArgs(args ...any) logrus.Fields {
	if len(args) == 0 {
		return nil
	}

	fields := make(logrus.Fields, len(args)/2+1)
	for i := 0; i < len(args); {
		if i+1 < len(args) {
			if key, ok := args[i].(string); ok {
				fields[key] = args[i+1]
				i += 2
				continue
			}
		}
		fields[fmt.Sprintf("arg%d", i)] = args[i]
		i++
	}
	return fields
}

// FormatDuration formats a duration for humans
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm %ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

// CleanFormatter renders entries as `LEVEL [timestamp] message key=value`.
// Only fields useful on a terminal are printed.
type CleanFormatter struct {
	levelStrings     map[logrus.Level]string
	levelStringsOnce sync.Once
}

var printedFields = map[string]bool{
	"engine":    true,
	"mode":      true,
	"tool":      true,
	"path":      true,
	"step":      true,
	"exit_code": true,
	"error":     true,
	"database":  true,
	"size":      true,
}

func (f *CleanFormatter) getLevelStrings() map[logrus.Level]string {
	f.levelStringsOnce.Do(func() {
		f.levelStrings = map[logrus.Level]string{
			logrus.DebugLevel: DebugColor.Sprint("DEBUG"),
			logrus.InfoLevel:  SuccessColor.Sprint("INFO "),
			logrus.WarnLevel:  WarnColor.Sprint("WARN "),
			logrus.ErrorLevel: ErrorColor.Sprint("ERROR"),
			logrus.FatalLevel: ErrorColor.Sprint("FATAL"),
			logrus.PanicLevel: ErrorColor.Sprint("PANIC"),
			logrus.TraceLevel: DebugColor.Sprint("TRACE"),
		}
	})
	return f.levelStrings
}

// Format implements logrus.Formatter
func (f *CleanFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	levelStrings := f.getLevelStrings()
	levelText, ok := levelStrings[entry.Level]
	if !ok {
		levelText = levelStrings[logrus.InfoLevel]
	}

	buf.WriteString(levelText)
	buf.WriteString(" [")
	buf.WriteString(entry.Time.Format("2006-01-02T15:04:05"))
	buf.WriteString("] ")
	buf.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := entry.Data[k]
			if k == "duration" {
				if str, ok := v.(string); ok {
					buf.WriteString(" (")
					buf.WriteString(str)
					buf.WriteByte(')')
				}
				continue
			}
			if !printedFields[k] {
				continue
			}
			buf.WriteByte(' ')
			buf.WriteString(k)
			buf.WriteByte('=')
			fmt.Fprint(buf, v)
		}
	}

	buf.WriteByte('\n')

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
