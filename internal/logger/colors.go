package logger

import (
	"fmt"
	"io"
)

// CLI output helpers for command results

// Success prints a green check followed by the message
func Success(w io.Writer, format string, args ...interface{}) {
	_, _ = SuccessColor.Fprint(w, "✓ ")
	fmt.Fprintln(w, fmt.Sprintf(format, args...))
}

// Failure prints a red cross followed by the message
func Failure(w io.Writer, format string, args ...interface{}) {
	_, _ = ErrorColor.Fprint(w, "✗ ")
	fmt.Fprintln(w, fmt.Sprintf(format, args...))
}

// Cancelled prints a yellow marker followed by the message
func Cancelled(w io.Writer, format string, args ...interface{}) {
	_, _ = WarnColor.Fprint(w, "⚠ ")
	fmt.Fprintln(w, fmt.Sprintf(format, args...))
}

// Line prints one dimmed tool output line
func Line(w io.Writer, line string) {
	_, _ = DimColor.Fprintln(w, line)
}
