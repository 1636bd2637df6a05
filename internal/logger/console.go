// Package logger provides leveled console logging for analysis runs.
//
// Output lines are prefixed with [HH:MM:SS] timestamps and a level tag. Level
// tags are colorized when the writer is a terminal. Implementations are safe
// for concurrent use so the parallel loader can log from worker goroutines.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger is the logging surface the analysis components depend on
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogSummary(summary RunSummary)
}

// RunSummary describes the outcome of one analysis run
type RunSummary struct {
	Command         string
	FilesMatched    int
	FilesLoaded     int
	SkippedFiles    int
	Records         int
	SkippedRecords  int
	SchemaFallbacks int
	Anomalies       int
	Outputs         []string
	Duration        time.Duration
}

// ConsoleLogger logs run progress to a writer with timestamps and level filtering.
// A nil writer silently discards messages.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// Valid levels: trace, debug, info, warn, error (case-insensitive); anything
// else falls back to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    NormalizeLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is a TTY that should receive ANSI colors.
// NO_COLOR (honored by the color package) disables colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NormalizeLevel lowercases and validates a log level, defaulting to "info"
func NormalizeLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if _, ok := levelValues[normalized]; ok {
		return normalized
	}
	return "info"
}

// ValidLevel reports whether level names a known log level
func ValidLevel(level string) bool {
	_, ok := levelValues[strings.ToLower(strings.TrimSpace(level))]
	return ok
}

var levelValues = map[string]int{
	"trace": levelTrace,
	"debug": levelDebug,
	"info":  levelInfo,
	"warn":  levelWarn,
	"error": levelError,
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return levelValues[messageLevel] >= levelValues[cl.logLevel]
}

// Level returns the configured minimum level
func (cl *ConsoleLogger) Level() string {
	return cl.logLevel
}

// LogTrace logs a trace-level message.
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	tag := level
	if cl.colorOutput {
		tag = levelColor(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, tag, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "INFO":
		return color.New(color.FgBlue)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

// LogSummary logs the run summary at INFO level.
// Skip counts are highlighted so data-quality issues are never silent.
func (cl *ConsoleLogger) LogSummary(s RunSummary) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	paint := func(c color.Attribute, format string, args ...interface{}) string {
		text := fmt.Sprintf(format, args...)
		if cl.colorOutput {
			return color.New(c).Sprint(text)
		}
		return text
	}
	issue := func(format string, n int) string {
		if n > 0 {
			return paint(color.FgYellow, format, n)
		}
		return fmt.Sprintf(format, n)
	}

	header := "=== Run Summary ==="
	if s.Command != "" {
		header = fmt.Sprintf("=== %s Summary ===", s.Command)
	}
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, header)
	fmt.Fprintf(&b, "[%s] Files: %d matched, %d loaded\n", ts, s.FilesMatched, s.FilesLoaded)
	fmt.Fprintf(&b, "[%s] %s\n", ts, issue("Skipped files: %d", s.SkippedFiles))
	fmt.Fprintf(&b, "[%s] %s\n", ts, paint(color.FgGreen, "Records: %d", s.Records))
	fmt.Fprintf(&b, "[%s] %s\n", ts, issue("Skipped records: %d", s.SkippedRecords))
	fmt.Fprintf(&b, "[%s] %s\n", ts, issue("Labels defaulted to NULL: %d", s.SchemaFallbacks))
	if s.Anomalies > 0 {
		fmt.Fprintf(&b, "[%s] %s\n", ts, issue("Turn gaps: %d", s.Anomalies))
	}
	for _, out := range s.Outputs {
		fmt.Fprintf(&b, "[%s] Wrote %s\n", ts, out)
	}
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(s.Duration))

	io.WriteString(cl.writer, b.String())
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration renders sub-second runs in milliseconds and longer runs in seconds
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// NoOpLogger is a Logger implementation that discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(message string) {}
func (n *NoOpLogger) LogDebug(message string) {}
func (n *NoOpLogger) LogInfo(message string) {}
func (n *NoOpLogger) LogWarn(message string) {}
func (n *NoOpLogger) LogError(message string) {}
func (n *NoOpLogger) LogSummary(summary RunSummary) {}
