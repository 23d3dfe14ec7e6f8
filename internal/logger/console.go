// Package logger provides logging implementations for greenlight review runs.
//
// The logger package offers structured logging of review progress at the
// iteration and summary levels. Implementations are thread-safe and support
// various output destinations (console, file, etc.).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/greenlight/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs review progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps for tracking review flow.
// It supports log level filtering to control message verbosity.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// logLevel determines the minimum log level for messages to be output.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
// Color output is automatically enabled when writing to os.Stdout or os.Stderr with TTY support.
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	// Normalize and validate log level
	normalizedLevel := normalizeLogLevel(logLevel)

	// Detect if we should use color output
	useColor := isTerminal(writer)

	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizedLevel,
		mutex:       sync.Mutex{},
		colorOutput: useColor,
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
// Returns true for os.Stdout and os.Stderr when they are TTYs.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}

	// Check if writer is os.Stdout or os.Stderr
	if w == os.Stdout || w == os.Stderr {
		// Use color library's built-in TTY detection
		// This will return false if NO_COLOR env var is set
		return !color.NoColor
	}

	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if validLevels[normalized] {
		return normalized
	}

	return "info" // Default level
}

// shouldLog checks if a message at the given level should be logged.
// Returns true if messageLevel >= configured logLevel.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	configuredLevel := logLevelToInt(cl.logLevel)
	msgLevel := logLevelToInt(messageLevel)
	return msgLevel >= configuredLevel
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo // Default to info if unknown
	}
}

// LogTrace logs a trace-level message (most verbose).
// Format: "[HH:MM:SS] [TRACE] <message>"
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
// Format: "[HH:MM:SS] [DEBUG] <message>"
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
// Format: "[HH:MM:SS] [WARN] <message>"
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
// Format: "[HH:MM:SS] [ERROR] <message>"
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}

	// Check if this level should be logged
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string

	if cl.colorOutput {
		// Format with colors
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		// Plain text format
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// decisionText returns the decision string, colorized for terminal output.
// approved is green, needs_work yellow, escalate red.
func decisionText(decision string, colorOutput bool) string {
	if !colorOutput {
		return decision
	}

	switch decision {
	case models.DecisionApproved:
		return color.New(color.FgGreen).Sprint(decision)
	case models.DecisionNeedsWork:
		return color.New(color.FgYellow).Sprint(decision)
	case models.DecisionEscalate:
		return color.New(color.FgRed).Sprint(decision)
	default:
		return decision
	}
}

// LogReviewResult logs the outcome of a single review iteration at DEBUG level.
// Format: "[HH:MM:SS] Review 2 (task-1): needs_work quality=0.64 gaps=3"
// Returns nil for successful logging, or an error if logging failed.
func (cl *ConsoleLogger) LogReviewResult(result models.ReviewResult) error {
	if cl.writer == nil {
		return nil
	}

	// Per-iteration logging is at DEBUG level
	if !cl.shouldLog("debug") {
		return nil
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	reviewInfo := fmt.Sprintf("Review %d (%s)", result.Iteration, result.TaskID)
	stats := fmt.Sprintf("quality=%.2f gaps=%d", result.QualityScore, len(result.Gaps))

	decision := decisionText(result.Decision, cl.colorOutput)
	message := fmt.Sprintf("[%s] %s: %s %s\n", ts, reviewInfo, decision, stats)

	_, err := cl.writer.Write([]byte(message))
	return err
}

// LogReviewSummary logs the summary of a full review run at INFO level.
// An empty reviews slice means review was bypassed for the task.
// Format: "[HH:MM:SS] === Review Summary ===\n[HH:MM:SS] Task: <id>\n[HH:MM:SS] Iterations: <n>\n[HH:MM:SS] Decision: <d>\n[HH:MM:SS] Quality: <q>\n[HH:MM:SS] Duration: <d>\n"
func (cl *ConsoleLogger) LogReviewSummary(taskID string, reviews []models.ReviewResult, duration time.Duration) {
	if cl.writer == nil {
		return
	}

	// Summary logging is at INFO level
	if !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	durationStr := formatDuration(duration)

	if len(reviews) == 0 {
		cl.writer.Write([]byte(fmt.Sprintf("[%s] Task %s: review bypassed (%s)\n", ts, taskID, durationStr)))
		return
	}

	last := reviews[len(reviews)-1]

	var output string

	if cl.colorOutput {
		// Colorized summary
		header := color.New(color.Bold).Sprint("=== Review Summary ===")
		output = fmt.Sprintf("[%s] %s\n", ts, header)
		output += fmt.Sprintf("[%s] Task: %s\n", ts, taskID)
		output += fmt.Sprintf("[%s] Iterations: %d\n", ts, len(reviews))
		output += fmt.Sprintf("[%s] Decision: %s\n", ts, decisionText(last.Decision, true))
		output += fmt.Sprintf("[%s] Quality: %.2f\n", ts, last.QualityScore)

		// Red for remaining gaps when any are critical
		if len(last.Gaps) > 0 {
			gapText := fmt.Sprintf("Gaps: %d (%d critical)", len(last.Gaps), last.CriticalGaps)
			if last.CriticalGaps > 0 {
				gapText = color.New(color.FgRed).Sprint(gapText)
			}
			output += fmt.Sprintf("[%s] %s\n", ts, gapText)
		}

		output += fmt.Sprintf("[%s] Duration: %s\n", ts, durationStr)

		if last.Decision != models.DecisionApproved && len(last.Gaps) > 0 {
			gapsHeader := color.New(color.FgRed).Sprint("Open gaps:")
			output += fmt.Sprintf("[%s] %s\n", ts, gapsHeader)
			for _, gap := range last.Gaps {
				severity := gap.Severity
				switch gap.Severity {
				case models.SeverityCritical:
					severity = color.New(color.FgRed).Sprint(gap.Severity)
				case models.SeverityMajor:
					severity = color.New(color.FgYellow).Sprint(gap.Severity)
				}
				output += fmt.Sprintf("[%s]   - [%s] %s\n", ts, severity, gap.Description)
			}
		}
	} else {
		// Plain text summary
		output = fmt.Sprintf("[%s] === Review Summary ===\n", ts)
		output += fmt.Sprintf("[%s] Task: %s\n", ts, taskID)
		output += fmt.Sprintf("[%s] Iterations: %d\n", ts, len(reviews))
		output += fmt.Sprintf("[%s] Decision: %s\n", ts, last.Decision)
		output += fmt.Sprintf("[%s] Quality: %.2f\n", ts, last.QualityScore)

		if len(last.Gaps) > 0 {
			output += fmt.Sprintf("[%s] Gaps: %d (%d critical)\n", ts, len(last.Gaps), last.CriticalGaps)
		}

		output += fmt.Sprintf("[%s] Duration: %s\n", ts, durationStr)

		if last.Decision != models.DecisionApproved && len(last.Gaps) > 0 {
			output += fmt.Sprintf("[%s] Open gaps:\n", ts)
			for _, gap := range last.Gaps {
				output += fmt.Sprintf("[%s]   - [%s] %s\n", ts, gap.Severity, gap.Description)
			}
		}
	}

	cl.writer.Write([]byte(output))
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// LogTrace is a no-op implementation.
func (n *NoOpLogger) LogTrace(message string) {
}

// LogDebug is a no-op implementation.
func (n *NoOpLogger) LogDebug(message string) {
}

// LogInfo is a no-op implementation.
func (n *NoOpLogger) LogInfo(message string) {
}

// LogWarn is a no-op implementation.
func (n *NoOpLogger) LogWarn(message string) {
}

// LogError is a no-op implementation.
func (n *NoOpLogger) LogError(message string) {
}

// LogReviewResult is a no-op implementation.
func (n *NoOpLogger) LogReviewResult(result models.ReviewResult) error {
	return nil
}

// LogReviewSummary is a no-op implementation.
func (n *NoOpLogger) LogReviewSummary(taskID string, reviews []models.ReviewResult, duration time.Duration) {
}
