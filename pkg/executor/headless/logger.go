package headless

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// LogLevel represents the logging verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only critical information (errors, warnings, final summary)
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows standard execution progress (default)
	LogLevelNormal
	// LogLevelVerbose shows detailed execution information
	LogLevelVerbose
	// LogLevelDebug shows all internal details for debugging
	LogLevelDebug
)

// Logger prints run progress for people watching a headless run. The JSON
// report goes to a separate writer.
type Logger struct {
	level  LogLevel
	writer io.Writer

	// ANSI color codes
	colorReset     string
	colorGreen     string
	colorCyan      string
	colorSalmon    string
	colorYellow    string
	colorRed       string
	colorWhite     string
	colorGray      string
	colorBoldGreen string
	colorBoldRed   string
	colorBoldWhite string

	// Execution state
	startTime time.Time
	stepCount int
}

// NewLogger creates a new logger with the specified level writing to w.
// A nil w means stderr.
func NewLogger(level LogLevel, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		level:          level,
		writer:         w,
		colorReset:     "\033[0m",
		colorGreen:     "\033[32m",
		colorCyan:      "\033[36m",
		colorSalmon:    "\033[38;5;217m", // Salmon pink #FFB3BA
		colorYellow:    "\033[33m",
		colorRed:       "\033[31m",
		colorWhite:     "\033[37m",
		colorGray:      "\033[90m",
		colorBoldGreen: "\033[1;32m",
		colorBoldRed:   "\033[1;31m",
		colorBoldWhite: "\033[1;37m",
		startTime:      time.Now(),
	}
}

// Header prints a prominent header message
func (l *Logger) Header(message string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintf(l.writer, "\n%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
		fmt.Fprintf(l.writer, "%s  %s%s\n", l.colorBoldWhite, message, l.colorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
	}
}

// Section prints a section divider
func (l *Logger) Section(title string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
		fmt.Fprintf(l.writer, "%s▶ %s%s\n", l.colorCyan, title, l.colorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", l.colorGray, strings.Repeat("─", 50), l.colorReset)
	}
}

// Step prints a numbered step in the execution
func (l *Logger) Step(message string) {
	if l.level >= LogLevelNormal {
		l.stepCount++
		fmt.Fprintf(l.writer, "\n%s[%d] %s%s\n", l.colorCyan, l.stepCount, message, l.colorReset)
	}
}

// Successf prints a success message with checkmark
func (l *Logger) Successf(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s✓ %s%s\n", l.colorBoldGreen, msg, l.colorReset)
	}
}

// Infof prints an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s%s%s\n", l.colorSalmon, msg, l.colorReset)
	}
}

// Warningf prints a warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	if l.level >= LogLevelQuiet {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s⚠ Warning: %s%s\n", l.colorYellow, msg, l.colorReset)
	}
}

// Errorf prints an error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level >= LogLevelQuiet {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s✗ Error: %s%s\n", l.colorBoldRed, msg, l.colorReset)
	}
}

// Verbosef prints detailed information (only in verbose mode)
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.level >= LogLevelVerbose {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s→ %s%s\n", l.colorGray, msg, l.colorReset)
	}
}

// ToolCall logs a tool execution with formatting based on verbosity
func (l *Logger) ToolCall(toolName string, count int) {
	switch l.level {
	case LogLevelQuiet:
		// Don't log individual tool calls in quiet mode
	case LogLevelNormal:
		// Show compact progress indicator
		fmt.Fprintf(l.writer, "%s  • %s (#%d)%s\n", l.colorGray, toolName, count, l.colorReset)
	case LogLevelVerbose, LogLevelDebug:
		// Show detailed information
		fmt.Fprintf(l.writer, "%s  🔧 Tool: %s (call #%d)%s\n", l.colorCyan, toolName, count, l.colorReset)
	}
}

// Reply logs the agent's reply to a turn
func (l *Logger) Reply(reply string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintf(l.writer, "%s  Recall: %s%s\n", l.colorWhite, reply, l.colorReset)
	}
}

// Attachment logs an attachment read into or skipped from a turn
func (l *Logger) Attachment(name string, loaded bool, detail string) {
	if l.level < LogLevelVerbose {
		return
	}
	if loaded {
		fmt.Fprintf(l.writer, "%s  📎 %s (%s)%s\n", l.colorGray, name, detail, l.colorReset)
		return
	}
	fmt.Fprintf(l.writer, "%s  📎 skipped %s: %s%s\n", l.colorYellow, name, detail, l.colorReset)
}

// MemoryUpdate logs a long-term memory reconciliation
func (l *Logger) MemoryUpdate(added, updated, deleted, retrieved int) {
	if l.level >= LogLevelVerbose {
		fmt.Fprintf(l.writer, "%s  🧠 Memory: +%d ~%d -%d, %d recalled%s\n", l.colorGray, added, updated, deleted, retrieved, l.colorReset)
	}
}

// Summary prints a final run summary
func (l *Logger) Summary(report *Report) {
	if l.level < LogLevelQuiet {
		return
	}

	l.printSummaryHeader()
	l.printStatus(report.Status)
	l.printNameAndDuration(report)
	l.printMetrics(report)
	l.printThread(report)
	l.printMemories(report)
	l.printError(report)
	l.printSummaryFooter()
}

func (l *Logger) printSummaryHeader() {
	fmt.Fprintln(l.writer)
	fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
	fmt.Fprintf(l.writer, "%s  RUN SUMMARY%s\n", l.colorBoldWhite, l.colorReset)
	fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
}

func (l *Logger) printStatus(status string) {
	fmt.Fprint(l.writer, "  Status: ")
	switch status {
	case statusSuccess:
		fmt.Fprintf(l.writer, "%s✓ SUCCESS%s\n", l.colorBoldGreen, l.colorReset)
	case statusPartialSuccess:
		fmt.Fprintf(l.writer, "%s⚠ PARTIAL SUCCESS%s\n", l.colorYellow, l.colorReset)
	case statusFailed:
		fmt.Fprintf(l.writer, "%s✗ FAILED%s\n", l.colorBoldRed, l.colorReset)
	default:
		fmt.Fprintln(l.writer, status)
	}
}

func (l *Logger) printNameAndDuration(report *Report) {
	fmt.Fprintf(l.writer, "  Script: %s\n", report.Name)
	fmt.Fprintf(l.writer, "  Duration: %s\n", report.Duration.Round(time.Second))
}

func (l *Logger) printMetrics(report *Report) {
	m := report.Metrics
	fmt.Fprintf(l.writer, "\n  📊 Metrics:\n")
	fmt.Fprintf(l.writer, "    Turns: %d (%d failed)\n", m.Turns, m.FailedTurns)
	fmt.Fprintf(l.writer, "    Tool calls: %d\n", m.ToolCalls)
	if m.TokensUsed > 0 {
		fmt.Fprintf(l.writer, "    Tokens used: %s\n", formatNumber(m.TokensUsed))
	}
	if m.Summarized > 0 {
		fmt.Fprintf(l.writer, "    Messages summarized: %d\n", m.Summarized)
	}
}

func (l *Logger) printThread(report *Report) {
	if report.Thread == nil {
		return
	}
	fmt.Fprintf(l.writer, "\n  💾 Thread: %s (%d messages)\n", report.Thread.Name, report.Thread.Messages)
}

func (l *Logger) printMemories(report *Report) {
	fmt.Fprintf(l.writer, "\n  🧠 Memories: %d\n", len(report.Memories))
	if l.level < LogLevelVerbose {
		return
	}
	for _, m := range report.Memories {
		fmt.Fprintf(l.writer, "    • %s (%s)\n", m.Content, m.Category)
	}
}

func (l *Logger) printError(report *Report) {
	if report.Error == "" {
		return
	}

	fmt.Fprintln(l.writer)
	fmt.Fprintf(l.writer, "%s  Error Details:%s\n", l.colorBoldRed, l.colorReset)
	fmt.Fprintf(l.writer, "%s    %s%s\n", l.colorRed, report.Error, l.colorReset)
}

func (l *Logger) printSummaryFooter() {
	fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
	fmt.Fprintln(l.writer)
}

// parseLogLevel converts a string log level to LogLevel type
func parseLogLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "normal":
		return LogLevelNormal
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}

// formatNumber formats large numbers with commas for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}
