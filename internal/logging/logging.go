// Package logging provides structured, component-tagged logging.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel maps a config string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes structured log lines to a single writer.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
}

// New creates a Logger writing to stdout at INFO level.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger tagged with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a field map as sorted key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

// log writes an entry in the format: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// RunStart logs the start of an agent run.
func (l *Logger) RunStart(runID, task string) {
	l.Info("run_start", map[string]interface{}{
		"run": runID,
	})
	_ = task // task content is never logged to avoid leaking prompts
}

// RunComplete logs the completion of an agent run.
func (l *Logger) RunComplete(runID string, duration time.Duration, success bool) {
	l.Info("run_complete", map[string]interface{}{
		"run":      runID,
		"duration": duration.String(),
		"success":  success,
	})
}

// StepStart logs the start of a loop step.
func (l *Logger) StepStart(runID string, step int) {
	l.Debug("step_start", map[string]interface{}{
		"run":  runID,
		"step": step,
	})
}

// StepComplete logs the completion of a loop step.
func (l *Logger) StepComplete(runID string, step int, toolCalls int) {
	l.Debug("step_complete", map[string]interface{}{
		"run":        runID,
		"step":       step,
		"tool_calls": toolCalls,
	})
}

// ToolResult logs a tool result. Arguments and result content are never
// logged to avoid leaking data.
func (l *Logger) ToolResult(tool string, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"tool":     tool,
		"duration": duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("tool_error", fields)
	} else {
		l.Debug("tool_result", fields)
	}
}

// SubAgentStart logs the start of a sub-agent execution.
func (l *Logger) SubAgentStart(id, name string) {
	l.Info("subagent_start", map[string]interface{}{
		"subagent": id,
		"name":     name,
	})
}

// SubAgentEnd logs the end of a sub-agent execution.
func (l *Logger) SubAgentEnd(id, name, status string, duration time.Duration) {
	l.Info("subagent_end", map[string]interface{}{
		"subagent": id,
		"name":     name,
		"status":   status,
		"duration": duration.String(),
	})
}

// Retry logs a retry attempt for a sub-agent.
func (l *Logger) Retry(id string, attempt int, delay time.Duration) {
	l.Warn("subagent_retry", map[string]interface{}{
		"subagent": id,
		"attempt":  attempt,
		"delay":    delay.String(),
	})
}
