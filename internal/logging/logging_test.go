package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)
	logger.SetLevel(LevelInfo)

	logger.Debug("debug message")
	if buf.Len() > 0 {
		t.Error("debug message should be filtered at INFO level")
	}

	logger.Info("info message")
	if !strings.Contains(buf.String(), "INFO") || !strings.Contains(buf.String(), "info message") {
		t.Errorf("unexpected line: %q", buf.String())
	}
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	base := New()
	base.SetOutput(&buf)
	logger := base.WithComponent("executor")

	logger.Info("test message")

	if !strings.Contains(buf.String(), "[executor]") {
		t.Errorf("expected component tag, got %q", buf.String())
	}
}

func TestLoggerFieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)

	logger.Info("msg", map[string]interface{}{"zebra": 1, "alpha": "two"})

	line := buf.String()
	if !strings.Contains(line, "alpha=two") || !strings.Contains(line, "zebra=1") {
		t.Fatalf("fields missing: %q", line)
	}
	if strings.Index(line, "alpha=") > strings.Index(line, "zebra=") {
		t.Errorf("fields not sorted: %q", line)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToolResultLogsErrorsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)

	logger.ToolResult("web_search", time.Millisecond, errors.New("backend down"))

	line := buf.String()
	if !strings.Contains(line, "ERROR") || !strings.Contains(line, "tool_error") {
		t.Errorf("expected error-level tool_error line, got %q", line)
	}
	if !strings.Contains(line, "backend down") {
		t.Errorf("expected error detail, got %q", line)
	}
}
