package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"silent", SILENT},
		{"ERROR", ERROR},
		{"warn", WARN},
		{"warning", WARN},
		{"Info", INFO},
		{"debug", DEBUG},
		{"bogus", INFO},
		{"", INFO},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLogLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("test", &Config{Level: WARN, Output: &buf})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("Messages below WARN leaked through: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("Messages at or above WARN missing: %s", out)
	}
}

func TestLogger_KeyValueContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("reorder", &Config{Level: DEBUG, Output: &buf})

	logger.Info("Frame admitted", "tid", 3, "seq", 100)

	out := buf.String()
	for _, fragment := range []string{"reorder", "Frame admitted", "tid", "seq", "100"} {
		if !strings.Contains(out, fragment) {
			t.Errorf("Log output missing %q: %s", fragment, out)
		}
	}
}

func TestLogger_SilentProducesNothing(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("test", &Config{Level: SILENT, Output: &buf})

	logger.Error("should not appear")
	if buf.Len() != 0 {
		t.Errorf("SILENT logger wrote output: %s", buf.String())
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("test", &Config{Level: ERROR, Output: &buf})

	logger.Info("before")
	logger.SetLevel(INFO)
	logger.Info("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Error("INFO message logged while level was ERROR")
	}
	if !strings.Contains(out, "after") {
		t.Error("INFO message missing after raising the level")
	}
	if logger.GetLevel() != INFO {
		t.Errorf("GetLevel() = %v, expected INFO", logger.GetLevel())
	}
}

func TestGetComponentLogger_Caching(t *testing.T) {
	a := GetComponentLogger("cache-test")
	b := GetComponentLogger("cache-test")
	if a != b {
		t.Error("Component loggers should be cached per component")
	}

	other := GetComponentLogger("cache-test-other")
	if a == other {
		t.Error("Distinct components must not share a logger")
	}
}
