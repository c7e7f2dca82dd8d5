package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Options{Level: "debug", Output: buf})

	logger.Debug("test message", Fields{"key": "value"})
	output := buf.String()

	if !strings.Contains(output, "level=debug") {
		t.Errorf("expected level=debug in output, got: %s", output)
	}
	if !strings.Contains(output, "test message") || !strings.Contains(output, "key=value") {
		t.Errorf("expected message and fields in output, got: %s", output)
	}
}

func TestLoggerFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Options{Level: "warn", Output: buf})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Errorf("debug should be filtered, got: %s", output)
	}
	if strings.Contains(output, "info message") {
		t.Errorf("info should be filtered, got: %s", output)
	}
	if !strings.Contains(output, "warn message") {
		t.Errorf("warn should be present, got: %s", output)
	}
}

func TestDebugFlagForcesDebugLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Options{Level: "error", Output: buf, Debug: true})

	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected debug flag to enable debug output, got: %s", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Options{Level: "info", Format: "json", Output: buf})

	logger.Info("structured", Fields{"route": "mcp"})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "structured" || line["route"] != "mcp" {
		t.Errorf("unexpected JSON line: %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"WARNING", LevelWarn},
		{"error", LevelError},
		{"invalid", LevelInfo},
		{"", LevelInfo},
	}

	for _, test := range tests {
		if got := ParseLevel(test.level); got != test.expected {
			t.Errorf("level %q: expected %s, got %s", test.level, test.expected, got)
		}
	}
}

func TestNopDropsEverything(t *testing.T) {
	logger := Nop()
	if logger.Enabled(LevelError) {
		t.Errorf("expected nop logger to be disabled at every level")
	}
	logger.Error("ignored")
}

func TestSlogBridge(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Options{Level: "info", Output: buf})
	sl := Slog(logger).With("component", "sdk").WithGroup("req")

	sl.Debug("hidden")
	sl.Info("from slog", "id", 7)

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("expected slog debug to respect the logger level, got: %s", output)
	}
	if !strings.Contains(output, "from slog") || !strings.Contains(output, "component=sdk") || !strings.Contains(output, "req.id=7") {
		t.Errorf("expected message, attrs and grouped attrs, got: %s", output)
	}
}
