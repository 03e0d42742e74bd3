package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWriterLogger_FormatsAndFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, "info", false)

	log.Info("processing %s", "UKHomeOffice/api")
	log.Debug("hidden %d", 1)
	log.Error("failed: %v", "boom")

	out := buf.String()
	if !strings.Contains(out, "processing UKHomeOffice/api") {
		t.Errorf("output missing info line: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line logged at info level: %q", out)
	}
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "failed: boom") {
		t.Errorf("output missing error line: %q", out)
	}
}

func TestWriterLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, "debug", true)

	log.Debug("leaf %s", "api")

	if !strings.Contains(buf.String(), `"msg":"leaf api"`) {
		t.Errorf("JSON output = %q", buf.String())
	}
}

func TestSilentLogger(t *testing.T) {
	var l Logger = NewSilentLogger()
	l.Info("x")
	l.Error("y")
	l.Debug("z")
}
