package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes human-readable logs to stderr. Stdout is reserved for
// report, release, deploy and populate output.
type ConsoleLogger struct {
	slog *slog.Logger
}

// NewWriterLogger creates a logger writing to w, as text records or, when
// json is set, JSON records.
func NewWriterLogger(w io.Writer, level string, json bool) *ConsoleLogger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &ConsoleLogger{slog: slog.New(handler)}
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	c.log(slog.LevelInfo, msg, args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	c.log(slog.LevelError, msg, args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	c.log(slog.LevelDebug, msg, args...)
}

func (c *ConsoleLogger) log(level slog.Level, msg string, args ...interface{}) {
	ctx := context.Background()
	if !c.slog.Enabled(ctx, level) {
		return
	}
	c.slog.Log(ctx, level, fmt.Sprintf(msg, args...))
}

// SilentLogger discards all log messages.
// Used by the MCP server, where stdout and stderr belong to the protocol client.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
