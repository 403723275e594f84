// Package logging provides structured logging for datalink services. Local
// output goes through log/slog; entries can additionally be published to NATS
// for live monitoring of a running pipeline.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	// LogLevelDebug represents debug-level logs
	LogLevelDebug LogLevel = "DEBUG"
	// LogLevelInfo represents informational logs
	LogLevelInfo LogLevel = "INFO"
	// LogLevelWarn represents warning logs
	LogLevelWarn LogLevel = "WARN"
	// LogLevelError represents error logs
	LogLevelError LogLevel = "ERROR"
)

// LogEntry represents a structured log entry that can be published to NATS
// and consumed by monitoring tooling.
type LogEntry struct {
	Timestamp string   `json:"timestamp"` // RFC3339 format
	Level     LogLevel `json:"level"`
	Service   string   `json:"service"`
	Message   string   `json:"message"`
	Stack     string   `json:"stack,omitempty"` // Error details for error entries
}

// Logger provides structured logging for a single service (dispatcher, cache,
// learner, synthesizer, connector). It wraps a standard slog.Logger for local
// logging while optionally publishing entries to NATS for remote consumption.
type Logger struct {
	serviceName string
	nc          *nats.Conn
	logger      *slog.Logger
	enabled     bool // whether NATS publishing is enabled
}

// NewLogger creates a new service logger. Pass a nil NATS connection to
// disable publishing; local slog output still works.
func NewLogger(serviceName string, nc *nats.Conn, logger *slog.Logger) *Logger {
	return &Logger{
		serviceName: serviceName,
		nc:          nc,
		logger:      logger,
		enabled:     nc != nil,
	}
}

// Debug logs a debug-level message
func (sl *Logger) Debug(msg string) {
	sl.DebugContext(context.Background(), msg)
}

// Info logs an info-level message
func (sl *Logger) Info(msg string) {
	sl.InfoContext(context.Background(), msg)
}

// Warn logs a warning-level message
func (sl *Logger) Warn(msg string) {
	sl.WarnContext(context.Background(), msg)
}

// Error logs an error-level message with optional error details
func (sl *Logger) Error(msg string, err error) {
	sl.ErrorContext(context.Background(), msg, err)
}

// DebugContext logs a debug-level message with context
func (sl *Logger) DebugContext(ctx context.Context, msg string) {
	sl.logWithContext(ctx, LogLevelDebug, msg, "")
	if sl.logger != nil {
		sl.logger.Debug(msg, "service", sl.serviceName)
	}
}

// InfoContext logs an info-level message with context
func (sl *Logger) InfoContext(ctx context.Context, msg string) {
	sl.logWithContext(ctx, LogLevelInfo, msg, "")
	if sl.logger != nil {
		sl.logger.Info(msg, "service", sl.serviceName)
	}
}

// WarnContext logs a warning-level message with context
func (sl *Logger) WarnContext(ctx context.Context, msg string) {
	sl.logWithContext(ctx, LogLevelWarn, msg, "")
	if sl.logger != nil {
		sl.logger.Warn(msg, "service", sl.serviceName)
	}
}

// ErrorContext logs an error-level message with optional error details and context
func (sl *Logger) ErrorContext(ctx context.Context, msg string, err error) {
	stack := ""
	if err != nil {
		// Include error details as stack trace
		stack = fmt.Sprintf("%+v", err)
	}
	sl.logWithContext(ctx, LogLevelError, msg, stack)
	if sl.logger != nil {
		sl.logger.Error(msg, "service", sl.serviceName, "error", err)
	}
}

// logWithContext publishes a log entry to NATS with context cancellation support
func (sl *Logger) logWithContext(ctx context.Context, level LogLevel, message, stack string) {
	if !sl.enabled {
		return
	}

	// Check context before performing I/O
	select {
	case <-ctx.Done():
		return
	default:
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Service:   sl.serviceName,
		Message:   message,
		Stack:     stack,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		// Failed to marshal - log locally but don't fail
		if sl.logger != nil {
			sl.logger.Error("Failed to marshal log entry", "error", err)
		}
		return
	}

	// Double-check NATS connection is still available (race condition fix)
	// This prevents nil pointer dereference if nc is set to nil after enabled check
	nc := sl.nc
	if nc == nil {
		return
	}

	// Check context again before network I/O
	select {
	case <-ctx.Done():
		return
	default:
	}

	// Publish to NATS subject: datalink.logs.{service}
	subject := fmt.Sprintf("datalink.logs.%s", sl.serviceName)
	if err := nc.Publish(subject, data); err != nil {
		// Failed to publish - log locally but don't fail
		if sl.logger != nil {
			sl.logger.Error("Failed to publish log to NATS", "error", err, "subject", subject)
		}
	}
}
