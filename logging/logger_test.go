package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name        string
		serviceName string
		nc          *nats.Conn
		wantEnabled bool
	}{
		{
			name:        "with NATS connection",
			serviceName: "dispatcher",
			nc:          &nats.Conn{}, // Mock connection
			wantEnabled: true,
		},
		{
			name:        "without NATS connection",
			serviceName: "dispatcher",
			nc:          nil,
			wantEnabled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sl := NewLogger(tt.serviceName, tt.nc, logger)

			assert.Equal(t, tt.serviceName, sl.serviceName)
			assert.Equal(t, tt.wantEnabled, sl.enabled)
			assert.Equal(t, logger, sl.logger)
		})
	}
}

func TestLogger_DisabledPublishing(t *testing.T) {
	// Create logger without NATS connection
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	sl := NewLogger("dispatcher", nil, logger)

	assert.False(t, sl.enabled, "Logger should be disabled without NATS")

	// These should not panic even without NATS connection
	sl.Debug("debug message")
	sl.Info("info message")
	sl.Warn("warning message")
	sl.Error("error message", fmt.Errorf("test error"))
}

func TestLogger_LocalOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sl := NewLogger("learner", nil, logger)

	sl.Debug("profiling batch")
	sl.Info("schema proposed")
	sl.Warn("low confidence field")
	sl.Error("source unreadable", fmt.Errorf("read failed"))

	output := buf.String()
	assert.Contains(t, output, "profiling batch")
	assert.Contains(t, output, "schema proposed")
	assert.Contains(t, output, "low confidence field")
	assert.Contains(t, output, "source unreadable")
	assert.Contains(t, output, "service=learner")
	assert.Contains(t, output, "read failed")
}

func TestLogger_NilSlogLogger(t *testing.T) {
	// Logger with neither NATS nor slog must not panic
	sl := NewLogger("cache", nil, nil)

	sl.Debug("debug message")
	sl.Info("info message")
	sl.Warn("warning message")
	sl.Error("error message", fmt.Errorf("test error"))
}

func TestLogEntry_JSONMarshaling(t *testing.T) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     LogLevelInfo,
		Service:   "dispatcher",
		Message:   "test message",
		Stack:     "optional stack trace",
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded LogEntry
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, entry.Timestamp, decoded.Timestamp)
	assert.Equal(t, entry.Level, decoded.Level)
	assert.Equal(t, entry.Service, decoded.Service)
	assert.Equal(t, entry.Message, decoded.Message)
	assert.Equal(t, entry.Stack, decoded.Stack)
}

func TestLogEntry_JSONMarshaling_NoStack(t *testing.T) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     LogLevelInfo,
		Service:   "dispatcher",
		Message:   "test message",
		// Stack omitted
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	// Verify stack is omitted in JSON
	var raw map[string]interface{}
	err = json.Unmarshal(data, &raw)
	require.NoError(t, err)

	_, hasStack := raw["stack"]
	assert.False(t, hasStack, "Empty stack should be omitted from JSON")
}
