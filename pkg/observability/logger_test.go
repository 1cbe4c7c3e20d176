package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// logEntry mirrors the slog JSON handler output: level and msg are fixed
// keys, everything else lands in Fields.
type logEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

func parseEntry(t *testing.T, data []byte) logEntry {
	t.Helper()

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}

	entry := logEntry{Fields: make(map[string]interface{})}
	for k, v := range raw {
		switch k {
		case "level":
			entry.Level, _ = v.(string)
		case "msg":
			entry.Message, _ = v.(string)
		case "time":
		default:
			entry.Fields[k] = v
		}
	}
	return entry
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("debug not logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		if buf.Len() > 0 {
			t.Error("Debug message should not be logged at Info level")
		}
	})

	t.Run("info logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Info("info message")
		if buf.Len() == 0 {
			t.Error("Info message should be logged at Info level")
		}

		entry := parseEntry(t, buf.Bytes())
		if entry.Level != "INFO" {
			t.Errorf("Expected level INFO, got %s", entry.Level)
		}
		if entry.Message != "info message" {
			t.Errorf("Expected message 'info message', got %s", entry.Message)
		}
	})

	t.Run("warn logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Warn("warn message")
		if buf.Len() == 0 {
			t.Error("Warn message should be logged at Info level")
		}
	})

	t.Run("error logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Error("error message")
		if buf.Len() == 0 {
			t.Error("Error message should be logged at Info level")
		}
	})
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("session_id", "sess_123").Info("message")

	entry := parseEntry(t, buf.Bytes())
	if entry.Fields["session_id"] != "sess_123" {
		t.Errorf("Expected field 'session_id' to be 'sess_123', got %v", entry.Fields["session_id"])
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	fields := map[string]interface{}{
		"operation": "touch_session",
		"attempt":   2,
	}
	logger.WithFields(fields).Info("message")

	entry := parseEntry(t, buf.Bytes())
	if entry.Fields["operation"] != "touch_session" {
		t.Errorf("Expected field 'operation' to be 'touch_session', got %v", entry.Fields["operation"])
	}
	if entry.Fields["attempt"] != float64(2) {
		t.Errorf("Expected field 'attempt' to be 2, got %v", entry.Fields["attempt"])
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(errors.New("boom")).Error("something went wrong")

	entry := parseEntry(t, buf.Bytes())
	if entry.Fields["error"] != "boom" {
		t.Errorf("Expected error field 'boom', got %v", entry.Fields["error"])
	}

	if same := logger.WithError(nil); same != logger {
		t.Error("WithError(nil) should return the same logger")
	}
}

func TestLogger_Formatters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("Debugf", func(t *testing.T) {
		buf.Reset()
		debugLogger := NewLogger(DebugLevel, &buf)
		debugLogger.Debugf("test %s %d", "string", 42)

		entry := parseEntry(t, buf.Bytes())
		if entry.Message != "test string 42" {
			t.Errorf("Expected formatted message, got %s", entry.Message)
		}
	})

	t.Run("Infof", func(t *testing.T) {
		buf.Reset()
		logger.Infof("test %d", 123)

		entry := parseEntry(t, buf.Bytes())
		if entry.Message != "test 123" {
			t.Errorf("Expected formatted message, got %s", entry.Message)
		}
	})

	t.Run("Warnf", func(t *testing.T) {
		buf.Reset()
		logger.Warnf("warning %s", "test")

		entry := parseEntry(t, buf.Bytes())
		if entry.Message != "warning test" {
			t.Errorf("Expected formatted message, got %s", entry.Message)
		}
	})

	t.Run("Errorf", func(t *testing.T) {
		buf.Reset()
		logger.Errorf("error %v", "test")

		entry := parseEntry(t, buf.Bytes())
		if entry.Message != "error test" {
			t.Errorf("Expected formatted message, got %s", entry.Message)
		}
	})
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("should go nowhere")
	logger.WithField("key", "value").Info("also nowhere")
}

func TestContextHelpers(t *testing.T) {
	t.Run("RequestID", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithRequestID(ctx, "req-123")

		if got := GetRequestID(ctx); got != "req-123" {
			t.Errorf("Expected request ID 'req-123', got %s", got)
		}
	})

	t.Run("SessionID", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithSessionID(ctx, "sess_456")

		if got := GetSessionID(ctx); got != "sess_456" {
			t.Errorf("Expected session ID 'sess_456', got %s", got)
		}
	})

	t.Run("Logger", func(t *testing.T) {
		ctx := context.Background()
		logger := NewLogger(InfoLevel, nil)
		ctx = WithLogger(ctx, logger)

		if got := GetLogger(ctx); got != logger {
			t.Error("Expected to retrieve logger from context")
		}
	})

	t.Run("FromContext", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		ctx := context.Background()
		ctx = WithLogger(ctx, logger)
		ctx = WithRequestID(ctx, "req-123")
		ctx = WithSessionID(ctx, "sess_456")

		contextLogger := FromContext(ctx)
		contextLogger.Info("test message")

		entry := parseEntry(t, buf.Bytes())
		if entry.Fields["request_id"] != "req-123" {
			t.Errorf("Expected request_id 'req-123', got %v", entry.Fields["request_id"])
		}
		if entry.Fields["session_id"] != "sess_456" {
			t.Errorf("Expected session_id 'sess_456', got %v", entry.Fields["session_id"])
		}
	})
}

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("LogLevel.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
