package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) Entry {
	t.Helper()
	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to unmarshal log entry: %v", err)
	}
	return entry
}

func TestNewDefaults(t *testing.T) {
	logger := New(Config{})

	if logger.minLevel != LevelInfo {
		t.Errorf("expected minLevel INFO, got %s", logger.minLevel)
	}
	if logger.format != FormatJSON {
		t.Errorf("expected json format, got %s", logger.format)
	}
	if logger.withStack {
		t.Error("expected withStack to be false")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *Logger)
		level Level
	}{
		{"debug", func(l *Logger) { l.Debug("msg") }, LevelDebug},
		{"info", func(l *Logger) { l.Info("msg") }, LevelInfo},
		{"warn", func(l *Logger) { l.Warn("msg") }, LevelWarn},
		{"error", func(l *Logger) { l.Error("msg", errors.New("boom")) }, LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(New(Config{Output: &buf, MinLevel: LevelDebug, Component: "parser"}))

			entry := decode(t, &buf)
			if entry.Level != tt.level {
				t.Errorf("expected level %s, got %s", tt.level, entry.Level)
			}
			if entry.Component != "parser" {
				t.Errorf("expected component parser, got %s", entry.Component)
			}
		})
	}
}

func TestErrorCarriesMessageAndStack(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, MinLevel: LevelError, WithStack: true})

	logger.Error("fetch failed", errors.New("connection refused"))

	entry := decode(t, &buf)
	if entry.Error != "connection refused" {
		t.Errorf("expected error 'connection refused', got %s", entry.Error)
	}
	if len(entry.Stack) == 0 {
		t.Error("expected stack trace to be present")
	}
}

func TestMinLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, MinLevel: LevelWarn})

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() > 0 {
		t.Error("expected no output below WARN")
	}

	logger.Warn("warning message")
	if buf.Len() == 0 {
		t.Error("expected output for WARN")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})

	logger.WithFields(map[string]interface{}{
		"account_type": "xtream",
		"count":        12,
	}).Info("live channels fetched")

	entry := decode(t, &buf)
	if entry.Context["account_type"] != "xtream" {
		t.Errorf("expected account_type 'xtream', got %v", entry.Context["account_type"])
	}
	if entry.Context["count"] != float64(12) {
		t.Errorf("expected count 12, got %v", entry.Context["count"])
	}
}

func TestContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithAccountID(ctx, "acc-456")
	logger.WithFields(map[string]interface{}{"kind": "movie"}).InfoContext(ctx, "request received")

	entry := decode(t, &buf)
	if entry.Context["request_id"] != "req-123" {
		t.Errorf("expected request_id 'req-123', got %v", entry.Context["request_id"])
	}
	if entry.Context["account_id"] != "acc-456" {
		t.Errorf("expected account_id 'acc-456', got %v", entry.Context["account_id"])
	}
	if entry.Context["kind"] != "movie" {
		t.Errorf("expected kind 'movie', got %v", entry.Context["kind"])
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Format: FormatText, Component: "xtream"})

	logger.WithFields(map[string]interface{}{"b": 2, "a": 1}).Error("decode failed", errors.New("bad json"))

	line := strings.TrimSpace(buf.String())
	if json.Valid([]byte(line)) {
		t.Fatalf("expected text output, got JSON: %s", line)
	}
	for _, want := range []string{"ERROR [xtream] decode failed", "a=1 b=2", `error="bad json"`} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %q in %q", want, line)
		}
	}
}

func TestNamed(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf, Component: "app"})

	base.Named("catalog").Info("hello")

	entry := decode(t, &buf)
	if entry.Component != "catalog" {
		t.Errorf("expected component catalog, got %s", entry.Component)
	}
	if base.component != "app" {
		t.Error("Named must not modify the receiver")
	}
}

func TestNewWithLevel(t *testing.T) {
	tests := []struct {
		level         string
		expectedLevel Level
		expectStack   bool
	}{
		{"debug", LevelDebug, true},
		{"info", LevelInfo, false},
		{"WARN", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewWithLevel(tt.level, "json", "app")
			if logger.minLevel != tt.expectedLevel {
				t.Errorf("expected level %s, got %s", tt.expectedLevel, logger.minLevel)
			}
			if logger.withStack != tt.expectStack {
				t.Errorf("expected withStack %v, got %v", tt.expectStack, logger.withStack)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("TEXT") != FormatText {
		t.Error("expected text format")
	}
	if ParseFormat("") != FormatJSON {
		t.Error("expected json as the default format")
	}
}

func TestInitializeLoggersWithFormat(t *testing.T) {
	InitializeLoggersWithFormat("debug", "error", "text")
	t.Cleanup(func() {
		mu.Lock()
		appLogger = nil
		storeLogger = nil
		mu.Unlock()
	})

	app := AppLogger()
	store := StoreLogger()

	if app.minLevel != LevelDebug || app.format != FormatText || app.component != "app" {
		t.Errorf("unexpected app logger: %+v", app)
	}
	if store.minLevel != LevelError || store.component != "store" {
		t.Errorf("unexpected store logger: %+v", store)
	}
}

func TestSingletons(t *testing.T) {
	mu.Lock()
	appLogger = nil
	storeLogger = nil
	mu.Unlock()

	if AppLogger() != AppLogger() {
		t.Error("expected AppLogger to return the same instance")
	}
	if StoreLogger() != StoreLogger() {
		t.Error("expected StoreLogger to return the same instance")
	}

	custom := Discard()
	SetAppLogger(custom)
	if AppLogger() != custom {
		t.Error("expected custom logger to be set")
	}
	SetAppLogger(nil)
}

func TestGormAdapterTrace(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewGormAdapter(New(Config{Output: &buf, MinLevel: LevelDebug}), "debug")

	adapter.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM accounts", 2
	}, nil)

	entry := decode(t, &buf)
	if entry.Message != "store query" {
		t.Errorf("unexpected message %s", entry.Message)
	}
	if entry.Context["sql"] != "SELECT * FROM accounts" {
		t.Errorf("expected sql in context, got %v", entry.Context["sql"])
	}

	buf.Reset()
	silent := adapter.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("x"))
	if buf.Len() != 0 {
		t.Error("expected silent mode to drop everything")
	}
}
