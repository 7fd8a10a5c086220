package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line as JSON: %v\nLine: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		configured string
		emit       func(Logger)
		wantLevel  string
		wantLines  int
	}{
		{"info", func(l Logger) { l.Info(context.Background(), "m") }, "info", 1},
		{"info", func(l Logger) { l.Warn(context.Background(), "m") }, "warn", 1},
		{"info", func(l Logger) { l.Error(context.Background(), "m") }, "error", 1},
		{"info", func(l Logger) { l.Debug(context.Background(), "m") }, "", 0},
		{"debug", func(l Logger) { l.Debug(context.Background(), "m") }, "debug", 1},
		{"warn", func(l Logger) { l.Info(context.Background(), "m") }, "", 0},
		{"bogus", func(l Logger) { l.Info(context.Background(), "m") }, "info", 1},
	}

	for _, tt := range tests {
		t.Run(tt.configured+"_"+tt.wantLevel, func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(NewLoggerWithWriter(tt.configured, &buf))

			entries := decodeLines(t, &buf)
			if len(entries) != tt.wantLines {
				t.Fatalf("got %d lines, want %d", len(entries), tt.wantLines)
			}
			if tt.wantLines == 1 && entries[0]["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %q", entries[0]["level"], tt.wantLevel)
			}
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Warn(context.Background(), "remote tier unavailable",
		F("op", "get"),
		F("key", "memo:fib:abc"),
		F("error", errors.New("connection refused")),
	)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d lines, want 1", len(entries))
	}
	e := entries[0]
	if e["msg"] != "remote tier unavailable" {
		t.Errorf("msg = %v", e["msg"])
	}
	if e["op"] != "get" || e["key"] != "memo:fib:abc" {
		t.Errorf("fields = %v", e)
	}
	if e["error"] != "connection refused" {
		t.Errorf("error = %v, want error text", e["error"])
	}
	if _, ok := e["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)
	scoped := base.With(F("component", "reaper"))

	scoped.Info(context.Background(), "swept")
	base.Info(context.Background(), "plain")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d lines, want 2", len(entries))
	}
	if entries[0]["component"] != "reaper" {
		t.Errorf("scoped component = %v, want reaper", entries[0]["component"])
	}
	if _, ok := entries[1]["component"]; ok {
		t.Error("With must not modify the parent logger")
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(F("password", "hunter2"))

	logger.Info(context.Background(), "connected", F("value", `{"ssn":"123"}`), F("token", "abc"))

	out := buf.String()
	for _, secret := range []string{"hunter2", "123", "abc"} {
		if strings.Contains(out, secret) {
			t.Errorf("output contains %q: %s", secret, out)
		}
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("output missing redaction marker: %s", out)
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info(context.Background(), "x")
	l.Warn(context.Background(), "x")
	l.Error(context.Background(), "x")
	l.Debug(context.Background(), "x")
	if l.With(F("k", "v")) == nil {
		t.Fatal("With should return non-nil logger")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
