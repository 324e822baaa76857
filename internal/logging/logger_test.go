package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readLogEntries(t *testing.T, sessionDir string) []map[string]any {
	t.Helper()

	f, err := os.Open(filepath.Join(sessionDir, "session.log"))
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("parse log line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger_WritesToFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("session started", "mode", "elected")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := readLogEntries(t, dir)
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if entries[0]["msg"] != "session started" {
		t.Errorf("msg = %v, want %q", entries[0]["msg"], "session started")
	}
	if entries[0]["mode"] != "elected" {
		t.Errorf("mode = %v, want %q", entries[0]["mode"], "elected")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelWarn)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := readLogEntries(t, dir)
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2 (warn + error)", len(entries))
	}
}

func TestLogger_ContextPropagation(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	child := logger.WithSession("s-1").WithMode("hierarchical").WithPhase("executing").WithInstance("inst-3")
	child.Info("subtask complete")

	// Parent logger must not inherit child attributes.
	logger.Info("plain")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := readLogEntries(t, dir)
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}

	withCtx := entries[0]
	for key, want := range map[string]string{
		"session_id":  "s-1",
		"mode":        "hierarchical",
		"phase":       "executing",
		"instance_id": "inst-3",
	} {
		if withCtx[key] != want {
			t.Errorf("%s = %v, want %q", key, withCtx[key], want)
		}
	}

	plain := entries[1]
	if _, ok := plain["session_id"]; ok {
		t.Error("parent logger should not carry child session_id")
	}
}

func TestLogger_With(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.With("round", 2, "participants", 5).Info("round settled")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := readLogEntries(t, dir)
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if entries[0]["round"] != float64(2) {
		t.Errorf("round = %v, want 2", entries[0]["round"])
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	// Must not panic, must accept all levels.
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
