package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bankchat/pkg/config"
)

func TestInitCreatesLogFile(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "logs", "bankchat.log")

	cfg := config.Default()
	cfg.LogFile = logPath
	cfg.LogFormat = "json"
	cfg.LogLevel = "info"

	logger, err := Init(cfg, Options{Component: "server"})
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	logger.Info("hello", slog.String("event", "test"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Expected log file to have content")
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("Expected log to contain message, got: %s", string(data))
	}
	if !strings.Contains(string(data), `"component":"server"`) {
		t.Fatalf("Expected component attribute, got: %s", string(data))
	}
}

func TestTraceLevel(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "trace.log")

	cfg := config.Default()
	cfg.LogFile = logPath
	cfg.LogFormat = "text"
	cfg.LogLevel = "trace"

	logger, err := Init(cfg, Options{})
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	Trace(context.Background(), logger, "prompt_dump", "messages", 3)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(data), "level=TRACE") {
		t.Fatalf("Expected TRACE level label, got: %s", string(data))
	}
}

func TestTraceSuppressedAtInfo(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "info.log")

	cfg := config.Default()
	cfg.LogFile = logPath
	cfg.LogLevel = "info"

	logger, err := Init(cfg, Options{})
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	Trace(context.Background(), logger, "prompt_dump")
	logger.Debug("debug_line")

	data, _ := os.ReadFile(logPath)
	if strings.Contains(string(data), "prompt_dump") || strings.Contains(string(data), "debug_line") {
		t.Fatalf("Expected records below info to be dropped, got: %s", string(data))
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
