package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bankchat/pkg/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelTrace sits below debug and is used for full prompt dumps.
const LevelTrace = slog.Level(-8)

const defaultLogFile = "bankchat.log"
const (
	maxLogSizeMB  = 5
	maxLogBackups = 5
	maxLogAgeDays = 14
)

// Options controls where log records go besides the rotating file.
type Options struct {
	// Stderr mirrors every record to os.Stderr. The server sets it; the
	// terminal client does not, since stderr shares the screen with the UI.
	Stderr bool
	// Component is attached to every record when non-empty.
	Component string
}

// Init configures slog to write structured logs to a rotating file.
func Init(cfg config.Config, opts Options) (*slog.Logger, error) {
	level := parseLogLevel(cfg.LogLevel)
	handlerOptions := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel}

	logPath := strings.TrimSpace(cfg.LogFile)
	if logPath == "" {
		logPath = defaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		var out io.Writer = io.Discard
		if opts.Stderr {
			out = os.Stderr
		}
		logger := withComponent(slog.New(newHandler(cfg.LogFormat, out, handlerOptions)), opts.Component)
		slog.SetDefault(logger)
		return logger, err
	}

	writer := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
		Compress:   true,
	}

	var out io.Writer = writer
	if opts.Stderr {
		out = io.MultiWriter(writer, os.Stderr)
	}

	logger := withComponent(slog.New(newHandler(cfg.LogFormat, out, handlerOptions)), opts.Component)
	slog.SetDefault(logger)
	return logger, nil
}

// Trace logs at LevelTrace.
func Trace(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(ctx, LevelTrace, msg, args...)
}

func withComponent(logger *slog.Logger, component string) *slog.Logger {
	if component == "" {
		return logger
	}
	return logger.With("component", component)
}

func defaultLogPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(homeDir) == "" {
		return filepath.Join(".bankchat", "logs", defaultLogFile)
	}
	return filepath.Join(homeDir, ".bankchat", "logs", defaultLogFile)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

func newHandler(format string, out io.Writer, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		return slog.NewTextHandler(out, opts)
	default:
		return slog.NewJSONHandler(out, opts)
	}
}
