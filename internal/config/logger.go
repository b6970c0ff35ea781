package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// InitLogger initializes the application logger from Logging config,
// adapted from github.com/justchokingaround/greg's internal/config/logger.go.
func InitLogger(cfg *Logging) (*slog.Logger, error) {
	level := parseLogLevel(cfg.Level)

	if cfg.File == "" {
		cfg.File = filepath.Join(AppDataDir(), "bilidl.log")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	writer := io.Writer(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	})

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(writer, handlerOpts)
	default:
		if cfg.Color {
			handler = slog.NewTextHandler(&colorWriter{out: os.Stderr}, handlerOpts)
		} else {
			handler = slog.NewTextHandler(writer, handlerOpts)
		}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// colorWriter wraps an io.Writer and colorizes each slog text line by the
// level token slog.TextHandler already placed at the front of the line
// (`level=INFO ...`), the same visual effect as greg's ColoredTextHandler
// without needing to re-implement slog.Handler's WithAttrs/WithGroup state.
type colorWriter struct {
	out io.Writer
}

func (c *colorWriter) Write(p []byte) (int, error) {
	line := colorize(string(p))
	if _, err := c.out.Write([]byte(line)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func colorize(line string) string {
	var code string
	switch {
	case strings.Contains(line, "level=DEBUG"):
		code = "\033[90m"
	case strings.Contains(line, "level=INFO"):
		code = "\033[32m"
	case strings.Contains(line, "level=WARN"):
		code = "\033[33m"
	case strings.Contains(line, "level=ERROR"):
		code = "\033[31m"
	default:
		return line
	}
	return code + strings.TrimRight(line, "\n") + "\033[0m\n"
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
