package platform

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLogLevel maps a config level name to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", level)
	}
}

// NewLogger builds the process JSON logger writing to w.
func NewLogger(w io.Writer, cfg LoggingConfig) *slog.Logger {
	level, _ := ParseLogLevel(cfg.Level)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
