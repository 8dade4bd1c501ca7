package audit

import (
	"context"
	"log/slog"
)

// SlogLogger writes audit events to a structured logger. It is used when no
// database is configured.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates an audit logger backed by logger, or slog.Default when nil.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// Log records an audit event.
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	attrs := []slog.Attr{
		slog.String("id", event.ID),
		slog.String("request_id", event.RequestID),
		slog.String("phase", event.Phase),
		slog.Int("current_count", event.CurrentCount),
		slog.Int("history_len", event.HistoryLen),
		slog.Int("card_count", event.CardCount),
		slog.String("backend_variant", event.BackendVariant),
		slog.Bool("success", event.Success),
		slog.Int64("duration_ms", event.DurationMS),
	}
	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error_type", event.ErrorType),
			slog.String("error_message", event.ErrorMessage),
		)
		if event.RawOutput != "" {
			attrs = append(attrs, slog.String("raw_output", event.RawOutput))
		}
	}
	l.logger.LogAttrs(ctx, level, "generation audit", attrs...)
	return nil
}

// Close releases resources.
func (*SlogLogger) Close() error {
	return nil
}

// Verify interface compliance.
var _ Logger = (*SlogLogger)(nil)
