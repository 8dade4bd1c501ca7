// Package audit records every card generation attempt for triage. Raw model
// output is only kept for failed attempts, and only when enabled.
package audit

import (
	"context"
	"time"
)

// Logger defines the interface for generation audit logging.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Close releases resources.
	Close() error
}

// Event is one generation attempt.
type Event struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	DurationMS     int64     `json:"duration_ms"`
	RequestID      string    `json:"request_id"`
	Phase          string    `json:"phase"`
	CurrentCount   int       `json:"current_count"`
	HistoryLen     int       `json:"history_len"`
	CardCount      int       `json:"card_count"`
	BackendVariant string    `json:"backend_variant,omitempty"`
	Success        bool      `json:"success"`
	ErrorType      string    `json:"error_type,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	RawOutput      string    `json:"raw_output,omitempty"`
}

// QueryFilter defines criteria for querying audit events.
type QueryFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	Phase     string
	ErrorType string
	Success   *bool
	Limit     int
	Offset    int
}

// Querier reads back audit events. Only durable loggers implement it.
type Querier interface {
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	Breakdown(ctx context.Context, filter BreakdownFilter) ([]BreakdownEntry, error)
	Overview(ctx context.Context, startTime, endTime *time.Time) (*Overview, error)
}

// Config configures audit logging.
type Config struct {
	Enabled        bool
	RetentionDays  int
	StoreRawOutput bool
}
