// Package postgres provides PostgreSQL storage for generation audit events.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/swipetherapy/swipe-therapy/pkg/audit"
)

const (
	auditTable           = "generation_audit"
	defaultRetentionDays = 90
	defaultQueryCapacity = 100
	maxQueryCapacity     = 10000
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// auditColumns lists columns in insert and scan order.
var auditColumns = []string{
	"id", "timestamp", "duration_ms", "request_id", "phase",
	"current_count", "history_len", "card_count", "backend_variant",
	"success", "error_type", "error_message", "raw_output",
}

// Store implements audit.Logger and audit.Querier using PostgreSQL.
type Store struct {
	db            *sql.DB
	retentionDays int
	cancel        context.CancelFunc
	done          chan struct{}
}

// Config configures the PostgreSQL audit store.
type Config struct {
	RetentionDays int
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB, cfg Config) *Store {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = defaultRetentionDays
	}
	return &Store{
		db:            db,
		retentionDays: cfg.RetentionDays,
	}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event audit.Event) error {
	query, args, err := psq.Insert(auditTable).
		Columns(auditColumns...).
		Values(
			event.ID,
			event.Timestamp,
			event.DurationMS,
			event.RequestID,
			event.Phase,
			event.CurrentCount,
			event.HistoryLen,
			event.CardCount,
			event.BackendVariant,
			event.Success,
			event.ErrorType,
			event.ErrorMessage,
			event.RawOutput,
		).ToSql()
	if err != nil {
		return fmt.Errorf("building audit insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// applyAuditFilter adds filter conditions to a SELECT builder.
func applyAuditFilter(qb sq.SelectBuilder, filter audit.QueryFilter) sq.SelectBuilder {
	if filter.StartTime != nil {
		qb = qb.Where(sq.GtOrEq{"timestamp": *filter.StartTime})
	}
	if filter.EndTime != nil {
		qb = qb.Where(sq.LtOrEq{"timestamp": *filter.EndTime})
	}
	if filter.Phase != "" {
		qb = qb.Where(sq.Eq{"phase": filter.Phase})
	}
	if filter.ErrorType != "" {
		qb = qb.Where(sq.Eq{"error_type": filter.ErrorType})
	}
	if filter.Success != nil {
		qb = qb.Where(sq.Eq{"success": *filter.Success})
	}
	return qb
}

// Query retrieves audit events matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	qb := applyAuditFilter(psq.Select(auditColumns...).From(auditTable), filter)
	qb = qb.OrderBy("timestamp DESC")
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit)) // #nosec G115 -- checked positive
	}
	if filter.Offset > 0 {
		qb = qb.Offset(uint64(filter.Offset)) // #nosec G115 -- checked positive
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building audit query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	allocCap := defaultQueryCapacity
	if filter.Limit > 0 && filter.Limit <= maxQueryCapacity {
		allocCap = filter.Limit
	}
	events := make([]audit.Event, 0, allocCap)

	for rows.Next() {
		var e audit.Event
		if err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.DurationMS,
			&e.RequestID,
			&e.Phase,
			&e.CurrentCount,
			&e.HistoryLen,
			&e.CardCount,
			&e.BackendVariant,
			&e.Success,
			&e.ErrorType,
			&e.ErrorMessage,
			&e.RawOutput,
		); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}
	return events, nil
}

// Cleanup removes audit events older than the retention period.
func (s *Store) Cleanup(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	query, args, err := psq.Delete(auditTable).Where(sq.Lt{"timestamp": cutoff}).ToSql()
	if err != nil {
		return fmt.Errorf("building audit cleanup: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("cleaning up audit events: %w", err)
	}
	return nil
}

// StartCleanupRoutine starts a background goroutine that periodically deletes
// old audit events. The goroutine is stopped when Close is called.
func (s *Store) StartCleanupRoutine(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Cleanup(ctx)
			}
		}
	}()
}

// Close cancels the cleanup goroutine and waits for it to exit.
// It is safe to call Close even if StartCleanupRoutine was never called.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

// Verify interface compliance.
var (
	_ audit.Logger  = (*Store)(nil)
	_ audit.Querier = (*Store)(nil)
)
