// Package postgres provides PostgreSQL storage for session state.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/swipetherapy/swipe-therapy/pkg/session"
)

const sessionTable = "therapy_sessions"

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// upsertSuffix makes Put a full replace keyed on client_id.
const upsertSuffix = `ON CONFLICT (client_id) DO UPDATE SET
	history = EXCLUDED.history,
	current_index = EXCLUDED.current_index,
	cards = EXCLUDED.cards,
	updated_at = EXCLUDED.updated_at
RETURNING updated_at`

// Store implements session.Store using PostgreSQL.
type Store struct {
	db     *sql.DB
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new PostgreSQL session store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get retrieves a client's state. Returns nil, nil if none is saved.
func (s *Store) Get(ctx context.Context, clientID string) (*session.State, error) {
	query, args, err := psq.Select("client_id", "history", "current_index", "cards", "updated_at").
		From(sessionTable).
		Where(sq.Eq{"client_id": clientID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session query: %w", err)
	}

	var (
		st          session.State
		historyJSON []byte
		cardsJSON   []byte
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&st.ClientID, &historyJSON, &st.CurrentIndex, &cardsJSON, &st.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &st.History); err != nil {
			return nil, fmt.Errorf("decoding session history: %w", err)
		}
	}
	if len(cardsJSON) > 0 {
		if err := json.Unmarshal(cardsJSON, &st.Cards); err != nil {
			return nil, fmt.Errorf("decoding session cards: %w", err)
		}
	}
	return &st, nil
}

// Put upserts the client's state, replacing history, index and cards.
func (s *Store) Put(ctx context.Context, state *session.State) error {
	historyJSON, err := marshalArray(state.History)
	if err != nil {
		return fmt.Errorf("marshaling session history: %w", err)
	}
	cardsJSON, err := marshalArray(state.Cards)
	if err != nil {
		return fmt.Errorf("marshaling session cards: %w", err)
	}

	query, args, err := psq.Insert(sessionTable).
		Columns("client_id", "history", "current_index", "cards", "updated_at").
		Values(state.ClientID, historyJSON, state.CurrentIndex, cardsJSON, sq.Expr("NOW()")).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("building session upsert: %w", err)
	}

	var updatedAt time.Time
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&updatedAt); err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}
	state.UpdatedAt = updatedAt
	return nil
}

// Delete removes a client's state.
func (s *Store) Delete(ctx context.Context, clientID string) error {
	query, args, err := psq.Delete(sessionTable).Where(sq.Eq{"client_id": clientID}).ToSql()
	if err != nil {
		return fmt.Errorf("building session delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Cleanup removes states not updated within olderThan.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	query, args, err := psq.Delete(sessionTable).Where(sq.Lt{"updated_at": cutoff}).ToSql()
	if err != nil {
		return fmt.Errorf("building session cleanup: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("cleaning up sessions: %w", err)
	}
	return nil
}

// StartCleanupRoutine starts a background goroutine that periodically removes
// idle sessions. The goroutine is stopped when Close is called.
func (s *Store) StartCleanupRoutine(interval, olderThan time.Duration) {
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
				if err := s.Cleanup(ctx, olderThan); err != nil {
					slog.Warn("session cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the cleanup goroutine and waits for it to exit.
// It is safe to call Close even if StartCleanupRoutine was never called.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

// marshalArray encodes v, writing nil slices as [] rather than null.
func marshalArray[T any](v []T) ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

// Verify interface compliance.
var _ session.Store = (*Store)(nil)
