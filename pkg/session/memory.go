package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-memory map. State is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*State
	now    func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*State),
		now:    time.Now,
	}
}

// Get retrieves a client's state. Returns nil, nil if none is saved.
func (s *MemoryStore) Get(_ context.Context, clientID string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[clientID]
	if !ok {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	return st.clone(), nil
}

// Put replaces the client's state.
func (s *MemoryStore) Put(_ context.Context, state *State) error {
	st := state.clone()
	st.normalize()
	st.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[st.ClientID] = st
	state.UpdatedAt = st.UpdatedAt
	return nil
}

// Delete removes a client's state.
func (s *MemoryStore) Delete(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, clientID)
	return nil
}

// Cleanup removes states not updated within olderThan.
func (s *MemoryStore) Cleanup(_ context.Context, olderThan time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	for id, st := range s.states {
		if st.UpdatedAt.Before(cutoff) {
			delete(s.states, id)
		}
	}
	return nil
}

// StartCleanupRoutine starts a background goroutine that periodically removes
// idle sessions. The goroutine is stopped when Close is called.
func (s *MemoryStore) StartCleanupRoutine(interval, olderThan time.Duration) {
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
				_ = s.Cleanup(ctx, olderThan)
			}
		}
	}()
}

// Close stops the cleanup goroutine and waits for it to exit.
// It is safe to call Close even if StartCleanupRoutine was never called.
func (s *MemoryStore) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
