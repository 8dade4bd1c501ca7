// Package session persists per-client progress through the card deck.
// It defines the Store interface and the State saved for each client.
package session

import (
	"context"
	"time"

	"github.com/swipetherapy/swipe-therapy/pkg/cards"
)

// State is everything the client needs to resume a session.
type State struct {
	ClientID     string               `json:"client_id"`
	History      []cards.AnswerRecord `json:"history"`
	CurrentIndex int                  `json:"current_index"`
	Cards        []cards.Card         `json:"cards"`
	UpdatedAt    time.Time            `json:"updated_at,omitzero"`
}

// EmptyState is the state returned for a client that has never saved one.
func EmptyState(clientID string) *State {
	return &State{
		ClientID: clientID,
		History:  []cards.AnswerRecord{},
		Cards:    []cards.Card{},
	}
}

// normalize replaces nil slices so stored and returned state always
// serializes to arrays.
func (s *State) normalize() {
	if s.History == nil {
		s.History = []cards.AnswerRecord{}
	}
	if s.Cards == nil {
		s.Cards = []cards.Card{}
	}
}

// clone returns a deep copy of s.
func (s *State) clone() *State {
	c := *s
	c.History = append([]cards.AnswerRecord{}, s.History...)
	c.Cards = append([]cards.Card{}, s.Cards...)
	return &c
}

// Store defines the interface for session persistence. Writes are
// last-writer-wins; there is no versioning.
type Store interface {
	// Get retrieves a client's state. Returns nil, nil if none is saved.
	Get(ctx context.Context, clientID string) (*State, error)

	// Put replaces the client's state and sets UpdatedAt.
	Put(ctx context.Context, state *State) error

	// Delete removes a client's state. Deleting a missing client succeeds.
	Delete(ctx context.Context, clientID string) error

	// Cleanup removes states not updated within olderThan.
	Cleanup(ctx context.Context, olderThan time.Duration) error

	// Close stops background routines and releases resources.
	Close() error
}
