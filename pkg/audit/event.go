package audit

import (
	"time"

	"github.com/google/uuid"
)

// NewEvent creates an audit event for the given request.
func NewEvent(requestID string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// WithPhase adds the resolved phase and the request's position in the session.
func (e *Event) WithPhase(phase string, currentCount, historyLen int) *Event {
	e.Phase = phase
	e.CurrentCount = currentCount
	e.HistoryLen = historyLen
	return e
}

// WithBackend records which backend variant served the request.
func (e *Event) WithBackend(variant string) *Event {
	e.BackendVariant = variant
	return e
}

// WithSuccess marks the attempt successful.
func (e *Event) WithSuccess(cardCount int, duration time.Duration) *Event {
	e.Success = true
	e.CardCount = cardCount
	e.DurationMS = duration.Milliseconds()
	return e
}

// WithFailure marks the attempt failed. rawOutput is dropped unless keepRaw is set.
func (e *Event) WithFailure(errorType, errorMsg, rawOutput string, keepRaw bool, duration time.Duration) *Event {
	e.Success = false
	e.ErrorType = errorType
	e.ErrorMessage = errorMsg
	e.DurationMS = duration.Milliseconds()
	if keepRaw {
		e.RawOutput = rawOutput
	}
	return e
}
