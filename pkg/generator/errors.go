package generator

import (
	"errors"
	"fmt"

	"github.com/swipetherapy/swipe-therapy/pkg/backend"
)

// ErrorType classifies a failed generation attempt. The values are part of
// the HTTP error envelope.
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "ValidationError"
	ErrorTypeConfiguration      ErrorType = "ConfigurationError"
	ErrorTypeBackendUnavailable ErrorType = "BackendUnavailable"
	ErrorTypeBackendCallFailed  ErrorType = "BackendCallFailed"
	ErrorTypeEmptyResponse      ErrorType = "EmptyResponse"
	ErrorTypeMalformedOutput    ErrorType = "MalformedOutput"
)

// Debug placeholders used when no backend payload was captured.
const (
	NoResponse = "No response"
	NoOutput   = "No output"
)

// ErrNoBackend is returned when the service was built without a backend.
var ErrNoBackend = errors.New("no generation backend configured")

// Error is a classified generation failure carrying whatever backend
// payload was captured.
type Error struct {
	Type          ErrorType
	Err           error
	ResponseDebug string
	OutputDebug   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds an Error, substituting placeholders for empty debug fields.
func newError(typ ErrorType, err error, res backend.Result) *Error {
	e := &Error{
		Type:          typ,
		Err:           err,
		ResponseDebug: res.ResponseDebug,
		OutputDebug:   res.OutputDebug,
	}
	if e.ResponseDebug == "" {
		e.ResponseDebug = NoResponse
	}
	if e.OutputDebug == "" {
		e.OutputDebug = NoOutput
	}
	return e
}

// classifyBackendError maps a backend sentinel to its error type.
func classifyBackendError(err error) ErrorType {
	switch {
	case errors.Is(err, backend.ErrBackendUnavailable):
		return ErrorTypeBackendUnavailable
	case errors.Is(err, backend.ErrEmptyResponse):
		return ErrorTypeEmptyResponse
	default:
		return ErrorTypeBackendCallFailed
	}
}
