package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type apiErrorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// post sends payload to the endpoint and returns the raw 2xx response body.
// Non-2xx bodies are returned alongside the error for debugging.
func (c *client) post(ctx context.Context, payload any) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: no api key configured", ErrBackendUnavailable)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", ErrBackendCallFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrBackendCallFailed, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendCallFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrBackendCallFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, apiStatusError(resp.StatusCode, raw)
	}
	return raw, nil
}

// apiStatusError extracts the API's error message from a non-2xx body.
func apiStatusError(status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	var parsed apiErrorEnvelope
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Error.Message) != "" {
		message = parsed.Error.Message
	}
	if message == "" {
		message = http.StatusText(status)
	}
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: rate limited: %s", ErrBackendCallFailed, message)
	}
	return fmt.Errorf("%w: status %d: %s", ErrBackendCallFailed, status, message)
}
