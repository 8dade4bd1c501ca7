package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/swipetherapy/swipe-therapy/pkg/prompt"
)

const outputItemMessage = "message"

// StructuredClient implements the Responses-style call: the reply is a list
// of typed output items (reasoning, message, ...) and the text lives in the
// first content block of the message item.
type StructuredClient struct {
	*client
}

type structuredRequest struct {
	Model     string             `json:"model"`
	Input     string             `json:"input"`
	Reasoning *structuredEffort  `json:"reasoning,omitempty"`
	Text      structuredTextSpec `json:"text"`
}

type structuredEffort struct {
	Effort string `json:"effort"`
}

type structuredTextSpec struct {
	Format structuredFormat `json:"format"`
}

type structuredFormat struct {
	Type string `json:"type"`
}

type structuredResponse struct {
	ID     string          `json:"id"`
	Model  string          `json:"model"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
}

type structuredOutputItem struct {
	Type    string                    `json:"type"`
	Role    string                    `json:"role,omitempty"`
	Content []structuredOutputContent `json:"content,omitempty"`
}

type structuredOutputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Generate sends the request text as a single input and returns the message text.
func (c *StructuredClient) Generate(ctx context.Context, req prompt.Request) (Result, error) {
	payload := structuredRequest{
		Model:     c.model,
		Input:     req.Text,
		Reasoning: &structuredEffort{Effort: c.effort},
		Text:      structuredTextSpec{Format: structuredFormat{Type: "text"}},
	}

	raw, err := c.post(ctx, payload)
	result := Result{}
	if raw != nil {
		result.ResponseDebug = truncateDebug(raw)
	}
	if err != nil {
		return result, err
	}

	var parsed structuredResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return result, fmt.Errorf("%w: decode response: %w", ErrBackendCallFailed, err)
	}
	result.OutputDebug = truncateDebug(parsed.Output)

	var items []structuredOutputItem
	if len(parsed.Output) > 0 {
		if err := json.Unmarshal(parsed.Output, &items); err != nil {
			return result, fmt.Errorf("%w: decode output items: %w", ErrBackendCallFailed, err)
		}
	}

	text, err := messageText(items)
	if err != nil {
		return result, err
	}
	result.Text = text
	return result, nil
}

// messageText finds the message item and reads its first content block.
func messageText(items []structuredOutputItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("%w: no output items", ErrEmptyResponse)
	}
	for _, item := range items {
		if item.Type != outputItemMessage {
			continue
		}
		if len(item.Content) == 0 {
			return "", fmt.Errorf("%w: message item has no content", ErrEmptyResponse)
		}
		text := item.Content[0].Text
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("%w: message text is empty", ErrEmptyResponse)
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: no message item in output", ErrEmptyResponse)
}

var _ Generator = (*StructuredClient)(nil)
