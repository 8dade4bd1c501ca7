package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/swipetherapy/swipe-therapy/pkg/prompt"
)

// ChatClient implements the chat-completions call. Gateways that flatten
// the reply into a top-level output_text field are read directly; otherwise
// the text comes from the first choice.
type ChatClient struct {
	*client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type chatResponse struct {
	ID         string          `json:"id"`
	Model      string          `json:"model"`
	OutputText *string         `json:"output_text,omitempty"`
	Choices    json.RawMessage `json:"choices"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Generate sends the request text as one user message and returns the reply text.
func (c *ChatClient) Generate(ctx context.Context, req prompt.Request) (Result, error) {
	text := req.Text
	payload := chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: &text}},
	}

	raw, err := c.post(ctx, payload)
	result := Result{}
	if raw != nil {
		result.ResponseDebug = truncateDebug(raw)
	}
	if err != nil {
		return result, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return result, fmt.Errorf("%w: decode response: %w", ErrBackendCallFailed, err)
	}

	if parsed.OutputText != nil {
		result.OutputDebug = truncateDebug([]byte(*parsed.OutputText))
		if strings.TrimSpace(*parsed.OutputText) == "" {
			return result, fmt.Errorf("%w: output_text is empty", ErrEmptyResponse)
		}
		result.Text = *parsed.OutputText
		return result, nil
	}

	result.OutputDebug = truncateDebug(parsed.Choices)
	var choices []chatChoice
	if len(parsed.Choices) > 0 {
		if err := json.Unmarshal(parsed.Choices, &choices); err != nil {
			return result, fmt.Errorf("%w: decode choices: %w", ErrBackendCallFailed, err)
		}
	}
	if len(choices) == 0 {
		return result, fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}
	content := choices[0].Message.Content
	if content == nil || strings.TrimSpace(*content) == "" {
		return result, fmt.Errorf("%w: message content is empty", ErrEmptyResponse)
	}
	result.Text = *content
	return result, nil
}

var _ Generator = (*ChatClient)(nil)
