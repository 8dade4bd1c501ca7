// Package backend calls the remote text-generation service that produces card
// content. Two calling conventions are supported as variants of one
// Generator capability; the variant is chosen once from configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/swipetherapy/swipe-therapy/pkg/prompt"
)

// Sentinel errors returned by Generate, wrapped with call details.
var (
	// ErrBackendUnavailable means no credential is configured.
	ErrBackendUnavailable = errors.New("generation backend unavailable")

	// ErrBackendCallFailed covers transport errors, timeouts, non-2xx
	// statuses and undecodable response envelopes.
	ErrBackendCallFailed = errors.New("generation backend call failed")

	// ErrEmptyResponse means the call succeeded but carried no text.
	ErrEmptyResponse = errors.New("generation backend returned no text")
)

const (
	// DefaultBaseURL is the API root used when none is configured.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "gpt-5-nano"

	// DefaultReasoningEffort is sent with structured calls.
	DefaultReasoningEffort = "low"

	// DefaultTimeout bounds a single generation call.
	DefaultTimeout = 60 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20

	// maxDebugBytes caps debug payloads echoed back to callers.
	maxDebugBytes = 64 << 10
)

// Variant names a backend calling convention.
type Variant string

const (
	// VariantStructured is the Responses-style call returning typed output items.
	VariantStructured Variant = "structured"

	// VariantChat is the chat-completions call returning a single text field.
	VariantChat Variant = "chat"
)

// Valid reports whether v is a supported variant.
func (v Variant) Valid() bool {
	return v == VariantStructured || v == VariantChat
}

// Result is the uniform outcome of a generation call.
type Result struct {
	// Text is the model's text payload.
	Text string

	// ResponseDebug is the raw response body, when one was received.
	ResponseDebug string

	// OutputDebug is the raw output section of the response, when present.
	OutputDebug string
}

// Generator sends a rendered prompt to the backend and returns its text.
// On failure the returned Result still carries whatever debug payload
// was captured.
type Generator interface {
	Generate(ctx context.Context, req prompt.Request) (Result, error)
}

// Config configures a backend client.
type Config struct {
	Variant         Variant
	APIKey          string
	BaseURL         string
	Model           string
	ReasoningEffort string
	Timeout         time.Duration
	ProxyURL        string
}

// Option customizes a client after it is built from Config.
type Option func(*client)

// WithHTTPClient replaces the HTTP client, including its transport and proxy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithEndpoint overrides the full endpoint URL for the selected variant.
func WithEndpoint(endpoint string) Option {
	return func(c *client) {
		if trimmed := strings.TrimSpace(endpoint); trimmed != "" {
			c.endpoint = trimmed
		}
	}
}

// client holds what both variants share.
type client struct {
	apiKey   string
	model    string
	effort   string
	endpoint string
	http     *http.Client
}

// New builds the Generator for cfg.Variant.
func New(cfg Config, opts ...Option) (Generator, error) {
	if cfg.Variant == "" {
		cfg.Variant = VariantStructured
	}
	if !cfg.Variant.Valid() {
		return nil, fmt.Errorf("unknown backend variant %q", cfg.Variant)
	}

	hc, err := newHTTPClient(cfg.Timeout, cfg.ProxyURL)
	if err != nil {
		return nil, err
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}

	c := &client{
		apiKey: strings.TrimSpace(cfg.APIKey),
		model:  cfg.Model,
		effort: cfg.ReasoningEffort,
		http:   hc,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.effort == "" {
		c.effort = DefaultReasoningEffort
	}

	switch cfg.Variant {
	case VariantChat:
		c.endpoint = base + "/chat/completions"
		applyOptions(c, opts)
		return &ChatClient{client: c}, nil
	default:
		c.endpoint = base + "/responses"
		applyOptions(c, opts)
		return &StructuredClient{client: c}, nil
	}
}

func applyOptions(c *client, opts []Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
}

// newHTTPClient builds the outbound client, routing through proxyURL when set.
func newHTTPClient(timeout time.Duration, proxyURL string) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL = strings.TrimSpace(proxyURL); proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy url: %w", err)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

// truncateDebug bounds a debug payload.
func truncateDebug(b []byte) string {
	if len(b) > maxDebugBytes {
		return string(b[:maxDebugBytes]) + "...(truncated)"
	}
	return string(b)
}
