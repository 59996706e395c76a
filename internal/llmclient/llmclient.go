// Package llmclient is the provider-agnostic LLM client: one adaptor per
// provider tag, a shared request/response shape, and token-usage
// accounting. Providers are a small tagged variant rather than a class
// hierarchy.
package llmclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Provider selects envelope shape and compatibility-gateway restrictions.
type Provider string

const (
	ProviderGemini     Provider = "gemini"
	ProviderOpenAI     Provider = "openai"
	ProviderOpenRouter Provider = "openrouter"
	ProviderAnthropic  Provider = "anthropic"
)

// TokenUsage accumulates across requests; Add is the only combinator.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Add implements the monoid addition.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Config is the construction-time configuration for a Client.
type Config struct {
	Provider       Provider
	APIKey         string
	Model          string
	TimeoutSeconds int
	RetryCount     int
	SystemPrompt   string // loaded once from a resource by the caller
}

// Client is the provider-agnostic façade. One request in, plain extracted
// text out; the caller parses that text as JSON.
type Client interface {
	// Complete sends userContent as the user-supplied payload and returns
	// the extracted response text plus accumulated token usage.
	Complete(ctx context.Context, userContent string) (text string, usage TokenUsage, err error)

	// SupportsJSONObjectFormat reports whether `response_format=json_object`
	// is safe to send; compatibility gateways without a guaranteed
	// top-level array must not receive it.
	SupportsJSONObjectFormat() bool
}

// RequestFailedError wraps a non-success HTTP status.
type RequestFailedError struct {
	Status int
	Body   string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("llmclient: request failed with status %d: %s", e.Status, e.Body)
}

// New builds the Client for cfg.Provider. logger is a constructor-injected
// field, never a package-level global.
func New(cfg Config, logger zerolog.Logger) (Client, error) {
	switch cfg.Provider {
	case ProviderGemini:
		return newGeminiClient(cfg, logger), nil
	case ProviderOpenAI:
		return newOpenAIClient(cfg, logger, false), nil
	case ProviderOpenRouter:
		return newOpenAIClient(cfg, logger, true), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("llmclient: unknown provider %q", cfg.Provider)
	}
}

// stripMarkdownFence removes a leading and trailing markdown code fence
// (``` or ```json) from text.
func stripMarkdownFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}
