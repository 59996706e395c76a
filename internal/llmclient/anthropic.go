package llmclient

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

// anthropicClient is the one adaptor built on the real vendor SDK rather
// than a hand-rolled HTTP envelope, mirroring steveyegge-beads's
// internal/compact/haiku.go. The SDK owns request/response marshaling; this
// adaptor only supplies the system prompt, maps Config onto SDK params, and
// accumulates TokenUsage.
type anthropicClient struct {
	sdk    anthropic.Client
	cfg    Config
	logger zerolog.Logger
	usage  TokenUsage
}

func newAnthropicClient(cfg Config, logger zerolog.Logger) Client {
	return &anthropicClient{
		sdk:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		cfg:    cfg,
		logger: logger,
	}
}

func (c *anthropicClient) SupportsJSONObjectFormat() bool {
	// The SDK talks directly to Anthropic's API, never through a
	// compatibility gateway, so the json_object restriction doesn't apply;
	// Anthropic has no response_format parameter regardless.
	return false
}

func (c *anthropicClient) Complete(ctx context.Context, userContent string) (string, TokenUsage, error) {
	message, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: 4096,
		System:    []anthropic.TextBlockParam{{Text: c.cfg.SystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userContent)),
		},
	})
	if err != nil {
		return "", c.usage, fmt.Errorf("llmclient: anthropic request failed: %w", err)
	}

	usage := TokenUsage{
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
		TotalTokens:  int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}
	c.usage = c.usage.Add(usage)

	if len(message.Content) == 0 || message.Content[0].Type != "text" {
		return "", c.usage, fmt.Errorf("llmclient: anthropic response had no text block")
	}
	return stripMarkdownFence(message.Content[0].Text), c.usage, nil
}
