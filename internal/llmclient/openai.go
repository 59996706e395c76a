package llmclient

import (
	"github.com/rs/zerolog"
)

// openAIEnvelope is the OpenAI request shape: model + messages + optional
// response_format.
type openAIEnvelope struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	ResponseFormat *openAIRespFmt  `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRespFmt struct {
	Type string `json:"type"`
}

const (
	openAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	openRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"
)

// newOpenAIClient builds an OpenAI-shape adaptor. viaCompatGateway selects
// the OpenRouter endpoint and disables response_format=json_object, since
// a compatibility gateway doesn't guarantee a top-level array.
func newOpenAIClient(cfg Config, logger zerolog.Logger, viaCompatGateway bool) Client {
	endpoint := openAIEndpoint
	if viaCompatGateway {
		endpoint = openRouterEndpoint
	}

	build := func(cfg Config, userContent string) (string, map[string]string, []byte, error) {
		env := openAIEnvelope{
			Model: cfg.Model,
			Messages: []openAIMessage{
				{Role: "system", Content: cfg.SystemPrompt},
				{Role: "user", Content: userContent},
			},
		}
		if !viaCompatGateway {
			env.ResponseFormat = &openAIRespFmt{Type: "json_object"}
		}
		body, err := marshalJSON(env)
		if err != nil {
			return "", nil, nil, err
		}
		headers := map[string]string{"Authorization": "Bearer " + cfg.APIKey}
		return endpoint, headers, body, nil
	}

	extract := func(raw []byte) (string, TokenUsage) {
		text := extractText(raw, "choices.0.message.content")
		usage := TokenUsage{
			InputTokens:  int(gjsonInt(raw, "usage.prompt_tokens")),
			OutputTokens: int(gjsonInt(raw, "usage.completion_tokens")),
			TotalTokens:  int(gjsonInt(raw, "usage.total_tokens")),
		}
		return text, usage
	}

	return newHTTPCompatClient(cfg, logger, build, extract, !viaCompatGateway)
}
