package llmclient

import (
	"fmt"

	"github.com/rs/zerolog"
)

// geminiEnvelope is the Gemini request shape: system_instruction +
// contents + generationConfig.
type geminiEnvelope struct {
	SystemInstruction geminiContent   `json:"system_instruction"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  map[string]any  `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

func newGeminiClient(cfg Config, logger zerolog.Logger) Client {
	build := func(cfg Config, userContent string) (string, map[string]string, []byte, error) {
		env := geminiEnvelope{
			SystemInstruction: geminiContent{Parts: []geminiPart{{Text: cfg.SystemPrompt}}},
			Contents:          []geminiContent{{Parts: []geminiPart{{Text: userContent}}}},
		}
		body, err := marshalJSON(env)
		if err != nil {
			return "", nil, nil, err
		}
		url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", cfg.Model, cfg.APIKey)
		return url, nil, body, nil
	}

	extract := func(raw []byte) (string, TokenUsage) {
		text := extractText(raw, "candidates.0.content.parts.0.text")
		usage := TokenUsage{
			InputTokens:  int(gjsonInt(raw, "usageMetadata.promptTokenCount")),
			OutputTokens: int(gjsonInt(raw, "usageMetadata.candidatesTokenCount")),
			TotalTokens:  int(gjsonInt(raw, "usageMetadata.totalTokenCount")),
		}
		return text, usage
	}

	// Gemini's native envelope is never sent through a compatibility
	// gateway, so json_object mode restrictions don't apply here.
	return newHTTPCompatClient(cfg, logger, build, extract, true)
}
