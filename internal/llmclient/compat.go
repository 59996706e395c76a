package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// envelopeBuilder builds the provider-specific request body for
// userContent and returns the endpoint URL and headers to use.
type envelopeBuilder func(cfg Config, userContent string) (url string, headers map[string]string, body []byte, err error)

// textExtractor pulls the response text and token usage out of a raw
// provider envelope.
type textExtractor func(raw []byte) (text string, usage TokenUsage)

// httpCompatClient is the shared transport for the raw-HTTP-envelope
// providers (Gemini-shape and OpenAI-shape, including the
// OpenRouter-as-OpenAI-compatible gateway). Provider-specific request and
// response shaping is two small functions, not a class per provider.
type httpCompatClient struct {
	cfg           Config
	logger        zerolog.Logger
	httpClient    *http.Client
	buildEnvelope envelopeBuilder
	extractText   textExtractor
	allowJSONMode bool
	usage         TokenUsage
}

func newHTTPCompatClient(cfg Config, logger zerolog.Logger, build envelopeBuilder, extract textExtractor, allowJSONMode bool) *httpCompatClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &httpCompatClient{
		cfg:           cfg,
		logger:        logger,
		httpClient:    &http.Client{Timeout: timeout},
		buildEnvelope: build,
		extractText:   extract,
		allowJSONMode: allowJSONMode,
	}
}

func (c *httpCompatClient) SupportsJSONObjectFormat() bool {
	return c.allowJSONMode
}

func (c *httpCompatClient) Complete(ctx context.Context, userContent string) (string, TokenUsage, error) {
	url, headers, body, err := c.buildEnvelope(c.cfg, userContent)
	if err != nil {
		return "", TokenUsage{}, fmt.Errorf("llmclient: building request: %w", err)
	}

	var respBody []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("llmclient: building HTTP request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn().Err(err).Msg("llm transport failure, retrying")
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(&RequestFailedError{Status: resp.StatusCode, Body: string(data)})
		}
		respBody = data
		return nil
	}

	retryPolicy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxInt(c.cfg.RetryCount, 0)))
	if err := backoff.Retry(operation, backoff.WithContext(retryPolicy, ctx)); err != nil {
		return "", TokenUsage{}, fmt.Errorf("llmclient: request failed after retries: %w", err)
	}

	text, usage := c.extractText(respBody)
	c.usage = c.usage.Add(usage)
	return text, c.usage, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
