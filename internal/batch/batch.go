// Package batch drives the LLM request batching: the query-optimization
// mode splits queries into fixed-size batches, one LLM request per
// batch; the schema-normalization mode
// issues one request carrying every entity profile, re-requesting on a
// malformed response up to a configured number of continuations.
package batch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/antikythera/planner/internal/llmclient"
	"github.com/antikythera/planner/internal/promptbuild"
	"github.com/antikythera/planner/internal/queryanalysis"
)

// DefaultBatchSize is the query-optimization batch size.
const DefaultBatchSize = 5

// DefaultMaxContinuations is the schema-normalization retry cap.
const DefaultMaxContinuations = 10

// Recommendation is one per-query recommendation returned by the LLM for
// query-optimization mode. Fields mirror OptimizationIssue so a
// recommendation can be merged directly into an AnalysisResult.
type Recommendation struct {
	RewrittenQuery         string   `json:"rewrittenQuery"`
	RecommendedColumnOrder []string `json:"recommendedColumnOrder"`
	Explanation            string   `json:"explanation"`
}

// QueryOptimizationRunner drives the query-optimization mode.
type QueryOptimizationRunner struct {
	Client    llmclient.Client
	BatchSize int
	Logger    zerolog.Logger
}

// NewQueryOptimizationRunner returns a runner with the default batch
// size if batchSize is not positive.
func NewQueryOptimizationRunner(client llmclient.Client, batchSize int, logger zerolog.Logger) *QueryOptimizationRunner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &QueryOptimizationRunner{Client: client, BatchSize: batchSize, Logger: logger}
}

// Run splits results into fixed-size batches, requests a recommendation
// set per batch, and position-matches each recommendation back to its
// query. A batch whose response isn't a well-formed JSON array yields no
// recommendations for that batch and processing continues with the next
// one.
func (r *QueryOptimizationRunner) Run(ctx context.Context, results []queryanalysis.AnalysisResult) (map[int]Recommendation, llmclient.TokenUsage, error) {
	recommendations := map[int]Recommendation{}
	var usage llmclient.TokenUsage

	for start := 0; start < len(results); start += r.BatchSize {
		end := start + r.BatchSize
		if end > len(results) {
			end = len(results)
		}
		batch := results[start:end]

		items := promptbuild.BuildBatch(batch)
		payload, err := promptbuild.MarshalBatch(items)
		if err != nil {
			return recommendations, usage, fmt.Errorf("batch: marshaling batch %d: %w", start/r.BatchSize, err)
		}

		text, batchUsage, err := r.Client.Complete(ctx, string(payload))
		usage = usage.Add(batchUsage)
		if err != nil {
			r.Logger.Warn().Int("batchStart", start).Err(err).Msg("llm transport failure, batch yields no recommendations")
			continue
		}

		unwrapped := llmclient.UnwrapSingleKeyArray(text)
		var parsed []Recommendation
		if jsonErr := json.Unmarshal([]byte(unwrapped), &parsed); jsonErr != nil {
			r.Logger.Warn().Int("batchStart", start).Err(jsonErr).Msg("malformed batch response, discarding")
			continue
		}

		for i, rec := range parsed {
			if i >= len(batch) {
				break // recommendations beyond the batch length are discarded
			}
			recommendations[start+i] = rec
		}
	}

	return recommendations, usage, nil
}

// EntityReport is one entity's normalization findings (validated later by
// the planner; this package only parses the shape).
type EntityReport struct {
	EntityName string          `json:"entityName"`
	Issues     json.RawMessage `json:"issues"`
}

// SchemaNormalizationRunner drives the schema-normalization mode.
type SchemaNormalizationRunner struct {
	Client           llmclient.Client
	MaxContinuations int
	Logger           zerolog.Logger
}

// NewSchemaNormalizationRunner returns a runner with the default
// continuation cap if maxContinuations is not positive.
func NewSchemaNormalizationRunner(client llmclient.Client, maxContinuations int, logger zerolog.Logger) *SchemaNormalizationRunner {
	if maxContinuations <= 0 {
		maxContinuations = DefaultMaxContinuations
	}
	return &SchemaNormalizationRunner{Client: client, MaxContinuations: maxContinuations, Logger: logger}
}

// Run issues the full request and re-issues it on a malformed/truncated
// response up to MaxContinuations times, using the same exponential
// backoff policy the transport layer uses for transient HTTP failures.
// Entities absent from a well-formed response are the
// caller's responsibility to treat as clean.
func (r *SchemaNormalizationRunner) Run(ctx context.Context, requestPayload string) ([]EntityReport, llmclient.TokenUsage, error) {
	var usage llmclient.TokenUsage
	var reports []EntityReport
	attempt := 0

	operation := func() error {
		text, reqUsage, err := r.Client.Complete(ctx, requestPayload)
		usage = usage.Add(reqUsage)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("batch: schema-normalization request failed: %w", err))
		}

		unwrapped := llmclient.UnwrapSingleKeyArray(text)
		var parsed []EntityReport
		if jsonErr := json.Unmarshal([]byte(unwrapped), &parsed); jsonErr != nil {
			attempt++
			r.Logger.Warn().Int("attempt", attempt).Err(jsonErr).Msg("malformed schema-normalization response, retrying")
			return jsonErr
		}
		reports = parsed
		return nil
	}

	retryPolicy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(r.MaxContinuations))
	if err := backoff.Retry(operation, backoff.WithContext(retryPolicy, ctx)); err != nil {
		return nil, usage, fmt.Errorf("batch: schema-normalization response still malformed after %d continuations: %w", r.MaxContinuations, err)
	}
	return reports, usage, nil
}
