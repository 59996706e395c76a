package batch

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/antikythera/planner/internal/astsource"
	"github.com/antikythera/planner/internal/llmclient"
	"github.com/antikythera/planner/internal/queryanalysis"
)

type fakeClient struct {
	responses []string
	calls     int
	jsonMode  bool
}

func (f *fakeClient) Complete(ctx context.Context, userContent string) (string, llmclient.TokenUsage, error) {
	resp := f.responses[f.calls]
	f.calls++
	return resp, llmclient.TokenUsage{InputTokens: 1, OutputTokens: 1, TotalTokens: 2}, nil
}

func (f *fakeClient) SupportsJSONObjectFormat() bool { return f.jsonMode }

func analysisResults(n int) []queryanalysis.AnalysisResult {
	var out []queryanalysis.AnalysisResult
	for i := 0; i < n; i++ {
		out = append(out, queryanalysis.AnalysisResult{
			Query: astsource.QueryDescriptor{MethodName: "m", QueryType: astsource.Derived},
		})
	}
	return out
}

func TestQueryOptimizationRunner_SplitsIntoBatches(t *testing.T) {
	client := &fakeClient{responses: []string{
		`[{"rewrittenQuery":"a","explanation":"x"}]`,
		`[{"rewrittenQuery":"b","explanation":"y"}]`,
	}}
	runner := NewQueryOptimizationRunner(client, 1, zerolog.Nop())

	recs, _, err := runner.Run(context.Background(), analysisResults(2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %+v", recs)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 batch requests, got %d", client.calls)
	}
}

func TestQueryOptimizationRunner_MalformedBatchContinues(t *testing.T) {
	client := &fakeClient{responses: []string{
		"not json at all",
		`[{"rewrittenQuery":"b","explanation":"y"}]`,
	}}
	runner := NewQueryOptimizationRunner(client, 1, zerolog.Nop())

	recs, _, err := runner.Run(context.Background(), analysisResults(2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected only the second batch's recommendation, got %+v", recs)
	}
	if _, ok := recs[1]; !ok {
		t.Errorf("expected recommendation at index 1, got %+v", recs)
	}
}

func TestQueryOptimizationRunner_ExtraRecommendationsDiscarded(t *testing.T) {
	client := &fakeClient{responses: []string{
		`[{"rewrittenQuery":"a"},{"rewrittenQuery":"b"},{"rewrittenQuery":"c"}]`,
	}}
	runner := NewQueryOptimizationRunner(client, 5, zerolog.Nop())

	recs, _, err := runner.Run(context.Background(), analysisResults(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected only position 0 to be matched, got %+v", recs)
	}
}

// Malformed first response, retried once, second
// response succeeds.
func TestSchemaNormalizationRunner_RetriesOnMalformedResponse(t *testing.T) {
	client := &fakeClient{responses: []string{
		"no json array here",
		`[{"entityName":"A"},{"entityName":"B"}]`,
	}}
	runner := NewSchemaNormalizationRunner(client, 2, zerolog.Nop())

	reports, _, err := runner.Run(context.Background(), `{"entities":[]}`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 entity reports, got %+v", reports)
	}
	if client.calls != 2 {
		t.Fatalf("expected exactly one retry (2 calls), got %d", client.calls)
	}
}

func TestSchemaNormalizationRunner_GivesUpAfterMaxContinuations(t *testing.T) {
	client := &fakeClient{responses: []string{"bad", "still bad", "still bad"}}
	runner := NewSchemaNormalizationRunner(client, 2, zerolog.Nop())

	_, _, err := runner.Run(context.Background(), "{}")
	if err == nil {
		t.Fatal("expected an error after exhausting continuations")
	}
	if client.calls != 3 {
		t.Fatalf("expected 1 initial + 2 continuations = 3 calls, got %d", client.calls)
	}
}
