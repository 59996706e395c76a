package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/antikythera/planner/internal/astsource"
	"github.com/antikythera/planner/internal/batch"
	"github.com/antikythera/planner/internal/cardinality"
	"github.com/antikythera/planner/internal/catalog"
	"github.com/antikythera/planner/internal/changeset"
	"github.com/antikythera/planner/internal/indexsuggest"
	"github.com/antikythera/planner/internal/llmclient"
	"github.com/antikythera/planner/internal/pipeline"
	"github.com/antikythera/planner/internal/queryanalysis"
	"github.com/antikythera/planner/internal/report"
	"github.com/antikythera/planner/internal/sqlextract"
	"github.com/antikythera/planner/internal/stats"
)

var optimizeCmd = &cobra.Command{
	Use:          "optimize",
	Short:        "Analyze repository queries and plan index changesets",
	SilenceUsage: true,
	Long: `Walk every repository in the AST export, analyze each query's WHERE
and JOIN conditions against the index catalog, and:
  - Flag suboptimal condition ordering (LOW-cardinality columns leading)
  - Collect missing-index demands and consolidate them (covering rules)
  - Ask the configured AI provider for per-query rewrites, in batches
  - Emit one composite Liquibase changeset with the surviving proposals

Progress is checkpointed after every repository; an interrupted run
resumes where it left off.`,
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	// Index catalog: loaded once, read-only afterwards. An unreadable
	// catalog is fatal; an unconfigured master file just means an empty
	// catalog and stdout output.
	masterPath := viper.GetString("query_optimizer.liquibase_master_file")
	cat := catalog.New()
	if masterPath != "" {
		cat, err = catalog.NewLiquibaseXMLLoader(masterPath).Load()
		if err != nil {
			return fmt.Errorf("index catalog unreadable: %w", err)
		}
	}

	low, high := cardinalityOverrides()
	oracle := cardinality.New(cat, nil, low, high)

	runtime, err := loadRuntime(cfg)
	if err != nil {
		return err
	}

	client, err := newLLMClient(queryOptimizationPrompt, logger)
	if err != nil {
		return err
	}
	runner := batch.NewQueryOptimizationRunner(client, viper.GetInt("query_optimizer.batch_size"), logger)

	agg := indexsuggest.New(cat, viper.GetInt("query_optimizer.max_index_columns"))
	recorder := stats.New(filepath.Join(cfg.BasePath, "query-optimization-stats.csv"))

	var usage llmclient.TokenUsage

	driver := pipeline.NewDriver(runtime, filepath.Join(cfg.BasePath, ".antikythera-optimize-checkpoint.json"), pipeline.Filters{
		TargetClass: viper.GetString("query_optimizer.target_class"),
	}, logger)
	driver.Matches = func(ty astsource.ResolvedType) bool { return ty.IsRepository }
	driver.RestoreFromCheckpoint = func(cp pipeline.Checkpoint) {
		agg.Restore(cp.SingleIndexes, cp.MultiIndexes)
	}
	driver.Analyze = func(ty astsource.ResolvedType, cp *pipeline.Checkpoint) (any, error) {
		findings, batchUsage, err := analyzeRepository(cmd, ty, oracle, runner, agg)
		usage = usage.Add(batchUsage)
		if err != nil {
			return nil, err
		}

		demandCount := 0
		for _, f := range findings {
			demandCount += len(f.IndexDemands)
		}
		recorder.Record(ty.FQN, stats.Counters{
			QueriesAnalyzed:  len(ty.Queries),
			IndexesGenerated: demandCount,
		})

		cp.SingleIndexes, cp.MultiIndexes = agg.Snapshot()
		return findings, nil
	}

	fmt.Printf("🔍 Analyzing repositories from %s\n", cfg.ASTExportPath)
	results, err := driver.Run()
	if err != nil {
		return err
	}

	var findings []report.OptimizationFinding
	for _, r := range results {
		findings = append(findings, r.([]report.OptimizationFinding)...)
	}

	set := agg.Finalize()
	composite := buildIndexComposite(set, cfg.Author)

	if composite != "" {
		if masterPath != "" {
			w := changeset.NewWriter(masterPath)
			w.Author = cfg.Author
			now := time.Now()
			fileName, err := w.Write(composite, now, now.UnixNano())
			if err != nil {
				return err
			}
			fmt.Printf("✅ Changeset written to %s and registered in %s\n", fileName, masterPath)
		} else {
			fmt.Println(composite)
		}
	} else {
		fmt.Println("✅ No index changes needed")
	}

	report.New(cfg.Format, os.Stdout).RenderOptimization(findings)

	if err := recorder.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Could not write stats CSV: %v\n", err)
	}
	fmt.Printf("ℹ️  Token usage: %d in / %d out / %d total\n", usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
	return nil
}

// analyzeRepository analyzes one repository's queries, sends the
// batch to the LLM, merges recommendations back by position, and feeds
// final demands into the aggregator. Rewritten queries are re-analyzed so
// the demands reflect the rewrite, not the original.
func analyzeRepository(cmd *cobra.Command, ty astsource.ResolvedType, oracle *cardinality.Oracle, runner *batch.QueryOptimizationRunner, agg *indexsuggest.Aggregator) ([]report.OptimizationFinding, llmclient.TokenUsage, error) {
	results := make([]queryanalysis.AnalysisResult, 0, len(ty.Queries))
	for _, q := range ty.Queries {
		results = append(results, queryanalysis.Analyze(q, oracle))
	}

	recommendations, usage, err := runner.Run(cmd.Context(), results)
	if err != nil {
		return nil, usage, err
	}

	findings := make([]report.OptimizationFinding, 0, len(results))
	for i := range results {
		final := results[i]
		if rec, ok := recommendations[i]; ok {
			mergeRecommendation(&final, rec)
			if rec.RewrittenQuery != "" {
				if stmt, parseErr := sqlextract.Parse(rec.RewrittenQuery); parseErr == nil {
					rq := final.Query
					rq.Statement = stmt
					rq.OriginalText = rec.RewrittenQuery
					final = queryanalysis.Analyze(rq, oracle)
					final.OptimizationIssue = results[i].OptimizationIssue
					mergeRecommendation(&final, rec)
				}
			}
		}
		agg.Add(final)
		findings = append(findings, report.OptimizationFinding{
			Query:        final.Query,
			Issue:        final.OptimizationIssue,
			IndexDemands: final.IndexDemands,
		})
	}
	return findings, usage, nil
}

// mergeRecommendation fills the AI-sourced fields of a result's issue,
// creating the issue if analysis alone found nothing but the model did.
func mergeRecommendation(result *queryanalysis.AnalysisResult, rec batch.Recommendation) {
	if rec.RewrittenQuery == "" && rec.Explanation == "" && len(rec.RecommendedColumnOrder) == 0 {
		return
	}
	if result.OptimizationIssue == nil {
		result.OptimizationIssue = &queryanalysis.OptimizationIssue{
			OriginalQuery: result.Query.OriginalText,
			Severity:      queryanalysis.SeverityMedium,
		}
	}
	result.OptimizationIssue.RewrittenQuery = rec.RewrittenQuery
	result.OptimizationIssue.AIExplanation = rec.Explanation
	if len(rec.RecommendedColumnOrder) > 0 {
		result.OptimizationIssue.RecommendedColumnOrder = rec.RecommendedColumnOrder
	}
}

// buildIndexComposite renders the final proposal set: multi-column
// indexes first, then singles.
func buildIndexComposite(set *indexsuggest.ProposalSet, author string) string {
	dialects := changeset.ParseDialects(viper.GetStringSlice("query_optimizer.dialects"))
	b := changeset.NewBuilder(author, dialects)

	var changesets []changeset.Changeset
	for _, key := range set.Multis() {
		table, cols := indexsuggest.SplitKey(key)
		if table == "" {
			continue
		}
		changesets = append(changesets, b.CreateIndex(table, cols, false))
	}
	for _, key := range set.Singles() {
		table, cols := indexsuggest.SplitKey(key)
		if table == "" {
			continue
		}
		changesets = append(changesets, b.CreateIndex(table, cols, false))
	}
	return changeset.Composite(changesets...)
}
