package report

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownRenderer produces a Markdown report, suitable for pasting into
// a PR description or CI job summary.
type MarkdownRenderer struct {
	w io.Writer
}

func (r *MarkdownRenderer) RenderOptimization(findings []OptimizationFinding) {
	fmt.Fprintf(r.w, "# Query Optimization\n\n%d method(s) analyzed.\n\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(r.w, "## `%s.%s`\n\n", f.Query.ClassName, f.Query.MethodName)
		fmt.Fprintf(r.w, "- Query type: `%s`\n", f.Query.QueryType)
		if f.Issue == nil && len(f.IndexDemands) == 0 {
			fmt.Fprintln(r.w, "- No issues found.")
			fmt.Fprintln(r.w)
			continue
		}
		if f.Issue != nil {
			fmt.Fprintf(r.w, "- Severity: **%s**\n", f.Issue.Severity)
			fmt.Fprintf(r.w, "- Current order: `%s`\n", strings.Join(f.Issue.CurrentColumnOrder, ", "))
			fmt.Fprintf(r.w, "- Recommended order: `%s`\n", strings.Join(f.Issue.RecommendedColumnOrder, ", "))
			fmt.Fprintf(r.w, "- %s\n", f.Issue.Description)
		}
		for _, d := range f.IndexDemands {
			fmt.Fprintf(r.w, "- Index demand: `%s(%s)` (%s)\n", d.Table, d.Column, d.Kind)
		}
		fmt.Fprintln(r.w)
	}
}

func (r *MarkdownRenderer) RenderNormalization(findings []NormalizationFinding) {
	fmt.Fprintf(r.w, "# Schema Normalization\n\n%d plan(s) applied.\n\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(r.w, "## `%s`\n\n", f.Plan.SourceTable)
		fmt.Fprintf(r.w, "- New tables: `%s`\n", strings.Join(f.Plan.NewTables, ", "))
		fmt.Fprintf(r.w, "- Compatibility view: `%s`\n", f.Artifact.ViewName)
		if len(f.Written) > 0 {
			fmt.Fprintf(r.w, "- Entities written: `%s`\n", strings.Join(tablesToEntities(f.Written), ", "))
		}
		if len(f.Skipped) > 0 {
			fmt.Fprintf(r.w, "- Skipped (already existed): `%s`\n", strings.Join(f.Skipped, ", "))
		}
		fmt.Fprintln(r.w)
	}
}
