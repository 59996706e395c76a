package report

import (
	"fmt"
	"io"
	"strings"
)

// PlainRenderer produces unformatted text output safe for piping.
type PlainRenderer struct {
	w io.Writer
}

func (r *PlainRenderer) RenderOptimization(findings []OptimizationFinding) {
	fmt.Fprintf(r.w, "=== Query Optimization — %d methods analyzed ===\n\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(r.w, "Method:      %s.%s\n", f.Query.ClassName, f.Query.MethodName)
		fmt.Fprintf(r.w, "Query type:  %s\n", f.Query.QueryType)
		if f.Issue == nil && len(f.IndexDemands) == 0 {
			fmt.Fprintln(r.w, "No issues found.")
			fmt.Fprintln(r.w)
			continue
		}
		if f.Issue != nil {
			fmt.Fprintf(r.w, "Severity:    %s\n", f.Issue.Severity)
			fmt.Fprintf(r.w, "Current:     %s\n", strings.Join(f.Issue.CurrentColumnOrder, ", "))
			fmt.Fprintf(r.w, "Recommended: %s\n", strings.Join(f.Issue.RecommendedColumnOrder, ", "))
			fmt.Fprintf(r.w, "Description: %s\n", f.Issue.Description)
		}
		for _, d := range f.IndexDemands {
			fmt.Fprintf(r.w, "Index demand: %s(%s) [%s]\n", d.Table, d.Column, d.Kind)
		}
		fmt.Fprintln(r.w)
	}
}

func (r *PlainRenderer) RenderNormalization(findings []NormalizationFinding) {
	fmt.Fprintf(r.w, "=== Schema Normalization — %d plans applied ===\n\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(r.w, "Source table: %s\n", f.Plan.SourceTable)
		fmt.Fprintf(r.w, "New tables:   %s\n", strings.Join(f.Plan.NewTables, ", "))
		fmt.Fprintf(r.w, "View:         %s\n", f.Artifact.ViewName)
		if len(f.Written) > 0 {
			fmt.Fprintf(r.w, "Entities written: %s\n", strings.Join(tablesToEntities(f.Written), ", "))
		}
		if len(f.Skipped) > 0 {
			fmt.Fprintf(r.w, "Skipped (already exist): %s\n", strings.Join(f.Skipped, ", "))
		}
		fmt.Fprintln(r.w)
	}
}
