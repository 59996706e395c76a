// Package report renders query-optimization and schema-normalization
// findings for a human or machine consumer behind a format-switched
// Renderer interface.
package report

import (
	"io"

	"github.com/antikythera/planner/internal/astsource"
	"github.com/antikythera/planner/internal/normalize"
	"github.com/antikythera/planner/internal/queryanalysis"
)

// OptimizationFinding is one repository method's analysis, ready to
// render: the query it came from, its optimization issue if any (nil
// means no reordering/index recommendation survived analysis), and the
// index demands it produced.
type OptimizationFinding struct {
	Query        astsource.QueryDescriptor       `json:"query"`
	Issue        *queryanalysis.OptimizationIssue `json:"issue,omitempty"`
	IndexDemands []queryanalysis.IndexDemand      `json:"indexDemands,omitempty"`
}

// NormalizationFinding is one entity's accepted table-split plan, ready
// to render.
type NormalizationFinding struct {
	Plan     normalize.DataMigrationPlan   `json:"plan"`
	Artifact normalize.MappingArtifact     `json:"artifact"`
	Written  []string                      `json:"written,omitempty"` // tables whose entity file was (re)generated
	Skipped  []string                      `json:"skipped,omitempty"` // tables whose entity file already existed
}

// Renderer is the output surface both CLI commands (optimize, normalize)
// write through.
type Renderer interface {
	RenderOptimization(findings []OptimizationFinding)
	RenderNormalization(findings []NormalizationFinding)
}

// New returns a Renderer for format ("text", "plain", "markdown",
// "json"), defaulting to the lipgloss-styled TextRenderer.
func New(format string, w io.Writer) Renderer {
	switch format {
	case "json":
		return &JSONRenderer{w: w}
	case "markdown":
		return &MarkdownRenderer{w: w}
	case "plain":
		return &PlainRenderer{w: w}
	default:
		return &TextRenderer{w: w}
	}
}
