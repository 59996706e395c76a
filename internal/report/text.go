package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/antikythera/planner/internal/normalize"
)

// TextRenderer produces Lip Gloss styled terminal output.
type TextRenderer struct {
	w io.Writer
}

func (r *TextRenderer) labelValue(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}

func (r *TextRenderer) RenderOptimization(findings []OptimizationFinding) {
	width := 64
	header := TitleStyle.Render(fmt.Sprintf("Query Optimization — %d methods analyzed", len(findings)))
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, header)

	for _, f := range findings {
		lines := []string{
			r.labelValue("Method:", fmt.Sprintf("%s.%s", f.Query.ClassName, f.Query.MethodName)),
			r.labelValue("Query type:", string(f.Query.QueryType)),
		}

		if f.Issue == nil && len(f.IndexDemands) == 0 {
			box := SafeBoxStyle.Width(width).Render(strings.Join(append(lines,
				SafeText.Render(IconSafe+" no issues found")), "\n"))
			fmt.Fprintln(r.w, box)
			continue
		}

		if f.Issue != nil {
			lines = append(lines,
				r.labelValue("Current order:", strings.Join(f.Issue.CurrentColumnOrder, ", ")),
				r.labelValue("Recommended:", strings.Join(f.Issue.RecommendedColumnOrder, ", ")),
				r.labelValue("Description:", f.Issue.Description),
			)
		}
		for _, d := range f.IndexDemands {
			lines = append(lines, r.labelValue("Index demand:", fmt.Sprintf("%s(%s) [%s]", d.Table, d.Column, d.Kind)))
		}

		style := WarningBoxStyle
		icon, text := IconWarning, WarningText
		if f.Issue != nil && f.Issue.Severity == "HIGH" {
			style = DangerBoxStyle
			icon, text = IconDanger, DangerText
		}
		lines = append([]string{text.Render(icon + " issue found")}, lines...)
		fmt.Fprintln(r.w, style.Width(width).Render(strings.Join(lines, "\n")))
	}
	fmt.Fprintln(r.w)
}

func (r *TextRenderer) RenderNormalization(findings []NormalizationFinding) {
	width := 64
	header := TitleStyle.Render(fmt.Sprintf("Schema Normalization — %d plans applied", len(findings)))
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, header)

	for _, f := range findings {
		lines := []string{
			r.labelValue("Source table:", f.Plan.SourceTable),
			r.labelValue("New tables:", strings.Join(f.Plan.NewTables, ", ")),
			r.labelValue("View:", f.Artifact.ViewName),
		}
		if len(f.Written) > 0 {
			lines = append(lines, r.labelValue("Entities written:", strings.Join(tablesToEntities(f.Written), ", ")))
		}
		if len(f.Skipped) > 0 {
			lines = append(lines, WarningText.Render(IconWarning+" skipped existing: "+strings.Join(f.Skipped, ", ")))
		}
		fmt.Fprintln(r.w, BoxStyle.Width(width).Render(strings.Join(lines, "\n")))
	}
	fmt.Fprintln(r.w)
}

func tablesToEntities(tables []string) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = normalize.PascalCase(t)
	}
	return out
}
