package report

import (
	"encoding/json"
	"io"
)

// JSONRenderer writes the findings as a single JSON document, for
// machine consumers (CI gates, dashboards).
type JSONRenderer struct {
	w io.Writer
}

type optimizationDoc struct {
	Findings []OptimizationFinding `json:"findings"`
}

type normalizationDoc struct {
	Findings []NormalizationFinding `json:"findings"`
}

func (r *JSONRenderer) RenderOptimization(findings []OptimizationFinding) {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(optimizationDoc{Findings: findings})
}

func (r *JSONRenderer) RenderNormalization(findings []NormalizationFinding) {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(normalizationDoc{Findings: findings})
}
