// Package queryanalysis is the per-query analysis engine: one
// QueryDescriptor in, one immutable AnalysisResult out, with at most one
// reordering recommendation attached.
package queryanalysis

import (
	"github.com/antikythera/planner/internal/astsource"
	"github.com/antikythera/planner/internal/cardinality"
	"github.com/antikythera/planner/internal/sqlextract"
)

// Severity drives report ordering only; it never affects emitted
// changesets.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
)

// OptimizationIssue is one query's reordering or missing-index finding.
type OptimizationIssue struct {
	OriginalQuery          string
	RewrittenQuery         string // "" if no rewrite was synthesized
	CurrentColumnOrder     []string
	RecommendedColumnOrder []string
	Description            string
	AIExplanation          string // filled in later by the LLM pass, empty at analysis time
	Severity               Severity
}

// IndexDemandKind tags why a demand was raised, for downstream reporting;
// it does not change how demands are consolidated.
type IndexDemandKind string

const (
	DemandWhere IndexDemandKind = "WHERE"
	DemandJoin  IndexDemandKind = "JOIN"
)

// IndexDemand is one (table, column) pair that needs supporting index
// coverage.
type IndexDemand struct {
	Table  string
	Column string
	Kind   IndexDemandKind
}

// ConditionWithCardinality pairs a WhereCondition with the CardinalityLevel
// the cardinality oracle assigned it.
type ConditionWithCardinality struct {
	sqlextract.WhereCondition
	Cardinality cardinality.Level
}

// AnalysisResult is one query's full analysis. Immutable after
// construction by Analyze.
type AnalysisResult struct {
	Query             astsource.QueryDescriptor
	WhereConditions   []ConditionWithCardinality
	JoinConditions    []sqlextract.JoinCondition
	IndexDemands      []IndexDemand
	OptimizationIssue *OptimizationIssue // nil if none fired
}

// Analyze produces the full analysis for one query: conditions in order,
// cardinality attached, index demands, and at most one reordering issue.
func Analyze(q astsource.QueryDescriptor, oracle *cardinality.Oracle) AnalysisResult {
	var wheres []sqlextract.WhereCondition
	var joins []sqlextract.JoinCondition

	if q.QueryType == astsource.Derived || q.Statement == nil {
		wheres = derivedConditions(q)
	} else {
		wheres, joins = sqlextract.Extract(q.Statement, q.PrimaryTable)
	}

	annotated := attachCardinality(wheres, oracle)
	demands := computeIndexDemands(annotated, joins, oracle)
	issue := applyReorderingRules(annotated, oracle)

	return AnalysisResult{
		Query:            q,
		WhereConditions:  annotated,
		JoinConditions:   joins,
		IndexDemands:     demands,
		OptimizationIssue: issue,
	}
}

// derivedConditions synthesizes conditions from a DERIVED query's bound
// method parameters, one condition per bound parameter.
func derivedConditions(q astsource.QueryDescriptor) []sqlextract.WhereCondition {
	var out []sqlextract.WhereCondition
	for i, p := range q.MethodParameters {
		if p.Column == "" {
			continue
		}
		out = append(out, sqlextract.WhereCondition{
			TableName:    q.PrimaryTable,
			ColumnName:   p.Column,
			Operator:     sqlextract.OpEQ,
			Position:     i,
			ParameterRef: p.Name,
		})
	}
	return out
}

func attachCardinality(wheres []sqlextract.WhereCondition, oracle *cardinality.Oracle) []ConditionWithCardinality {
	out := make([]ConditionWithCardinality, 0, len(wheres))
	for _, w := range wheres {
		out = append(out, ConditionWithCardinality{
			WhereCondition: w,
			Cardinality:    oracle.Classify(w.TableName, w.ColumnName),
		})
	}
	return out
}

// computeIndexDemands collects the missing-index pairs. No LOW
// column ever appears here.
func computeIndexDemands(wheres []ConditionWithCardinality, joins []sqlextract.JoinCondition, oracle *cardinality.Oracle) []IndexDemand {
	var out []IndexDemand
	for _, w := range wheres {
		if w.Cardinality == cardinality.Low {
			continue
		}
		if !oracle.HasIndexWithLeadingColumn(w.TableName, w.ColumnName) {
			out = append(out, IndexDemand{Table: w.TableName, Column: w.ColumnName, Kind: DemandWhere})
		}
	}
	for _, j := range joins {
		lvl := oracle.Classify(j.RightTable, j.RightColumn)
		if lvl == cardinality.Low {
			continue
		}
		if !oracle.HasIndexWithLeadingColumn(j.RightTable, j.RightColumn) {
			out = append(out, IndexDemand{Table: j.RightTable, Column: j.RightColumn, Kind: DemandJoin})
		}
	}
	return out
}

// applyReorderingRules fires at most one rule, checked in fixed order.
func applyReorderingRules(wheres []ConditionWithCardinality, oracle *cardinality.Oracle) *OptimizationIssue {
	if len(wheres) == 0 {
		return nil
	}
	first := wheres[0]

	// Leading LOW, some later HIGH.
	if first.Cardinality == cardinality.Low {
		if hi, ok := firstWithLevel(wheres[1:], cardinality.High); ok {
			return &OptimizationIssue{
				CurrentColumnOrder:     []string{first.ColumnName},
				RecommendedColumnOrder: []string{hi.ColumnName},
				Description:            "leading condition has low selectivity; a later condition is highly selective",
				Severity:               SeverityHigh,
			}
		}
		// Leading LOW, no later HIGH, some later MEDIUM.
		if med, ok := firstWithLevel(wheres[1:], cardinality.Medium); ok {
			return &OptimizationIssue{
				CurrentColumnOrder:     []string{first.ColumnName},
				RecommendedColumnOrder: []string{med.ColumnName},
				Description:            "leading condition has low selectivity; a later condition is more selective",
				Severity:               SeverityMedium,
			}
		}
	}

	// Leading MEDIUM with no supporting index.
	if first.Cardinality == cardinality.Medium && !oracle.HasIndexWithLeadingColumn(first.TableName, first.ColumnName) {
		return &OptimizationIssue{
			CurrentColumnOrder:     []string{first.ColumnName},
			RecommendedColumnOrder: []string{first.ColumnName},
			Description:            "leading condition is medium selectivity and has no supporting index",
			Severity:               SeverityHigh,
		}
	}

	// More than one HIGH condition and the PK-bearing HIGH condition isn't
	// first. The leading condition may itself be HIGH through another
	// mechanism (a unique constraint, a user override); what matters is
	// whether it is the PK-bearing one.
	highCount := 0
	for _, w := range wheres {
		if w.Cardinality == cardinality.High {
			highCount++
		}
	}
	if highCount > 1 {
		if pk, ok := firstPKHigh(wheres, oracle); ok && pk.Position != first.Position {
			return &OptimizationIssue{
				CurrentColumnOrder:     []string{first.ColumnName},
				RecommendedColumnOrder: []string{pk.ColumnName},
				Description:            "a primary-key condition should be evaluated first",
				Severity:               SeverityMedium,
			}
		}
	}

	return nil
}

func firstWithLevel(wheres []ConditionWithCardinality, lvl cardinality.Level) (ConditionWithCardinality, bool) {
	for _, w := range wheres {
		if w.Cardinality == lvl {
			return w, true
		}
	}
	return ConditionWithCardinality{}, false
}

func firstPKHigh(wheres []ConditionWithCardinality, oracle *cardinality.Oracle) (ConditionWithCardinality, bool) {
	for _, w := range wheres {
		if w.Cardinality == cardinality.High && oracle.IsPrimaryKeyColumn(w.TableName, w.ColumnName) {
			return w, true
		}
	}
	return ConditionWithCardinality{}, false
}
