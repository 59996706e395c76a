// Package normalize validates an LLM-proposed DataMigrationPlan, derives a
// topological table order from its FK graph, and synthesizes the
// changeset sequence and regenerated entity sources that carry out a
// table split.
package normalize

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/antikythera/planner/internal/astsource"
)

// ColumnMapping routes one original column to its new home.
type ColumnMapping struct {
	ViewColumn   string `json:"viewColumn"`
	TargetTable  string `json:"targetTable"`
	TargetColumn string `json:"targetColumn"`
}

// ForeignKey is one edge of the plan's FK graph, scoped to the new tables.
type ForeignKey struct {
	FromTable  string `json:"fromTable"`
	FromColumn string `json:"fromColumn"`
	ToTable    string `json:"toTable"`
	ToColumn   string `json:"toColumn"`
}

// DataMigrationPlan is one proposed table split.
type DataMigrationPlan struct {
	PlanID         uuid.UUID       `json:"planId"`
	SourceTable    string          `json:"sourceTable"`
	BaseTable      string          `json:"baseTable"`
	NewTables      []string        `json:"newTables"`
	ColumnMappings []ColumnMapping `json:"columnMappings"`
	ForeignKeys    []ForeignKey    `json:"foreignKeys"`
}

// ValidationError reports why a plan was rejected; callers log it as a
// warning and skip the plan.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "normalize: " + e.Reason }

func fail(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks every structural invariant a plan must hold. profile is
// the source entity's profile, used to check viewColumn existence.
func Validate(plan DataMigrationPlan, profile astsource.EntityProfile) error {
	if len(plan.NewTables) == 0 {
		return fail("newTables is empty")
	}
	newTableSet := map[string]bool{}
	for _, t := range plan.NewTables {
		newTableSet[strings.ToLower(t)] = true
	}
	if !newTableSet[strings.ToLower(plan.BaseTable)] {
		return fail("baseTable %q is not among newTables", plan.BaseTable)
	}

	seenViewColumns := map[string]bool{}
	for _, cm := range plan.ColumnMappings {
		if !newTableSet[strings.ToLower(cm.TargetTable)] {
			return fail("columnMapping %q targets table %q, not among newTables", cm.ViewColumn, cm.TargetTable)
		}
		v := strings.ToLower(cm.ViewColumn)
		if seenViewColumns[v] {
			return fail("viewColumn %q appears in more than one columnMapping", cm.ViewColumn)
		}
		seenViewColumns[v] = true
	}

	for _, fk := range plan.ForeignKeys {
		if !newTableSet[strings.ToLower(fk.FromTable)] {
			return fail("foreign key endpoint table %q is not among newTables", fk.FromTable)
		}
		if !newTableSet[strings.ToLower(fk.ToTable)] {
			return fail("foreign key endpoint table %q is not among newTables", fk.ToTable)
		}
	}

	if err := checkAcyclic(plan.NewTables, plan.ForeignKeys); err != nil {
		return err
	}

	sourceColumns := map[string]bool{}
	for _, f := range profile.Fields {
		sourceColumns[strings.ToLower(f.ColumnName)] = true
	}
	for _, cm := range plan.ColumnMappings {
		if !sourceColumns[strings.ToLower(cm.ViewColumn)] {
			return fail("viewColumn %q does not exist in the source profile", cm.ViewColumn)
		}
	}

	return nil
}

// checkAcyclic walks the FK graph (fromTable -> toTable, "references")
// with DFS coloring; a back edge to a GRAY node is a cycle.
func checkAcyclic(tables []string, fks []ForeignKey) error {
	adj := map[string][]string{}
	for _, fk := range fks {
		from := strings.ToLower(fk.FromTable)
		to := strings.ToLower(fk.ToTable)
		adj[from] = append(adj[from], to)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	for _, t := range tables {
		color[strings.ToLower(t)] = white
	}

	var visit func(node string) error
	visit = func(node string) error {
		color[node] = gray
		for _, next := range adj[node] {
			switch color[next] {
			case gray:
				return fail("foreign key graph over newTables is cyclic (involves %q)", next)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, t := range tables {
		key := strings.ToLower(t)
		if color[key] == white {
			if err := visit(key); err != nil {
				return err
			}
		}
	}
	return nil
}
