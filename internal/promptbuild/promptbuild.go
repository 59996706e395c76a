// Package promptbuild assembles LLM batch payloads: one batch's queries
// and their WHERE-condition cardinalities become the JSON array the
// query-optimization prompt expects.
package promptbuild

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antikythera/planner/internal/astsource"
	"github.com/antikythera/planner/internal/queryanalysis"
)

// BatchItem is one element of the per-batch JSON array.
type BatchItem struct {
	Method                   string `json:"method"`
	QueryType                string `json:"queryType"`
	QueryText                string `json:"queryText"`
	TableSchemaAndCardinality string `json:"tableSchemaAndCardinality"`
}

// BuildBatch assembles one BatchItem per AnalysisResult, in the same
// order the results were supplied.
func BuildBatch(results []queryanalysis.AnalysisResult) []BatchItem {
	items := make([]BatchItem, 0, len(results))
	for _, r := range results {
		items = append(items, BatchItem{
			Method:                    r.Query.MethodName,
			QueryType:                 string(r.Query.QueryType),
			QueryText:                 queryText(r.Query),
			TableSchemaAndCardinality: tableSchemaAndCardinality(r),
		})
	}
	return items
}

// queryText is the method name for DERIVED queries, otherwise the
// original SQL text.
func queryText(q astsource.QueryDescriptor) string {
	if q.QueryType == astsource.Derived {
		return q.MethodName
	}
	return q.OriginalText
}

// tableSchemaAndCardinality renders "<table> (col1:HIGH, col2:LOW, …)"
// from the union of WhereCondition cardinalities in one result, columns
// in first-seen order.
func tableSchemaAndCardinality(r queryanalysis.AnalysisResult) string {
	type colCard struct {
		col  string
		card string
	}
	byTable := map[string][]colCard{}
	var tableOrder []string
	seen := map[string]map[string]bool{}

	for _, w := range r.WhereConditions {
		table := strings.ToLower(w.TableName)
		if seen[table] == nil {
			seen[table] = map[string]bool{}
			tableOrder = append(tableOrder, table)
		}
		if seen[table][w.ColumnName] {
			continue
		}
		seen[table][w.ColumnName] = true
		byTable[table] = append(byTable[table], colCard{col: w.ColumnName, card: string(w.Cardinality)})
	}

	if len(tableOrder) == 0 {
		return r.Query.PrimaryTable
	}

	var parts []string
	for _, t := range tableOrder {
		var colParts []string
		for _, cc := range byTable[t] {
			colParts = append(colParts, fmt.Sprintf("%s:%s", cc.col, cc.card))
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", t, strings.Join(colParts, ", ")))
	}
	return strings.Join(parts, "; ")
}

// MarshalBatch renders items as the JSON array the LLM request body
// embeds.
func MarshalBatch(items []BatchItem) ([]byte, error) {
	return json.Marshal(items)
}
