package promptbuild

import (
	"encoding/json"
	"testing"

	"github.com/antikythera/planner/internal/astsource"
	"github.com/antikythera/planner/internal/cardinality"
	"github.com/antikythera/planner/internal/queryanalysis"
	"github.com/antikythera/planner/internal/sqlextract"
)

func TestBuildBatch_DerivedUsesMethodNameAsQueryText(t *testing.T) {
	results := []queryanalysis.AnalysisResult{
		{
			Query: astsource.QueryDescriptor{
				MethodName: "findByLastName",
				QueryType:  astsource.Derived,
			},
		},
	}
	items := BuildBatch(results)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].QueryText != "findByLastName" {
		t.Errorf("QueryText = %q, want method name", items[0].QueryText)
	}
	if items[0].QueryType != "DERIVED" {
		t.Errorf("QueryType = %q, want DERIVED", items[0].QueryType)
	}
}

func TestBuildBatch_NativeUsesOriginalText(t *testing.T) {
	results := []queryanalysis.AnalysisResult{
		{
			Query: astsource.QueryDescriptor{
				MethodName:   "lookup",
				QueryType:    astsource.Native,
				OriginalText: "SELECT * FROM t WHERE x = ?",
			},
		},
	}
	items := BuildBatch(results)
	if items[0].QueryText != "SELECT * FROM t WHERE x = ?" {
		t.Errorf("QueryText = %q, want original SQL", items[0].QueryText)
	}
}

func TestBuildBatch_TableSchemaAndCardinality(t *testing.T) {
	oracle := cardinality.New(nil, nil, nil, nil)
	wheres := []sqlextract.WhereCondition{
		{TableName: "order", ColumnName: "status", Position: 0},
		{TableName: "order", ColumnName: "id", Position: 1},
	}
	var annotated []queryanalysis.ConditionWithCardinality
	for _, w := range wheres {
		annotated = append(annotated, queryanalysis.ConditionWithCardinality{
			WhereCondition: w, Cardinality: oracle.Classify(w.TableName, w.ColumnName),
		})
	}
	results := []queryanalysis.AnalysisResult{{
		Query:           astsource.QueryDescriptor{MethodName: "m", QueryType: astsource.Native, OriginalText: "x"},
		WhereConditions: annotated,
	}}
	items := BuildBatch(results)
	want := "order (status:MEDIUM, id:MEDIUM)"
	if items[0].TableSchemaAndCardinality != want {
		t.Errorf("TableSchemaAndCardinality = %q, want %q", items[0].TableSchemaAndCardinality, want)
	}
}

func TestMarshalBatch_ProducesArray(t *testing.T) {
	items := []BatchItem{{Method: "m", QueryType: "NATIVE", QueryText: "x", TableSchemaAndCardinality: "t (c:HIGH)"}}
	data, err := MarshalBatch(items)
	if err != nil {
		t.Fatalf("MarshalBatch: %v", err)
	}
	var decoded []map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("expected a JSON array, got: %s", data)
	}
	if decoded[0]["method"] != "m" {
		t.Errorf("decoded = %+v", decoded)
	}
}
