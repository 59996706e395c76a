package queryanalysis

import (
	"testing"

	"github.com/antikythera/planner/internal/astsource"
	"github.com/antikythera/planner/internal/cardinality"
	"github.com/antikythera/planner/internal/catalog"
	"github.com/antikythera/planner/internal/sqlextract"
)

// A leading LOW column with a HIGH column later yields a HIGH-severity
// reorder.
func TestAnalyze_LeadingLowYieldsReorder(t *testing.T) {
	cat := catalog.New()
	cat.Add("user", catalog.IndexInfo{Name: "PRIMARY", Type: catalog.PrimaryKey, Columns: []string{"id"}})
	oracle := cardinality.New(cat, nil, nil, nil)

	stmt, err := sqlextract.Parse("SELECT * FROM user WHERE active = ? AND id = ?")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	q := astsource.QueryDescriptor{PrimaryTable: "user", Statement: stmt, QueryType: astsource.Native}

	result := Analyze(q, oracle)

	if len(result.WhereConditions) != 2 {
		t.Fatalf("expected 2 conditions, got %+v", result.WhereConditions)
	}
	if result.WhereConditions[0].ColumnName != "active" || result.WhereConditions[0].Cardinality != cardinality.Low {
		t.Errorf("first condition = %+v, want active/LOW", result.WhereConditions[0])
	}
	if result.WhereConditions[1].ColumnName != "id" || result.WhereConditions[1].Cardinality != cardinality.High {
		t.Errorf("second condition = %+v, want id/HIGH", result.WhereConditions[1])
	}
	if result.OptimizationIssue == nil || result.OptimizationIssue.Severity != SeverityHigh {
		t.Fatalf("expected HIGH severity issue, got %+v", result.OptimizationIssue)
	}
	if len(result.IndexDemands) != 0 {
		t.Errorf("expected no index demands (id already PK-indexed), got %+v", result.IndexDemands)
	}
}

// The PK-bearing HIGH condition must come first even when the leading
// condition is HIGH through another mechanism (here a unique constraint).
func TestAnalyze_PKConditionNotFirst(t *testing.T) {
	cat := catalog.New()
	cat.Add("user", catalog.IndexInfo{Name: "PRIMARY", Type: catalog.PrimaryKey, Columns: []string{"id"}})
	cat.Add("user", catalog.IndexInfo{Name: "uq_user_email", Type: catalog.UniqueConstraint, Columns: []string{"email"}})
	oracle := cardinality.New(cat, nil, nil, nil)

	stmt, err := sqlextract.Parse("SELECT * FROM user WHERE email = ? AND id = ? AND name = ?")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	q := astsource.QueryDescriptor{PrimaryTable: "user", Statement: stmt, QueryType: astsource.Native}

	result := Analyze(q, oracle)

	if result.OptimizationIssue == nil {
		t.Fatal("expected an issue recommending the PK condition first")
	}
	if result.OptimizationIssue.Severity != SeverityMedium {
		t.Errorf("expected MEDIUM severity, got %+v", result.OptimizationIssue)
	}
	if got := result.OptimizationIssue.RecommendedColumnOrder; len(got) != 1 || got[0] != "id" {
		t.Errorf("expected id recommended first, got %v", got)
	}
}

// No issue when the PK-bearing HIGH condition already leads.
func TestAnalyze_PKConditionAlreadyFirst(t *testing.T) {
	cat := catalog.New()
	cat.Add("user", catalog.IndexInfo{Name: "PRIMARY", Type: catalog.PrimaryKey, Columns: []string{"id"}})
	cat.Add("user", catalog.IndexInfo{Name: "uq_user_email", Type: catalog.UniqueConstraint, Columns: []string{"email"}})
	oracle := cardinality.New(cat, nil, nil, nil)

	stmt, err := sqlextract.Parse("SELECT * FROM user WHERE id = ? AND email = ?")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	q := astsource.QueryDescriptor{PrimaryTable: "user", Statement: stmt, QueryType: astsource.Native}

	result := Analyze(q, oracle)
	if result.OptimizationIssue != nil {
		t.Fatalf("expected no issue, got %+v", result.OptimizationIssue)
	}
}

// A MEDIUM leading column with no supporting index demands one.
func TestAnalyze_MediumNoIndexDemandsIndex(t *testing.T) {
	oracle := cardinality.New(catalog.New(), nil, nil, nil)

	stmt, err := sqlextract.Parse("SELECT * FROM `order` WHERE status = ?")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	q := astsource.QueryDescriptor{PrimaryTable: "order", Statement: stmt, QueryType: astsource.Native}

	result := Analyze(q, oracle)

	if result.OptimizationIssue == nil || result.OptimizationIssue.Severity != SeverityHigh {
		t.Fatalf("expected HIGH severity issue, got %+v", result.OptimizationIssue)
	}
	if len(result.IndexDemands) != 1 || result.IndexDemands[0].Table != "order" || result.IndexDemands[0].Column != "status" {
		t.Fatalf("expected demand on order.status, got %+v", result.IndexDemands)
	}
}

func TestAnalyze_DerivedQuery(t *testing.T) {
	oracle := cardinality.New(catalog.New(), nil, nil, nil)
	q := astsource.QueryDescriptor{
		PrimaryTable: "customer",
		QueryType:    astsource.Derived,
		MethodParameters: []astsource.MethodParameter{
			{Name: "lastName", Column: "last_name"},
			{Name: "unbound"},
			{Name: "firstName", Column: "first_name"},
		},
	}
	result := Analyze(q, oracle)
	if len(result.WhereConditions) != 2 {
		t.Fatalf("expected 2 bound conditions, got %+v", result.WhereConditions)
	}
	if result.WhereConditions[0].ColumnName != "last_name" || result.WhereConditions[0].Position != 0 {
		t.Errorf("first = %+v", result.WhereConditions[0])
	}
	if result.WhereConditions[1].ColumnName != "first_name" || result.WhereConditions[1].Position != 2 {
		t.Errorf("second = %+v", result.WhereConditions[1])
	}
}

func TestAnalyze_NoConditionsNoIssue(t *testing.T) {
	oracle := cardinality.New(catalog.New(), nil, nil, nil)
	stmt, err := sqlextract.Parse("SELECT * FROM customer")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	q := astsource.QueryDescriptor{PrimaryTable: "customer", Statement: stmt, QueryType: astsource.Native}
	result := Analyze(q, oracle)
	if result.OptimizationIssue != nil {
		t.Errorf("expected no issue, got %+v", result.OptimizationIssue)
	}
	if len(result.IndexDemands) != 0 {
		t.Errorf("expected no demands, got %+v", result.IndexDemands)
	}
}

// indexDemands never contains a LOW-cardinality pair.
func TestAnalyze_NoLowCardinalityDemands(t *testing.T) {
	oracle := cardinality.New(catalog.New(), nil, nil, nil)
	stmt, err := sqlextract.Parse("SELECT * FROM `order` WHERE is_paid = ? AND status = ?")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	q := astsource.QueryDescriptor{PrimaryTable: "order", Statement: stmt, QueryType: astsource.Native}
	result := Analyze(q, oracle)
	for _, d := range result.IndexDemands {
		if d.Column == "is_paid" {
			t.Errorf("LOW-cardinality column is_paid should never be demanded, got %+v", result.IndexDemands)
		}
	}
}
