package normalize

import (
	"os"
	"strings"
	"testing"

	"github.com/antikythera/planner/internal/astsource"
	"github.com/antikythera/planner/internal/changeset"
)

func customerProfile() astsource.EntityProfile {
	return astsource.EntityProfile{
		EntityName: "Customer",
		TableName:  "customer",
		Fields: []astsource.FieldProfile{
			{JavaName: "id", ColumnName: "id", IsID: true, TypeName: "Long"},
			{JavaName: "name", ColumnName: "name", TypeName: "String"},
			{JavaName: "street", ColumnName: "street", TypeName: "String", IsNullable: true},
			{JavaName: "city", ColumnName: "city", TypeName: "String", IsNullable: true},
			{JavaName: "zip", ColumnName: "zip", TypeName: "String", IsNullable: true},
			{JavaName: "country", ColumnName: "country", TypeName: "String", IsNullable: true},
		},
	}
}

// A customer/address split used throughout these tests.
func customerAddressPlan() DataMigrationPlan {
	return DataMigrationPlan{
		SourceTable: "customer",
		BaseTable:   "customer",
		NewTables:   []string{"customer", "address"},
		ColumnMappings: []ColumnMapping{
			{ViewColumn: "id", TargetTable: "customer", TargetColumn: "id"},
			{ViewColumn: "name", TargetTable: "customer", TargetColumn: "name"},
			{ViewColumn: "street", TargetTable: "address", TargetColumn: "street"},
			{ViewColumn: "city", TargetTable: "address", TargetColumn: "city"},
			{ViewColumn: "zip", TargetTable: "address", TargetColumn: "zip"},
			{ViewColumn: "country", TargetTable: "address", TargetColumn: "country"},
		},
		ForeignKeys: []ForeignKey{
			{FromTable: "customer", FromColumn: "address_id", ToTable: "address", ToColumn: "id"},
		},
	}
}

func TestValidate_AcceptsWellFormedPlan(t *testing.T) {
	if err := Validate(customerAddressPlan(), customerProfile()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_RejectsBaseTableNotInNewTables(t *testing.T) {
	plan := customerAddressPlan()
	plan.BaseTable = "nonexistent"
	if err := Validate(plan, customerProfile()); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidate_RejectsUnknownColumnMappingTarget(t *testing.T) {
	plan := customerAddressPlan()
	plan.ColumnMappings[0].TargetTable = "nonexistent"
	if err := Validate(plan, customerProfile()); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidate_RejectsCyclicForeignKeys(t *testing.T) {
	plan := customerAddressPlan()
	plan.ForeignKeys = append(plan.ForeignKeys, ForeignKey{FromTable: "address", FromColumn: "customer_id", ToTable: "customer", ToColumn: "id"})
	if err := Validate(plan, customerProfile()); err == nil {
		t.Fatal("expected cycle to be rejected")
	}
}

func TestValidate_RejectsDuplicateViewColumn(t *testing.T) {
	plan := customerAddressPlan()
	plan.ColumnMappings = append(plan.ColumnMappings, ColumnMapping{ViewColumn: "name", TargetTable: "address", TargetColumn: "name"})
	if err := Validate(plan, customerProfile()); err == nil {
		t.Fatal("expected duplicate viewColumn to be rejected")
	}
}

func TestValidate_RejectsUnknownViewColumn(t *testing.T) {
	plan := customerAddressPlan()
	plan.ColumnMappings = append(plan.ColumnMappings, ColumnMapping{ViewColumn: "ghost", TargetTable: "customer", TargetColumn: "ghost"})
	if err := Validate(plan, customerProfile()); err == nil {
		t.Fatal("expected unknown viewColumn to be rejected")
	}
}

// address (the referenced parent) precedes customer (the
// referencing child) in CREATE order.
func TestCreateOrder_ParentBeforeChild(t *testing.T) {
	plan := customerAddressPlan()
	order := CreateOrder(plan.NewTables, plan.ForeignKeys)
	if len(order) != 2 || order[0] != "address" || order[1] != "customer" {
		t.Fatalf("expected [address customer], got %+v", order)
	}
}

func TestJoinOrder_ChildBeforeParent(t *testing.T) {
	plan := customerAddressPlan()
	order := JoinOrder(plan.NewTables, plan.ForeignKeys)
	if len(order) != 2 || order[0] != "customer" || order[1] != "address" {
		t.Fatalf("expected [customer address], got %+v", order)
	}
}

// A longer chain: a -> b -> c (a references b, b references c).
func TestCreateOrder_LongerChain(t *testing.T) {
	tables := []string{"a", "b", "c"}
	fks := []ForeignKey{
		{FromTable: "a", FromColumn: "b_id", ToTable: "b", ToColumn: "id"},
		{FromTable: "b", FromColumn: "c_id", ToTable: "c", ToColumn: "id"},
	}
	order := CreateOrder(tables, fks)
	pos := map[string]int{}
	for i, t := range order {
		pos[t] = i
	}
	if pos["b"] >= pos["a"] {
		t.Errorf("expected b before a, got %+v", order)
	}
	if pos["c"] >= pos["b"] {
		t.Errorf("expected c before b, got %+v", order)
	}
}

func TestSynthesize_CustomerAddressSplit(t *testing.T) {
	plan := customerAddressPlan()
	profile := customerProfile()
	b := changeset.NewBuilder("planner", nil)

	changesets, err := Synthesize(plan, profile, Options{Builder: b})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	var createTableIDs, insertSelectIDs, viewIDs, triggerIDs []string
	for _, cs := range changesets {
		switch {
		case strings.HasPrefix(cs.ID, "create-table-"):
			createTableIDs = append(createTableIDs, cs.ID)
		case strings.HasPrefix(cs.ID, "insert-select-"):
			insertSelectIDs = append(insertSelectIDs, cs.ID)
		case strings.HasPrefix(cs.ID, "compat-view-"):
			viewIDs = append(viewIDs, cs.ID)
		case strings.HasPrefix(cs.ID, "instead-of-"):
			triggerIDs = append(triggerIDs, cs.ID)
		}
	}

	if len(createTableIDs) != 2 || createTableIDs[0] != "create-table-address" || createTableIDs[1] != "create-table-customer" {
		t.Errorf("expected address before customer in CREATE TABLE order, got %+v", createTableIDs)
	}
	if len(insertSelectIDs) != 2 {
		t.Errorf("expected 2 INSERT-SELECT changesets, got %+v", insertSelectIDs)
	}
	if len(viewIDs) != 1 {
		t.Fatalf("expected exactly 1 compatibility view changeset, got %+v", viewIDs)
	}
	if len(triggerIDs) != 3 {
		t.Errorf("expected 3 INSTEAD-OF trigger changesets, got %+v", triggerIDs)
	}

	var view changeset.Changeset
	for _, cs := range changesets {
		if cs.ID == viewIDs[0] {
			view = cs
		}
	}
	if !strings.Contains(view.XML, "customer.address_id = address.id") {
		t.Errorf("expected view join on customer.address_id = address.id, got %s", view.XML)
	}
}

func TestSynthesize_MissingFKAbortsView(t *testing.T) {
	plan := customerAddressPlan()
	plan.ForeignKeys = nil // address is now unreachable from the base table
	profile := customerProfile()
	b := changeset.NewBuilder("planner", nil)

	_, err := Synthesize(plan, profile, Options{Builder: b})
	if err == nil {
		t.Fatal("expected an error when the view has no path to a new table")
	}
}

func TestBuildMappingArtifact_AndWrite(t *testing.T) {
	plan := customerAddressPlan()
	artifact := BuildMappingArtifact(plan, "Customer")
	if artifact.NewEntities[0] != "Customer" || artifact.NewEntities[1] != "Address" {
		t.Fatalf("expected PascalCase entity names, got %+v", artifact.NewEntities)
	}

	dir := t.TempDir()
	path, err := WriteMappingArtifact(dir, "docs", artifact)
	if err != nil {
		t.Fatalf("WriteMappingArtifact: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written artifact: %v", err)
	}
	if !strings.Contains(string(data), `"sourceTable": "customer"`) {
		t.Errorf("expected sourceTable field in artifact, got %s", data)
	}
}

func TestEntityGenerator_WritesOneFilePerTableAndSkipsExisting(t *testing.T) {
	plan := customerAddressPlan()
	profile := customerProfile()
	base := t.TempDir()

	gen := NewEntityGenerator(base, "com.example.model", astsource.Jakarta)
	written, skipped, err := gen.Generate(plan, profile)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(written) != 2 || len(skipped) != 0 {
		t.Fatalf("expected both tables written on first run, got written=%+v skipped=%+v", written, skipped)
	}

	written2, skipped2, err := gen.Generate(plan, profile)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if len(written2) != 0 || len(skipped2) != 2 {
		t.Fatalf("expected both tables skipped on second run, got written=%+v skipped=%+v", written2, skipped2)
	}
}

func TestPascalCase(t *testing.T) {
	cases := map[string]string{
		"customer":        "Customer",
		"order_line_item": "OrderLineItem",
		"address":         "Address",
	}
	for in, want := range cases {
		if got := PascalCase(in); got != want {
			t.Errorf("PascalCase(%q) = %q, want %q", in, got, want)
		}
	}
}
