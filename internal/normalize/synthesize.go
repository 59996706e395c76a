package normalize

import (
	"fmt"
	"strings"

	"github.com/antikythera/planner/internal/astsource"
	"github.com/antikythera/planner/internal/changeset"
)

// Column is one CREATE TABLE column derived from the source profile.
type Column struct {
	Name     string
	SQLType  string
	Nullable bool
	IsID     bool
}

// TableSpec is one new table's full column list, in CREATE-statement
// order: the synthetic ID first if one was inserted, then columnMapping
// columns, then FK columns, in first-seen order.
type TableSpec struct {
	Name    string
	Columns []Column
}

// buildTableSpecs derives one TableSpec per new table from the plan's
// columnMappings and foreignKeys plus the source profile's field types
// in CREATE TABLE order.
func buildTableSpecs(plan DataMigrationPlan, profile astsource.EntityProfile) map[string]*TableSpec {
	fieldByColumn := map[string]astsource.FieldProfile{}
	for _, f := range profile.Fields {
		fieldByColumn[strings.ToLower(f.ColumnName)] = f
	}

	specs := map[string]*TableSpec{}
	for _, t := range plan.NewTables {
		specs[strings.ToLower(t)] = &TableSpec{Name: t}
	}

	hasID := map[string]bool{}
	seenColumn := map[string]map[string]bool{}
	for key := range specs {
		seenColumn[key] = map[string]bool{}
	}

	for _, cm := range plan.ColumnMappings {
		key := strings.ToLower(cm.TargetTable)
		spec := specs[key]
		if spec == nil || seenColumn[key][strings.ToLower(cm.TargetColumn)] {
			continue
		}
		field := fieldByColumn[strings.ToLower(cm.ViewColumn)]
		col := Column{
			Name:     cm.TargetColumn,
			SQLType:  sqlType(field.TypeName),
			Nullable: field.IsNullable,
			IsID:     field.IsID,
		}
		spec.Columns = append(spec.Columns, col)
		seenColumn[key][strings.ToLower(cm.TargetColumn)] = true
		if field.IsID {
			hasID[key] = true
		}
	}

	for _, fk := range plan.ForeignKeys {
		key := strings.ToLower(fk.FromTable)
		spec := specs[key]
		if spec == nil || seenColumn[key][strings.ToLower(fk.FromColumn)] {
			continue
		}
		spec.Columns = append(spec.Columns, Column{Name: fk.FromColumn, SQLType: "BIGINT", Nullable: true})
		seenColumn[key][strings.ToLower(fk.FromColumn)] = true
	}

	for key, spec := range specs {
		if hasID[key] {
			continue
		}
		spec.Columns = append([]Column{{Name: "id", SQLType: "BIGINT", IsID: true}}, spec.Columns...)
	}

	return specs
}

// Options configures Synthesize beyond what DataMigrationPlan itself
// carries.
type Options struct {
	Builder *changeset.Builder

	// ExternalReferencingTables lists tables outside the plan's newTables
	// that held a FK pointing at sourceTable before the split; the core
	// has no schema-metadata collaborator wired in to discover these
	// automatically, so the caller supplies them.
	ExternalReferencingTables []string

	// RenameOldTableTo is the backup name template; "{sourceTable}" is
	// substituted. Empty means the rename is skipped.
	RenameOldTableTo string
}

// Synthesize builds the full changeset sequence for one validated plan.
// Call Validate first; Synthesize does not re-validate.
func Synthesize(plan DataMigrationPlan, profile astsource.EntityProfile, opts Options) ([]changeset.Changeset, error) {
	b := opts.Builder
	var out []changeset.Changeset

	createOrder := CreateOrder(plan.NewTables, plan.ForeignKeys)
	specs := buildTableSpecs(plan, profile)

	// 3.1 CREATE TABLE, parent-first.
	for _, table := range createOrder {
		spec := specs[strings.ToLower(table)]
		out = append(out, createTableChangeset(b, spec))
	}

	// 3.2 INSERT-SELECT per new table.
	for _, table := range createOrder {
		spec := specs[strings.ToLower(table)]
		if cs := insertSelectChangeset(b, plan, spec); cs.ID != "" {
			out = append(out, cs)
		}
	}

	// 3.3 Drop FK on every external referencing table.
	for _, ext := range opts.ExternalReferencingTables {
		constraint := fmt.Sprintf("fk_%s_%s", sanitizeIdent(ext), sanitizeIdent(plan.SourceTable))
		out = append(out, b.DropForeignKeyConstraint(ext, constraint))
	}

	// 3.4 Rename the old table, if configured.
	if opts.RenameOldTableTo != "" {
		backupName := strings.ReplaceAll(opts.RenameOldTableTo, "{sourceTable}", plan.SourceTable)
		out = append(out, b.RenameTable(plan.SourceTable, backupName))
	}

	// 3.5 Compatibility view.
	viewChangeset, err := compatibilityViewChangeset(b, plan)
	if err != nil {
		return nil, err
	}
	out = append(out, viewChangeset)

	// 3.6 INSTEAD-OF triggers.
	out = append(out, insteadOfTriggerChangesets(b, plan)...)

	return out, nil
}

func createTableChangeset(b *changeset.Builder, spec *TableSpec) changeset.Changeset {
	var cols []string
	for _, c := range spec.Columns {
		switch {
		case c.IsID:
			cols = append(cols, fmt.Sprintf("%s %s IDENTITY PRIMARY KEY", c.Name, c.SQLType))
		case !c.Nullable:
			cols = append(cols, fmt.Sprintf("%s %s NOT NULL", c.Name, c.SQLType))
		default:
			cols = append(cols, fmt.Sprintf("%s %s", c.Name, c.SQLType))
		}
	}
	sql := fmt.Sprintf("CREATE TABLE %s (%s)", spec.Name, strings.Join(cols, ", "))
	return b.RawSQLAllDialects("create-table-"+sanitizeIdent(spec.Name), sql)
}

func insertSelectChangeset(b *changeset.Builder, plan DataMigrationPlan, spec *TableSpec) changeset.Changeset {
	var targetCols, sourceCols []string
	for _, cm := range plan.ColumnMappings {
		if !strings.EqualFold(cm.TargetTable, spec.Name) {
			continue
		}
		targetCols = append(targetCols, cm.TargetColumn)
		sourceCols = append(sourceCols, cm.ViewColumn)
	}
	if len(targetCols) == 0 {
		return changeset.Changeset{}
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		spec.Name, strings.Join(targetCols, ", "), strings.Join(sourceCols, ", "), plan.SourceTable)
	return b.RawSQLAllDialects("insert-select-"+sanitizeIdent(spec.Name), sql)
}

// compatibilityViewChangeset builds the backward-compatibility view.
// The SELECT list projects each mapping's
// current location (targetTable.targetColumn) back under its original
// viewColumn name.
func compatibilityViewChangeset(b *changeset.Builder, plan DataMigrationPlan) (changeset.Changeset, error) {
	var selectList []string
	for _, cm := range plan.ColumnMappings {
		selectList = append(selectList, fmt.Sprintf("%s.%s AS %s", cm.TargetTable, cm.TargetColumn, cm.ViewColumn))
	}

	joinOrder := JoinOrder(plan.NewTables, plan.ForeignKeys)
	joined := map[string]bool{strings.ToLower(plan.BaseTable): true}
	var joinClauses []string
	for _, table := range joinOrder {
		if strings.EqualFold(table, plan.BaseTable) {
			continue
		}
		fk, ok := connectingFK(plan.ForeignKeys, table, joined)
		if !ok {
			return changeset.Changeset{}, fail("no foreign key connects %q to the already-joined tables", table)
		}
		joinClauses = append(joinClauses, fmt.Sprintf("JOIN %s ON %s.%s = %s.%s",
			table, fk.FromTable, fk.FromColumn, fk.ToTable, fk.ToColumn))
		joined[strings.ToLower(table)] = true
	}

	sql := fmt.Sprintf("CREATE VIEW %s AS SELECT %s FROM %s %s",
		plan.SourceTable, strings.Join(selectList, ", "), plan.BaseTable, strings.Join(joinClauses, " "))
	return b.RawSQLAllDialects("compat-view-"+sanitizeIdent(plan.SourceTable), strings.TrimRight(sql, " ")), nil
}

// connectingFK finds a foreign key linking table to a table already in
// joined, in either direction.
func connectingFK(fks []ForeignKey, table string, joined map[string]bool) (ForeignKey, bool) {
	for _, fk := range fks {
		if strings.EqualFold(fk.FromTable, table) && joined[strings.ToLower(fk.ToTable)] {
			return fk, true
		}
		if strings.EqualFold(fk.ToTable, table) && joined[strings.ToLower(fk.FromTable)] {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

func insteadOfTriggerChangesets(b *changeset.Builder, plan DataMigrationPlan) []changeset.Changeset {
	view := plan.SourceTable
	kinds := []string{"INSERT", "UPDATE", "DELETE"}
	var out []changeset.Changeset
	for _, kind := range kinds {
		id := fmt.Sprintf("instead-of-%s-%s", strings.ToLower(kind), sanitizeIdent(view))
		body := fmt.Sprintf("  <sql>CREATE TRIGGER %s_%s_trg INSTEAD OF %s ON %s FOR EACH ROW BEGIN -- routes %s to the underlying tables\nEND</sql>\n  <rollback>\n    <sql>DROP TRIGGER %s_%s_trg</sql>\n  </rollback>",
			view, strings.ToLower(kind), kind, view, kind, view, strings.ToLower(kind))
		out = append(out, changeset.Changeset{ID: id, XML: fmt.Sprintf(`<changeSet id="%s" author="%s">
%s
</changeSet>`, id, b.Author, body)})
	}
	return out
}

func sanitizeIdent(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
