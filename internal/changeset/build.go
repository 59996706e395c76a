package changeset

import (
	"fmt"
	"strings"
)

// Changeset is one `<changeSet>` element, already rendered to XML text.
type Changeset struct {
	ID   string
	XML  string
}

// Builder accumulates changesets for one run, assigning unique IDs and
// tracking collisions with a `_1`, `_2`, ... suffix.
type Builder struct {
	Author   string
	Dialects []Dialect
	seen     map[string]int
}

// NewBuilder returns a Builder. If dialects is empty, DefaultDialects is
// used.
func NewBuilder(author string, dialects []Dialect) *Builder {
	if len(dialects) == 0 {
		dialects = DefaultDialects
	}
	return &Builder{Author: author, Dialects: dialects, seen: map[string]int{}}
}

func (b *Builder) uniqueID(base string) string {
	n := b.seen[base]
	b.seen[base]++
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, n)
}

func sanitize(s string) string {
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

// indexName builds the idx_<table>_<cols> name.
func indexName(table string, cols []string) string {
	return "idx_" + sanitize(table) + "_" + sanitize(strings.Join(cols, "_"))
}

func wrap(id, author, body string) string {
	return fmt.Sprintf(`<changeSet id="%s" author="%s">
%s
</changeSet>`, id, author, body)
}

// CreateIndex builds the create-index changeset: precondition, one <sql>
// per dialect, rollback.
func (b *Builder) CreateIndex(table string, cols []string, unique bool) Changeset {
	name := indexName(table, cols)
	id := b.uniqueID("create-index-" + name)

	var preconds []string
	var sqls []string
	var rollbacks []string
	for _, d := range b.Dialects {
		preconds = append(preconds, fmt.Sprintf(`      <sqlCheck expectedResult="0" dbms="%s">%s</sqlCheck>`,
			dbmsAttr[d], indexExistsPrecondition(d, table, cols)))
		sqls = append(sqls, fmt.Sprintf(`  <sql dbms="%s">%s</sql>`, dbmsAttr[d], createIndexSQL(d, name, table, cols, unique)))
		rollbacks = append(rollbacks, fmt.Sprintf(`    <sql dbms="%s">%s</sql>`, dbmsAttr[d], dropIndexSQL(d, name, table)))
	}

	body := fmt.Sprintf(`  <preConditions onFail="MARK_RAN">
    <or>
%s
    </or>
  </preConditions>
%s
  <rollback>
%s
  </rollback>`, strings.Join(preconds, "\n"), strings.Join(sqls, "\n"), strings.Join(rollbacks, "\n"))

	return Changeset{ID: id, XML: wrap(id, b.Author, body)}
}

// DropIndex builds the drop-index changeset. Rollback is a comment noting
// manual recreation.
func (b *Builder) DropIndex(table, existingIndexName string) Changeset {
	id := b.uniqueID("drop-index-" + sanitize(existingIndexName))

	var sqls []string
	for _, d := range b.Dialects {
		sqls = append(sqls, fmt.Sprintf(`  <sql dbms="%s">%s</sql>`, dbmsAttr[d], dropIndexSQL(d, existingIndexName, table)))
	}

	body := fmt.Sprintf(`  <preConditions onFail="MARK_RAN">
    <indexExists indexName="%s"/>
  </preConditions>
%s
  <rollback>
    <!-- manual recreation required: original index definition was not captured -->
  </rollback>`, existingIndexName, strings.Join(sqls, "\n"))

	return Changeset{ID: id, XML: wrap(id, b.Author, body)}
}

// RawSQL builds a single `<sql>` changeset for one dialect, used by the
// normalization planner for INSERT-SELECT, INSTEAD-OF triggers, and other
// statements no dedicated builder models.
func (b *Builder) RawSQL(idBase string, d Dialect, sql string) Changeset {
	id := b.uniqueID(idBase)
	body := fmt.Sprintf(`  <sql dbms="%s">%s</sql>`, dbmsAttr[d], sql)
	return Changeset{ID: id, XML: wrap(id, b.Author, body)}
}

// RawSQLAllDialects builds one changeset carrying the same SQL text for
// every configured dialect (used for DDL that doesn't vary by dialect,
// e.g. a compatibility view built from ANSI SQL).
func (b *Builder) RawSQLAllDialects(idBase, sql string) Changeset {
	id := b.uniqueID(idBase)
	var sqls []string
	for _, d := range b.Dialects {
		sqls = append(sqls, fmt.Sprintf(`  <sql dbms="%s">%s</sql>`, dbmsAttr[d], sql))
	}
	return Changeset{ID: id, XML: wrap(id, b.Author, strings.Join(sqls, "\n"))}
}

// RenameTable builds Liquibase's built-in `<renameTable>` tag.
func (b *Builder) RenameTable(oldName, newName string) Changeset {
	id := b.uniqueID("rename-table-" + sanitize(oldName))
	body := fmt.Sprintf(`  <renameTable oldTableName="%s" newTableName="%s"/>`, oldName, newName)
	return Changeset{ID: id, XML: wrap(id, b.Author, body)}
}

// DropForeignKeyConstraint builds Liquibase's built-in
// `<dropForeignKeyConstraint>` tag.
func (b *Builder) DropForeignKeyConstraint(baseTableName, constraintName string) Changeset {
	id := b.uniqueID("drop-fk-" + sanitize(constraintName))
	body := fmt.Sprintf(`  <dropForeignKeyConstraint baseTableName="%s" constraintName="%s"/>`, baseTableName, constraintName)
	return Changeset{ID: id, XML: wrap(id, b.Author, body)}
}

// Composite concatenates changesets with blank-line separation, filtering
// out any with empty XML.
func Composite(changesets ...Changeset) string {
	var parts []string
	for _, c := range changesets {
		if strings.TrimSpace(c.XML) != "" {
			parts = append(parts, c.XML)
		}
	}
	return strings.Join(parts, "\n\n")
}
