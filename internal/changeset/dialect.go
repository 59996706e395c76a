// Package changeset synthesizes dialect-parametric Liquibase XML
// fragments and owns the atomic master-changelog writer. Per-dialect
// behavior is split between the dbmsAttr map and the switch statements in
// createIndexSQL, dropIndexSQL and indexExistsPrecondition, so adding a
// dialect means a map entry plus a case in each of those functions.
package changeset

import "strings"

// Dialect is one of the four supported target databases.
type Dialect string

const (
	PostgreSQL Dialect = "POSTGRESQL"
	Oracle     Dialect = "ORACLE"
	MySQL      Dialect = "MYSQL"
	H2         Dialect = "H2"
)

// DefaultDialects is the configuration default when none is specified.
var DefaultDialects = []Dialect{PostgreSQL, Oracle}

// ParseDialects maps configuration strings ("postgresql", "oracle", ...)
// to Dialect values, falling back to DefaultDialects for an empty list.
// Unknown names are dropped rather than failing the run; dialect choice
// only widens or narrows the emitted `<sql dbms>` blocks.
func ParseDialects(names []string) []Dialect {
	var out []Dialect
	for _, n := range names {
		switch Dialect(strings.ToUpper(strings.TrimSpace(n))) {
		case PostgreSQL:
			out = append(out, PostgreSQL)
		case Oracle:
			out = append(out, Oracle)
		case MySQL:
			out = append(out, MySQL)
		case H2:
			out = append(out, H2)
		}
	}
	if len(out) == 0 {
		return DefaultDialects
	}
	return out
}

// dbmsAttr is the Liquibase `dbms` attribute value used in `<sql dbms="…">`
// for each dialect.
var dbmsAttr = map[Dialect]string{
	PostgreSQL: "postgresql",
	Oracle:     "oracle",
	MySQL:      "mysql",
	H2:         "h2",
}

// createIndexSQL builds the CREATE INDEX statement per dialect:
// PostgreSQL CONCURRENTLY, Oracle ONLINE, MySQL/H2 plain.
func createIndexSQL(d Dialect, indexName, table string, cols []string, unique bool) string {
	colList := joinQuoted(cols)
	uniqueWord := ""
	if unique {
		uniqueWord = "UNIQUE "
	}
	switch d {
	case PostgreSQL:
		return "CREATE " + uniqueWord + "INDEX CONCURRENTLY " + indexName + " ON " + table + " (" + colList + ")"
	case Oracle:
		return "CREATE " + uniqueWord + "INDEX " + indexName + " ON " + table + " (" + colList + ") ONLINE"
	default: // MySQL, H2
		return "CREATE " + uniqueWord + "INDEX " + indexName + " ON " + table + " (" + colList + ")"
	}
}

// dropIndexSQL builds the per-dialect DROP INDEX statement.
func dropIndexSQL(d Dialect, indexName, table string) string {
	switch d {
	case PostgreSQL:
		return "DROP INDEX CONCURRENTLY IF EXISTS " + indexName
	case H2:
		return "DROP INDEX IF EXISTS " + indexName
	case Oracle:
		return "DROP INDEX " + indexName
	default: // MySQL
		return "DROP INDEX " + indexName + " ON " + table
	}
}

// indexExistsPrecondition returns the dialect-specific query counting
// existing indexes on table whose ordered column list is exactly cols.
// Zero means no such index exists and the create is safe to run; an
// unrelated index on the same table must not satisfy it.
func indexExistsPrecondition(d Dialect, table string, cols []string) string {
	colCSV := strings.ToLower(strings.Join(cols, ","))
	switch d {
	case Oracle:
		return "SELECT COUNT(*) FROM (SELECT INDEX_NAME FROM ALL_IND_COLUMNS WHERE TABLE_NAME = UPPER('" + table + "') " +
			"GROUP BY INDEX_NAME HAVING LISTAGG(LOWER(COLUMN_NAME), ',') WITHIN GROUP (ORDER BY COLUMN_POSITION) = '" + colCSV + "')"
	case PostgreSQL:
		return "SELECT COUNT(*) FROM pg_index i JOIN pg_class c ON c.oid = i.indrelid WHERE c.relname = '" + strings.ToLower(table) + "' " +
			"AND (SELECT string_agg(a.attname, ',' ORDER BY k.ord) FROM unnest(i.indkey) WITH ORDINALITY k(attnum, ord) " +
			"JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = k.attnum) = '" + colCSV + "'"
	case MySQL:
		return "SELECT COUNT(*) FROM (SELECT INDEX_NAME FROM INFORMATION_SCHEMA.STATISTICS WHERE TABLE_NAME = '" + table + "' " +
			"GROUP BY INDEX_NAME HAVING GROUP_CONCAT(LOWER(COLUMN_NAME) ORDER BY SEQ_IN_INDEX) = '" + colCSV + "') existing"
	default: // H2
		return "SELECT COUNT(*) FROM (SELECT INDEX_NAME FROM INFORMATION_SCHEMA.INDEX_COLUMNS WHERE TABLE_NAME = UPPER('" + table + "') " +
			"GROUP BY INDEX_NAME HAVING LISTAGG(LOWER(COLUMN_NAME), ',') WITHIN GROUP (ORDER BY ORDINAL_POSITION) = '" + colCSV + "')"
	}
}

func joinQuoted(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
