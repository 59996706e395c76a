// Package catalog holds the IndexCatalog data model: an immutable,
// process-wide map from table to the indexes defined on it. The catalog is
// loaded once at startup by a Loader and never mutated afterward.
package catalog

import "strings"

// IndexType classifies an IndexInfo by the constraint that created it.
type IndexType string

const (
	PrimaryKey       IndexType = "PRIMARY_KEY"
	UniqueConstraint IndexType = "UNIQUE_CONSTRAINT"
	UniqueIndex      IndexType = "UNIQUE_INDEX"
	Index            IndexType = "INDEX"
)

// IndexInfo describes one index. Column order is significant: Columns[0]
// is the leading column.
type IndexInfo struct {
	Name    string
	Type    IndexType
	Columns []string
}

// LeadingColumn returns the first column, or "" if the index has none.
func (i IndexInfo) LeadingColumn() string {
	if len(i.Columns) == 0 {
		return ""
	}
	return i.Columns[0]
}

// HasColumn reports whether column (case-insensitively) appears anywhere
// in the index's column list.
func (i IndexInfo) HasColumn(column string) bool {
	for _, c := range i.Columns {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}

// coversPrefix reports whether i's columns start with the given prefix,
// in order, case-insensitively.
func (i IndexInfo) coversPrefix(prefix []string) bool {
	if len(prefix) > len(i.Columns) {
		return false
	}
	for idx, col := range prefix {
		if !strings.EqualFold(i.Columns[idx], col) {
			return false
		}
	}
	return true
}

// IndexCatalog maps a lower-cased table name to the indexes defined on it.
// Construct with New and populate with Add; treat as read-only afterward.
type IndexCatalog struct {
	tables map[string][]IndexInfo
}

// New returns an empty catalog.
func New() *IndexCatalog {
	return &IndexCatalog{tables: make(map[string][]IndexInfo)}
}

// Add registers an index on table. Safe to call repeatedly while building
// the catalog; callers must stop mutating once the catalog is handed to
// the rest of the pipeline.
func (c *IndexCatalog) Add(table string, idx IndexInfo) {
	key := strings.ToLower(table)
	c.tables[key] = append(c.tables[key], idx)
}

// Indexes returns the indexes known for table, or nil if the table is
// absent from the catalog. A missing table is not an error anywhere in
// the core.
func (c *IndexCatalog) Indexes(table string) []IndexInfo {
	return c.tables[strings.ToLower(table)]
}

// HasIndexWithLeadingColumn reports whether any index on table (of any
// type) leads with column.
func (c *IndexCatalog) HasIndexWithLeadingColumn(table, column string) bool {
	for _, idx := range c.Indexes(table) {
		if strings.EqualFold(idx.LeadingColumn(), column) {
			return true
		}
	}
	return false
}

// HasIndexCoveringColumns reports whether any index on table has a column
// list that starts with columns, in order.
func (c *IndexCatalog) HasIndexCoveringColumns(table string, columns []string) bool {
	for _, idx := range c.Indexes(table) {
		if idx.coversPrefix(columns) {
			return true
		}
	}
	return false
}

// Tables returns the set of tables the catalog has entries for, in no
// particular order. Used by loaders and tests, not by the hot analysis
// path.
func (c *IndexCatalog) Tables() []string {
	out := make([]string, 0, len(c.tables))
	for t := range c.tables {
		out = append(out, t)
	}
	return out
}
