// Package cardinality classifies a (table, column) pair as HIGH, MEDIUM,
// or LOW
// selectivity using index metadata, optional type hints, naming
// heuristics, and user overrides.
package cardinality

import (
	"strings"

	"github.com/antikythera/planner/internal/catalog"
)

// Level is the qualitative selectivity of a column.
type Level string

const (
	High   Level = "HIGH"
	Medium Level = "MEDIUM"
	Low    Level = "LOW"
)

// ColumnType is the coarse type hint an optional type map may carry.
type ColumnType string

const (
	TypeBoolean ColumnType = "BOOLEAN"
	TypeEnum    ColumnType = "ENUM"
	TypeOther   ColumnType = "OTHER"
)

// ColumnTypeMap maps table -> column -> ColumnType. Lookups are
// case-insensitive; callers should lower-case keys when populating it,
// but Oracle normalizes on read regardless.
type ColumnTypeMap map[string]map[string]ColumnType

func (m ColumnTypeMap) lookup(table, column string) (ColumnType, bool) {
	if m == nil {
		return "", false
	}
	cols, ok := m[strings.ToLower(table)]
	if !ok {
		return "", false
	}
	t, ok := cols[strings.ToLower(column)]
	return t, ok
}

// booleanNamePrefixes and booleanNameSuffixes implement the weak
// boolean-naming heuristic; explicit type metadata and user overrides
// always dominate it.
var (
	booleanNamePrefixes = []string{"is_", "has_", "can_", "should_"}
	booleanNameSuffixes = []string{"_flag", "_enabled", "_active"}
	booleanWholeNames   = map[string]bool{
		"active": true, "enabled": true, "deleted": true, "visible": true,
	}
)

func looksBoolean(column string) bool {
	c := strings.ToLower(column)
	if booleanWholeNames[c] {
		return true
	}
	for _, p := range booleanNamePrefixes {
		if strings.HasPrefix(c, p) {
			return true
		}
	}
	for _, s := range booleanNameSuffixes {
		if strings.HasSuffix(c, s) {
			return true
		}
	}
	return false
}

// Oracle is the process-wide classifier: an IndexCatalog, an optional
// ColumnTypeMap, and two user override sets. Construct once via New and
// treat as read-only afterward, exactly like the catalog it wraps.
type Oracle struct {
	catalog  *catalog.IndexCatalog
	types    ColumnTypeMap
	userLow  map[string]bool
	userHigh map[string]bool
}

// New builds an Oracle. catalogue and types may be nil; the override
// slices are lower-cased internally and may be nil or empty.
func New(catalogue *catalog.IndexCatalog, types ColumnTypeMap, userLow, userHigh []string) *Oracle {
	return &Oracle{
		catalog:  catalogue,
		types:    types,
		userLow:  toSet(userLow),
		userHigh: toSet(userHigh),
	}
}

func toSet(cols []string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[strings.ToLower(c)] = true
	}
	return set
}

// Classify walks the fixed decision order: first match wins.
func (o *Oracle) Classify(table, column string) Level {
	if table == "" || column == "" {
		return Medium
	}
	col := strings.ToLower(column)

	if o.userHigh[col] {
		return High
	}
	if o.userLow[col] {
		return Low
	}
	if o.hasIndexOfType(table, column, catalog.PrimaryKey) {
		return High
	}
	if o.hasIndexOfType(table, column, catalog.UniqueConstraint) || o.hasIndexOfType(table, column, catalog.UniqueIndex) {
		return High
	}
	if t, ok := o.types.lookup(table, column); ok {
		if t == TypeBoolean || t == TypeEnum {
			return Low
		}
	} else if looksBoolean(column) {
		return Low
	}
	return Medium
}

// hasIndexOfType reports whether any index of the given type on table
// contains column anywhere in its column list (not just leading).
func (o *Oracle) hasIndexOfType(table, column string, typ catalog.IndexType) bool {
	if o.catalog == nil {
		return false
	}
	for _, idx := range o.catalog.Indexes(table) {
		if idx.Type == typ && idx.HasColumn(column) {
			return true
		}
	}
	return false
}

// IsPrimaryKeyColumn reports whether column belongs to a PRIMARY_KEY
// index on table.
func (o *Oracle) IsPrimaryKeyColumn(table, column string) bool {
	return o.hasIndexOfType(table, column, catalog.PrimaryKey)
}

// HasIndexWithLeadingColumn delegates to the catalog; a nil catalog
// reports false.
func (o *Oracle) HasIndexWithLeadingColumn(table, column string) bool {
	if o.catalog == nil {
		return false
	}
	return o.catalog.HasIndexWithLeadingColumn(table, column)
}

// HasIndexCoveringColumns delegates to the catalog; a nil catalog
// reports false.
func (o *Oracle) HasIndexCoveringColumns(table string, columns []string) bool {
	if o.catalog == nil {
		return false
	}
	return o.catalog.HasIndexCoveringColumns(table, columns)
}
