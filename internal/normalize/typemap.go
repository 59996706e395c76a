package normalize

import "strings"

// javaToSQL is a lookup table mapping common JPA field type names to a
// portable SQL column type: a data-driven map instead of a switch that
// grows a case per type.
var javaToSQL = map[string]string{
	"long":      "BIGINT",
	"Long":      "BIGINT",
	"int":       "INTEGER",
	"Integer":   "INTEGER",
	"short":     "SMALLINT",
	"Short":     "SMALLINT",
	"boolean":   "BOOLEAN",
	"Boolean":   "BOOLEAN",
	"double":    "DOUBLE PRECISION",
	"Double":    "DOUBLE PRECISION",
	"float":     "REAL",
	"Float":     "REAL",
	"String":    "VARCHAR(255)",
	"BigDecimal": "NUMERIC(19,4)",
	"LocalDate": "DATE",
	"LocalDateTime": "TIMESTAMP",
	"Instant":   "TIMESTAMP",
	"byte[]":    "BYTEA",
	"UUID":      "UUID",
}

// sqlType returns the mapped SQL type for a Java field type, defaulting
// to VARCHAR(255) for anything unrecognized rather than failing the
// whole plan over one unusual field type.
func sqlType(javaType string) string {
	if t, ok := javaToSQL[javaType]; ok {
		return t
	}
	if t, ok := javaToSQL[strings.TrimSuffix(javaType, "[]")]; ok && strings.HasSuffix(javaType, "[]") {
		return t
	}
	return "VARCHAR(255)"
}
