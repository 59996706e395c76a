package normalize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/antikythera/planner/internal/astsource"
)

// EntityGenerator regenerates one Java entity source file per new table.
type EntityGenerator struct {
	BasePath          string
	OriginalPackage   string
	PersistenceFlavor astsource.PersistenceFlavor

	writeFile func(string, []byte, os.FileMode) error
	mkdirAll  func(string, os.FileMode) error
	stat      func(string) (os.FileInfo, error)
}

// NewEntityGenerator wires the real filesystem in.
func NewEntityGenerator(basePath, originalPackage string, flavor astsource.PersistenceFlavor) *EntityGenerator {
	return &EntityGenerator{
		BasePath:          basePath,
		OriginalPackage:   originalPackage,
		PersistenceFlavor: flavor,
		writeFile:         os.WriteFile,
		mkdirAll:          os.MkdirAll,
		stat:              os.Stat,
	}
}

// Generate writes one entity file per new table. A file that already
// exists is skipped (never overwritten); the caller is told which tables
// were skipped so it can log a warning.
func (g *EntityGenerator) Generate(plan DataMigrationPlan, profile astsource.EntityProfile) (written, skipped []string, err error) {
	specs := buildTableSpecs(plan, profile)
	fkByFromTable := map[string][]ForeignKey{}
	for _, fk := range plan.ForeignKeys {
		key := strings.ToLower(fk.FromTable)
		fkByFromTable[key] = append(fkByFromTable[key], fk)
	}

	packageName := g.OriginalPackage + ".normalized"
	dir := filepath.Join(g.BasePath, "src", "main", "java", strings.ReplaceAll(packageName, ".", string(filepath.Separator)))
	if err := g.mkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("normalize: creating entity output dir: %w", err)
	}

	for _, table := range plan.NewTables {
		className := PascalCase(table)
		path := filepath.Join(dir, className+".java")

		if _, statErr := g.stat(path); statErr == nil {
			skipped = append(skipped, table)
			continue
		}

		spec := specs[strings.ToLower(table)]
		fkColumns := map[string]ForeignKey{}
		for _, fk := range fkByFromTable[strings.ToLower(table)] {
			fkColumns[strings.ToLower(fk.FromColumn)] = fk
		}

		source := renderEntitySource(packageName, className, table, spec, fkColumns, g.PersistenceFlavor)
		if err := g.writeFile(path, []byte(source), 0o644); err != nil {
			return written, skipped, fmt.Errorf("normalize: writing entity %s: %w", className, err)
		}
		written = append(written, table)
	}

	return written, skipped, nil
}

func renderEntitySource(packageName, className, table string, spec *TableSpec, fkColumns map[string]ForeignKey, flavor astsource.PersistenceFlavor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "package %s;\n\n", packageName)
	fmt.Fprintf(&sb, "import %s.*;\n\n", flavor)
	fmt.Fprintf(&sb, "@Entity\n@Table(name = \"%s\")\npublic class %s {\n\n", table, className)

	for _, col := range spec.Columns {
		fieldName := toCamelCase(col.Name)
		if fk, ok := fkColumns[strings.ToLower(col.Name)]; ok {
			targetClass := PascalCase(fk.ToTable)
			fmt.Fprintf(&sb, "    @ManyToOne\n    @JoinColumn(name = \"%s\")\n    private %s %s;\n\n", col.Name, targetClass, toCamelCase(strings.TrimSuffix(col.Name, "_id")))
			continue
		}
		if col.IsID {
			fmt.Fprintf(&sb, "    @Id\n    @GeneratedValue\n    @Column(name = \"%s\")\n    private Long %s;\n\n", col.Name, fieldName)
			continue
		}
		fmt.Fprintf(&sb, "    @Column(name = \"%s\", nullable = %t)\n    private %s %s;\n\n", col.Name, col.Nullable, javaFieldType(col.SQLType), fieldName)
	}

	sb.WriteString("}\n")
	return sb.String()
}

func toCamelCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	var sb strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			sb.WriteString(strings.ToLower(p[:1]))
		} else {
			sb.WriteString(strings.ToUpper(p[:1]))
		}
		sb.WriteString(strings.ToLower(p[1:]))
	}
	return sb.String()
}

// javaFieldType is the inverse of sqlType's common cases, used for the
// Java field type of every plain (non-ID, non-FK) column.
func javaFieldType(sqlT string) string {
	switch sqlT {
	case "BIGINT":
		return "Long"
	case "INTEGER":
		return "Integer"
	case "SMALLINT":
		return "Short"
	case "BOOLEAN":
		return "Boolean"
	case "DOUBLE PRECISION":
		return "Double"
	case "REAL":
		return "Float"
	case "NUMERIC(19,4)":
		return "BigDecimal"
	case "DATE":
		return "LocalDate"
	case "TIMESTAMP":
		return "LocalDateTime"
	case "BYTEA":
		return "byte[]"
	case "UUID":
		return "UUID"
	default:
		return "String"
	}
}
