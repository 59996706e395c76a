package normalize

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MappingArtifact captures one accepted plan plus its resolved entity
// names, for consumers outside this tool.
type MappingArtifact struct {
	SourceTable    string          `json:"sourceTable"`
	SourceEntity   string          `json:"sourceEntity"`
	ViewName       string          `json:"viewName"`
	NewTables      []string        `json:"newTables"`
	NewEntities    []string        `json:"newEntities"`
	ColumnMappings []ColumnMapping `json:"columnMappings"`
	ForeignKeys    []ForeignKey    `json:"foreignKeys"`
}

// PascalCase converts a snake_case or lower-case table name to a Java
// class-name-style PascalCase identifier (e.g. "order_line_item" ->
// "OrderLineItem").
func PascalCase(tableName string) string {
	parts := strings.FieldsFunc(tableName, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]))
		sb.WriteString(p[1:])
	}
	return sb.String()
}

// BuildMappingArtifact assembles the artifact for one plan.
func BuildMappingArtifact(plan DataMigrationPlan, sourceEntity string) MappingArtifact {
	newEntities := make([]string, len(plan.NewTables))
	for i, t := range plan.NewTables {
		newEntities[i] = PascalCase(t)
	}
	return MappingArtifact{
		SourceTable:    plan.SourceTable,
		SourceEntity:   sourceEntity,
		ViewName:       plan.SourceTable,
		NewTables:      plan.NewTables,
		NewEntities:    newEntities,
		ColumnMappings: plan.ColumnMappings,
		ForeignKeys:    plan.ForeignKeys,
	}
}

// WriteMappingArtifact marshals artifact and writes it to
// <basePath>/<mappingOutputDir>/normalization-mapping-<sourceTable>.json
// The directory is created if absent.
func WriteMappingArtifact(basePath, mappingOutputDir string, artifact MappingArtifact) (string, error) {
	if mappingOutputDir == "" {
		mappingOutputDir = "docs"
	}
	dir := filepath.Join(basePath, mappingOutputDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("normalize: creating mapping output dir: %w", err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("normalize: marshaling mapping artifact: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("normalization-mapping-%s.json", sanitizeIdent(artifact.SourceTable)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("normalize: writing mapping artifact: %w", err)
	}
	return path, nil
}
