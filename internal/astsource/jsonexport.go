package astsource

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/antikythera/planner/internal/sqlextract"
)

// The host AST runtime runs out of process (it parses the target
// project's Java sources) and hands this tool its resolved types as one
// JSON export document. ExportRuntime is the thin adaptor that turns
// that document into a Runtime; it does no parsing of Java itself, only
// of the SQL text the export carries.

type exportDocument struct {
	Types []exportType `json:"types"`
}

type exportType struct {
	FQN     string         `json:"fqn"`
	Kind    string         `json:"kind"` // "repository" or "entity"
	Extends []string       `json:"extends,omitempty"`
	Queries []exportQuery  `json:"queries,omitempty"`
	Profile *exportProfile `json:"profile,omitempty"`
	Source  string         `json:"source,omitempty"`
	Imports []string       `json:"imports,omitempty"`
}

type exportQuery struct {
	ClassName       string            `json:"className"`
	MethodName      string            `json:"methodName"`
	QueryType       string            `json:"queryType"`
	PrimaryTable    string            `json:"primaryTable"`
	SQL             string            `json:"sql,omitempty"`
	MethodSignature string            `json:"methodSignature,omitempty"`
	Parameters      []exportParameter `json:"parameters,omitempty"`
}

type exportParameter struct {
	Name   string `json:"name"`
	Column string `json:"column,omitempty"`
}

type exportProfile struct {
	EntityName    string               `json:"entityName"`
	TableName     string               `json:"tableName"`
	Fields        []exportField        `json:"fields,omitempty"`
	Relationships []exportRelationship `json:"relationships,omitempty"`
}

type exportField struct {
	JavaName   string `json:"javaName"`
	ColumnName string `json:"columnName"`
	IsID       bool   `json:"isId,omitempty"`
	IsNullable bool   `json:"isNullable,omitempty"`
	TypeName   string `json:"typeName,omitempty"`
}

type exportRelationship struct {
	JavaName         string `json:"javaName"`
	Annotation       string `json:"annotation"`
	JoinColumn       string `json:"joinColumn,omitempty"`
	ReferencedColumn string `json:"referencedColumn,omitempty"`
	TargetEntity     string `json:"targetEntity,omitempty"`
}

// ExportRuntime is a Runtime backed by an AST export document.
type ExportRuntime struct {
	types map[string]ResolvedType
	units map[string]CompilationUnit
	subs  map[string][]string
}

// LoadJSONExport reads an AST export document from path. SQL text in HQL
// and NATIVE query entries is parsed eagerly; an unparseable statement
// leaves Statement nil, which downstream analysis treats like a DERIVED
// query: its conditions come only from parameters with a bound column.
func LoadJSONExport(path string) (*ExportRuntime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("astsource: reading export: %w", err)
	}
	var doc exportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("astsource: parsing export: %w", err)
	}

	rt := &ExportRuntime{
		types: map[string]ResolvedType{},
		units: map[string]CompilationUnit{},
		subs:  map[string][]string{},
	}
	for _, t := range doc.Types {
		if t.FQN == "" {
			continue
		}
		resolved := ResolvedType{
			FQN:          t.FQN,
			IsRepository: t.Kind == "repository",
			IsEntity:     t.Kind == "entity",
		}
		for _, q := range t.Queries {
			resolved.Queries = append(resolved.Queries, toQueryDescriptor(t.FQN, q))
		}
		if t.Profile != nil {
			resolved.Profile = toProfile(*t.Profile)
		}
		rt.types[t.FQN] = resolved
		rt.units[t.FQN] = CompilationUnit{FQN: t.FQN, SourceText: t.Source, ImportNames: t.Imports}
		for _, super := range t.Extends {
			rt.subs[super] = append(rt.subs[super], t.FQN)
		}
	}
	return rt, nil
}

func toQueryDescriptor(fqn string, q exportQuery) QueryDescriptor {
	d := QueryDescriptor{
		ClassName:           firstNonEmpty(q.ClassName, fqn),
		MethodName:          q.MethodName,
		QueryType:           QueryType(q.QueryType),
		PrimaryTable:        q.PrimaryTable,
		OriginalText:        q.SQL,
		MethodSignatureText: q.MethodSignature,
	}
	for _, p := range q.Parameters {
		d.MethodParameters = append(d.MethodParameters, MethodParameter{Name: p.Name, Column: p.Column})
	}
	if d.QueryType != Derived && q.SQL != "" {
		if stmt, err := sqlextract.Parse(q.SQL); err == nil {
			d.Statement = stmt
		}
	}
	return d
}

func toProfile(p exportProfile) *EntityProfile {
	out := &EntityProfile{
		EntityName: p.EntityName,
		TableName:  p.TableName,
		PlanID:     uuid.New(),
	}
	for _, f := range p.Fields {
		out.Fields = append(out.Fields, FieldProfile{
			JavaName:   f.JavaName,
			ColumnName: f.ColumnName,
			IsID:       f.IsID,
			IsNullable: f.IsNullable,
			TypeName:   f.TypeName,
		})
	}
	for _, r := range p.Relationships {
		out.Relationships = append(out.Relationships, RelationshipProfile{
			JavaName:         r.JavaName,
			Annotation:       RelationshipAnnotation(r.Annotation),
			JoinColumn:       r.JoinColumn,
			ReferencedColumn: r.ReferencedColumn,
			TargetEntity:     r.TargetEntity,
		})
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// ResolvedTypes implements Runtime.
func (r *ExportRuntime) ResolvedTypes() map[string]ResolvedType { return r.types }

// CompilationUnit implements Runtime.
func (r *ExportRuntime) CompilationUnit(fqn string) (CompilationUnit, bool) {
	u, ok := r.units[fqn]
	return u, ok
}

// FindSubClasses implements Runtime.
func (r *ExportRuntime) FindSubClasses(fqn string) []string { return r.subs[fqn] }
