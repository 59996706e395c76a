// Package astsource defines the boundary to the host AST parser and
// type-resolution runtime. Nothing in this package talks to a real Java
// parser; the runtime runs out of process and its output arrives as
// data. ExportRuntime (jsonexport.go) is the concrete Runtime the CLI
// wires in; it reads the runtime's JSON export document.
package astsource

import (
	"github.com/google/uuid"
	"vitess.io/vitess/go/vt/sqlparser"
)

// QueryType classifies how a repository method's SQL was obtained.
type QueryType string

const (
	Derived QueryType = "DERIVED"
	HQL     QueryType = "HQL"
	Native  QueryType = "NATIVE"
)

// MethodParameter is one parameter of a repository method, with an
// optional bound column for DERIVED queries.
type MethodParameter struct {
	Name   string
	Column string // "" if this parameter isn't bound to a column
}

// QueryDescriptor is everything the analysis engine needs about one
// repository method.
type QueryDescriptor struct {
	ClassName           string
	MethodName          string
	QueryType           QueryType
	PrimaryTable        string
	Statement           sqlparser.Statement // nil for DERIVED queries
	OriginalText        string
	MethodParameters    []MethodParameter
	MethodSignatureText string
}

// RelationshipAnnotation classifies a JPA-style association field.
type RelationshipAnnotation string

const (
	OneToOne   RelationshipAnnotation = "OneToOne"
	OneToMany  RelationshipAnnotation = "OneToMany"
	ManyToOne  RelationshipAnnotation = "ManyToOne"
	ManyToMany RelationshipAnnotation = "ManyToMany"
)

// FieldProfile is one persisted scalar field of an entity.
type FieldProfile struct {
	JavaName   string
	ColumnName string
	IsID       bool
	IsNullable bool
	TypeName   string
}

// RelationshipProfile is one association field of an entity.
type RelationshipProfile struct {
	JavaName         string
	Annotation       RelationshipAnnotation
	JoinColumn       string
	ReferencedColumn string
	TargetEntity     string
}

// EntityProfile is built once per entity during profile collection.
type EntityProfile struct {
	EntityName    string
	TableName     string
	Fields        []FieldProfile
	Relationships []RelationshipProfile

	// PlanID correlates this profile back to one normalization run's
	// mapping artifact and changeset IDs across restarts.
	PlanID uuid.UUID
}

// ResolvedType is one compilation unit's resolved type, as delivered by
// the external AST runtime: either a repository (carrying query
// descriptors) or an entity (carrying a profile), never both.
type ResolvedType struct {
	FQN          string
	IsRepository bool
	IsEntity     bool
	Queries      []QueryDescriptor // populated when IsRepository
	Profile      *EntityProfile    // populated when IsEntity
}

// CompilationUnit is an opaque handle the Runtime returns; this core
// never inspects it directly, only passes it back to Runtime methods
// that need source-level detail (e.g. detecting the persistence package
// in use).
type CompilationUnit struct {
	FQN         string
	SourceText  string
	ImportNames []string
}

// Runtime is the external AST parser / type-resolution collaborator.
// The core depends
// only on this interface; the CLI supplies ExportRuntime, which is backed
// by the host AST tool's JSON export.
type Runtime interface {
	// ResolvedTypes returns FQN -> ResolvedType for every type the
	// runtime has resolved, in the runtime's own iteration order.
	ResolvedTypes() map[string]ResolvedType

	// CompilationUnit returns the compilation unit for fqn, or ok=false
	// if the runtime has no source for it.
	CompilationUnit(fqn string) (CompilationUnit, bool)

	// FindSubClasses returns the FQNs of every resolved type that
	// extends or implements fqn.
	FindSubClasses(fqn string) []string
}

// PersistenceFlavor distinguishes the two JPA package roots a generated
// entity file's wildcard import must match.
type PersistenceFlavor string

const (
	Javax   PersistenceFlavor = "javax.persistence"
	Jakarta PersistenceFlavor = "jakarta.persistence"
)

// DetectPersistenceFlavor scans a compilation unit's imports for a JPA
// package root. It defaults to Jakarta when neither is found, matching
// the newer ecosystem default; callers that need the project's actual
// convention should scan more than one compilation unit and prefer the
// majority result.
func DetectPersistenceFlavor(unit CompilationUnit) PersistenceFlavor {
	for _, imp := range unit.ImportNames {
		if hasPrefix(imp, string(Javax)) {
			return Javax
		}
		if hasPrefix(imp, string(Jakarta)) {
			return Jakarta
		}
	}
	return Jakarta
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
