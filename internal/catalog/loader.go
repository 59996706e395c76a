package catalog

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// Loader produces an IndexCatalog from some schema-metadata source. This
// package ships exactly one concrete implementation, LiquibaseXMLLoader,
// which reads index definitions out of an existing Liquibase changelog
// tree; this tool never connects to a live database, not even as a
// metadata source.
type Loader interface {
	Load() (*IndexCatalog, error)
}

// changeLogXML mirrors just enough of the Liquibase changelog schema to
// recover index definitions. Unknown elements are ignored by encoding/xml
// by default, so this struct only needs to name what it cares about.
type changeLogXML struct {
	XMLName    xml.Name       `xml:"databaseChangeLog"`
	ChangeSets []changeSetXML `xml:"changeSet"`
	IncludeEls []includeXML   `xml:"include"`
}

type includeXML struct {
	File string `xml:"file,attr"`
}

type changeSetXML struct {
	CreateIndex         []createIndexXML         `xml:"createIndex"`
	AddPrimaryKey       []addPrimaryKeyXML       `xml:"addPrimaryKey"`
	AddUniqueConstraint []addUniqueConstraintXML `xml:"addUniqueConstraint"`
}

type createIndexXML struct {
	IndexName string          `xml:"indexName,attr"`
	TableName string          `xml:"tableName,attr"`
	Unique    string          `xml:"unique,attr"`
	Columns   []xmlColumnNode `xml:"column"`
}

type addPrimaryKeyXML struct {
	ConstraintName string `xml:"constraintName,attr"`
	TableName      string `xml:"tableName,attr"`
	ColumnNames    string `xml:"columnNames,attr"`
}

type addUniqueConstraintXML struct {
	ConstraintName string `xml:"constraintName,attr"`
	TableName      string `xml:"tableName,attr"`
	ColumnNames    string `xml:"columnNames,attr"`
}

type xmlColumnNode struct {
	Name string `xml:"name,attr"`
}

// LiquibaseXMLLoader walks a master changelog file and every file it
// <include>s (one level, relative to the master's directory) collecting
// createIndex / addPrimaryKey / addUniqueConstraint changesets into an
// IndexCatalog.
type LiquibaseXMLLoader struct {
	MasterPath string
	readFile   func(string) ([]byte, error)
}

// NewLiquibaseXMLLoader returns a loader rooted at masterPath.
func NewLiquibaseXMLLoader(masterPath string) *LiquibaseXMLLoader {
	return &LiquibaseXMLLoader{MasterPath: masterPath, readFile: os.ReadFile}
}

func (l *LiquibaseXMLLoader) read(path string) ([]byte, error) {
	if l.readFile != nil {
		return l.readFile(path)
	}
	return os.ReadFile(path)
}

// Load implements Loader.
func (l *LiquibaseXMLLoader) Load() (*IndexCatalog, error) {
	if l.MasterPath == "" {
		return nil, fmt.Errorf("catalog: master changelog path is empty")
	}

	cat := New()
	dir := dirOf(l.MasterPath)

	master, err := l.read(l.MasterPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading master changelog: %w", err)
	}

	var parsedMaster changeLogXML
	if err := xml.Unmarshal(master, &parsedMaster); err != nil {
		return nil, fmt.Errorf("catalog: parsing master changelog: %w", err)
	}
	applyChangeSets(cat, parsedMaster.ChangeSets)

	for _, inc := range parsedMaster.IncludeEls {
		if inc.File == "" {
			continue
		}
		path := inc.File
		if !strings.HasPrefix(path, "/") {
			path = dir + "/" + path
		}
		data, err := l.read(path)
		if err != nil {
			// An include that can't be read is not fatal to catalog
			// construction: the rest of the catalog is still usable, and a
			// missing table simply yields MEDIUM/false everywhere it's
			// consulted.
			continue
		}
		var included changeLogXML
		if err := xml.Unmarshal(data, &included); err != nil {
			continue
		}
		applyChangeSets(cat, included.ChangeSets)
	}

	return cat, nil
}

func applyChangeSets(cat *IndexCatalog, sets []changeSetXML) {
	for _, cs := range sets {
		for _, ci := range cs.CreateIndex {
			cols := make([]string, 0, len(ci.Columns))
			for _, c := range ci.Columns {
				if c.Name != "" {
					cols = append(cols, c.Name)
				}
			}
			if ci.TableName == "" || len(cols) == 0 {
				continue
			}
			typ := Index
			if strings.EqualFold(ci.Unique, "true") {
				typ = UniqueIndex
			}
			cat.Add(ci.TableName, IndexInfo{Name: ci.IndexName, Type: typ, Columns: cols})
		}
		for _, pk := range cs.AddPrimaryKey {
			cols := splitColumnNames(pk.ColumnNames)
			if pk.TableName == "" || len(cols) == 0 {
				continue
			}
			cat.Add(pk.TableName, IndexInfo{Name: pk.ConstraintName, Type: PrimaryKey, Columns: cols})
		}
		for _, uq := range cs.AddUniqueConstraint {
			cols := splitColumnNames(uq.ColumnNames)
			if uq.TableName == "" || len(cols) == 0 {
				continue
			}
			cat.Add(uq.TableName, IndexInfo{Name: uq.ConstraintName, Type: UniqueConstraint, Columns: cols})
		}
	}
}

func splitColumnNames(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func dirOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "."
	}
	return path[:idx]
}
