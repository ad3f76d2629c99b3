/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// schemaDocument is the JSON layout of a pre-exported schema file, as
// produced by the warehouse export tooling.
type schemaDocument struct {
	DatabaseType string                   `json:"database_type"`
	Tables       map[string]documentTable `json:"tables"`
	Relations    []documentRelation       `json:"relationships"`
}

type documentTable struct {
	Description string           `json:"description"`
	Columns     []documentColumn `json:"columns"`
}

type documentColumn struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type documentRelation struct {
	Table1  string `json:"table1"`
	Column1 string `json:"column1"`
	Table2  string `json:"table2"`
	Column2 string `json:"column2"`
}

// LoadDocument reads a JSON schema document and builds a catalog from it.
// A missing or malformed document is a fatal startup error: the system
// cannot operate without a schema.
func LoadDocument(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema document %s: %w", path, err)
	}

	var doc schemaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema document %s: %w", path, err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("schema document %s defines no tables", path)
	}

	// JSON object order is not preserved; sort table names for a stable
	// chunk corpus across restarts.
	names := make([]string, 0, len(doc.Tables))
	for name := range doc.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]TableSchema, 0, len(names))
	for _, name := range names {
		dt := doc.Tables[name]
		t := TableSchema{Name: name, Description: dt.Description}
		for _, col := range dt.Columns {
			t.Columns = append(t.Columns, ColumnSchema{
				Name:        col.Name,
				Type:        col.Type,
				Description: col.Description,
			})
		}
		tables = append(tables, t)
	}

	edges := make([]RelationshipEdge, 0, len(doc.Relations))
	for _, rel := range doc.Relations {
		edges = append(edges, RelationshipEdge{
			SourceTable:  rel.Table1,
			SourceColumn: rel.Column1,
			TargetTable:  rel.Table2,
			TargetColumn: rel.Column2,
		})
	}

	tag := doc.DatabaseType
	if tag == "" {
		tag = path
	}
	return NewCatalog(tables, edges, tag), nil
}
