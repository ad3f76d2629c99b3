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
	"sort"
	"strings"
)

// Catalog holds the table and relationship metadata for the active data
// source. It is built once at startup and read-only afterwards, so it is
// safe to share across concurrent requests.
type Catalog struct {
	tables    map[string]TableSchema // keyed by lowercase table name
	order     []string               // table names in load order
	edges     map[string][]RelationshipEdge
	samples   map[string][]SampleRow
	sourceTag string
}

// NewCatalog builds a catalog from ordered table schemas and relationship
// edges. sourceTag identifies where the schema came from (for logging).
func NewCatalog(tables []TableSchema, edges []RelationshipEdge, sourceTag string) *Catalog {
	c := &Catalog{
		tables:    make(map[string]TableSchema, len(tables)),
		edges:     make(map[string][]RelationshipEdge),
		samples:   make(map[string][]SampleRow),
		sourceTag: sourceTag,
	}
	for _, t := range tables {
		key := strings.ToLower(t.Name)
		if _, exists := c.tables[key]; !exists {
			c.order = append(c.order, t.Name)
		}
		c.tables[key] = t
	}
	for _, e := range edges {
		key := strings.ToLower(e.SourceTable)
		c.edges[key] = append(c.edges[key], e)
	}
	return c
}

// SourceTag returns the identifier of the schema source
func (c *Catalog) SourceTag() string {
	return c.sourceTag
}

// Tables returns table names in their load order
func (c *Catalog) Tables() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// HasTable reports whether a table exists, case-insensitively
func (c *Catalog) HasTable(name string) bool {
	_, ok := c.tables[strings.ToLower(name)]
	return ok
}

// Table returns the schema of a table, case-insensitively
func (c *Catalog) Table(name string) (TableSchema, bool) {
	t, ok := c.tables[strings.ToLower(name)]
	return t, ok
}

// CanonicalTable returns the catalog's spelling for a table name
func (c *Catalog) CanonicalTable(name string) (string, bool) {
	t, ok := c.tables[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return t.Name, true
}

// Column looks up a column in a table, case-insensitively
func (c *Catalog) Column(table, column string) (ColumnSchema, bool) {
	t, ok := c.tables[strings.ToLower(table)]
	if !ok {
		return ColumnSchema{}, false
	}
	for _, col := range t.Columns {
		if strings.EqualFold(col.Name, column) {
			return col, true
		}
	}
	return ColumnSchema{}, false
}

// HasColumn reports whether a table has a column, case-insensitively
func (c *Catalog) HasColumn(table, column string) bool {
	_, ok := c.Column(table, column)
	return ok
}

// FindColumnAnywhere searches every table for a column name and returns the
// tables that define it, in load order.
func (c *Catalog) FindColumnAnywhere(column string) []string {
	var found []string
	for _, name := range c.order {
		if c.HasColumn(name, column) {
			found = append(found, name)
		}
	}
	return found
}

// Relationships returns the outgoing edges of a table
func (c *Catalog) Relationships(table string) []RelationshipEdge {
	return c.edges[strings.ToLower(table)]
}

// AllRelationships returns every edge, ordered by source table name
func (c *Catalog) AllRelationships() []RelationshipEdge {
	keys := make([]string, 0, len(c.edges))
	for k := range c.edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []RelationshipEdge
	for _, k := range keys {
		out = append(out, c.edges[k]...)
	}
	return out
}

// SetSamples attaches example rows to a table for retrieval context
func (c *Catalog) SetSamples(table string, rows []SampleRow) {
	c.samples[strings.ToLower(table)] = rows
}

// Samples returns example rows for a table, nil when none were captured
func (c *Catalog) Samples(table string) []SampleRow {
	return c.samples[strings.ToLower(table)]
}

// InferRelationships derives foreign-key style edges from column naming:
// a column named "<table>_id" or "<table-minus-plural-s>_id" is assumed to
// reference that table's "id" column, falling back to the same column name
// on the target. Used for the retail schema where no edges are declared.
func InferRelationships(tables []TableSchema) []RelationshipEdge {
	byName := make(map[string]TableSchema, len(tables))
	for _, t := range tables {
		byName[strings.ToLower(t.Name)] = t
	}

	var edges []RelationshipEdge
	for _, t := range tables {
		for _, col := range t.Columns {
			name := strings.ToLower(col.Name)
			if !strings.HasSuffix(name, "_id") {
				continue
			}
			base := strings.TrimSuffix(name, "_id")
			for _, candidate := range []string{base, base + "s", base + "es"} {
				target, ok := byName[candidate]
				if !ok || strings.EqualFold(target.Name, t.Name) {
					continue
				}
				edges = append(edges, RelationshipEdge{
					SourceTable:  t.Name,
					SourceColumn: col.Name,
					TargetTable:  target.Name,
					TargetColumn: targetKeyColumn(target, col.Name),
				})
				break
			}
		}
	}
	return edges
}

// targetKeyColumn picks the column an inferred edge points at: an exact
// name match first, then "id", then the source column name as-is.
func targetKeyColumn(target TableSchema, sourceColumn string) string {
	for _, col := range target.Columns {
		if strings.EqualFold(col.Name, sourceColumn) {
			return col.Name
		}
	}
	for _, col := range target.Columns {
		if strings.EqualFold(col.Name, "id") {
			return col.Name
		}
	}
	return sourceColumn
}
