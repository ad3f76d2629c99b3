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

// ColumnSchema describes a single column of a table
type ColumnSchema struct {
	Name        string
	Type        string
	Description string
	PrimaryKey  bool
}

// TableSchema describes a table: its name, description and ordered columns
type TableSchema struct {
	Name        string
	Description string
	Columns     []ColumnSchema
}

// RelationshipEdge describes a foreign-key style link between two tables.
// Edges enrich prompt context only; they are never enforced.
type RelationshipEdge struct {
	SourceTable  string
	SourceColumn string
	TargetTable  string
	TargetColumn string
}

// SampleRow is one example row of a table, keyed by column name
type SampleRow map[string]interface{}
